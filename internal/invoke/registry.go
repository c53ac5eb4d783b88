package invoke

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/khanglvm/tool-preselect/internal/search"
)

// ErrNotImplemented is returned when the model calls a catalog tool that has
// no local function.
var ErrNotImplemented = errors.New("tool has no local implementation")

// Args is the decoded argument object of one tool call.
type Args map[string]any

// String returns a required string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing argument %q", key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return fmt.Sprint(s), nil
	}
}

// StringOr returns a string argument, or def when it is absent.
func (a Args) StringOr(key, def string) string {
	if _, ok := a[key]; !ok {
		return def
	}
	s, err := a.String(key)
	if err != nil {
		return def
	}
	return s
}

// Int returns a required integer argument. Numbers may arrive as JSON numbers or strings.
func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("argument %q is not an integer: %v", key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("argument %q is not an integer: %q", key, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument %q has type %T", key, v)
	}
}

// BoolOr returns a boolean argument, or def when it is absent or unreadable.
func (a Args) BoolOr(key string, def bool) bool {
	switch b := a[key].(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// Function is the local body of a catalog tool.
type Function func(ctx context.Context, args Args) (string, error)

type entry struct {
	params map[string]*schema.ParameterInfo
	fn     Function
}

// Registry maps catalog tools (group and name) to local functions.
type Registry struct {
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Add registers fn as the body of group/name. A later Add replaces an earlier one.
func (r *Registry) Add(group, name string, params map[string]*schema.ParameterInfo, fn Function) {
	r.entries[key(group, name)] = entry{params: params, fn: fn}
}

// Has reports whether group/name has a local function.
func (r *Registry) Has(group, name string) bool {
	_, ok := r.entries[key(group, name)]
	return ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.entries)
}

// FunctionName is the name a catalog tool is offered to the model under.
// Chat APIs only accept [a-zA-Z0-9_-] in function names.
func FunctionName(group, name string) string {
	return group + "-" + name
}

// Bind builds the tool definitions for candidates and the tools that run them,
// keyed by FunctionName. Candidates without a local function are still offered;
// calling them yields ErrNotImplemented.
func (r *Registry) Bind(candidates []search.Candidate) ([]*schema.ToolInfo, map[string]tool.InvokableTool) {
	infos := make([]*schema.ToolInfo, 0, len(candidates))
	tools := make(map[string]tool.InvokableTool, len(candidates))

	for _, c := range candidates {
		fnName := FunctionName(c.Group, c.Name)
		if _, dup := tools[fnName]; dup {
			continue
		}

		e, ok := r.entries[key(c.Group, c.Name)]
		if !ok {
			e = entry{
				params: map[string]*schema.ParameterInfo{
					"input": {Type: schema.String, Desc: "The input for the tool"},
				},
				fn: notImplemented(c.Group + "/" + c.Name),
			}
		}

		info := &schema.ToolInfo{
			Name:        fnName,
			Desc:        c.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(e.params),
		}
		fn := e.fn
		infos = append(infos, info)
		tools[fnName] = utils.NewTool(info, func(ctx context.Context, args Args) (string, error) {
			return fn(ctx, args)
		})
	}
	return infos, tools
}

func notImplemented(tool string) Function {
	return func(context.Context, Args) (string, error) {
		return "", fmt.Errorf("%w: %s", ErrNotImplemented, tool)
	}
}

func key(group, name string) string {
	return strings.ToLower(group) + "/" + strings.ToLower(name)
}
