/*
Package mcp implements the MCP server that exposes tool pre-selection.

The server uses stdio transport and exposes 2 tools:
  - find_tools: match a natural-language request to catalog tools
  - list_tools: list the registered tools, optionally for one group
*/
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/catalog"
	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/selector"
)

// Tool names.
const (
	ToolFindTools = "find_tools"
	ToolListTools = "list_tools"
)

// Selector runs a matching pipeline. *selector.Selector implements it.
type Selector interface {
	Select(ctx context.Context, query string, hyde bool) selector.Outcome
}

// Lister returns the registered tool records. *catalog.Catalog implements it.
type Lister interface {
	Records(ctx context.Context) ([]catalog.ToolRecord, error)
}

// Server wraps the go-sdk server with the pre-selection tools.
type Server struct {
	server   *sdk.Server
	selector Selector
	lister   Lister
	logger   *zap.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(sel Selector, lister Lister, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{
			Name:    "tool-preselect",
			Version: version,
		}, &sdk.ServerOptions{
			HasTools: true,
		}),
		selector: sel,
		lister:   lister,
		logger:   logger.Named("mcp"),
	}

	s.server.AddTool(&sdk.Tool{
		Name: ToolFindTools,
		Description: `Find the tools that can handle a request, ranked by semantic similarity.

WHEN TO USE: Before acting on a user request, to narrow the tool set down to the few relevant ones.

Set hyde=true to rewrite the request into a tool description first. This costs one LLM call
and usually helps with vague or conversational requests.

Example: {"query": "is john@example.com a real address?"} → ValidateEmail (ValidationPlugin)`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Natural language request describing what you want to do",
				},
				"hyde": map[string]any{
					"type":        "boolean",
					"description": "Rewrite the request into a hypothetical tool description before matching",
				},
			},
			"required": []string{"query"},
		},
	}, s.handleFindTools)

	s.server.AddTool(&sdk.Tool{
		Name: ToolListTools,
		Description: `List the tools registered in the catalog, grouped by plugin.

WHEN TO USE: To browse what is available or check a group's tools by name.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"group": map[string]any{
					"type":        "string",
					"description": "Only list tools of this group (e.g. MathPlugin)",
				},
			},
		},
	}, s.handleListTools)

	return s
}

// Run serves over stdio until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single session over transport.
func (s *Server) Connect(ctx context.Context, transport sdk.Transport) (*sdk.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

type findToolsArgs struct {
	Query string `json:"query"`
	HyDE  bool   `json:"hyde"`
}

type listToolsArgs struct {
	Group string `json:"group"`
}

func (s *Server) handleFindTools(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var args findToolsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult(fmt.Errorf("query is required")), nil
	}

	out := s.selector.Select(ctx, args.Query, args.HyDE)
	if out.Err != nil {
		return errorResult(out.Err), nil
	}
	return textResult(formatOutcome(out)), nil
}

func (s *Server) handleListTools(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var args listToolsArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err), nil
	}

	records, err := s.lister.Records(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(formatRecords(records, args.Group)), nil
}

func decodeArgs(req *sdk.CallToolRequest, v any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func formatOutcome(out selector.Outcome) string {
	var sb strings.Builder
	if out.FellBack() {
		fmt.Fprintf(&sb, "Note: rewrite unavailable (%v), matched the request directly.\n\n", out.RewriteErr)
	} else if out.Rewritten != "" {
		fmt.Fprintf(&sb, "Rewritten as: %s\n\n", out.Rewritten)
	}

	if len(out.Candidates) == 0 {
		sb.WriteString("No matching tool found.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Matching tools (%d):\n", len(out.Candidates))
	for _, c := range out.Candidates {
		writeCandidate(&sb, c)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeCandidate(sb *strings.Builder, c search.Candidate) {
	fmt.Fprintf(sb, "  • %s (%s) [%.3f]: %s\n", c.Name, c.Group, c.Score, c.Description)
}

func formatRecords(records []catalog.ToolRecord, group string) string {
	byGroup := make(map[string][]catalog.ToolRecord)
	for _, r := range records {
		if group != "" && !strings.EqualFold(r.Group, group) {
			continue
		}
		byGroup[r.Group] = append(byGroup[r.Group], r)
	}

	if len(byGroup) == 0 {
		if group != "" {
			return fmt.Sprintf("No tools registered in group '%s'.", group)
		}
		return "No tools registered. Run 'tool-preselect index' to build the catalog."
	}

	groups := make([]string, 0, len(byGroup))
	total := 0
	for g, rs := range byGroup {
		groups = append(groups, g)
		total += len(rs)
	}
	sort.Strings(groups)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Registered tools (%d in %d groups):\n", total, len(groups))
	for _, g := range groups {
		fmt.Fprintf(&sb, "\n%s:\n", g)
		for _, r := range byGroup[g] {
			fmt.Fprintf(&sb, "  • %s: %s\n", r.Name, r.Description)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}

func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}
