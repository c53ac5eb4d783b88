package invoke

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tool-preselect/internal/hyde"
	"github.com/khanglvm/tool-preselect/internal/search"
)

// scriptedModel implements model.ToolCallingChatModel with canned replies.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []*schema.Message
	err      error
	bound    []*schema.ToolInfo
	requests [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, append([]*schema.Message(nil), messages...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return schema.AssistantMessage("done", nil), nil
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound = tools
	return m, nil
}

func toolCall(id, fn, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: fn, Arguments: args},
	}})
}

var candidates = []search.Candidate{
	{Name: "ReverseString", Group: "StringManipulationPlugin", Description: "Reverses a string", Score: 0.9},
	{Name: "Translate", Group: "TranslationPlugin", Description: "Translates text between languages", Score: 0.8},
}

// TestInvoke_RunsSelectedTool verifies only candidates are bound, the call runs
// locally and its output reaches the model before the answer.
func TestInvoke_RunsSelectedTool(t *testing.T) {
	chat := &scriptedModel{replies: []*schema.Message{
		toolCall("call-1", "StringManipulationPlugin-ReverseString", `{"input":"stressed"}`),
		schema.AssistantMessage("Reversed: desserts", nil),
	}}

	result, err := New(chat, "mock").Invoke(context.Background(), "reverse the word stressed", candidates)
	require.NoError(t, err)

	require.Len(t, chat.bound, 2)
	assert.Equal(t, "StringManipulationPlugin-ReverseString", chat.bound[0].Name)
	assert.Equal(t, "Reverses a string", chat.bound[0].Desc)
	assert.Equal(t, "TranslationPlugin-Translate", chat.bound[1].Name)

	assert.Equal(t, "Reversed: desserts", result.Answer)
	assert.Equal(t, 2, result.Rounds)
	require.Len(t, result.Calls, 1)
	assert.Equal(t, Call{
		Tool:      "StringManipulationPlugin/ReverseString",
		Arguments: `{"input":"stressed"}`,
		Output:    "desserts",
	}, result.Calls[0])

	require.Len(t, chat.requests, 2)
	last := chat.requests[1]
	require.Len(t, last, 3)
	assert.Equal(t, schema.Tool, last[2].Role)
	assert.Equal(t, "call-1", last[2].ToolCallID)
	assert.Equal(t, "desserts", last[2].Content)
}

// TestInvoke_AnswerWithoutToolCall verifies a direct answer takes one round.
func TestInvoke_AnswerWithoutToolCall(t *testing.T) {
	chat := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Bonjour", nil)}}

	result, err := New(chat, "mock").Invoke(context.Background(), "say hello in French", candidates)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", result.Answer)
	assert.Equal(t, 1, result.Rounds)
	assert.Empty(t, result.Calls)
}

// TestInvoke_NoCandidates verifies the model is never called without tools.
func TestInvoke_NoCandidates(t *testing.T) {
	chat := &scriptedModel{}

	_, err := New(chat, "mock").Invoke(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Empty(t, chat.requests)
}

// TestInvoke_ToolFailuresReachModel verifies unimplemented, unknown and failing
// calls are reported to the model instead of aborting.
func TestInvoke_ToolFailuresReachModel(t *testing.T) {
	chat := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			{ID: "a", Function: schema.FunctionCall{Name: "TranslationPlugin-Translate", Arguments: `{"input":"hi"}`}},
			{ID: "b", Function: schema.FunctionCall{Name: "WeatherPlugin-GetForecast", Arguments: `{}`}},
			{ID: "c", Function: schema.FunctionCall{Name: "StringManipulationPlugin-ReverseString", Arguments: ``}},
		}),
		schema.AssistantMessage("I could not do that", nil),
	}}

	result, err := New(chat, "mock").Invoke(context.Background(), "translate hi", candidates)
	require.NoError(t, err)
	require.Len(t, result.Calls, 3)

	assert.Contains(t, result.Calls[0].Err, ErrNotImplemented.Error())
	assert.Contains(t, result.Calls[1].Err, "unknown tool")
	assert.Contains(t, result.Calls[2].Err, `missing argument "input"`)

	toolMessages := chat.requests[1][2:]
	require.Len(t, toolMessages, 3)
	for _, m := range toolMessages {
		assert.Contains(t, m.Content, "error: ")
	}
	assert.Equal(t, "I could not do that", result.Answer)
}

// TestInvoke_ModelFailure verifies backend errors wrap ErrGenerationUnavailable.
func TestInvoke_ModelFailure(t *testing.T) {
	chat := &scriptedModel{err: errors.New("503 service unavailable")}

	_, err := New(chat, "mock").Invoke(context.Background(), "reverse abc", candidates)
	assert.ErrorIs(t, err, hyde.ErrGenerationUnavailable)
}

// TestInvoke_StopsAfterMaxRounds verifies a model that never answers is cut off.
func TestInvoke_StopsAfterMaxRounds(t *testing.T) {
	loop := func() *schema.Message {
		return toolCall("x", "StringManipulationPlugin-ReverseString", `{"input":"ab"}`)
	}
	chat := &scriptedModel{replies: []*schema.Message{loop(), loop(), loop()}}

	result, err := New(chat, "mock", WithMaxRounds(2)).Invoke(context.Background(), "reverse ab", candidates)
	assert.ErrorIs(t, err, ErrTooManyRounds)
	require.NotNil(t, result)
	assert.Len(t, result.Calls, 2)
	assert.Len(t, chat.requests, 2)
}

func TestRegistry_Bind_Deduplicates(t *testing.T) {
	r := Builtin()
	infos, tools := r.Bind(append(candidates, candidates[0]))
	assert.Len(t, infos, 2)
	assert.Len(t, tools, 2)
	assert.True(t, r.Has("stringmanipulationplugin", "reversestring"))
	assert.False(t, r.Has("WeatherPlugin", "GetForecast"))
}
