package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"broker-backend/internal/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays canned responses and records what it was asked.
type scriptedClient struct {
	responses []*Message
	calls     [][]Message
}

func (s *scriptedClient) Complete(ctx context.Context, system string, msgs []Message, tools []ToolSpec) (*Message, error) {
	s.calls = append(s.calls, msgs)
	if len(s.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type recordingMirror struct {
	sessionID string
	msgs      []memory.Message
	err       error
}

func (r *recordingMirror) AddMessages(ctx context.Context, sessionID string, msgs []memory.Message) error {
	r.sessionID = sessionID
	r.msgs = append(r.msgs, msgs...)
	return r.err
}

func toolCallResponse(name, args string) *Message {
	return &Message{
		Role: "assistant",
		ToolCalls: []ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestTurn_PlainReply(t *testing.T) {
	model := &scriptedClient{responses: []*Message{{Role: "assistant", Content: "Hello, are you buying or selling?"}}}
	mirror := &recordingMirror{}
	o := &Orchestrator{Model: model, Memory: mirror}

	reply, err := o.Turn(context.Background(), memory.Session{ID: "sess-1"}, nil, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello, are you buying or selling?", reply)

	// Both sides of the turn are mirrored.
	assert.Equal(t, "sess-1", mirror.sessionID)
	require.Len(t, mirror.msgs, 2)
	assert.Equal(t, "user", mirror.msgs[0].Role)
	assert.Equal(t, "hi", mirror.msgs[0].Content)
	assert.Equal(t, "assistant", mirror.msgs[1].Role)
}

func TestTurn_ToolRoundTrip(t *testing.T) {
	model := &scriptedClient{responses: []*Message{
		toolCallResponse("lookup", `{}`),
		{Role: "assistant", Content: "The answer is 42."},
	}}
	o := &Orchestrator{Model: model}

	tools := []Tool{{
		Name: "lookup",
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "42", nil
		},
	}}
	reply, err := o.Turn(context.Background(), memory.Session{}, nil, "what is it?", tools)
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", reply)

	// The second completion sees the assistant tool request and the tool result.
	require.Len(t, model.calls, 2)
	second := model.calls[1]
	require.Len(t, second, 3)
	assert.Equal(t, "user", second[0].Role)
	assert.Equal(t, "assistant", second[1].Role)
	assert.Equal(t, "tool", second[2].Role)
	assert.Equal(t, "42", second[2].Content)
	assert.Equal(t, "call_1", second[2].ToolCallID)
}

func TestTurn_ToolErrorFedBack(t *testing.T) {
	model := &scriptedClient{responses: []*Message{
		toolCallResponse("lookup", `{}`),
		{Role: "assistant", Content: "Sorry, that failed."},
	}}
	o := &Orchestrator{Model: model}

	tools := []Tool{{
		Name: "lookup",
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", errors.New("backend down")
		},
	}}
	reply, err := o.Turn(context.Background(), memory.Session{}, nil, "q", tools)
	require.NoError(t, err)
	assert.Equal(t, "Sorry, that failed.", reply)
	assert.Contains(t, model.calls[1][2].Content, "backend down")
}

func TestTurn_UnknownTool(t *testing.T) {
	model := &scriptedClient{responses: []*Message{
		toolCallResponse("no_such_tool", `{}`),
		{Role: "assistant", Content: "ok"},
	}}
	o := &Orchestrator{Model: model}

	_, err := o.Turn(context.Background(), memory.Session{}, nil, "q", nil)
	require.NoError(t, err)
	assert.Contains(t, model.calls[1][2].Content, "unknown tool")
}

func TestTurn_StepCap(t *testing.T) {
	// The model never stops asking for tools; the loop must give up after the
	// cap and fall back to a generic reply.
	responses := make([]*Message, 0, maxToolSteps)
	for i := 0; i < maxToolSteps; i++ {
		responses = append(responses, toolCallResponse("loop", `{}`))
	}
	model := &scriptedClient{responses: responses}
	o := &Orchestrator{Model: model}

	tools := []Tool{{
		Name: "loop",
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "again", nil
		},
	}}
	reply, err := o.Turn(context.Background(), memory.Session{}, nil, "q", tools)
	require.NoError(t, err)
	assert.Len(t, model.calls, maxToolSteps)
	assert.Equal(t, "I wasn't able to complete that request, please try again.", reply)
}

func TestTurn_MirrorFailureSwallowed(t *testing.T) {
	model := &scriptedClient{responses: []*Message{{Role: "assistant", Content: "done"}}}
	mirror := &recordingMirror{err: errors.New("memory provider down")}
	o := &Orchestrator{Model: model, Memory: mirror}

	reply, err := o.Turn(context.Background(), memory.Session{ID: "sess-1"}, nil, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
}

func TestTurn_NoSessionSkipsMirror(t *testing.T) {
	model := &scriptedClient{responses: []*Message{{Role: "assistant", Content: "done"}}}
	mirror := &recordingMirror{}
	o := &Orchestrator{Model: model, Memory: mirror}

	_, err := o.Turn(context.Background(), memory.Session{}, nil, "hi", nil)
	require.NoError(t, err)
	assert.Empty(t, mirror.msgs)
}

func TestTurn_HistoryPassedThrough(t *testing.T) {
	model := &scriptedClient{responses: []*Message{{Role: "assistant", Content: "done"}}}
	o := &Orchestrator{Model: model}

	history := []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	_, err := o.Turn(context.Background(), memory.Session{}, history, "followup", nil)
	require.NoError(t, err)
	require.Len(t, model.calls, 1)
	require.Len(t, model.calls[0], 3)
	assert.Equal(t, "earlier question", model.calls[0][0].Content)
	assert.Equal(t, "followup", model.calls[0][2].Content)
}
