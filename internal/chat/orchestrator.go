package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"broker-backend/internal/memory"

	"github.com/rs/zerolog/log"
)

// maxToolSteps caps tool-use rounds per conversation turn.
const maxToolSteps = 5

const brokerSystemPrompt = `You are a professional product broker and marketplace middleman. Your role is to facilitate transactions between buyers and sellers.

For sellers: help them list products with condition, asking price, minimum acceptable price and flexibility percentage.
For buyers: help them find products and negotiate deals within the seller's stated flexibility.
As middleman: facilitate negotiations, suggest fair prices, and help both parties reach mutually beneficial agreements.

Be professional but friendly, transparent about all terms, and work toward win-win outcomes. When showing listings, always include the product image URL if available.

Start each conversation by asking if the user is looking to buy or sell, and what product category they are interested in.`

// MemoryMirror is the slice of the memory provider the orchestrator uses.
type MemoryMirror interface {
	AddMessages(ctx context.Context, sessionID string, msgs []memory.Message) error
}

// Orchestrator runs one conversation turn: model completion, bounded
// tool-calling loop, best-effort memory mirroring. Turns are request-scoped
// and sequential; the session is an explicit value, not ambient state.
type Orchestrator struct {
	Model  Client
	Memory MemoryMirror
	System string
}

func (o *Orchestrator) system() string {
	if o.System != "" {
		return o.System
	}
	return brokerSystemPrompt
}

// Turn runs the loop for one user message and returns the assistant's reply.
// history carries prior turns of the same session.
func (o *Orchestrator) Turn(ctx context.Context, session memory.Session, history []Message, userMessage string, tools []Tool) (string, error) {
	msgs := append(append([]Message{}, history...), Message{Role: "user", Content: userMessage})

	specs := make([]ToolSpec, 0, len(tools))
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		specs = append(specs, t.Spec())
		byName[t.Name] = t
	}

	var reply string
	for step := 0; step < maxToolSteps; step++ {
		resp, err := o.Model.Complete(ctx, o.system(), msgs, specs)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			reply = resp.Content
			break
		}

		msgs = append(msgs, *resp)
		for _, call := range resp.ToolCalls {
			msgs = append(msgs, o.runTool(ctx, byName, call))
		}
		// Step cap reached with the model still asking for tools: return
		// whatever content accompanied the last tool request.
		reply = resp.Content
	}
	if reply == "" {
		reply = "I wasn't able to complete that request, please try again."
	}

	o.mirror(ctx, session, userMessage, reply)
	return reply, nil
}

func (o *Orchestrator) runTool(ctx context.Context, byName map[string]Tool, call ToolCall) Message {
	result := Message{
		Role:       "tool",
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}
	tool, ok := byName[call.Function.Name]
	if !ok {
		result.Content = fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
		return result
	}
	out, err := tool.Execute(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Function.Name).Msg("tool execution failed")
		result.Content = fmt.Sprintf("Error: %v", err)
		return result
	}
	result.Content = out
	return result
}

// mirror copies the turn into the memory session. Failures are logged and
// swallowed: memory is not critical to the primary transaction.
func (o *Orchestrator) mirror(ctx context.Context, session memory.Session, userMessage, reply string) {
	if o.Memory == nil || session.ID == "" {
		return
	}
	err := o.Memory.AddMessages(ctx, session.ID, []memory.Message{
		{Role: "user", Content: userMessage},
		{Role: "assistant", Content: reply},
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("memory mirroring failed")
	}
}
