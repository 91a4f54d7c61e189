package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"broker-backend/internal/domain"
)

// Message is one chat-completions message. Role is system/user/assistant/tool.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a named tool with a JSON-schema input to the provider.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Client is the conversational model provider.
type Client interface {
	Complete(ctx context.Context, system string, msgs []Message, tools []ToolSpec) (*Message, error)
}

// HTTPClient speaks an OpenAI-style chat-completions wire format. One retry on
// transient failures (network error or 5xx), none on client errors.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

var defaultModelHTTP = &http.Client{Timeout: 30 * time.Second}

// httpClient never mutates the struct, so a shared HTTPClient is safe under
// concurrent turns.
func (c *HTTPClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return defaultModelHTTP
}

type completionsRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type completionsResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Complete(ctx context.Context, system string, msgs []Message, tools []ToolSpec) (*Message, error) {
	if c.BaseURL == "" {
		return nil, &domain.ProviderError{Provider: "model", Err: fmt.Errorf("MODEL_API_URL is not set")}
	}

	wire := completionsRequest{Model: c.Model}
	wire.Messages = append(wire.Messages, wireMessage{Role: "system", Content: system})
	for _, m := range msgs {
		wire.Messages = append(wire.Messages, wireMessage(m))
	}
	for _, t := range tools {
		wire.Tools = append(wire.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	bodyBytes, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, bodyBytes)
	if err != nil {
		return nil, err
	}
	var out completionsResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &domain.ProviderError{Provider: "model", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return nil, &domain.ProviderError{Provider: "model", Err: fmt.Errorf("empty choices")}
	}
	return &out.Choices[0].Message, nil
}

// post sends the request with a single retry on transient failure.
func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient().Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("model provider status %d body: %s", resp.StatusCode, respBody)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &domain.ProviderError{Provider: "model", Err: fmt.Errorf("status %d body: %s", resp.StatusCode, respBody)}
		}
		return respBody, nil
	}
	return nil, &domain.ProviderError{Provider: "model", Err: lastErr}
}

const proposeAmountSystem = `You are a pricing assistant. Reply with a single integer amount in minor units (cents) and nothing else.`

// ProposeAmount implements broker.AmountProposer: one-shot completion asking
// for a counter-offer amount within [min, max].
func (c *HTTPClient) ProposeAmount(ctx context.Context, currentOffer, min, max int64) (int64, error) {
	prompt := fmt.Sprintf(
		"The buyer is offering %d. Propose a counter-offer between %d and %d (minor units).",
		currentOffer, min, max)
	msg, err := c.Complete(ctx, proposeAmountSystem, []Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(msg.Content), 10, 64)
	if err != nil {
		return 0, &domain.ProviderError{Provider: "model", Err: fmt.Errorf("non-numeric amount %q", msg.Content)}
	}
	return amount, nil
}
