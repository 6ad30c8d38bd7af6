// Package openai provides an HTTP client for OpenAI-compatible chat
// completions APIs, implementing the llm.Gateway port with function calling.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tariffsheriff/tradeassist/internal/config"
	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
)

const selectSystemPrompt = `You are TradeAssist, an assistant for international trade, tariffs and customs questions.
Decide whether the user's question needs one of the available tools.
Call a tool when the question asks for specific rates, codes, agreements or compliance data.
Answer directly for greetings, small talk and general questions that need no lookup.`

const composeSystemPrompt = `You are TradeAssist, an assistant for international trade, tariffs and customs questions.
Compose a clear, concise answer to the user's question using only the tool data provided.
Cite concrete figures from the data where relevant. Do not invent data that is not present.`

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	temp       float64
	maxTokens  int
	maxRetries int
	httpClient *http.Client
}

// NewClient creates a chat completions client from configuration.
func NewClient(cfg config.OpenAI) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		temp:       cfg.Temperature,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Wire types for the chat completions API.

type message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model       string     `json:"model"`
	Messages    []message  `json:"messages"`
	Tools       []toolSpec `json:"tools,omitempty"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// SelectTool asks the model to answer directly or pick a tool.
func (c *Client) SelectTool(ctx context.Context, query chat.Query, tools []chat.ToolDefinition, history []conversation.Message) (chat.Selection, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    c.buildMessages(selectSystemPrompt, query, history),
		Tools:       toolSpecs(tools),
		Temperature: c.temp,
		MaxTokens:   c.maxTokens,
	}

	resp, err := c.doChat(ctx, req)
	if err != nil {
		return chat.Selection{}, err
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		fn := msg.ToolCalls[0].Function
		return chat.Selection{
			Kind: chat.SelectionInvoke,
			Call: chat.ToolCall{Name: fn.Name, Args: parseArgs(fn.Arguments)},
		}, nil
	}
	if msg.Content != "" {
		return chat.Selection{Kind: chat.SelectionDirect, Text: msg.Content}, nil
	}
	return chat.Selection{}, chat.NewError(chat.KindMalformed, "chat completion returned neither content nor a tool call")
}

// GenerateResponse asks the model to compose an answer from tool output.
func (c *Client) GenerateResponse(ctx context.Context, query chat.Query, result chat.ToolResult, history []conversation.Message) (string, error) {
	data, err := json.Marshal(result.Data)
	if err != nil {
		return "", chat.WrapError(chat.KindMalformed, "marshal tool data", err)
	}

	msgs := c.buildMessages(composeSystemPrompt, query, history)
	msgs = append(msgs, message{
		Role:    "system",
		Content: fmt.Sprintf("Data returned by the %s tool: %s", result.ToolName, data),
	})

	req := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temp,
		MaxTokens:   c.maxTokens,
	}

	resp, err := c.doChat(ctx, req)
	if err != nil {
		return "", err
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", chat.NewError(chat.KindMalformed, "chat completion returned empty content")
	}
	return content, nil
}

// buildMessages assembles system prompt, prior turns oldest first, then
// the current query.
func (c *Client) buildMessages(system string, query chat.Query, history []conversation.Message) []message {
	msgs := make([]message, 0, len(history)+2)
	msgs = append(msgs, message{Role: "system", Content: system})
	for _, m := range history {
		msgs = append(msgs, message{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, message{Role: "user", Content: query.Text})
	return msgs
}

func toolSpecs(defs []chat.ToolDefinition) []toolSpec {
	specs := make([]toolSpec, 0, len(defs))
	for _, d := range defs {
		props := make(map[string]any, len(d.Parameters))
		for _, p := range d.Parameters {
			props[p.Name] = map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
		}
		params := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if req := d.Required(); len(req) > 0 {
			params["required"] = req
		}
		specs = append(specs, toolSpec{
			Type: "function",
			Function: functionSpec{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return specs
}

// parseArgs decodes tool call arguments leniently. Models occasionally
// emit malformed JSON here; the registry validates required arguments
// afterwards, so an empty map is safer than failing the whole query.
func parseArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// doChat performs the completion request. Transport errors and 5xx
// responses are retried up to maxRetries times; 429 and other 4xx
// responses fail immediately since retrying cannot help.
func (c *Client) doChat(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	if c.apiKey == "" {
		return nil, chat.NewError(chat.KindConfiguration, "openai api key is not configured")
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, chat.WrapError(chat.KindMalformed, "marshal chat request", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, chat.WrapError(chat.KindServiceUnavailable, "chat completion aborted", ctx.Err())
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, body []byte) (resp *chatResponse, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, chat.WrapError(chat.KindConfiguration, "create chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, chat.WrapError(chat.KindServiceUnavailable, "chat completion request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, chat.WrapError(chat.KindServiceUnavailable, "read chat completion response", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, false, chat.NewError(chat.KindBusy, "chat completion rate limited by provider")
	case httpResp.StatusCode >= 500:
		return nil, true, chat.NewError(chat.KindServiceUnavailable,
			fmt.Sprintf("chat completion provider error %d: %s", httpResp.StatusCode, truncate(data, 200)))
	case httpResp.StatusCode >= 400:
		// Bad request, invalid key, unknown model. Retrying cannot fix these.
		return nil, false, chat.NewError(chat.KindConfiguration,
			fmt.Sprintf("chat completion rejected %d: %s", httpResp.StatusCode, truncate(data, 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, chat.WrapError(chat.KindMalformed, "unmarshal chat completion", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, chat.NewError(chat.KindMalformed, "chat completion has no choices")
	}
	return &parsed, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
