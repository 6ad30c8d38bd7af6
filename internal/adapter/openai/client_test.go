package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tariffsheriff/tradeassist/internal/config"
	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
)

func testClient(baseURL string) *Client {
	return NewClient(config.OpenAI{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
}

func chatJSON(t *testing.T, r *http.Request) chatRequest {
	t.Helper()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return req
}

func respondWith(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestSelectToolDirectAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		respondWith(w, `{"choices":[{"message":{"role":"assistant","content":"Hello! How can I help?"}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sel, err := c.SelectTool(context.Background(), chat.Query{Text: "hi"}, nil, nil)
	if err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
	if sel.Kind != chat.SelectionDirect || sel.Text != "Hello! How can I help?" {
		t.Fatalf("Selection = %+v", sel)
	}
}

func TestSelectToolInvocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := chatJSON(t, r)
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "tariff_lookup" {
			t.Errorf("tools = %+v", req.Tools)
		}
		respondWith(w, `{"choices":[{"message":{"role":"assistant","tool_calls":[
			{"type":"function","function":{"name":"tariff_lookup","arguments":"{\"importer\":\"US\",\"hs_code\":\"7208\"}"}}
		]}}]}`)
	}))
	defer srv.Close()

	defs := []chat.ToolDefinition{{
		Name:        "tariff_lookup",
		Description: "Look up tariff rates",
		Parameters: []chat.Parameter{
			{Name: "importer", Type: "string", Required: true},
			{Name: "hs_code", Type: "string", Required: true},
		},
	}}

	c := testClient(srv.URL)
	sel, err := c.SelectTool(context.Background(), chat.Query{Text: "steel tariff US"}, defs, nil)
	if err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
	if sel.Kind != chat.SelectionInvoke {
		t.Fatalf("expected invocation, got %+v", sel)
	}
	if sel.Call.Name != "tariff_lookup" || sel.Call.Args["importer"] != "US" || sel.Call.Args["hs_code"] != "7208" {
		t.Fatalf("Call = %+v", sel.Call)
	}
}

func TestSelectToolMalformedArgsYieldEmptyMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWith(w, `{"choices":[{"message":{"role":"assistant","tool_calls":[
			{"type":"function","function":{"name":"tariff_lookup","arguments":"{not json"}}
		]}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sel, err := c.SelectTool(context.Background(), chat.Query{Text: "steel tariff"}, nil, nil)
	if err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
	if sel.Kind != chat.SelectionInvoke || len(sel.Call.Args) != 0 {
		t.Fatalf("Selection = %+v", sel)
	}
}

func TestSelectToolNeitherContentNorCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWith(w, `{"choices":[{"message":{"role":"assistant"}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.SelectTool(context.Background(), chat.Query{Text: "hmm"}, nil, nil)
	kind, ok := chat.ErrKind(err)
	if !ok || kind != chat.KindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestHistoryPrecedesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := chatJSON(t, r)
		if len(req.Messages) != 4 {
			t.Fatalf("expected 4 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("first message role = %s", req.Messages[0].Role)
		}
		if req.Messages[1].Content != "older" || req.Messages[2].Content != "newer" {
			t.Errorf("history out of order: %+v", req.Messages[1:3])
		}
		if req.Messages[3].Role != "user" || req.Messages[3].Content != "current question" {
			t.Errorf("last message = %+v", req.Messages[3])
		}
		respondWith(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: "older"},
		{Role: conversation.RoleAssistant, Content: "newer"},
	}
	c := testClient(srv.URL)
	if _, err := c.SelectTool(context.Background(), chat.Query{Text: "current question"}, nil, history); err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		respondWith(w, `{"choices":[{"message":{"role":"assistant","content":"recovered"}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sel, err := c.SelectTool(context.Background(), chat.Query{Text: "hello"}, nil, nil)
	if err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
	if sel.Text != "recovered" {
		t.Fatalf("Selection = %+v", sel)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestRateLimitFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.SelectTool(context.Background(), chat.Query{Text: "hello"}, nil, nil)
	kind, ok := chat.ErrKind(err)
	if !ok || kind != chat.KindBusy {
		t.Fatalf("expected busy error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("429 must not be retried, got %d calls", calls.Load())
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.SelectTool(context.Background(), chat.Query{Text: "hello"}, nil, nil)
	kind, ok := chat.ErrKind(err)
	if !ok || kind != chat.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient(config.OpenAI{BaseURL: "http://unused", Timeout: time.Second})
	_, err := c.SelectTool(context.Background(), chat.Query{Text: "hello"}, nil, nil)
	kind, ok := chat.ErrKind(err)
	if !ok || kind != chat.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerateResponseIncludesToolData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := chatJSON(t, r)
		last := req.Messages[len(req.Messages)-1]
		if last.Role != "system" {
			t.Errorf("tool data message role = %s", last.Role)
		}
		if !strings.Contains(last.Content, `"rate":"2.5%"`) {
			t.Errorf("tool data missing from prompt: %q", last.Content)
		}
		respondWith(w, `{"choices":[{"message":{"role":"assistant","content":"The tariff rate is 2.5%."}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result := chat.ToolResult{
		ToolName: "tariff_lookup",
		Success:  true,
		Data:     map[string]any{"rate": "2.5%"},
	}
	text, err := c.GenerateResponse(context.Background(), chat.Query{Text: "steel tariff?"}, result, nil)
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if text != "The tariff rate is 2.5%." {
		t.Fatalf("text = %q", text)
	}
}

func TestGenerateResponseEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWith(w, `{"choices":[{"message":{"role":"assistant","content":""}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GenerateResponse(context.Background(), chat.Query{Text: "q"}, chat.ToolResult{ToolName: "t"}, nil)
	kind, ok := chat.ErrKind(err)
	if !ok || kind != chat.KindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
