package service

import (
	"strings"
	"testing"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

func TestIsSmallTalk(t *testing.T) {
	f := NewFallback()

	yes := []string{"hello", "Hi!", "  hey  ", "Thanks", "good morning", "How are you?"}
	for _, q := range yes {
		if !f.IsSmallTalk(q) {
			t.Errorf("IsSmallTalk(%q) = false, want true", q)
		}
	}
	no := []string{"hello, what is the tariff on steel?", "hts code for laptops", ""}
	for _, q := range no {
		if f.IsSmallTalk(q) {
			t.Errorf("IsSmallTalk(%q) = true, want false", q)
		}
	}
}

func TestSmallTalkResponse(t *testing.T) {
	resp := NewFallback().SmallTalk()
	if resp.Text != "I'm here to help! How else can I assist you today?" {
		t.Fatalf("Text = %q", resp.Text)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != DirectResponseTool {
		t.Fatalf("ToolsUsed = %v", resp.ToolsUsed)
	}
	if !resp.Success {
		t.Fatal("small talk should be a success")
	}
}

func TestDataNotFoundSuggestsTopicResources(t *testing.T) {
	f := NewFallback()
	result := chat.ToolResult{ToolName: "tariff_lookup", Message: "No tariff data for that combination."}

	resp := f.DataNotFound("what is the tariff rate on steel", result)
	if !resp.Success {
		t.Fatal("soft not-found should still be a successful response")
	}
	if !strings.Contains(resp.Text, "No tariff data for that combination.") {
		t.Fatalf("tool message missing: %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "WTO Tariff Database") || !strings.Contains(resp.Text, "dataweb.usitc.gov") {
		t.Fatalf("expected tariff resources, got %q", resp.Text)
	}
	// Each entry carries its description and relevance, not just a link.
	if !strings.Contains(resp.Text, "Official World Trade Organization tariff data") {
		t.Fatalf("resource description missing: %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "Comprehensive global tariff information") {
		t.Fatalf("resource relevance missing: %q", resp.Text)
	}
	if resp.ToolsUsed[0] != "tariff_lookup" {
		t.Fatalf("ToolsUsed = %v", resp.ToolsUsed)
	}
}

func TestTopicClassification(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"hs code for laptops", "wcoomd.org"},
		{"does USMCA cover dairy", "ustr.gov"},
		{"customs compliance for exports to Japan", "trade.gov"},
	}
	f := NewFallback()
	for _, tt := range tests {
		resp := f.Generic(tt.query)
		if !strings.Contains(resp.Text, tt.want) {
			t.Errorf("Generic(%q) missing %q: %q", tt.query, tt.want, resp.Text)
		}
	}
}

func TestGenericWithoutTopic(t *testing.T) {
	resp := NewFallback().Generic("asdf qwerty")
	if resp.Success {
		t.Fatal("generic fallback is not a success")
	}
	if strings.Contains(resp.Text, "http") {
		t.Fatalf("no resources expected for unclassified query: %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "rephrasing") {
		t.Fatalf("generic fallback should tell the user what to try next: %q", resp.Text)
	}
}

func TestForErrorUsesUserMessage(t *testing.T) {
	f := NewFallback()

	resp := f.ForError("tariff on steel", chat.NewError(chat.KindServiceUnavailable, "breaker open for openai"))
	if resp.Success {
		t.Fatal("error response must not be a success")
	}
	if strings.Contains(resp.Text, "breaker open") {
		t.Fatalf("technical detail leaked: %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "temporarily unavailable") {
		t.Fatalf("Text = %q", resp.Text)
	}
	// Outage errors include resources; validation errors do not.
	if !strings.Contains(resp.Text, "wto.org") {
		t.Fatalf("expected resources for outage: %q", resp.Text)
	}
	vresp := f.ForError("tariff on steel", chat.NewError(chat.KindValidation, "too short"))
	if strings.Contains(vresp.Text, "http") {
		t.Fatalf("validation errors should not suggest resources: %q", vresp.Text)
	}
}
