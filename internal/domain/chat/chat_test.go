package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestQueryAnonymous(t *testing.T) {
	if !(Query{Text: "hi"}).Anonymous() {
		t.Fatal("query without user id should be anonymous")
	}
	if (Query{Text: "hi", UserID: "u1"}).Anonymous() {
		t.Fatal("query with user id should not be anonymous")
	}
}

func TestToolDefinitionRequired(t *testing.T) {
	def := ToolDefinition{
		Name: "tariff_lookup",
		Parameters: []Parameter{
			{Name: "importer", Type: "string", Required: true},
			{Name: "year", Type: "integer"},
			{Name: "hs_code", Type: "string", Required: true},
		},
	}
	got := def.Required()
	if len(got) != 2 || got[0] != "importer" || got[1] != "hs_code" {
		t.Fatalf("Required() = %v", got)
	}
	if _, ok := def.Param("year"); !ok {
		t.Fatal("expected to find year parameter")
	}
	if _, ok := def.Param("missing"); ok {
		t.Fatal("did not expect to find missing parameter")
	}
}

func TestErrorUserMessageDefaults(t *testing.T) {
	kinds := []Kind{
		KindValidation, KindRateLimited, KindServiceUnavailable,
		KindConfiguration, KindToolExecution, KindBusy, KindMalformed,
	}
	for _, k := range kinds {
		e := NewError(k, "internal detail")
		if e.UserMessage() == "" {
			t.Errorf("kind %v: empty user message", k)
		}
		if e.UserMessage() == e.Error() {
			t.Errorf("kind %v: user message leaks technical detail", k)
		}
	}
}

func TestErrorUserMessageOverride(t *testing.T) {
	e := &Error{Kind: KindValidation, Detail: "too short", UserMsg: "Message must be at least 3 characters long."}
	if got := e.UserMessage(); got != "Message must be at least 3 characters long." {
		t.Fatalf("UserMessage() = %q", got)
	}
}

func TestErrorUserMessageFromWrappedCause(t *testing.T) {
	inner := &Error{
		Kind:    KindToolExecution,
		Detail:  "rate table refresh in progress",
		UserMsg: "The tariff database is being updated right now.",
	}
	outer := WrapError(KindToolExecution, `tool "tariff_lookup" failed`, inner)
	if got := outer.UserMessage(); got != inner.UserMsg {
		t.Fatalf("UserMessage() = %q, want the wrapped cause's message", got)
	}

	// A chain with no user message anywhere still yields the kind default.
	plain := WrapError(KindBusy, "throttled", errors.New("429"))
	if got := plain.UserMessage(); got != NewError(KindBusy, "x").UserMessage() {
		t.Fatalf("UserMessage() = %q, want the busy default", got)
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	e := WrapError(KindServiceUnavailable, "openai request failed", cause)

	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}
	wrapped := fmt.Errorf("pipeline: %w", e)
	kind, ok := ErrKind(wrapped)
	if !ok || kind != KindServiceUnavailable {
		t.Fatalf("ErrKind = %v, %v", kind, ok)
	}
	if _, ok := ErrKind(errors.New("plain")); ok {
		t.Fatal("plain error should not yield a kind")
	}
}

func TestKindString(t *testing.T) {
	if KindBusy.String() != "busy" {
		t.Fatalf("KindBusy.String() = %q", KindBusy.String())
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("unknown kind string = %q", Kind(99).String())
	}
}
