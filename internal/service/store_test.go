package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/tariffsheriff/tradeassist/internal/config"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
)

func newTestStore() (*Store, *time.Time) {
	s := NewStore(config.Conversation{MaxMessages: 100, MaxPerUser: 50, TitleDisplayWidth: 50})
	now := time.Now()
	s.now = func() time.Time { return now }
	seq := 0
	s.newID = func() string { seq++; return fmt.Sprintf("conv-%d", seq) }
	return s, &now
}

func TestStoreExchangeCreatesConversation(t *testing.T) {
	s, _ := newTestStore()

	id := s.StoreExchange("u1", "", "What is the tariff on steel?", "The rate is 2.5%.", []string{"tariff_lookup"})
	if id == "" {
		t.Fatal("expected a conversation id")
	}

	conv, ok := s.Get("u1", id)
	if !ok {
		t.Fatal("conversation not found")
	}
	if conv.Title != "What is the tariff on steel?" {
		t.Fatalf("Title = %q", conv.Title)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != conversation.RoleUser || conv.Messages[1].Role != conversation.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", conv.Messages)
	}
	if got := conv.Messages[1].ToolsUsed; len(got) != 1 || got[0] != "tariff_lookup" {
		t.Fatalf("ToolsUsed = %v", got)
	}
}

func TestStoreExchangeAppendsToExisting(t *testing.T) {
	s, _ := newTestStore()

	id := s.StoreExchange("u1", "", "first", "reply", nil)
	id2 := s.StoreExchange("u1", id, "second", "reply2", nil)
	if id2 != id {
		t.Fatalf("expected same conversation, got %q and %q", id, id2)
	}
	conv, _ := s.Get("u1", id)
	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(conv.Messages))
	}
	if conv.Title != "first" {
		t.Fatalf("title must come from the first message, got %q", conv.Title)
	}
}

func TestStoreExchangeUnknownIDCreatesNew(t *testing.T) {
	s, _ := newTestStore()
	id := s.StoreExchange("u1", "evicted-id", "hello", "hi", nil)
	if id == "evicted-id" {
		t.Fatal("unknown id should not be reused")
	}
	if _, ok := s.Get("u1", id); !ok {
		t.Fatal("new conversation not stored")
	}
}

func TestMessageCapTruncatesOldest(t *testing.T) {
	s := NewStore(config.Conversation{MaxMessages: 6, MaxPerUser: 10, TitleDisplayWidth: 50})
	id := ""
	for i := 0; i < 5; i++ {
		id = s.StoreExchange("u1", id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), nil)
	}
	conv, _ := s.Get("u1", id)
	if len(conv.Messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Content != "q2" {
		t.Fatalf("oldest surviving message = %q, want q2", conv.Messages[0].Content)
	}
}

func TestPerUserCapEvictsLeastRecentlyActive(t *testing.T) {
	s, now := newTestStore()
	s.maxPerUser = 3

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, s.StoreExchange("u1", "", fmt.Sprintf("conv %d", i), "a", nil))
		*now = now.Add(time.Minute)
	}
	// Touch the first conversation so the second becomes the oldest.
	s.StoreExchange("u1", ids[0], "again", "a", nil)
	*now = now.Add(time.Minute)

	s.StoreExchange("u1", "", "newest", "a", nil)

	if _, ok := s.Get("u1", ids[1]); ok {
		t.Fatal("least recently active conversation should have been evicted")
	}
	if _, ok := s.Get("u1", ids[0]); !ok {
		t.Fatal("recently touched conversation should survive")
	}
}

func TestRecentReturnsLastNOldestFirst(t *testing.T) {
	s, _ := newTestStore()
	id := ""
	for i := 0; i < 5; i++ {
		id = s.StoreExchange("u1", id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), nil)
	}
	msgs := s.Recent("u1", id, 4)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "q3" || msgs[3].Content != "a4" {
		t.Fatalf("unexpected window: first=%q last=%q", msgs[0].Content, msgs[3].Content)
	}
	if s.Recent("u1", "missing", 4) != nil {
		t.Fatal("unknown conversation should yield nil history")
	}
}

func TestSummariesSortedByActivity(t *testing.T) {
	s, now := newTestStore()
	a := s.StoreExchange("u1", "", "alpha", "x", nil)
	*now = now.Add(time.Minute)
	b := s.StoreExchange("u1", "", "beta", "y", nil)
	*now = now.Add(time.Minute)
	s.StoreExchange("u1", a, "alpha again", "z", nil)

	sums := s.Summaries("u1")
	if len(sums) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sums))
	}
	if sums[0].ID != a || sums[1].ID != b {
		t.Fatalf("unexpected order: %s then %s", sums[0].ID, sums[1].ID)
	}
	if sums[0].MessageCount != 4 {
		t.Fatalf("MessageCount = %d", sums[0].MessageCount)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s, _ := newTestStore()
	id := s.StoreExchange("u1", "", "hello", "hi", nil)
	s.StoreExchange("u1", "", "other", "hi", nil)

	if !s.Delete("u1", id) {
		t.Fatal("expected delete to succeed")
	}
	if s.Delete("u1", id) {
		t.Fatal("second delete should report missing")
	}
	if n := s.ClearUser("u1"); n != 1 {
		t.Fatalf("ClearUser = %d", n)
	}
	if got := s.Summaries("u1"); len(got) != 0 {
		t.Fatalf("expected empty store, got %d summaries", len(got))
	}
}

func TestStoreUsesConfiguredTitleWidth(t *testing.T) {
	s := NewStore(config.Conversation{MaxMessages: 10, MaxPerUser: 5, TitleDisplayWidth: 10})
	id := s.StoreExchange("u1", "", "a very long first message indeed", "ok", nil)
	conv, _ := s.Get("u1", id)
	if conv.Title != "a very lon..." {
		t.Fatalf("Title = %q", conv.Title)
	}
}

func TestReadsDoNotCreateBuckets(t *testing.T) {
	s, _ := newTestStore()

	if _, ok := s.Get("ghost", "c1"); ok {
		t.Fatal("unexpected conversation for unknown user")
	}
	if s.Recent("ghost", "c1", 4) != nil {
		t.Fatal("unexpected history for unknown user")
	}
	if got := s.Summaries("ghost"); len(got) != 0 {
		t.Fatalf("Summaries = %v", got)
	}
	if s.Delete("ghost", "c1") {
		t.Fatal("delete for unknown user should report missing")
	}
	if s.ClearUser("ghost") != 0 {
		t.Fatal("clear for unknown user should drop nothing")
	}

	s.mu.RLock()
	n := len(s.users)
	s.mu.RUnlock()
	if n != 0 {
		t.Fatalf("read paths allocated %d buckets", n)
	}
}

func TestStatsAcrossUsers(t *testing.T) {
	s, _ := newTestStore()
	s.StoreExchange("u1", "", "a", "b", nil)
	s.StoreExchange("u1", "", "c", "d", nil)
	s.StoreExchange("u2", "", "e", "f", nil)

	st := s.Stats()
	if st.Users != 2 || st.Conversations != 3 || st.Messages != 6 {
		t.Fatalf("Stats = %+v", st)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore()
	id := s.StoreExchange("u1", "", "hello", "hi", nil)

	conv, _ := s.Get("u1", id)
	conv.Messages[0].Content = "mutated"

	again, _ := s.Get("u1", id)
	if again.Messages[0].Content != "hello" {
		t.Fatal("Get must return an independent copy")
	}
}
