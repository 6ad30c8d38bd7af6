package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
)

// memCache is a minimal cache port implementation for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestKeyNormalization(t *testing.T) {
	rc := NewResponseCache(newMemCache(), time.Minute)

	same := [][2]string{
		{"What is the tariff on steel?", "tariff steel"},
		{"TARIFF   on Steel!!!", "tariff steel"},
		{"Please tell me about the tariff on steel", "tariff steel"},
	}
	for _, pair := range same {
		if rc.Key(pair[0]) != rc.Key(pair[1]) {
			t.Errorf("keys differ for %q and %q", pair[0], pair[1])
		}
	}
	if rc.Key("tariff steel") == rc.Key("tariff aluminum") {
		t.Error("distinct queries must not collide")
	}
}

func TestRoundTrip(t *testing.T) {
	rc := NewResponseCache(newMemCache(), time.Minute)
	ctx := context.Background()

	resp := chat.Response{Text: "The rate is 2.5%.", ToolsUsed: []string{"tariff_lookup"}, Success: true}
	if err := rc.Set(ctx, "steel tariff", resp); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := rc.Get(ctx, "What is the STEEL tariff?")
	if !ok {
		t.Fatal("expected cache hit via normalized key")
	}
	if got.Text != resp.Text || len(got.ToolsUsed) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestMissAndBackendError(t *testing.T) {
	mc := newMemCache()
	rc := NewResponseCache(mc, time.Minute)
	ctx := context.Background()

	if _, ok := rc.Get(ctx, "never stored"); ok {
		t.Fatal("expected miss")
	}

	mc.err = errors.New("backend down")
	if _, ok := rc.Get(ctx, "anything"); ok {
		t.Fatal("backend errors must read as misses")
	}
}

func TestCorruptEntryDropped(t *testing.T) {
	mc := newMemCache()
	rc := NewResponseCache(mc, time.Minute)
	ctx := context.Background()

	key := rc.Key("steel tariff")
	mc.data[key] = []byte("{not json")

	if _, ok := rc.Get(ctx, "steel tariff"); ok {
		t.Fatal("corrupt entry should be a miss")
	}
	if _, exists := mc.data[key]; exists {
		t.Fatal("corrupt entry should be deleted")
	}
}
