package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tariffsheriff/tradeassist/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSyncLogger(t *testing.T) {
	log, closer := New(config.Logging{Level: "debug", Service: "test-svc"})
	if log == nil {
		t.Fatal("expected logger")
	}
	closer.Close() // no-op for sync mode, must not panic
}

// captureHandler records every log record it handles.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestAsyncHandlerDeliversRecords(t *testing.T) {
	inner := &captureHandler{}
	h := NewAsyncHandler(inner, 16, 1)
	log := slog.New(h)

	for i := 0; i < 10; i++ {
		log.Info("msg", "i", i)
	}
	h.Close()

	if got := inner.count(); got != 10 {
		t.Fatalf("expected 10 records after close, got %d", got)
	}
	if h.DroppedCount() != 0 {
		t.Fatalf("expected no drops, got %d", h.DroppedCount())
	}
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	inner := &captureHandler{}
	// Zero workers so nothing drains; capacity 1 forces the second record out.
	h := &AsyncHandler{
		inner:   inner,
		ch:      make(chan slog.Record, 1),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	log := slog.New(h)

	log.Info("kept")
	log.Info("dropped")

	if h.DroppedCount() != 1 {
		t.Fatalf("expected 1 dropped record, got %d", h.DroppedCount())
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestID(ctx); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Fatalf("expected req-123, got %q", got)
	}
}
