// Package http exposes the assistant over a JSON REST API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/service"
)

const queryBodyLimit = 16 * 1024

// Handlers bundles the HTTP endpoint implementations.
type Handlers struct {
	orch     *service.Orchestrator
	store    *service.Store
	registry *service.Registry
	log      *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(orch *service.Orchestrator, store *service.Store, registry *service.Registry, log *slog.Logger) *Handlers {
	return &Handlers{orch: orch, store: store, registry: registry, log: log}
}

// Query runs one chat query through the pipeline. The pipeline degrades
// internally, so this endpoint always answers 200 with a success flag.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[chat.Query](w, r, queryBodyLimit)
	if !ok {
		return
	}
	// Header identity wins over the body so clients cannot impersonate
	// each other once auth middleware sets it.
	if id := userID(r); id != "" {
		body.UserID = id
	}
	resp := h.orch.Process(r.Context(), body)
	writeJSON(w, http.StatusOK, resp)
}

// ListConversations returns the caller's conversation summaries.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": h.store.Summaries(id),
	})
}

// GetConversation returns one conversation with its messages.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	conv, found := h.store.Get(id, urlParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation removes one conversation.
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !h.store.Delete(id, urlParam(r, "id")) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearConversations removes all of the caller's conversations.
func (h *Handlers) ClearConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	n := h.store.ClearUser(id)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// ListTools describes the registered tools and their health.
func (h *Handlers) ListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":  h.registry.Definitions(),
		"health": h.registry.Health(),
	})
}

// Stats reports store counters and breaker states for monitoring.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"conversations": h.store.Stats(),
		"breakers":      h.orch.BreakerStates(),
		"tools":         h.registry.Health(),
	}
	if id := userID(r); id != "" {
		payload["rate"] = h.orch.RateStatus(id)
	}
	writeJSON(w, http.StatusOK, payload)
}

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
