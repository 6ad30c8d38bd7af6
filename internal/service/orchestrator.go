package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	otelad "github.com/tariffsheriff/tradeassist/internal/adapter/otel"
	"github.com/tariffsheriff/tradeassist/internal/config"
	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/domain/conversation"
	"github.com/tariffsheriff/tradeassist/internal/port/llm"
	"github.com/tariffsheriff/tradeassist/internal/ratelimit"
	"github.com/tariffsheriff/tradeassist/internal/resilience"
)

// llmResource names the model gateway's breaker in the resilience group.
const llmResource = "openai"

// Orchestrator runs a query through the full pipeline: validation,
// response cache, rate limiting, history retrieval, tool selection, tool
// execution, response generation and persistence. Every failure mode
// degrades to a fallback response instead of surfacing an error to the
// caller.
type Orchestrator struct {
	cfg      config.Orchestrator
	convCfg  config.Conversation
	gateway  llm.Gateway
	registry *Registry
	store    *Store
	cache    *ResponseCache
	limiter  *ratelimit.Limiter
	breakers *resilience.Group
	fallback *Fallback
	metrics  *otelad.Metrics
	log      *slog.Logger
	sem      *semaphore.Weighted
	now      func() time.Time // for testing
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(
	cfg config.Orchestrator,
	convCfg config.Conversation,
	gateway llm.Gateway,
	registry *Registry,
	store *Store,
	cache *ResponseCache,
	limiter *ratelimit.Limiter,
	breakers *resilience.Group,
	fallback *Fallback,
	metrics *otelad.Metrics,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		convCfg:  convCfg,
		gateway:  gateway,
		registry: registry,
		store:    store,
		cache:    cache,
		limiter:  limiter,
		breakers: breakers,
		fallback: fallback,
		metrics:  metrics,
		log:      log,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrentCalls),
		now:      time.Now,
	}
}

// Process answers one query. It always returns a response; pipeline
// errors are logged and mapped to user-safe fallback text.
func (o *Orchestrator) Process(ctx context.Context, q chat.Query) (resp chat.Response) {
	start := o.now()
	o.metrics.QueriesStarted.Add(ctx, 1)
	ctx, span := otelad.StartQuerySpan(ctx, q.UserID, q.ConversationID)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panic", "panic", r, "user_id", q.UserID)
			resp = o.fail(ctx, q, fmt.Errorf("pipeline panic: %v", r), start)
		}
	}()

	q.Text = strings.TrimSpace(q.Text)
	if err := o.validate(q); err != nil {
		return o.fail(ctx, q, err, start)
	}

	if cached, ok := o.cache.Get(ctx, q.Text); ok {
		o.metrics.CacheHits.Add(ctx, 1)
		cached.Cached = true
		return o.finish(ctx, cached, start)
	}

	if !q.Anonymous() && !o.limiter.Allow(q.UserID) {
		o.metrics.RateLimited.Add(ctx, 1)
		st := o.limiter.Status(q.UserID)
		return o.fail(ctx, q, &chat.Error{
			Kind:    chat.KindRateLimited,
			Detail:  fmt.Sprintf("user %s over quota (%d/min, %d/hour)", q.UserID, st.MinuteLimit, st.HourLimit),
			UserMsg: rateLimitMessage(st),
		}, start)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return o.fail(ctx, q, chat.WrapError(chat.KindBusy, "no pipeline slot within deadline", err), start)
	}
	defer o.sem.Release(1)

	var history []conversation.Message
	if !q.Anonymous() && q.ConversationID != "" {
		history = o.store.Recent(q.UserID, q.ConversationID, o.convCfg.HistoryForPrompt)
	}

	sel, err := o.selectTool(ctx, q, history)
	if err != nil {
		return o.degrade(ctx, q, err, start)
	}

	switch sel.Kind {
	case chat.SelectionDirect:
		text := sel.Text
		if text == "" {
			// The model committed to answering directly but sent no
			// content. Fall back to the standing greeting rather than
			// storing an empty assistant turn.
			text = directResponseText
		}
		resp = chat.Response{
			Text:      text,
			ToolsUsed: []string{DirectResponseTool},
			Success:   true,
		}
	case chat.SelectionInvoke:
		resp, err = o.runTool(ctx, q, sel.Call, history)
		if err != nil {
			return o.degrade(ctx, q, err, start)
		}
	}

	o.persistAndCache(ctx, q, &resp)
	return o.finish(ctx, resp, start)
}

// validate enforces the query length bounds after trimming. Bounds
// count runes so multi-byte scripts are not penalized.
func (o *Orchestrator) validate(q chat.Query) error {
	n := utf8.RuneCountInString(q.Text)
	switch {
	case n == 0:
		return &chat.Error{Kind: chat.KindValidation, Detail: "empty query",
			UserMsg: "Please enter a message."}
	case n < o.convCfg.MinQueryLength:
		return &chat.Error{Kind: chat.KindValidation,
			Detail:  fmt.Sprintf("query length %d below minimum %d", n, o.convCfg.MinQueryLength),
			UserMsg: fmt.Sprintf("Your message must be at least %d characters long.", o.convCfg.MinQueryLength)}
	case n > o.convCfg.MaxQueryLength:
		return &chat.Error{Kind: chat.KindValidation,
			Detail:  fmt.Sprintf("query length %d above maximum %d", n, o.convCfg.MaxQueryLength),
			UserMsg: fmt.Sprintf("Your message must be at most %d characters long.", o.convCfg.MaxQueryLength)}
	}
	return nil
}

// selectTool runs the model's tool selection through the LLM breaker.
// Configuration errors do not count against the breaker since retrying
// cannot fix them.
func (o *Orchestrator) selectTool(ctx context.Context, q chat.Query, history []conversation.Message) (chat.Selection, error) {
	if !o.breakers.Allow(llmResource) {
		return chat.Selection{}, chat.NewError(chat.KindServiceUnavailable, "llm circuit open")
	}
	lctx, span := otelad.StartLLMSpan(ctx, "select_tool")
	sel, err := o.gateway.SelectTool(lctx, q, o.registry.Definitions(), history)
	span.End()
	o.recordLLMOutcome(err)
	return sel, err
}

func (o *Orchestrator) generate(ctx context.Context, q chat.Query, result chat.ToolResult, history []conversation.Message) (string, error) {
	if !o.breakers.Allow(llmResource) {
		return "", chat.NewError(chat.KindServiceUnavailable, "llm circuit open")
	}
	lctx, span := otelad.StartLLMSpan(ctx, "generate_response")
	text, err := o.gateway.GenerateResponse(lctx, q, result, history)
	span.End()
	o.recordLLMOutcome(err)
	return text, err
}

func (o *Orchestrator) recordLLMOutcome(err error) {
	if err == nil {
		o.breakers.RecordSuccess(llmResource)
		return
	}
	if kind, ok := chat.ErrKind(err); ok && kind == chat.KindConfiguration {
		return
	}
	o.breakers.RecordFailure(llmResource)
}

// runTool executes the selected tool and composes the answer from its
// data. A soft not-found result turns into a resource-suggesting reply
// without a second model call.
func (o *Orchestrator) runTool(ctx context.Context, q chat.Query, call chat.ToolCall, history []conversation.Message) (chat.Response, error) {
	o.metrics.ToolCalls.Add(ctx, 1)
	tctx, span := otelad.StartToolSpan(ctx, call.Name)
	result, err := o.registry.Execute(tctx, call)
	span.End()
	if err != nil {
		return chat.Response{}, err
	}
	o.metrics.ToolDuration.Record(ctx, result.Latency.Seconds())

	if !result.Success {
		return o.fallback.DataNotFound(q.Text, result), nil
	}

	text, err := o.generate(ctx, q, result, history)
	if err != nil {
		return chat.Response{}, err
	}
	return chat.Response{
		Text:      text,
		ToolsUsed: []string{result.ToolName},
		Success:   true,
	}, nil
}

// degrade maps pipeline errors to the best answer still available. When
// the model is down, greetings keep their canned reply and everything
// else gets topic resources via the error fallback.
func (o *Orchestrator) degrade(ctx context.Context, q chat.Query, err error, start time.Time) chat.Response {
	kind, _ := chat.ErrKind(err)
	if kind == chat.KindServiceUnavailable && o.fallback.IsSmallTalk(q.Text) {
		o.metrics.Fallbacks.Add(ctx, 1)
		o.log.Info("small talk served while model unavailable", "user_id", q.UserID)
		resp := o.fallback.SmallTalk()
		o.persistAndCache(ctx, q, &resp)
		return o.finish(ctx, resp, start)
	}
	return o.fail(ctx, q, err, start)
}

// persistAndCache records a successful exchange and caches it for
// repeat queries. Anonymous queries are never persisted; the cached copy
// is stripped of conversation identity so it can serve any user.
func (o *Orchestrator) persistAndCache(ctx context.Context, q chat.Query, resp *chat.Response) {
	if !resp.Success {
		return
	}
	if !q.Anonymous() {
		resp.ConversationID = o.store.StoreExchange(q.UserID, q.ConversationID, q.Text, resp.Text, resp.ToolsUsed)
	}
	toCache := *resp
	toCache.ConversationID = ""
	toCache.ProcessingTimeMs = 0
	toCache.Cached = false
	if err := o.cache.Set(ctx, q.Text, toCache); err != nil {
		o.log.Warn("response cache write failed", "error", err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, resp chat.Response, start time.Time) chat.Response {
	elapsed := o.now().Sub(start)
	resp.ProcessingTimeMs = elapsed.Milliseconds()
	o.metrics.QueriesCompleted.Add(ctx, 1)
	o.metrics.QueryDuration.Record(ctx, elapsed.Seconds())
	return resp
}

func (o *Orchestrator) fail(ctx context.Context, q chat.Query, err error, start time.Time) chat.Response {
	elapsed := o.now().Sub(start)
	o.metrics.QueriesFailed.Add(ctx, 1)
	o.metrics.Fallbacks.Add(ctx, 1)
	o.metrics.QueryDuration.Record(ctx, elapsed.Seconds())
	o.log.Warn("query failed",
		"user_id", q.UserID,
		"conversation_id", q.ConversationID,
		"duration_ms", elapsed.Milliseconds(),
		"error", err)
	resp := o.fallback.ForError(q.Text, err)
	resp.ConversationID = q.ConversationID
	resp.ProcessingTimeMs = elapsed.Milliseconds()
	return resp
}

func rateLimitMessage(st ratelimit.Status) string {
	if st.RetryAfterSecs > 0 {
		return fmt.Sprintf("You're sending messages too quickly. Please try again in %d seconds.", st.RetryAfterSecs)
	}
	return "You're sending messages too quickly. Please wait a moment and try again."
}

// RateStatus exposes a user's quota usage for the API layer.
func (o *Orchestrator) RateStatus(userID string) ratelimit.Status {
	return o.limiter.Status(userID)
}

// BreakerStates exposes breaker health for the stats endpoint.
func (o *Orchestrator) BreakerStates() map[string]string {
	return o.breakers.States()
}
