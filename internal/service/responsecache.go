package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/tariffsheriff/tradeassist/internal/domain/chat"
	"github.com/tariffsheriff/tradeassist/internal/port/cache"
)

// stopwords are dropped during normalization so that phrasings like
// "what is the tariff on steel" and "tariff on steel" share a cache key.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"what": {}, "whats": {}, "how": {}, "do": {}, "does": {}, "can": {},
	"could": {}, "would": {}, "please": {}, "tell": {}, "me": {}, "my": {},
	"i": {}, "you": {}, "of": {}, "for": {}, "to": {}, "in": {}, "on": {},
	"about": {}, "and": {}, "or": {},
}

// ResponseCache stores final responses keyed by normalized query text.
// It is best-effort: failures are reported but never block the pipeline.
type ResponseCache struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewResponseCache wraps the given cache with the response TTL.
func NewResponseCache(c cache.Cache, ttl time.Duration) *ResponseCache {
	return &ResponseCache{cache: c, ttl: ttl}
}

// Key derives the cache key for a query: lowercase, collapse whitespace,
// strip non-alphanumerics, drop stopwords, then hash. Hashing keeps keys
// fixed-size and avoids storing raw user text as keys.
func (rc *ResponseCache) Key(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	kept := make([]string, 0, 8)
	for _, w := range strings.Fields(b.String()) {
		if _, skip := stopwords[w]; !skip {
			kept = append(kept, w)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(kept, " ")))
	return "resp:" + hex.EncodeToString(sum[:])
}

// Get looks up a cached response for the query. The cached flag and
// processing time are reset by the caller.
func (rc *ResponseCache) Get(ctx context.Context, query string) (chat.Response, bool) {
	data, ok, err := rc.cache.Get(ctx, rc.Key(query))
	if err != nil || !ok {
		return chat.Response{}, false
	}
	var resp chat.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// Stale or corrupt entry; drop it.
		_ = rc.cache.Delete(ctx, rc.Key(query))
		return chat.Response{}, false
	}
	return resp, true
}

// Set stores a response under the query's normalized key.
func (rc *ResponseCache) Set(ctx context.Context, query string, resp chat.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return rc.cache.Set(ctx, rc.Key(query), data, rc.ttl)
}
