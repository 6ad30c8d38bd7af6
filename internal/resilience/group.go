package resilience

import (
	"sync"
	"time"
)

// Group manages one breaker per named resource, creating breakers lazily
// with shared thresholds. It lets the pipeline isolate failures of one
// downstream (the LLM, an individual tool) without affecting the others.
type Group struct {
	mu          sync.Mutex
	breakers    map[string]*Breaker
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time // for testing; propagated to new breakers
}

// NewGroup creates a breaker group with the given per-breaker settings.
func NewGroup(maxFailures int, cooldown time.Duration) *Group {
	return &Group{
		breakers:    make(map[string]*Breaker),
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (g *Group) breaker(resource string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[resource]
	if !ok {
		b = NewBreaker(g.maxFailures, g.cooldown)
		b.now = g.now
		g.breakers[resource] = b
	}
	return b
}

// Allow reports whether a call to the named resource may proceed.
func (g *Group) Allow(resource string) bool {
	return g.breaker(resource).Allow()
}

// RecordSuccess records a successful call to the named resource.
func (g *Group) RecordSuccess(resource string) {
	g.breaker(resource).RecordSuccess()
}

// RecordFailure records a failed call to the named resource.
func (g *Group) RecordFailure(resource string) {
	g.breaker(resource).RecordFailure()
}

// Execute runs fn through the named resource's breaker.
func (g *Group) Execute(resource string, fn func() error) error {
	return g.breaker(resource).Execute(fn)
}

// State returns the named resource's breaker state. Resources never
// called report StateClosed.
func (g *Group) State(resource string) State {
	g.mu.Lock()
	b, ok := g.breakers[resource]
	g.mu.Unlock()
	if !ok {
		return StateClosed
	}
	return b.State()
}

// States snapshots the state of every breaker in the group.
func (g *Group) States() map[string]string {
	g.mu.Lock()
	names := make([]string, 0, len(g.breakers))
	bs := make([]*Breaker, 0, len(g.breakers))
	for name, b := range g.breakers {
		names = append(names, name)
		bs = append(bs, b)
	}
	g.mu.Unlock()

	out := make(map[string]string, len(names))
	for i, name := range names {
		out[name] = bs[i].State().String()
	}
	return out
}
