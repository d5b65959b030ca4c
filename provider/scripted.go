package provider

import (
	"context"
	"sync"
)

// ScriptedProvider is a lightweight in-memory Provider useful for tests
// and examples. It plays back a fixed sequence of decisions, one per
// call, and walks away once the script is exhausted.
type ScriptedProvider struct {
	info  Info
	mu    sync.Mutex
	queue []Decision
	err   error
}

// NewScriptedProvider constructs a provider that returns the given
// decisions in order.
func NewScriptedProvider(name string, decisions ...Decision) *ScriptedProvider {
	return &ScriptedProvider{
		info:  Info{Name: name, Vendor: "scripted"},
		queue: decisions,
	}
}

// FailWith makes every subsequent call return err instead of a decision.
func (s *ScriptedProvider) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Decide implements Provider; pops the next scripted decision.
func (s *ScriptedProvider) Decide(ctx context.Context, _ Request) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Decision{}, s.err
	}
	if len(s.queue) == 0 {
		return WalkAway("script exhausted"), nil
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return d, nil
}

// Info implements Provider.
func (s *ScriptedProvider) Info() Info { return s.info }

// DecideFunc adapts a plain function into a Provider.
type DecideFunc func(ctx context.Context, req Request) (Decision, error)

// Decide implements Provider.
func (f DecideFunc) Decide(ctx context.Context, req Request) (Decision, error) { return f(ctx, req) }

// Info implements Provider.
func (f DecideFunc) Info() Info { return Info{Name: "func", Vendor: "scripted"} }
