package testutil

import (
	"github.com/dealscout/dealscout/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder().Asking(850).Budget(807.50).Begun().Build()
//
// Chain only the parts you need; sensible defaults are applied.
type SessionBuilder struct {
	params core.SessionParams
	cfg    core.SessionConfig
	begin  bool
}

// NewSessionBuilder creates a builder with a plausible single-listing
// setup: $850 asking price, $748 seller floor, $807.50 buyer budget.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		params: core.SessionParams{
			ListingID:          "listing_1",
			ListingTitle:       "Trek Mountain Bike",
			SellerID:           "seller_1",
			BuyerID:            "buyer_1",
			AskingPrice:        850,
			MinAcceptablePrice: 748,
			BuyerBudget:        807.50,
		},
	}
}

// ListingID overrides the listing id (chainable).
func (b *SessionBuilder) ListingID(id string) *SessionBuilder { b.params.ListingID = id; return b }

// Asking overrides the asking price (chainable).
func (b *SessionBuilder) Asking(v float64) *SessionBuilder { b.params.AskingPrice = v; return b }

// Floor overrides the seller's minimum acceptable price (chainable).
func (b *SessionBuilder) Floor(v float64) *SessionBuilder {
	b.params.MinAcceptablePrice = v
	return b
}

// Budget overrides the buyer budget (chainable).
func (b *SessionBuilder) Budget(v float64) *SessionBuilder { b.params.BuyerBudget = v; return b }

// MaxTurns overrides the turn cap (chainable).
func (b *SessionBuilder) MaxTurns(n int) *SessionBuilder { b.cfg.MaxTurns = n; return b }

// Threshold overrides the convergence threshold (chainable).
func (b *SessionBuilder) Threshold(v float64) *SessionBuilder {
	b.cfg.ConvergenceThreshold = v
	return b
}

// ClosePolicy overrides how a converged price is settled (chainable).
func (b *SessionBuilder) ClosePolicy(p core.ClosePolicy) *SessionBuilder {
	b.cfg.ClosePolicy = p
	return b
}

// Begun makes Build call Begin() so the session is ready for turns (chainable).
func (b *SessionBuilder) Begun() *SessionBuilder { b.begin = true; return b }

// Build constructs the *core.Session.
func (b *SessionBuilder) Build() *core.Session {
	sess := core.NewSession(b.params, b.cfg)
	if b.begin {
		_ = sess.Begin()
	}
	return sess
}
