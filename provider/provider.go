// Package provider defines the decision provider boundary: the
// external collaborator that computes a party's next move given the
// session context. The engine treats providers as opaque, possibly
// slow, possibly failing remote calls; it validates only the shape of
// what comes back, never how the decision was produced.
package provider

import (
	"context"
	"fmt"

	"github.com/dealscout/dealscout/core"
)

// Request is the full visible context handed to a provider for one
// turn. PriceBound is the acting party's own private bound (budget for
// the buyer, floor for the seller); the counterpart's bound is never
// included.
type Request struct {
	SessionID    string      `json:"session_id"`
	ListingTitle string      `json:"listing_title,omitempty"`
	TurnNumber   int         `json:"turn_number"`
	Party        core.Party  `json:"party"`
	History      []core.Turn `json:"history"`
	PriceBound   float64     `json:"price_bound"`
	AskingPrice  float64     `json:"asking_price"`
}

// LastOffer returns the most recent priced move by the given party in
// the request history.
func (r Request) LastOffer(p core.Party) (float64, bool) {
	for i := len(r.History) - 1; i >= 0; i-- {
		t := r.History[i]
		if t.Party == p && t.OfferPrice != nil {
			return *t.OfferPrice, true
		}
	}
	return 0, false
}

// Decision is the structured action a provider returns for a turn.
type Decision struct {
	Action     core.Action `json:"action"`
	OfferPrice *float64    `json:"offer_price,omitempty"`
	Message    string      `json:"message"`
	Confidence float64     `json:"confidence"`
}

// Validate checks the decision shape and normalizes the advisory
// confidence into [0,1]. A missing action or a counter without a price
// is a provider failure, handled by the runner's retry budget.
func (d *Decision) Validate() error {
	if !d.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", core.ErrMalformedDecision, d.Action)
	}
	if d.Action == core.ActionCounter && d.OfferPrice == nil {
		return fmt.Errorf("%w: counter without offer_price", core.ErrMalformedDecision)
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return nil
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"` // "openai", "anthropic", "scripted", etc.
}

// Provider computes one party's next move. Implementations must honor
// ctx cancellation and deadlines; the runner applies a per-call timeout.
type Provider interface {
	Decide(ctx context.Context, req Request) (Decision, error)

	// Info returns information about the provider implementation.
	Info() Info
}

// Counter builds a counter-offer decision. Helper for scripts and tests.
func Counter(price float64, message string, confidence float64) Decision {
	return Decision{Action: core.ActionCounter, OfferPrice: &price, Message: message, Confidence: confidence}
}

// Accept builds an accept decision.
func Accept(message string, confidence float64) Decision {
	return Decision{Action: core.ActionAccept, Message: message, Confidence: confidence}
}

// Reject builds a reject decision.
func Reject(message string) Decision {
	return Decision{Action: core.ActionReject, Message: message, Confidence: 1}
}

// WalkAway builds a walk-away decision.
func WalkAway(message string) Decision {
	return Decision{Action: core.ActionWalkAway, Message: message, Confidence: 1}
}
