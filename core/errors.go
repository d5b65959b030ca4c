package core

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderTimeout marks a decision provider call that exceeded its
	// per-call deadline. Eligible for one retry before the session fails.
	ErrProviderTimeout = errors.New("decision provider timed out")

	// ErrMalformedDecision marks a provider response whose shape is
	// unusable (unknown action, counter without a price). Treated the
	// same as a timeout for retry purposes.
	ErrMalformedDecision = errors.New("malformed provider decision")

	// ErrNoCandidates is returned when a batch is requested with an
	// empty candidate list. This is the only hard failure of a batch
	// request; everything else is reported per session.
	ErrNoCandidates = errors.New("no candidate listings")

	// ErrSessionTerminal is returned when a move is applied to a session
	// that has already reached a terminal state.
	ErrSessionTerminal = errors.New("session already terminal")
)

// ValidationError describes malformed session inputs detected before any
// turn is taken, e.g. a seller floor above the asking price.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session input %s: %s", e.Field, e.Reason)
}
