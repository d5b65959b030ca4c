// Package runner drives a single negotiation session to completion:
// it invokes the decision provider for the turn owner under a timeout,
// records the turn, evaluates termination, and emits progress events.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dealscout/dealscout/core"
	"github.com/dealscout/dealscout/logging"
	"github.com/dealscout/dealscout/provider"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// ProviderTimeout bounds each individual decision provider call.
	ProviderTimeout time.Duration
	// RetryBackoff is the pause before the single retry of a failed call.
	RetryBackoff time.Duration
	// Logger for structured progress logging.
	Logger logging.Logger
}

// Defaults for Options.
const (
	DefaultProviderTimeout = 30 * time.Second
	DefaultRetryBackoff    = 250 * time.Millisecond
)

// Runner executes one session at a time per call to Run. A Runner holds
// no per-session state and is safe to share across concurrent sessions.
type Runner struct {
	buyer  provider.Provider
	seller provider.Provider

	providerTimeout time.Duration
	retryBackoff    time.Duration
	logger          logging.Logger
}

// New constructs a Runner with optional overrides.
func New(buyer, seller provider.Provider, optFns ...func(o *Options)) *Runner {
	opts := Options{
		ProviderTimeout: DefaultProviderTimeout,
		RetryBackoff:    DefaultRetryBackoff,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		buyer:           buyer,
		seller:          seller,
		providerTimeout: opts.ProviderTimeout,
		retryBackoff:    opts.RetryBackoff,
		logger:          opts.Logger,
	}
}

// Run drives sess to a terminal state and returns its result. Provider
// failures become results with status error, never a Go error; the
// caller always gets exactly one result per session.
//
// Events are emitted in turn order: one negotiation_start, one
// negotiation_message per completed turn, and exactly one
// negotiation_complete. The caller must keep draining emit until the
// complete event arrives.
//
// Cancellation is cooperative: a cancelled ctx stops the session at the
// next turn boundary, letting a provider call already in flight finish
// or time out normally.
func (r *Runner) Run(ctx context.Context, batchID string, sess *core.Session, emit chan<- core.Event) core.Result {
	start := time.Now()

	if err := sess.Begin(); err != nil {
		r.logger.Warn("session rejected before start session_id=%s listing_id=%s err=%v", sess.ID, sess.ListingID, err)
		return r.finish(batchID, sess, emit, start)
	}
	emit <- core.NewNegotiationStartEvent(batchID, sess)

	// Turn ceiling plus one retry per turn, with slack for the closing
	// accept. Backstops a provider loop that never terminates.
	limiter := core.NewCallLimiter(2 * (sess.MaxTurns() + 1))

	for {
		party, ok := sess.CurrentParty()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			sess.Fail(fmt.Errorf("batch cancelled: %w", err))
			break
		}

		decision, err := r.decideWithRetry(ctx, limiter, sess, party)
		if err != nil {
			sess.Fail(err)
			break
		}
		if err := sess.Apply(decision.Action, decision.OfferPrice, decision.Message, decision.Confidence); err != nil {
			sess.Fail(err)
			break
		}
		emit <- core.NewNegotiationMessageEvent(batchID, sess, *sess.LastTurn())
	}

	return r.finish(batchID, sess, emit, start)
}

func (r *Runner) finish(batchID string, sess *core.Session, emit chan<- core.Event, start time.Time) core.Result {
	res := sess.Result()
	emit <- core.NewNegotiationCompleteEvent(batchID, res)
	r.logger.Info("session finished session_id=%s listing_id=%s status=%s state=%s turns=%d duration=%s",
		sess.ID, sess.ListingID, res.Status, res.State, res.TurnsTaken, time.Since(start))
	return res
}

// decideWithRetry invokes the party's provider, allowing exactly one
// retry after a short backoff on timeout or malformed response. A
// second failure on the same turn ends the session.
func (r *Runner) decideWithRetry(ctx context.Context, limiter *core.CallLimiter, sess *core.Session, party core.Party) (provider.Decision, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return provider.Decision{}, fmt.Errorf("batch cancelled: %w", ctx.Err())
			case <-time.After(r.retryBackoff):
			}
		}
		if err := limiter.Increment(); err != nil {
			return provider.Decision{}, err
		}

		decision, err := r.decide(ctx, sess, party)
		if err == nil {
			if err = decision.Validate(); err == nil {
				return decision, nil
			}
		}
		lastErr = err
		if ctx.Err() != nil {
			return provider.Decision{}, fmt.Errorf("batch cancelled: %w", ctx.Err())
		}
		r.logger.Warn("provider call failed session_id=%s party=%s turn=%d attempt=%d err=%v",
			sess.ID, party, sess.TurnIndex+1, attempt+1, err)
	}
	return provider.Decision{}, lastErr
}

func (r *Runner) decide(ctx context.Context, sess *core.Session, party core.Party) (provider.Decision, error) {
	p := r.buyer
	if party == core.PartySeller {
		p = r.seller
	}

	req := provider.Request{
		SessionID:    sess.ID,
		ListingTitle: sess.ListingTitle,
		TurnNumber:   sess.TurnIndex + 1,
		Party:        party,
		History:      sess.HistoryCopy(),
		PriceBound:   sess.Bound(party),
		AskingPrice:  sess.AskingPrice,
	}

	callCtx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	defer cancel()

	decision, err := p.Decide(callCtx, req)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return provider.Decision{}, fmt.Errorf("%w after %s", core.ErrProviderTimeout, r.providerTimeout)
	}
	return decision, err
}
