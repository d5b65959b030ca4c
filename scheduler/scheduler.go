// Package scheduler fans one buyer request out into many concurrent
// negotiation sessions, isolates their failures, merges their progress
// events into a single ordered-per-session stream, and selects the
// winning result once every session has finished.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dealscout/dealscout/catalog"
	"github.com/dealscout/dealscout/core"
	"github.com/dealscout/dealscout/logging"
	"github.com/dealscout/dealscout/runner"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// SessionConfig is applied to every session of a batch.
	SessionConfig core.SessionConfig
	// LaunchDelay staggers consecutive session launches. Launching is
	// throttled, execution is not.
	LaunchDelay time.Duration
	// EventBufferSize sets channel buffering for the event stream.
	EventBufferSize int
	// BuyerBudgetMultiplier derives the buyer budget from the asking
	// price when the request carries no explicit budget.
	BuyerBudgetMultiplier float64
	// SellerMinimumMultiplier derives the seller floor from the asking price.
	SellerMinimumMultiplier float64
	// Logger for structured progress logging.
	Logger logging.Logger
}

// Defaults for Options.
const (
	DefaultLaunchDelay             = 500 * time.Millisecond
	DefaultEventBufferSize         = 100
	DefaultBuyerBudgetMultiplier   = 0.95
	DefaultSellerMinimumMultiplier = 0.88
)

// BatchRequest describes one buyer request fanned out across candidate
// listings.
type BatchRequest struct {
	BuyerID string
	// Listings are the candidates; duplicates by listing id are dropped.
	Listings []catalog.Listing
	// BuyerBudget applies to every session; when zero the budget is
	// derived per listing from the asking price.
	BuyerBudget float64
}

// Batch tracks the sessions of one request and their incrementally
// collected results. The results map is written exactly once per
// session id, by that session's own goroutine, under a narrow critical
// section.
type Batch struct {
	ID       string
	Sessions []*core.Session

	mu      sync.Mutex
	results map[string]core.Result
	best    *core.BestDeal
}

func (b *Batch) setResult(sessionID string, res core.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[sessionID] = res
}

// Results returns a copy of the results collected so far, keyed by
// session id.
func (b *Batch) Results() map[string]core.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]core.Result, len(b.results))
	for k, v := range b.results {
		out[k] = v
	}
	return out
}

// Best returns the selected winner, or nil when the batch is unfinished
// or had no successful session.
func (b *Batch) Best() *core.BestDeal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.best
}

func (b *Batch) setBest(best core.BestDeal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.best = &best
}

// Scheduler coordinates concurrent negotiation batches. Public methods
// are safe for concurrent use.
type Scheduler struct {
	runner *runner.Runner

	sessionCfg  core.SessionConfig
	launchDelay time.Duration
	bufferSize  int
	buyerMult   float64
	sellerMult  float64
	logger      logging.Logger

	activeBatches map[string]context.CancelFunc
	mu            sync.RWMutex
}

// New constructs a Scheduler with optional overrides.
func New(r *runner.Runner, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		LaunchDelay:             DefaultLaunchDelay,
		EventBufferSize:         DefaultEventBufferSize,
		BuyerBudgetMultiplier:   DefaultBuyerBudgetMultiplier,
		SellerMinimumMultiplier: DefaultSellerMinimumMultiplier,
		Logger:                  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = DefaultEventBufferSize
	}
	return &Scheduler{
		runner:        r,
		sessionCfg:    opts.SessionConfig,
		launchDelay:   opts.LaunchDelay,
		bufferSize:    opts.EventBufferSize,
		buyerMult:     opts.BuyerBudgetMultiplier,
		sellerMult:    opts.SellerMinimumMultiplier,
		logger:        opts.Logger,
		activeBatches: make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous batch. It returns:
//
//	batchID  - stable identifier for cancellation / tracking
//	eventsCh - merged event stream (closed after the batch outcome event)
//	errorsCh - terminal error channel (size 1, closed after send/none)
//
// The immediate error return covers batch construction failures only;
// everything after launch is reported as per-session result data on the
// event stream. A products_found event precedes the first launch, and
// the best_deal (or no-deal error) event follows the last session's
// negotiation_complete.
func (s *Scheduler) Run(ctx context.Context, req BatchRequest) (string, <-chan core.Event, <-chan error, error) {
	candidates := dedupeListings(req.Listings)
	if len(candidates) == 0 {
		return "", nil, nil, core.ErrNoCandidates
	}

	batchID := core.NewSessionID()
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.activeBatches[batchID] = cancel
	s.mu.Unlock()

	batch := &Batch{ID: batchID, results: make(map[string]core.Result, len(candidates))}
	summaries := make([]core.ListingSummary, len(candidates))
	for i, l := range candidates {
		budget := req.BuyerBudget
		if budget <= 0 {
			budget = l.AskingPrice * s.buyerMult
		}
		sess := core.NewSession(core.SessionParams{
			ListingID:          l.ID,
			ListingTitle:       l.Title,
			SellerID:           l.SellerID,
			BuyerID:            req.BuyerID,
			AskingPrice:        l.AskingPrice,
			MinAcceptablePrice: l.AskingPrice * s.sellerMult,
			BuyerBudget:        budget,
		}, s.sessionCfg)
		batch.Sessions = append(batch.Sessions, sess)
		summaries[i] = core.ListingSummary{ListingID: l.ID, Title: l.Title, AskingPrice: l.AskingPrice}
	}

	eventsCh := make(chan core.Event, s.bufferSize)
	errorsCh := make(chan error, 1)
	internal := make(chan core.Event, s.bufferSize)

	internal <- core.NewProductsFoundEvent(batchID, summaries)

	go s.runBatch(ctx, batch, internal, errorsCh)
	go s.forwardEvents(ctx, batchID, internal, eventsCh, errorsCh, cancel)

	return batchID, eventsCh, errorsCh, nil
}

// Cancel requests cooperative termination of an in-flight batch.
// Sessions stop at their next turn boundary; provider calls already in
// flight finish or time out normally. Cancelling an unknown or already
// finished batch returns an error describing the condition.
func (s *Scheduler) Cancel(batchID string) error {
	s.mu.RLock()
	cancel, exists := s.activeBatches[batchID]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("batch %s not found", batchID)
	}
	cancel()
	return nil
}

// runBatch launches the session goroutines with staggered starts, waits
// for all of them, then appends the batch outcome events and closes the
// internal stream.
func (s *Scheduler) runBatch(ctx context.Context, batch *Batch, internal chan<- core.Event, errorsCh chan<- error) {
	start := time.Now()
	var wg sync.WaitGroup

	for i, sess := range batch.Sessions {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.launchDelay):
			}
		}
		if ctx.Err() != nil {
			s.logger.Info("batch cancelled before launching remaining sessions batch_id=%s launched=%d", batch.ID, i)
			break
		}
		wg.Add(1)
		go s.runSession(ctx, batch, sess, internal, &wg)
	}

	wg.Wait()

	results := batch.Results()
	successes, errCount := 0, 0
	for _, r := range results {
		switch r.Status {
		case core.StatusSuccess:
			successes++
		case core.StatusError:
			errCount++
		}
	}

	if best, ok := SelectBest(results); ok {
		batch.setBest(best)
		internal <- core.NewBestDealEvent(batch.ID, best)
	} else {
		internal <- core.NewErrorEvent(batch.ID, "", "no successful negotiation")
	}
	internal <- core.NewStatusEvent(batch.ID, "all negotiations complete")

	if err := ctx.Err(); err != nil {
		errorsCh <- fmt.Errorf("batch cancelled: %w", err)
	}
	s.logger.Info("batch finished batch_id=%s sessions=%d successes=%d errors=%d duration=%s",
		batch.ID, len(results), successes, errCount, time.Since(start))
	close(internal)
}

// runSession executes one session with full fault containment: provider
// failures are already result data, and a panic is converted into an
// error result so siblings keep running.
func (s *Scheduler) runSession(ctx context.Context, batch *Batch, sess *core.Session, emit chan<- core.Event, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("session panicked batch_id=%s session_id=%s: %v", batch.ID, sess.ID, p)
			sess.Fail(fmt.Errorf("session panicked: %v", p))
			res := sess.Result()
			batch.setResult(sess.ID, res)
			emit <- core.NewNegotiationCompleteEvent(batch.ID, res)
		}
	}()

	res := s.runner.Run(ctx, batch.ID, sess, emit)
	batch.setResult(sess.ID, res)
}

// forwardEvents pumps the internal stream to the consumer, dropping
// deliveries once the consumer's context is gone but always draining so
// session goroutines can never block on emission.
func (s *Scheduler) forwardEvents(ctx context.Context, batchID string, internal <-chan core.Event, eventsCh chan<- core.Event, errorsCh chan<- error, cancel context.CancelFunc) {
	defer func() {
		close(eventsCh)
		close(errorsCh)
		s.mu.Lock()
		delete(s.activeBatches, batchID)
		s.mu.Unlock()
		cancel()
	}()

	for ev := range internal {
		select {
		case eventsCh <- ev:
		case <-ctx.Done():
		}
	}
}

// dedupeListings drops duplicate listing ids preserving first-seen order.
func dedupeListings(listings []catalog.Listing) []catalog.Listing {
	seen := make(map[string]bool, len(listings))
	out := make([]catalog.Listing, 0, len(listings))
	for _, l := range listings {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}
