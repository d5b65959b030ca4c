// Package dealscout provides a high-level façade over the negotiation
// engine: catalog search, the parallel scheduler, and result selection.
// Most applications interact with this package by:
//  1. Creating a DealScout via New() with buyer and seller decision providers
//  2. Calling Negotiate for a streaming batch or NegotiateSync for a
//     collected outcome
//
// The façade delegates orchestration to scheduler.Scheduler while
// keeping setup and usage ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically
// supply a durable catalog store, model-backed providers, and a
// structured logger.
package dealscout

import (
	"context"
	"fmt"
	"time"

	"github.com/dealscout/dealscout/catalog"
	"github.com/dealscout/dealscout/core"
	"github.com/dealscout/dealscout/logging"
	"github.com/dealscout/dealscout/provider"
	"github.com/dealscout/dealscout/runner"
	"github.com/dealscout/dealscout/scheduler"
)

// Options configures the DealScout instance.
type Options struct {
	// Catalog is the listing store (defaults to an empty in-memory store).
	Catalog catalog.Store
	// BuyerID identifies the buying party on created sessions.
	BuyerID string
	// SessionConfig tunes every session's termination behavior.
	SessionConfig core.SessionConfig
	// ProviderTimeout bounds each decision provider call.
	ProviderTimeout time.Duration
	// RetryBackoff is the pause before the single per-turn retry.
	RetryBackoff time.Duration
	// LaunchDelay staggers consecutive session launches within a batch.
	LaunchDelay time.Duration
	// EventBufferSize sets channel buffering for event streams.
	EventBufferSize int
	// BuyerBudgetMultiplier derives a buyer budget from the asking
	// price when a request has none.
	BuyerBudgetMultiplier float64
	// SellerMinimumMultiplier derives the seller floor from the asking price.
	SellerMinimumMultiplier float64
	// Logger for structured logging (defaults to no-op).
	Logger logging.Logger
}

// DealScout wires the catalog to the negotiation scheduler.
type DealScout struct {
	catalog   catalog.Store
	scheduler *scheduler.Scheduler
	buyerID   string
	logger    logging.Logger
}

// New constructs a DealScout running the given buyer and seller
// decision providers, with optional overrides.
func New(buyer, seller provider.Provider, optFns ...func(o *Options)) *DealScout {
	opts := Options{
		Catalog:                 catalog.NewInMemoryStore(),
		BuyerID:                 "buyer",
		ProviderTimeout:         runner.DefaultProviderTimeout,
		RetryBackoff:            runner.DefaultRetryBackoff,
		LaunchDelay:             scheduler.DefaultLaunchDelay,
		EventBufferSize:         scheduler.DefaultEventBufferSize,
		BuyerBudgetMultiplier:   scheduler.DefaultBuyerBudgetMultiplier,
		SellerMinimumMultiplier: scheduler.DefaultSellerMinimumMultiplier,
		Logger:                  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(buyer, seller, func(o *runner.Options) {
		o.ProviderTimeout = opts.ProviderTimeout
		o.RetryBackoff = opts.RetryBackoff
		o.Logger = opts.Logger
	})
	sched := scheduler.New(r, func(o *scheduler.Options) {
		o.SessionConfig = opts.SessionConfig
		o.LaunchDelay = opts.LaunchDelay
		o.EventBufferSize = opts.EventBufferSize
		o.BuyerBudgetMultiplier = opts.BuyerBudgetMultiplier
		o.SellerMinimumMultiplier = opts.SellerMinimumMultiplier
		o.Logger = opts.Logger
	})

	return &DealScout{
		catalog:   opts.Catalog,
		scheduler: sched,
		buyerID:   opts.BuyerID,
		logger:    opts.Logger,
	}
}

// NegotiateRequest describes what the buyer wants. Either ListingIDs
// pins the exact candidates, or Query/MaxBudget/TopN searches the
// catalog for them.
type NegotiateRequest struct {
	Query      string   `json:"query,omitempty"`
	ListingIDs []string `json:"listing_ids,omitempty"`
	MaxBudget  float64  `json:"max_budget,omitempty"`
	TopN       int      `json:"top_n,omitempty"`
}

// Negotiate resolves candidate listings and starts a streaming batch.
// The returned channels follow the scheduler.Run contract.
func (d *DealScout) Negotiate(ctx context.Context, req NegotiateRequest) (string, <-chan core.Event, <-chan error, error) {
	listings, err := d.resolveListings(ctx, req)
	if err != nil {
		return "", nil, nil, err
	}
	return d.scheduler.Run(ctx, scheduler.BatchRequest{
		BuyerID:     d.buyerID,
		Listings:    listings,
		BuyerBudget: req.MaxBudget,
	})
}

// Cancel requests cooperative termination of an in-flight batch.
func (d *DealScout) Cancel(batchID string) error { return d.scheduler.Cancel(batchID) }

// BatchOutcome is the collected terminal picture of one batch.
type BatchOutcome struct {
	BatchID string
	// Results is keyed by session id, one entry per launched session.
	Results map[string]core.Result
	// Best is nil when no session succeeded.
	Best *core.BestDeal
	// Events is the full ordered stream as a consumer saw it.
	Events []core.Event
}

// NegotiateSync runs a batch to completion and collects its outcome
// from the event stream.
func (d *DealScout) NegotiateSync(ctx context.Context, req NegotiateRequest) (*BatchOutcome, error) {
	batchID, events, errs, err := d.Negotiate(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := &BatchOutcome{BatchID: batchID, Results: make(map[string]core.Result)}
	for ev := range events {
		outcome.Events = append(outcome.Events, ev)
		switch ev.Type {
		case core.EventNegotiationComplete:
			if ev.Result != nil {
				outcome.Results[ev.SessionID] = *ev.Result
			}
		case core.EventBestDeal:
			outcome.Best = ev.BestDeal
		}
	}
	if err := <-errs; err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (d *DealScout) resolveListings(ctx context.Context, req NegotiateRequest) ([]catalog.Listing, error) {
	if len(req.ListingIDs) > 0 {
		listings := make([]catalog.Listing, 0, len(req.ListingIDs))
		for _, id := range req.ListingIDs {
			l, err := d.catalog.Get(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", id, err)
			}
			listings = append(listings, l)
		}
		return listings, nil
	}

	listings, err := d.catalog.Search(ctx, catalog.Query{Text: req.Query, MaxPrice: req.MaxBudget, Limit: req.TopN})
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	return listings, nil
}
