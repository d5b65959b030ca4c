package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/catalog"
	"github.com/dealscout/dealscout/core"
	"github.com/dealscout/dealscout/internal/testutil"
	"github.com/dealscout/dealscout/provider"
	"github.com/dealscout/dealscout/runner"
)

func fastScheduler(buyer, seller provider.Provider) *Scheduler {
	r := runner.New(buyer, seller, func(o *runner.Options) {
		o.RetryBackoff = time.Millisecond
	})
	return New(r, func(o *Options) {
		o.LaunchDelay = time.Millisecond
	})
}

func listings(n int) []catalog.Listing {
	out := make([]catalog.Listing, n)
	for i := range out {
		out[i] = catalog.Listing{
			ID:          string(rune('a'+i)) + "_listing",
			SellerID:    "seller_1",
			Title:       "Listing " + string(rune('A'+i)),
			AskingPrice: float64(500 + 100*i),
		}
	}
	return out
}

func TestScheduler_RunHappyBatch(t *testing.T) {
	s := fastScheduler(provider.NewRuleBasedBuyer(), provider.NewRuleBasedSeller())

	batchID, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: listings(3),
	})
	require.NoError(t, err)
	require.NotEmpty(t, batchID)

	all := testutil.CollectEvents(t, events, 10*time.Second)
	require.NoError(t, <-errs)

	// products_found leads the stream, before any session event.
	require.NotEmpty(t, all)
	assert.Equal(t, core.EventProductsFound, all[0].Type)
	assert.Len(t, all[0].Listings, 3)

	completes := testutil.EventsOfType(all, core.EventNegotiationComplete)
	require.Len(t, completes, 3)

	best, ok := testutil.FirstEventOfType(all, core.EventBestDeal)
	require.True(t, ok, "expected a best_deal event")
	require.NotNil(t, best.BestDeal)
	assert.NotEmpty(t, best.BestDeal.Justification)

	// best_deal comes only after every session has completed.
	lastComplete, bestIdx := -1, -1
	for i, ev := range all {
		switch ev.Type {
		case core.EventNegotiationComplete:
			lastComplete = i
		case core.EventBestDeal:
			bestIdx = i
		}
	}
	assert.Greater(t, bestIdx, lastComplete)
}

func TestScheduler_PerSessionEventOrder(t *testing.T) {
	s := fastScheduler(provider.NewRuleBasedBuyer(), provider.NewRuleBasedSeller())

	_, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: listings(4),
	})
	require.NoError(t, err)

	all := testutil.CollectEvents(t, events, 10*time.Second)
	require.NoError(t, <-errs)

	starts := testutil.EventsOfType(all, core.EventNegotiationStart)
	require.Len(t, starts, 4)

	for _, start := range starts {
		sessEvents := testutil.SessionEvents(all, start.SessionID)
		require.NotEmpty(t, sessEvents)
		assert.Equal(t, core.EventNegotiationStart, sessEvents[0].Type)
		assert.Equal(t, core.EventNegotiationComplete, sessEvents[len(sessEvents)-1].Type)
		turn := 0
		for _, ev := range sessEvents[1 : len(sessEvents)-1] {
			require.Equal(t, core.EventNegotiationMessage, ev.Type)
			require.NotNil(t, ev.Turn)
			turn++
			assert.Equal(t, turn, ev.Turn.TurnNumber)
		}
	}
}

func TestScheduler_FailureIsolation(t *testing.T) {
	// One listing's buyer provider panics; its siblings must finish and
	// the batch must still pick a winner.
	ruleBuyer := provider.NewRuleBasedBuyer()
	buyer := provider.DecideFunc(func(ctx context.Context, req provider.Request) (provider.Decision, error) {
		if req.ListingTitle == "Listing C" {
			panic("buyer strategy exploded")
		}
		return ruleBuyer.Decide(ctx, req)
	})

	s := fastScheduler(buyer, provider.NewRuleBasedSeller())

	_, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: listings(5),
	})
	require.NoError(t, err)

	all := testutil.CollectEvents(t, events, 10*time.Second)
	require.NoError(t, <-errs)

	completes := testutil.EventsOfType(all, core.EventNegotiationComplete)
	require.Len(t, completes, 5)

	statuses := map[core.Status]int{}
	for _, ev := range completes {
		statuses[ev.Result.Status]++
	}
	assert.Equal(t, 4, statuses[core.StatusSuccess])
	assert.Equal(t, 1, statuses[core.StatusError])

	_, ok := testutil.FirstEventOfType(all, core.EventBestDeal)
	assert.True(t, ok, "surviving sessions should still produce a winner")
}

func TestScheduler_AllSessionsFail(t *testing.T) {
	buyer := provider.DecideFunc(func(_ context.Context, _ provider.Request) (provider.Decision, error) {
		return provider.WalkAway("not interested"), nil
	})
	s := fastScheduler(buyer, provider.NewRuleBasedSeller())

	_, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: listings(2),
	})
	require.NoError(t, err)

	all := testutil.CollectEvents(t, events, 10*time.Second)
	require.NoError(t, <-errs)

	_, ok := testutil.FirstEventOfType(all, core.EventBestDeal)
	assert.False(t, ok)

	errEv, ok := testutil.FirstEventOfType(all, core.EventError)
	require.True(t, ok)
	assert.Contains(t, errEv.Message, "no successful negotiation")
}

func TestScheduler_EmptyBatch(t *testing.T) {
	s := fastScheduler(provider.NewRuleBasedBuyer(), provider.NewRuleBasedSeller())

	_, _, _, err := s.Run(context.Background(), BatchRequest{BuyerID: "buyer_1"})
	assert.ErrorIs(t, err, core.ErrNoCandidates)
}

func TestScheduler_DedupesListings(t *testing.T) {
	s := fastScheduler(provider.NewRuleBasedBuyer(), provider.NewRuleBasedSeller())

	dup := listings(2)
	dup = append(dup, dup[0], catalog.Listing{Title: "no id"})

	_, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: dup,
	})
	require.NoError(t, err)

	all := testutil.CollectEvents(t, events, 10*time.Second)
	require.NoError(t, <-errs)

	completes := testutil.EventsOfType(all, core.EventNegotiationComplete)
	assert.Len(t, completes, 2)
}

func TestScheduler_DerivedBounds(t *testing.T) {
	// With no explicit budget the buyer budget and seller floor come
	// from the asking price.
	var seen provider.Request
	buyer := provider.DecideFunc(func(_ context.Context, req provider.Request) (provider.Decision, error) {
		seen = req
		return provider.WalkAway("just checking"), nil
	})
	s := fastScheduler(buyer, provider.NewRuleBasedSeller())

	_, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: []catalog.Listing{{ID: "bike_1", Title: "Bike", AskingPrice: 1000}},
	})
	require.NoError(t, err)
	testutil.CollectEvents(t, events, 10*time.Second)
	require.NoError(t, <-errs)

	assert.InDelta(t, 950, seen.PriceBound, 0.001)
	assert.InDelta(t, 1000, seen.AskingPrice, 0.001)
}

func TestScheduler_Cancel(t *testing.T) {
	// Slow providers keep the batch alive long enough to cancel it.
	slow := provider.DecideFunc(func(ctx context.Context, _ provider.Request) (provider.Decision, error) {
		select {
		case <-ctx.Done():
			return provider.Decision{}, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return provider.Counter(100, "slowly", 0.5), nil
		}
	})
	s := fastScheduler(slow, slow)

	batchID, events, errs, err := s.Run(context.Background(), BatchRequest{
		BuyerID:  "buyer_1",
		Listings: listings(2),
	})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(batchID))

	// The stream still closes cleanly; deliveries after cancellation may
	// be dropped, so only the terminal error is asserted.
	testutil.CollectEvents(t, events, 10*time.Second)
	err = <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")

	// A finished batch is no longer cancellable.
	assert.Error(t, s.Cancel(batchID))
}

func TestScheduler_CancelUnknownBatch(t *testing.T) {
	s := fastScheduler(provider.NewRuleBasedBuyer(), provider.NewRuleBasedSeller())
	assert.Error(t, s.Cancel("no-such-batch"))
}
