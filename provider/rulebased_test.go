package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/core"
)

// playOut alternates the two providers against a fresh session until it
// terminates, mimicking what the runner does without its plumbing.
func playOut(t *testing.T, buyer, seller Provider, sess *core.Session) core.Result {
	t.Helper()
	require.NoError(t, sess.Begin())

	for i := 0; i < 50; i++ {
		party, ok := sess.CurrentParty()
		if !ok {
			break
		}
		p := buyer
		if party == core.PartySeller {
			p = seller
		}
		d, err := p.Decide(context.Background(), Request{
			SessionID:   sess.ID,
			TurnNumber:  sess.TurnIndex + 1,
			Party:       party,
			History:     sess.HistoryCopy(),
			PriceBound:  sess.Bound(party),
			AskingPrice: sess.AskingPrice,
		})
		require.NoError(t, err)
		require.NoError(t, d.Validate())
		require.NoError(t, sess.Apply(d.Action, d.OfferPrice, d.Message, d.Confidence))
	}
	require.True(t, sess.State.Terminal(), "negotiation did not terminate")
	return sess.Result()
}

func TestRuleBasedProviders_ConvergeOnOverlap(t *testing.T) {
	sess := core.NewSession(core.SessionParams{
		ListingID:          "bike_12345",
		ListingTitle:       "Trek Mountain Bike",
		AskingPrice:        750,
		MinAcceptablePrice: 660,
		BuyerBudget:        712.50,
	}, core.SessionConfig{})

	res := playOut(t, NewRuleBasedBuyer(), NewRuleBasedSeller(), sess)

	require.Equal(t, core.StatusSuccess, res.Status)
	require.NotNil(t, res.FinalPrice)
	assert.LessOrEqual(t, *res.FinalPrice, 712.50+0.001)
	// A midpoint close can undercut the floor by at most half the
	// convergence threshold.
	assert.GreaterOrEqual(t, *res.FinalPrice, 660-10-0.001)
	assert.Positive(t, res.Savings)
}

func TestRuleBasedBuyer_OpensBelowAsking(t *testing.T) {
	d, err := NewRuleBasedBuyer().Decide(context.Background(), Request{
		Party:       core.PartyBuyer,
		PriceBound:  712.50,
		AskingPrice: 750,
	})
	require.NoError(t, err)
	require.Equal(t, core.ActionCounter, d.Action)
	require.NotNil(t, d.OfferPrice)
	assert.Less(t, *d.OfferPrice, 750.0)
	assert.LessOrEqual(t, *d.OfferPrice, 712.50)
}

func TestRuleBasedSeller_RejectsBelowFloorWhenExhausted(t *testing.T) {
	seller := NewRuleBasedSeller()
	d, err := seller.Decide(context.Background(), Request{
		Party:       core.PartySeller,
		PriceBound:  700,
		AskingPrice: 750,
		History: []core.Turn{
			{TurnNumber: 1, Party: core.PartyBuyer, Action: core.ActionCounter, OfferPrice: ptr(500)},
			{TurnNumber: 2, Party: core.PartySeller, Action: core.ActionCounter, OfferPrice: ptr(700)},
			{TurnNumber: 3, Party: core.PartyBuyer, Action: core.ActionCounter, OfferPrice: ptr(520)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, core.ActionReject, d.Action)
}
