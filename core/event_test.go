package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConstructors(t *testing.T) {
	sess := NewSession(SessionParams{
		ListingID:    "listing_1",
		ListingTitle: "Standing Desk",
		AskingPrice:  390,
		BuyerBudget:  350,
	}, SessionConfig{})

	start := NewNegotiationStartEvent("batch-1", sess)
	assert.Equal(t, EventNegotiationStart, start.Type)
	assert.Equal(t, "batch-1", start.BatchID)
	assert.Equal(t, sess.ID, start.SessionID)
	assert.Equal(t, "listing_1", start.ListingID)
	assert.Equal(t, "Standing Desk", start.Message)
	assert.NotEmpty(t, start.ID)
	assert.False(t, start.Timestamp.IsZero())

	price := 340.0
	turn := Turn{TurnNumber: 1, Party: PartyBuyer, Action: ActionCounter, OfferPrice: &price, Message: "would you take 340?"}
	msg := NewNegotiationMessageEvent("batch-1", sess, turn)
	assert.Equal(t, EventNegotiationMessage, msg.Type)
	require.NotNil(t, msg.Turn)
	assert.Equal(t, turn.Message, msg.Message)

	res := Result{SessionID: sess.ID, ListingID: "listing_1", Status: StatusSuccess}
	complete := NewNegotiationCompleteEvent("batch-1", res)
	assert.Equal(t, EventNegotiationComplete, complete.Type)
	assert.Equal(t, sess.ID, complete.SessionID)
	require.NotNil(t, complete.Result)
	assert.Equal(t, StatusSuccess, complete.Result.Status)

	best := NewBestDealEvent("batch-1", BestDeal{SessionID: sess.ID, ListingID: "listing_1", FinalPrice: 340})
	assert.Equal(t, EventBestDeal, best.Type)
	require.NotNil(t, best.BestDeal)
	assert.InDelta(t, 340, best.BestDeal.FinalPrice, 0.001)

	found := NewProductsFoundEvent("batch-1", []ListingSummary{{ListingID: "listing_1", AskingPrice: 390}})
	assert.Equal(t, EventProductsFound, found.Type)
	assert.Len(t, found.Listings, 1)

	errEv := NewErrorEvent("batch-1", sess.ID, "no successful negotiation")
	assert.Equal(t, EventError, errEv.Type)
	assert.Equal(t, "no successful negotiation", errEv.Message)
}

func TestEventIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ev := NewStatusEvent("batch-1", "tick")
		assert.False(t, seen[ev.ID])
		seen[ev.ID] = true
	}
}

func TestEvent_JSONShape(t *testing.T) {
	ev := NewStatusEvent("batch-1", "searching catalog")
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "status", decoded["type"])
	assert.Equal(t, "searching catalog", decoded["message"])
	// Empty optional fields are omitted entirely.
	assert.NotContains(t, decoded, "turn")
	assert.NotContains(t, decoded, "best_deal")
}

func TestEvent_UnixSeconds(t *testing.T) {
	ev := Event{Timestamp: time.Unix(1700000000, 500000000)}
	assert.InDelta(t, 1700000000.5, ev.UnixSeconds(), 0.0001)
}
