package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/core"
)

func ptr(v float64) *float64 { return &v }

func success(sessionID, listingID string, finalPrice, savings float64, turns int) core.Result {
	return core.Result{
		SessionID:  sessionID,
		ListingID:  listingID,
		Status:     core.StatusSuccess,
		State:      core.StateDealReached,
		FinalPrice: ptr(finalPrice),
		Savings:    savings,
		TurnsTaken: turns,
	}
}

func TestSelectBest_HighestSavingsWins(t *testing.T) {
	results := map[string]core.Result{
		"s1": success("s1", "bike_a", 700, 50, 4),
		"s2": success("s2", "bike_b", 560, 120, 6),
		"s3": success("s3", "bike_c", 540, 80, 3),
	}

	best, ok := SelectBest(results)
	require.True(t, ok)
	assert.Equal(t, "s2", best.SessionID)
	assert.Equal(t, "bike_b", best.ListingID)
	assert.InDelta(t, 120, best.Savings, 0.001)
	assert.Contains(t, best.Justification, "highest savings")
}

func TestSelectBest_TiedSavingsFewerTurns(t *testing.T) {
	results := map[string]core.Result{
		"s1": success("s1", "bike_a", 700, 80, 6),
		"s2": success("s2", "bike_b", 720, 80, 3),
	}

	best, ok := SelectBest(results)
	require.True(t, ok)
	assert.Equal(t, "s2", best.SessionID)
	assert.Equal(t, 3, best.TurnsTaken)
	assert.Contains(t, best.Justification, "fastest convergence")
}

func TestSelectBest_TiedSavingsAndTurnsLowestPrice(t *testing.T) {
	results := map[string]core.Result{
		"s1": success("s1", "bike_a", 700, 80, 4),
		"s2": success("s2", "bike_b", 640, 80, 4),
	}

	best, ok := SelectBest(results)
	require.True(t, ok)
	assert.Equal(t, "s2", best.SessionID)
	assert.Contains(t, best.Justification, "lowest final price")
}

func TestSelectBest_FullTieDeterministicByListingID(t *testing.T) {
	results := map[string]core.Result{
		"s1": success("s1", "bike_b", 700, 80, 4),
		"s2": success("s2", "bike_a", 700, 80, 4),
	}

	for i := 0; i < 10; i++ {
		best, ok := SelectBest(results)
		require.True(t, ok)
		assert.Equal(t, "bike_a", best.ListingID)
	}
}

func TestSelectBest_IgnoresFailures(t *testing.T) {
	results := map[string]core.Result{
		"s1": {SessionID: "s1", ListingID: "bike_a", Status: core.StatusFailed, State: core.StateWalkAway, Savings: 999},
		"s2": {SessionID: "s2", ListingID: "bike_b", Status: core.StatusError, State: core.StateProviderError},
		"s3": success("s3", "bike_c", 700, 10, 5),
	}

	best, ok := SelectBest(results)
	require.True(t, ok)
	assert.Equal(t, "s3", best.SessionID)
	assert.Contains(t, best.Justification, "only successful")
}

func TestSelectBest_NoSuccesses(t *testing.T) {
	results := map[string]core.Result{
		"s1": {SessionID: "s1", Status: core.StatusFailed},
		"s2": {SessionID: "s2", Status: core.StatusError},
	}

	_, ok := SelectBest(results)
	assert.False(t, ok)

	_, ok = SelectBest(nil)
	assert.False(t, ok)
}
