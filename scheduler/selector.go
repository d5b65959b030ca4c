package scheduler

import (
	"fmt"
	"sort"

	"github.com/dealscout/dealscout/core"
)

// SelectBest picks the winning outcome of a finished batch. Only
// successful results compete. Ranking, first non-tie wins: highest
// savings, then fewest turns taken, then lowest final price; a final
// listing-id comparison keeps the order total so selection is
// deterministic. The justification names the rule that decided it and
// is assembled here, never by a provider.
func SelectBest(results map[string]core.Result) (core.BestDeal, bool) {
	successes := make([]core.Result, 0, len(results))
	for _, r := range results {
		if r.Status == core.StatusSuccess && r.FinalPrice != nil {
			successes = append(successes, r)
		}
	}
	if len(successes) == 0 {
		return core.BestDeal{}, false
	}

	sort.Slice(successes, func(i, j int) bool { return outranks(successes[i], successes[j]) })

	winner := successes[0]
	return core.BestDeal{
		SessionID:     winner.SessionID,
		ListingID:     winner.ListingID,
		FinalPrice:    *winner.FinalPrice,
		Savings:       winner.Savings,
		TurnsTaken:    winner.TurnsTaken,
		Justification: justify(successes),
	}, true
}

func outranks(a, b core.Result) bool {
	if a.Savings != b.Savings {
		return a.Savings > b.Savings
	}
	if a.TurnsTaken != b.TurnsTaken {
		return a.TurnsTaken < b.TurnsTaken
	}
	if *a.FinalPrice != *b.FinalPrice {
		return *a.FinalPrice < *b.FinalPrice
	}
	return a.ListingID < b.ListingID
}

// justify explains the winner in terms of the first ranking rule that
// separated it from the runner-up.
func justify(ranked []core.Result) string {
	winner := ranked[0]
	if len(ranked) == 1 {
		return fmt.Sprintf("only successful negotiation, saving $%.2f off asking", winner.Savings)
	}
	runnerUp := ranked[1]
	switch {
	case winner.Savings > runnerUp.Savings:
		return fmt.Sprintf("highest savings: $%.2f vs $%.2f for the runner-up", winner.Savings, runnerUp.Savings)
	case winner.TurnsTaken < runnerUp.TurnsTaken:
		return fmt.Sprintf("tied on savings ($%.2f); fastest convergence at %d turns vs %d", winner.Savings, winner.TurnsTaken, runnerUp.TurnsTaken)
	case *winner.FinalPrice < *runnerUp.FinalPrice:
		return fmt.Sprintf("tied on savings and turns; lowest final price $%.2f", *winner.FinalPrice)
	default:
		return "tied on savings, turns, and final price; ranked by listing id"
	}
}
