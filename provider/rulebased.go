package provider

import (
	"context"
	"fmt"
)

// NewRuleBasedBuyer returns a deterministic buyer provider: it opens
// below asking, splits the difference toward the seller on each round,
// accepts once the seller's offer fits the budget and the remaining gap
// is small, and walks away when the seller stays above budget.
//
// It exists so the engine can run end-to-end without any model-backed
// provider configured; any negotiation strategy satisfying the
// Provider contract can replace it.
func NewRuleBasedBuyer() Provider {
	return DecideFunc(func(_ context.Context, req Request) (Decision, error) {
		budget := req.PriceBound

		sellerOffer, sellerHasOffered := req.LastOffer("seller")
		ownOffer, hasOffered := req.LastOffer("buyer")

		if !hasOffered {
			open := req.AskingPrice * 0.82
			if open > budget {
				open = budget
			}
			return Counter(open, fmt.Sprintf("Would you take $%.0f?", open), 0.7), nil
		}

		if sellerHasOffered && sellerOffer <= budget && sellerOffer-ownOffer <= budget*0.03 {
			return Accept(fmt.Sprintf("Deal, $%.0f works for me.", sellerOffer), 0.9), nil
		}

		if ownOffer >= budget {
			if sellerHasOffered && sellerOffer > budget {
				return WalkAway("That's past my budget, sorry."), nil
			}
			return Counter(budget, fmt.Sprintf("$%.0f is the most I can do.", budget), 0.6), nil
		}

		target := budget
		if sellerHasOffered && sellerOffer < target {
			target = sellerOffer
		}
		next := ownOffer + (target-ownOffer)/2
		if next > budget {
			next = budget
		}
		return Counter(next, fmt.Sprintf("I can come up to $%.0f.", next), 0.65), nil
	})
}

// NewRuleBasedSeller returns a deterministic seller provider: it starts
// from the asking price, concedes halfway toward the buyer on each
// round without crossing its floor, and accepts any offer at or above
// the floor once it is close to its own last position.
func NewRuleBasedSeller() Provider {
	return DecideFunc(func(_ context.Context, req Request) (Decision, error) {
		floor := req.PriceBound

		buyerOffer, buyerHasOffered := req.LastOffer("buyer")
		ownOffer, hasOffered := req.LastOffer("seller")
		if !hasOffered {
			ownOffer = req.AskingPrice
		}

		if !buyerHasOffered {
			return Counter(req.AskingPrice, fmt.Sprintf("Asking $%.0f, it's in great shape.", req.AskingPrice), 0.8), nil
		}

		if buyerOffer >= floor && ownOffer-buyerOffer <= req.AskingPrice*0.03 {
			return Accept(fmt.Sprintf("Alright, $%.0f and it's yours.", buyerOffer), 0.85), nil
		}

		if buyerOffer < floor && ownOffer <= floor {
			return Reject("I can't go that low."), nil
		}

		next := ownOffer - (ownOffer-buyerOffer)/2
		if next < floor {
			next = floor
		}
		return Counter(next, fmt.Sprintf("I could let it go for $%.0f.", next), 0.7), nil
	})
}
