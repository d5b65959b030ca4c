package core

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// State is a node of the session state machine.
type State string

const (
	// StateInit is the pre-validation starting state.
	StateInit State = "INIT"
	// StateBuyerTurn means the buyer owns the next move.
	StateBuyerTurn State = "BUYER_TURN"
	// StateSellerTurn means the seller owns the next move.
	StateSellerTurn State = "SELLER_TURN"
	// StateDealReached is terminal: an offer was accepted or the offers converged.
	StateDealReached State = "DEAL_REACHED"
	// StateWalkAway is terminal: a party rejected or walked away.
	StateWalkAway State = "WALK_AWAY"
	// StateMaxTurns is terminal: the turn ceiling was hit without agreement.
	StateMaxTurns State = "MAX_TURNS_REACHED"
	// StateProviderError is terminal: inputs were invalid or the decision
	// provider failed past its retry budget.
	StateProviderError State = "PROVIDER_ERROR"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	switch s {
	case StateDealReached, StateWalkAway, StateMaxTurns, StateProviderError:
		return true
	}
	return false
}

// ClosePolicy selects the final price when offers converge without an
// explicit accept.
type ClosePolicy string

const (
	// CloseMidpoint settles at the midpoint of the two latest offers.
	CloseMidpoint ClosePolicy = "midpoint"
	// CloseLatestOffer settles at the most recent offer.
	CloseLatestOffer ClosePolicy = "latest_offer"
)

// Defaults for SessionConfig.
const (
	DefaultMaxTurns             = 8
	DefaultConvergenceThreshold = 20.0
)

// SessionConfig tunes the termination behavior of a session.
type SessionConfig struct {
	// MaxTurns is the turn ceiling before the session fails.
	MaxTurns int
	// ConvergenceThreshold is the maximum gap between the latest buyer
	// and seller offers treated as implicit agreement.
	ConvergenceThreshold float64
	// ClosePolicy picks the final price on convergence.
	ClosePolicy ClosePolicy
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.ConvergenceThreshold <= 0 {
		c.ConvergenceThreshold = DefaultConvergenceThreshold
	}
	if c.ClosePolicy == "" {
		c.ClosePolicy = CloseMidpoint
	}
	return c
}

// SessionParams are the immutable inputs of a session.
type SessionParams struct {
	ListingID          string
	ListingTitle       string
	SellerID           string
	BuyerID            string
	AskingPrice        float64
	MinAcceptablePrice float64
	BuyerBudget        float64
}

// Session is the turn state machine for one buyer/seller pair on one
// listing. It is single-writer: only the runner driving it may mutate
// it, so no locking is done here. Once the state is terminal the
// session is immutable.
type Session struct {
	ID           string  `json:"id"`
	ListingID    string  `json:"listing_id"`
	ListingTitle string  `json:"listing_title,omitempty"`
	SellerID     string  `json:"seller_id"`
	BuyerID      string  `json:"buyer_id"`
	AskingPrice  float64 `json:"asking_price"`

	// MinAcceptablePrice is the seller's private floor; BuyerBudget is
	// the buyer's private ceiling. Each bound is visible only to its
	// own decision provider.
	MinAcceptablePrice float64 `json:"min_acceptable_price"`
	BuyerBudget        float64 `json:"buyer_budget"`

	TurnIndex int    `json:"turn_index"`
	State     State  `json:"state"`
	History   []Turn `json:"history"`

	cfg        SessionConfig
	finalPrice *float64
	failure    error
}

// NewSessionID returns a lexically sortable unique identifier used for
// sessions and batches.
func NewSessionID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// NewSession creates a session in StateInit.
func NewSession(params SessionParams, cfg SessionConfig) *Session {
	return &Session{
		ID:                 NewSessionID(),
		ListingID:          params.ListingID,
		ListingTitle:       params.ListingTitle,
		SellerID:           params.SellerID,
		BuyerID:            params.BuyerID,
		AskingPrice:        params.AskingPrice,
		MinAcceptablePrice: params.MinAcceptablePrice,
		BuyerBudget:        params.BuyerBudget,
		State:              StateInit,
		cfg:                cfg.withDefaults(),
	}
}

// MaxTurns returns the configured turn ceiling.
func (s *Session) MaxTurns() int { return s.cfg.MaxTurns }

// Begin validates the session inputs and opens the buyer's first turn.
// On invalid inputs the session transitions directly to
// StateProviderError and the validation error is returned.
func (s *Session) Begin() error {
	if s.State != StateInit {
		return ErrSessionTerminal
	}
	if s.MinAcceptablePrice > s.AskingPrice {
		err := &ValidationError{Field: "min_acceptable_price", Reason: fmt.Sprintf("floor %.2f above asking price %.2f", s.MinAcceptablePrice, s.AskingPrice)}
		s.failTo(err)
		return err
	}
	if s.BuyerBudget <= 0 {
		err := &ValidationError{Field: "buyer_budget", Reason: fmt.Sprintf("must be positive, got %.2f", s.BuyerBudget)}
		s.failTo(err)
		return err
	}
	s.State = StateBuyerTurn
	return nil
}

// CurrentParty returns the owner of the next turn, or false when the
// session is not in an active turn state.
func (s *Session) CurrentParty() (Party, bool) {
	switch s.State {
	case StateBuyerTurn:
		return PartyBuyer, true
	case StateSellerTurn:
		return PartySeller, true
	}
	return "", false
}

// Bound returns the acting party's own private price bound: the budget
// for the buyer, the floor for the seller.
func (s *Session) Bound(p Party) float64 {
	if p == PartyBuyer {
		return s.BuyerBudget
	}
	return s.MinAcceptablePrice
}

// LastOffer returns the most recent priced move made by the party.
func (s *Session) LastOffer(p Party) (float64, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		t := s.History[i]
		if t.Party == p && t.OfferPrice != nil {
			return *t.OfferPrice, true
		}
	}
	return 0, false
}

// LastTurn returns the most recently recorded turn.
func (s *Session) LastTurn() *Turn {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// HistoryCopy returns a defensive copy of the turn history.
func (s *Session) HistoryCopy() []Turn {
	history := make([]Turn, len(s.History))
	copy(history, s.History)
	return history
}

// Apply records the current party's move and advances the state machine.
//
// Transition rules:
//   - accept takes the counterpart's last offered price as the final
//     price; an accept with no prior counterpart offer is treated as
//     reject.
//   - counter requires an offer price; an offer outside the acting
//     party's own bound is clamped to the bound rather than rejected,
//     since the opposing bound is private to the other side.
//   - reject and walk_away end the session immediately.
//   - after any counter, if both parties have offered and the gap is
//     within the convergence threshold, the session closes as
//     DEAL_REACHED without an explicit accept.
//   - ownership alternates strictly buyer/seller regardless of action;
//     hitting the turn ceiling without agreement ends as
//     MAX_TURNS_REACHED.
func (s *Session) Apply(action Action, offer *float64, message string, confidence float64) error {
	party, ok := s.CurrentParty()
	if !ok {
		return ErrSessionTerminal
	}
	if !action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrMalformedDecision, action)
	}

	if action == ActionAccept {
		if _, ok := s.LastOffer(party.Other()); !ok {
			action = ActionReject
			offer = nil
		}
	}

	turnNumber := s.TurnIndex + 1

	switch action {
	case ActionAccept:
		price, _ := s.LastOffer(party.Other())
		s.record(Turn{TurnNumber: turnNumber, Party: party, Action: ActionAccept, OfferPrice: &price, Message: message, Confidence: confidence})
		s.finalPrice = &price
		s.State = StateDealReached

	case ActionReject, ActionWalkAway:
		s.record(Turn{TurnNumber: turnNumber, Party: party, Action: action, Message: message, Confidence: confidence})
		s.State = StateWalkAway

	case ActionCounter:
		if offer == nil {
			return fmt.Errorf("%w: counter without offer price", ErrMalformedDecision)
		}
		price := s.clamp(party, *offer)
		s.record(Turn{TurnNumber: turnNumber, Party: party, Action: ActionCounter, OfferPrice: &price, Message: message, Confidence: confidence})
		if s.converged() {
			return nil
		}
		if s.TurnIndex >= s.cfg.MaxTurns {
			s.State = StateMaxTurns
			return nil
		}
		if party == PartyBuyer {
			s.State = StateSellerTurn
		} else {
			s.State = StateBuyerTurn
		}
	}
	return nil
}

func (s *Session) record(t Turn) {
	t.Timestamp = time.Now().UTC()
	s.History = append(s.History, t)
	s.TurnIndex++
}

// clamp pulls an offer back inside the acting party's own legal bound.
func (s *Session) clamp(party Party, offer float64) float64 {
	switch party {
	case PartyBuyer:
		if offer > s.BuyerBudget {
			return s.BuyerBudget
		}
	case PartySeller:
		if offer < s.MinAcceptablePrice {
			return s.MinAcceptablePrice
		}
	}
	return offer
}

// converged closes the session when the latest buyer and seller offers
// are within the threshold of each other.
func (s *Session) converged() bool {
	buyerOffer, okB := s.LastOffer(PartyBuyer)
	sellerOffer, okS := s.LastOffer(PartySeller)
	if !okB || !okS {
		return false
	}
	if math.Abs(buyerOffer-sellerOffer) > s.cfg.ConvergenceThreshold {
		return false
	}
	var price float64
	if s.cfg.ClosePolicy == CloseLatestOffer {
		price = *s.LastTurn().OfferPrice
	} else {
		price = (buyerOffer + sellerOffer) / 2
	}
	s.finalPrice = &price
	s.State = StateDealReached
	return true
}

// Fail moves a non-terminal session to StateProviderError, preserving
// the partial history for diagnostics. Calling Fail on an already
// terminal session is a no-op.
func (s *Session) Fail(err error) {
	if s.State.Terminal() {
		return
	}
	s.failTo(err)
}

func (s *Session) failTo(err error) {
	s.State = StateProviderError
	s.failure = err
}

// Failure returns the error that drove the session into
// StateProviderError, if any.
func (s *Session) Failure() error { return s.failure }

// Result snapshots the terminal outcome of the session. The result for
// a session is produced exactly once, by its runner, when the state
// becomes terminal.
func (s *Session) Result() Result {
	res := Result{
		SessionID:  s.ID,
		ListingID:  s.ListingID,
		SellerID:   s.SellerID,
		State:      s.State,
		TurnsTaken: s.TurnIndex,
		History:    s.HistoryCopy(),
	}
	switch s.State {
	case StateDealReached:
		res.Status = StatusSuccess
		price := *s.finalPrice
		res.FinalPrice = &price
		res.Savings = s.AskingPrice - price
		res.SellerGain = price - s.MinAcceptablePrice
	case StateWalkAway, StateMaxTurns:
		res.Status = StatusFailed
	default:
		res.Status = StatusError
		if s.failure != nil {
			res.Err = s.failure.Error()
		}
	}
	return res
}
