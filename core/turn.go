package core

import "time"

// Party identifies which side of the negotiation owns a turn.
type Party string

const (
	// PartyBuyer is the buying side of a negotiation.
	PartyBuyer Party = "buyer"
	// PartySeller is the selling side of a negotiation.
	PartySeller Party = "seller"
)

// Other returns the counterpart of the party.
func (p Party) Other() Party {
	if p == PartyBuyer {
		return PartySeller
	}
	return PartyBuyer
}

// Action is the move a party makes on its turn.
type Action string

const (
	// ActionCounter proposes a new price.
	ActionCounter Action = "counter"
	// ActionAccept takes the counterpart's last offer.
	ActionAccept Action = "accept"
	// ActionReject declines and ends the negotiation.
	ActionReject Action = "reject"
	// ActionWalkAway abandons the negotiation.
	ActionWalkAway Action = "walk_away"
)

// Valid reports whether the action is one of the recognized moves.
func (a Action) Valid() bool {
	switch a {
	case ActionCounter, ActionAccept, ActionReject, ActionWalkAway:
		return true
	}
	return false
}

// Turn is one party's single move within a session. Turns are immutable
// once appended to a session's history.
type Turn struct {
	TurnNumber int       `json:"turn"`
	Party      Party     `json:"party"`
	Action     Action    `json:"action"`
	OfferPrice *float64  `json:"offer_price,omitempty"`
	Message    string    `json:"message"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
