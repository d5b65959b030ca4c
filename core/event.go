package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags an event on the progress stream.
type EventType string

const (
	// EventStatus carries free-form batch progress text.
	EventStatus EventType = "status"
	// EventProductsFound lists the candidate listings before any session launches.
	EventProductsFound EventType = "products_found"
	// EventNegotiationStart marks a session entering its first turn.
	EventNegotiationStart EventType = "negotiation_start"
	// EventNegotiationMessage carries one completed turn.
	EventNegotiationMessage EventType = "negotiation_message"
	// EventNegotiationComplete carries a session's terminal result.
	EventNegotiationComplete EventType = "negotiation_complete"
	// EventBestDeal carries the batch winner, after every session completed.
	EventBestDeal EventType = "best_deal"
	// EventError reports a batch-level condition such as no successful negotiation.
	EventError EventType = "error"
)

// ListingSummary is the event-stream view of a candidate listing.
type ListingSummary struct {
	ListingID   string  `json:"listing_id"`
	Title       string  `json:"title,omitempty"`
	AskingPrice float64 `json:"asking_price"`
}

// Event is the unit of the progress stream consumed by a presentation
// layer. Events for one session are strictly ordered; events from
// different sessions of the same batch may interleave, so consumers
// must key state by the session id carried in each event. Events are
// immutable after emission.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	BatchID   string    `json:"batch_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	ListingID string    `json:"listing_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Message  string           `json:"message,omitempty"`
	Turn     *Turn            `json:"turn,omitempty"`
	Result   *Result          `json:"result,omitempty"`
	Listings []ListingSummary `json:"listings,omitempty"`
	BestDeal *BestDeal        `json:"best_deal,omitempty"`
}

// NewID generates a unique identifier for events.
func NewID() string { return uuid.NewString() }

func newEvent(t EventType, batchID string) Event {
	return Event{ID: NewID(), Type: t, BatchID: batchID, Timestamp: time.Now().UTC()}
}

// NewStatusEvent creates a batch-level progress message.
func NewStatusEvent(batchID, message string) Event {
	e := newEvent(EventStatus, batchID)
	e.Message = message
	return e
}

// NewProductsFoundEvent announces the candidate listings of a batch.
func NewProductsFoundEvent(batchID string, listings []ListingSummary) Event {
	e := newEvent(EventProductsFound, batchID)
	e.Listings = listings
	return e
}

// NewNegotiationStartEvent marks the session's first turn opening.
func NewNegotiationStartEvent(batchID string, s *Session) Event {
	e := newEvent(EventNegotiationStart, batchID)
	e.SessionID = s.ID
	e.ListingID = s.ListingID
	e.Message = s.ListingTitle
	return e
}

// NewNegotiationMessageEvent carries one completed turn of a session.
func NewNegotiationMessageEvent(batchID string, s *Session, turn Turn) Event {
	e := newEvent(EventNegotiationMessage, batchID)
	e.SessionID = s.ID
	e.ListingID = s.ListingID
	e.Turn = &turn
	e.Message = turn.Message
	return e
}

// NewNegotiationCompleteEvent carries a session's terminal result.
func NewNegotiationCompleteEvent(batchID string, res Result) Event {
	e := newEvent(EventNegotiationComplete, batchID)
	e.SessionID = res.SessionID
	e.ListingID = res.ListingID
	e.Result = &res
	return e
}

// NewBestDealEvent announces the batch winner.
func NewBestDealEvent(batchID string, best BestDeal) Event {
	e := newEvent(EventBestDeal, batchID)
	e.SessionID = best.SessionID
	e.ListingID = best.ListingID
	e.BestDeal = &best
	return e
}

// NewErrorEvent reports a batch-level error condition.
func NewErrorEvent(batchID, sessionID, message string) Event {
	e := newEvent(EventError, batchID)
	e.SessionID = sessionID
	e.Message = message
	return e
}

// UnixSeconds returns the timestamp as fractional seconds since the
// Unix epoch, for metrics and numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
