// Package catalog holds the listing catalog consumed by the
// negotiation scheduler: the Listing record, the Store interface, and a
// volatile in-memory implementation. A SQLite-backed store lives in the
// sqlite subpackage.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a listing id does not exist in the store.
var ErrNotFound = errors.New("listing not found")

// Listing is one marketplace item a buyer can negotiate for.
type Listing struct {
	ID          string   `json:"id"`
	SellerID    string   `json:"seller_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	AskingPrice float64  `json:"asking_price"`
	Condition   string   `json:"condition,omitempty"`
	Extras      []string `json:"extras,omitempty"`
}

// Query narrows a catalog search. Zero values mean "no constraint";
// Limit defaults to 5.
type Query struct {
	// Text is matched case-insensitively against title and description.
	Text string
	// MaxPrice caps the asking price when positive.
	MaxPrice float64
	// Limit caps the number of results.
	Limit int
}

// DefaultSearchLimit is applied when a query has no limit.
const DefaultSearchLimit = 5

// Store persists listings. Implementations must be safe for concurrent
// use.
type Store interface {
	// Put inserts or replaces a listing.
	Put(ctx context.Context, l Listing) error
	// Get returns the listing with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (Listing, error)
	// Search returns listings matching the query in stable insertion order.
	Search(ctx context.Context, q Query) ([]Listing, error)
}
