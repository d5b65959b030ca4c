package core

// Status classifies a terminal session outcome. A negotiation that ends
// without a deal is a normal failed outcome, not an error; StatusError
// is reserved for invalid inputs and provider breakdowns.
type Status string

const (
	// StatusSuccess means a deal was reached.
	StatusSuccess Status = "success"
	// StatusFailed means the negotiation ended without a deal
	// (walk-away or turn ceiling).
	StatusFailed Status = "failed"
	// StatusError means validation or the decision provider failed.
	StatusError Status = "error"
)

// Result is the terminal outcome of one session.
type Result struct {
	SessionID string `json:"session_id"`
	ListingID string `json:"listing_id"`
	SellerID  string `json:"seller_id,omitempty"`
	Status    Status `json:"status"`
	State     State  `json:"state"`

	// FinalPrice is set iff Status is success. Savings is asking price
	// minus final price, 0 otherwise; SellerGain is final price minus
	// the seller floor.
	FinalPrice *float64 `json:"final_price,omitempty"`
	Savings    float64  `json:"savings"`
	SellerGain float64  `json:"seller_gain,omitempty"`

	TurnsTaken int    `json:"turns_taken"`
	History    []Turn `json:"history"`
	Err        string `json:"error,omitempty"`
}

// BestDeal is the outcome selected across a finished batch, with a
// deterministic explanation of the ranking rule that decided it.
type BestDeal struct {
	SessionID     string  `json:"session_id"`
	ListingID     string  `json:"listing_id"`
	FinalPrice    float64 `json:"final_price"`
	Savings       float64 `json:"savings"`
	TurnsTaken    int     `json:"turns_taken"`
	Justification string  `json:"justification"`
}
