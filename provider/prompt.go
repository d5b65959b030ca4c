package provider

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dealscout/dealscout/core"
)

// BuildPrompt renders the system and user prompts shared by the
// model-backed providers. The model is instructed to answer with a
// single JSON object matching the Decision schema; ParseDecision is the
// inverse.
func BuildPrompt(req Request) (system, user string) {
	role := "buyer trying to get a fair price below the asking price without exceeding your budget"
	bound := fmt.Sprintf("Your private maximum budget is $%.2f. Never offer above it.", req.PriceBound)
	if req.Party == core.PartySeller {
		role = "seller trying to close near the asking price without going below your minimum"
		bound = fmt.Sprintf("Your private minimum acceptable price is $%.2f. Never offer below it.", req.PriceBound)
	}

	system = fmt.Sprintf(`You are the %s in a marketplace price negotiation.
%s
Respond with a single JSON object and nothing else:
{"action": "counter" | "accept" | "reject" | "walk_away", "offer_price": <number, required for counter>, "message": "<short conversational message>", "confidence": <number 0..1>}`, role, bound)

	var b strings.Builder
	fmt.Fprintf(&b, "Listing: %s\n", req.ListingTitle)
	fmt.Fprintf(&b, "Asking price: $%.2f\n", req.AskingPrice)
	fmt.Fprintf(&b, "Turn number: %d\n", req.TurnNumber)
	if len(req.History) == 0 {
		b.WriteString("No offers have been made yet. Open the negotiation.\n")
	} else {
		b.WriteString("Negotiation so far:\n")
		for _, t := range req.History {
			if t.OfferPrice != nil {
				fmt.Fprintf(&b, "- turn %d, %s %s at $%.2f: %s\n", t.TurnNumber, t.Party, t.Action, *t.OfferPrice, t.Message)
			} else {
				fmt.Fprintf(&b, "- turn %d, %s %s: %s\n", t.TurnNumber, t.Party, t.Action, t.Message)
			}
		}
		b.WriteString("Make your next move.\n")
	}
	return system, b.String()
}

// ParseDecision extracts a Decision from raw model output. Models often
// wrap the JSON in prose or code fences, so the outermost object is
// located first. Anything unusable maps to core.ErrMalformedDecision so
// the runner's retry budget applies.
func ParseDecision(raw string) (Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Decision{}, fmt.Errorf("%w: no JSON object in %q", core.ErrMalformedDecision, truncate(raw, 120))
	}
	body := raw[start : end+1]
	if !gjson.Valid(body) {
		return Decision{}, fmt.Errorf("%w: invalid JSON", core.ErrMalformedDecision)
	}

	d := Decision{
		Action:     core.Action(gjson.Get(body, "action").String()),
		Message:    gjson.Get(body, "message").String(),
		Confidence: 0.5,
	}
	if v := gjson.Get(body, "confidence"); v.Exists() {
		d.Confidence = v.Float()
	}
	if v := gjson.Get(body, "offer_price"); v.Exists() && v.Type == gjson.Number {
		price := v.Float()
		d.OfferPrice = &price
	}
	if err := d.Validate(); err != nil {
		return Decision{}, err
	}
	return d, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
