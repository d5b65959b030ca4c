package testutil

import (
	"testing"
	"time"

	"github.com/dealscout/dealscout/core"
)

// CollectEvents drains a batch event stream into a slice, failing the
// test if the stream does not close within the timeout.
func CollectEvents(t *testing.T, events <-chan core.Event, timeout time.Duration) []core.Event {
	t.Helper()
	var out []core.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("event stream did not close within %s (collected %d events)", timeout, len(out))
			return out
		}
	}
}

// EventsOfType filters events by type preserving order.
func EventsOfType(events []core.Event, typ core.EventType) []core.Event {
	var out []core.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// FirstEventOfType returns the first event of the given type, or false
// when none exists.
func FirstEventOfType(events []core.Event, typ core.EventType) (core.Event, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return core.Event{}, false
}

// SessionEvents filters events down to those carrying the given session id.
func SessionEvents(events []core.Event, sessionID string) []core.Event {
	var out []core.Event
	for _, ev := range events {
		if ev.SessionID == sessionID {
			out = append(out, ev)
		}
	}
	return out
}
