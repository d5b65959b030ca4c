// Package core contains the negotiation domain model: the turn-based
// session state machine, turn and result records, the typed progress
// event stream, and the shared error taxonomy. Everything in this
// package is synchronous and transport-agnostic; driving sessions
// concurrently is the job of the runner and scheduler packages.
package core
