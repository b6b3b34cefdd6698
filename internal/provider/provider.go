// Package provider contains the suggestion provider contract, the adapter
// that turns provider results into session outcomes, and a corpus-backed
// provider that serves canned enhancements for known inputs.
package provider

import (
	"context"
	"errors"

	"github.com/runger/casenote/internal/enhance"
)

// Provider failures. Messages are shown to the user verbatim.
var (
	ErrEmptyInput = errors.New("input text is empty")
	ErrNoMatch    = errors.New("sorry, no suggested enhancements found")
	ErrTransient  = errors.New("there was a random error fetching the suggestion")
)

// Provider is the interface for data sources that supply suggestions.
// Implementations may be called concurrently and may complete out of order.
type Provider interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// Request describes what the session wants from a Provider.
type Request struct {
	RequestID uint64             // Monotonically increasing, for tracing
	Text      string             // Source text as typed by the user
	Key       string             // Normalized lookup key for Text
	Exclude   []enhance.Identity // Identities already shown in this session
}

// Response carries a suggestion back from a Provider.
type Response struct {
	RequestID uint64
	// Suggestion is nil when the input matched but every candidate is
	// excluded.
	Suggestion *enhance.Suggestion
}
