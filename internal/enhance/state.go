// Package enhance implements the suggestion session controller: the state
// machine behind the "enhance" assist of the case-description form.
//
// A session is opened on a piece of source text and immediately fetches a
// first suggestion. The user may then accept it, discard the session, ask for
// another suggestion (bounded by a retry budget) or page through the
// suggestions fetched so far. Provider calls run outside the controller; their
// results are handed back through Deliver and are matched against a fetch
// generation so that late results of a closed or superseded fetch are dropped.
package enhance

import (
	"context"
	"errors"
)

// DefaultMaxRetries is the number of user-initiated retries allowed per
// session. The opening fetch and retries that follow a failure are free.
const DefaultMaxRetries = 3

// Sentinel errors returned by the controller.
var (
	// ErrInvalidInput is returned by Open for empty or whitespace-only text.
	ErrInvalidInput = errors.New("enhance: source text is empty")

	// ErrStateViolation is returned when an action is not allowed in the
	// current state. The UI is expected to disable the matching affordance.
	ErrStateViolation = errors.New("enhance: action not allowed in current state")

	// ErrNoSession is returned for session actions while no session is open.
	ErrNoSession = errors.New("enhance: no open session")

	// ErrNoOp is returned by Previous and Next at a history boundary.
	ErrNoOp = errors.New("enhance: already at boundary")
)

// Identity distinguishes candidate suggestions returned for one input. It is
// only unique within a session's candidate pool.
type Identity int

// Suggestion is a single suggested rewrite.
type Suggestion struct {
	Text string
	ID   Identity
}

// Status is the state of an open session.
type Status int

const (
	StatusIdle      Status = iota // No fetch started yet
	StatusFetching                // A fetch is in flight
	StatusReady                   // A suggestion is displayed
	StatusExhausted               // Provider has no unused candidates left
	StatusFailed                  // Last fetch failed; Message holds the reason
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusFetching:
		return "fetching"
	case StatusReady:
		return "ready"
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of one open session.
type State struct {
	SessionID   string
	SourceText  string
	Status      Status
	Message     string // Failure message, verbatim from the provider
	History     []Suggestion
	Cursor      int // Index into History; -1 unless Status is StatusReady
	RetriesUsed int
}

// Outcome is the result of one provider call.
// Exactly one of Suggestion, Exhausted or Err is set.
type Outcome struct {
	Suggestion *Suggestion
	Exhausted  bool
	Err        error
}

// Suggester produces suggestions for the controller. exclude lists the
// identities already shown in the session. Implementations must not panic
// and must report every failure through Outcome.Err.
type Suggester interface {
	Suggest(ctx context.Context, text string, exclude []Identity) Outcome
}

// SuggesterFunc adapts a function to the Suggester interface.
type SuggesterFunc func(ctx context.Context, text string, exclude []Identity) Outcome

// Suggest calls f.
func (f SuggesterFunc) Suggest(ctx context.Context, text string, exclude []Identity) Outcome {
	return f(ctx, text, exclude)
}

// Result carries a finished fetch back to the controller.
type Result struct {
	Generation uint64 // Must match the controller's current generation
	Outcome    Outcome
}

// Fetch runs one provider call and returns its result. It blocks for as long
// as the provider does and is meant to run off the caller's update loop
// (for example as a Bubble Tea command). It never touches controller state.
type Fetch func() Result
