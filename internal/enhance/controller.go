package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Controller is the suggestion session state machine. It holds at most one
// open session at a time.
//
// Controller is not safe for concurrent use. All methods must be called from
// one logical thread; only the Fetch closures it returns may run elsewhere.
type Controller struct {
	suggester  Suggester
	maxRetries int
	logger     *slog.Logger
	newID      func() string

	session *session

	// generation is bumped for every fetch and every session teardown.
	// A Result is applied only if it carries the current value.
	generation uint64
	cancel     context.CancelFunc
}

// session is the mutable state of the open session.
type session struct {
	id          string
	sourceText  string
	status      Status
	message     string
	history     []Suggestion
	cursor      int
	retriesUsed int

	// fetchFrom is the status the session had when the in-flight fetch
	// started. A retry only consumes budget when it started from Ready.
	fetchFrom Status
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxRetries sets the retry budget. Negative values are treated as 0.
func WithMaxRetries(n int) Option {
	return func(c *Controller) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithLogger sets the logger used for transition logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator overrides how session IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a Controller that fetches suggestions from s.
func New(s Suggester, opts ...Option) *Controller {
	c := &Controller{
		suggester:  s,
		maxRetries: DefaultMaxRetries,
		logger:     slog.New(slog.DiscardHandler),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxRetries returns the configured retry budget.
func (c *Controller) MaxRetries() int {
	return c.maxRetries
}

// Active reports whether a session is open.
func (c *Controller) Active() bool {
	return c.session != nil
}

// State returns a snapshot of the open session. The second value is false
// when no session is open.
func (c *Controller) State() (State, bool) {
	s := c.session
	if s == nil {
		return State{Cursor: -1}, false
	}
	st := State{
		SessionID:   s.id,
		SourceText:  s.sourceText,
		Status:      s.status,
		Message:     s.message,
		History:     append([]Suggestion(nil), s.history...),
		Cursor:      -1,
		RetriesUsed: s.retriesUsed,
	}
	if s.status == StatusReady {
		st.Cursor = s.cursor
	}
	return st, true
}

// Current returns the suggestion under the cursor. It is only available in
// StatusReady.
func (c *Controller) Current() (Suggestion, bool) {
	s := c.session
	if s == nil || s.status != StatusReady {
		return Suggestion{}, false
	}
	return s.history[s.cursor], true
}

// LastViewed returns the suggestion that was under the cursor before the
// session left StatusReady, so a UI can keep it on screen while fetching or
// after a failure. It cannot be accepted.
func (c *Controller) LastViewed() (Suggestion, bool) {
	s := c.session
	if s == nil || len(s.history) == 0 {
		return Suggestion{}, false
	}
	return s.history[s.cursor], true
}

// CanTryAgain reports whether TryAgain would be accepted.
func (c *Controller) CanTryAgain() bool {
	s := c.session
	if s == nil {
		return false
	}
	switch s.status {
	case StatusFailed:
		return true
	case StatusReady:
		return s.retriesUsed < c.maxRetries
	default:
		return false
	}
}

// Open starts a session for sourceText and returns the opening fetch.
// Any open session is superseded and its in-flight fetch cancelled.
func (c *Controller) Open(sourceText string) (Fetch, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, ErrInvalidInput
	}
	if c.session != nil {
		c.logger.Debug("session superseded", "session_id", c.session.id)
		c.teardown()
	}

	c.session = &session{
		id:         c.newID(),
		sourceText: sourceText,
		status:     StatusIdle,
		cursor:     -1,
	}
	c.logger.Debug("session opened", "session_id", c.session.id)
	return c.startFetch(nil), nil
}

// TryAgain fetches another suggestion, excluding every suggestion already in
// the history. It is allowed in StatusReady while the retry budget lasts, and
// always in StatusFailed.
func (c *Controller) TryAgain() (Fetch, error) {
	s := c.session
	if s == nil {
		return nil, fmt.Errorf("%w: %w", ErrStateViolation, ErrNoSession)
	}
	switch s.status {
	case StatusFailed:
	case StatusReady:
		if s.retriesUsed >= c.maxRetries {
			return nil, fmt.Errorf("%w: retry budget spent (%d/%d)", ErrStateViolation, s.retriesUsed, c.maxRetries)
		}
	default:
		return nil, c.violation("try again")
	}

	exclude := make([]Identity, len(s.history))
	for i, sg := range s.history {
		exclude[i] = sg.ID
	}
	return c.startFetch(exclude), nil
}

// Previous moves the cursor one entry back. At the first entry it returns
// ErrNoOp and leaves the cursor unchanged.
func (c *Controller) Previous() error {
	return c.move(-1)
}

// Next moves the cursor one entry forward. At the last entry it returns
// ErrNoOp and leaves the cursor unchanged.
func (c *Controller) Next() error {
	return c.move(1)
}

func (c *Controller) move(step int) error {
	s := c.session
	if s == nil {
		return fmt.Errorf("%w: %w", ErrStateViolation, ErrNoSession)
	}
	if s.status != StatusReady {
		return c.violation("navigate")
	}
	next := s.cursor + step
	if next < 0 || next > len(s.history)-1 {
		return ErrNoOp
	}
	s.cursor = next
	return nil
}

// Accept closes the session and returns the text of the suggestion under the
// cursor.
func (c *Controller) Accept() (string, error) {
	s := c.session
	if s == nil {
		return "", fmt.Errorf("%w: %w", ErrStateViolation, ErrNoSession)
	}
	if s.status != StatusReady {
		return "", c.violation("accept")
	}
	text := s.history[s.cursor].Text
	c.logger.Debug("suggestion accepted",
		"session_id", s.id,
		"cursor", s.cursor,
		"history_len", len(s.history),
		"retries_used", s.retriesUsed,
	)
	c.teardown()
	return text, nil
}

// Discard closes the session and returns its source text. It is allowed in
// every state; an in-flight fetch is cancelled and its result will be ignored.
func (c *Controller) Discard() (string, error) {
	s := c.session
	if s == nil {
		return "", fmt.Errorf("%w: %w", ErrStateViolation, ErrNoSession)
	}
	c.logger.Debug("session discarded", "session_id", s.id, "status", s.status.String())
	text := s.sourceText
	c.teardown()
	return text, nil
}

// Deliver applies a finished fetch. It reports whether the result was
// applied; results of cancelled or superseded fetches are dropped without
// touching any state.
func (c *Controller) Deliver(r Result) bool {
	s := c.session
	if s == nil || s.status != StatusFetching || r.Generation != c.generation {
		c.logger.Debug("stale fetch result dropped",
			"generation", r.Generation,
			"current_generation", c.generation,
		)
		return false
	}
	c.releaseFetch()

	out := r.Outcome
	switch {
	case out.Err != nil:
		s.status = StatusFailed
		s.message = out.Err.Error()
	case out.Exhausted || out.Suggestion == nil:
		s.status = StatusExhausted
		if s.fetchFrom == StatusReady {
			s.retriesUsed++
		}
	default:
		s.history = append(s.history, *out.Suggestion)
		s.cursor = len(s.history) - 1
		s.status = StatusReady
		if s.fetchFrom == StatusReady {
			s.retriesUsed++
		}
	}

	c.logger.Debug("fetch delivered",
		"session_id", s.id,
		"generation", r.Generation,
		"status", s.status.String(),
		"history_len", len(s.history),
		"retries_used", s.retriesUsed,
		"message", s.message,
	)
	return true
}

// startFetch moves the session to StatusFetching and builds the provider
// call for the new generation.
func (c *Controller) startFetch(exclude []Identity) Fetch {
	s := c.session
	c.releaseFetch()

	s.fetchFrom = s.status
	s.status = StatusFetching
	s.message = ""
	c.generation++

	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	suggester := c.suggester
	text := s.sourceText
	c.logger.Debug("fetch started",
		"session_id", s.id,
		"generation", gen,
		"excluded", len(exclude),
	)
	return func() Result {
		return Result{
			Generation: gen,
			Outcome:    suggester.Suggest(ctx, text, exclude),
		}
	}
}

// teardown closes the open session and invalidates any in-flight fetch.
func (c *Controller) teardown() {
	c.releaseFetch()
	c.generation++
	c.session = nil
}

// releaseFetch cancels the context of the in-flight fetch, if any.
func (c *Controller) releaseFetch() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) violation(action string) error {
	return fmt.Errorf("%w: %s while %s", ErrStateViolation, action, c.session.status)
}
