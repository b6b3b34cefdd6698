package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/runger/casenote/internal/enhance"
)

// Adapter wraps a Provider as an enhance.Suggester. It keys lookups by the
// normalized text and maps every provider result onto an Outcome, so
// provider errors never escape to the caller.
type Adapter struct {
	provider  Provider
	logger    *slog.Logger
	requestID atomic.Uint64
}

// Compile-time check that Adapter implements enhance.Suggester.
var _ enhance.Suggester = (*Adapter)(nil)

// NewAdapter creates an Adapter around p. A nil logger discards output.
func NewAdapter(p Provider, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{provider: p, logger: logger}
}

// Suggest fetches one suggestion for text, skipping the excluded identities.
func (a *Adapter) Suggest(ctx context.Context, text string, exclude []enhance.Identity) (out enhance.Outcome) {
	reqID := a.requestID.Add(1)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("suggestion provider panicked", "request_id", reqID, "panic", r)
			out = enhance.Outcome{Err: fmt.Errorf("suggestion provider failed: %v", r)}
		}
	}()

	key := Normalize(text)
	if key == "" {
		return enhance.Outcome{Err: ErrEmptyInput}
	}

	resp, err := a.provider.Fetch(ctx, Request{
		RequestID: reqID,
		Text:      text,
		Key:       key,
		Exclude:   append([]enhance.Identity(nil), exclude...),
	})
	if err != nil {
		a.logger.Debug("suggestion fetch failed", "request_id", reqID, "error", err)
		return enhance.Outcome{Err: err}
	}
	if resp.Suggestion == nil {
		a.logger.Debug("suggestions exhausted", "request_id", reqID, "excluded", len(exclude))
		return enhance.Outcome{Exhausted: true}
	}

	sg := *resp.Suggestion
	a.logger.Debug("suggestion fetched", "request_id", reqID, "identity", int(sg.ID))
	return enhance.Outcome{Suggestion: &sg}
}
