package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/runger/casenote/internal/enhance"
)

// Default simulation settings for the lookup provider.
const (
	DefaultMinDelay  = 300 * time.Millisecond
	DefaultMaxDelay  = 1200 * time.Millisecond
	DefaultErrorRate = 0.1
)

// CandidateSource returns the candidate outputs for a normalized key.
// found is false when the key has no entry at all.
type CandidateSource interface {
	Candidates(ctx context.Context, key string) (outputs []string, found bool, err error)
}

// LookupProvider serves suggestions from a CandidateSource. It simulates a
// remote service: every fetch waits a random delay and fails with
// ErrTransient at a configurable rate.
type LookupProvider struct {
	source    CandidateSource
	minDelay  time.Duration
	maxDelay  time.Duration
	errorRate float64
	sleep     func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex // guards rng; fetches may overlap
	rng *rand.Rand
}

// Compile-time check that LookupProvider implements Provider.
var _ Provider = (*LookupProvider)(nil)

// LookupOption configures a LookupProvider.
type LookupOption func(*LookupProvider)

// WithDelay sets the range of the simulated latency. A zero max disables it.
func WithDelay(minDelay, maxDelay time.Duration) LookupOption {
	return func(p *LookupProvider) {
		if minDelay < 0 {
			minDelay = 0
		}
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		p.minDelay = minDelay
		p.maxDelay = maxDelay
	}
}

// WithErrorRate sets the probability in [0, 1] of a simulated transient
// failure.
func WithErrorRate(rate float64) LookupOption {
	return func(p *LookupProvider) {
		switch {
		case rate < 0:
			rate = 0
		case rate > 1:
			rate = 1
		}
		p.errorRate = rate
	}
}

// WithSeed makes candidate selection and failures deterministic.
func WithSeed(seed uint64) LookupOption {
	return func(p *LookupProvider) {
		p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithSleep overrides how the simulated delay is waited out.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) LookupOption {
	return func(p *LookupProvider) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// NewLookupProvider creates a provider over source.
func NewLookupProvider(source CandidateSource, opts ...LookupOption) *LookupProvider {
	p := &LookupProvider{
		source:    source,
		minDelay:  DefaultMinDelay,
		maxDelay:  DefaultMaxDelay,
		errorRate: DefaultErrorRate,
		sleep:     sleepContext,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch returns a random candidate for req that is not in req.Exclude.
// The identity of a suggestion is its position in the candidate list, so it
// stays stable across calls.
func (p *LookupProvider) Fetch(ctx context.Context, req Request) (Response, error) {
	if err := p.sleep(ctx, p.delay()); err != nil {
		return Response{}, err
	}
	if p.roll() < p.errorRate {
		return Response{}, ErrTransient
	}

	key := req.Key
	if key == "" {
		key = Normalize(req.Text)
	}
	if key == "" {
		return Response{}, ErrEmptyInput
	}

	outputs, found, err := p.source.Candidates(ctx, key)
	if err != nil {
		return Response{}, fmt.Errorf("failed to look up candidates: %w", err)
	}
	if !found || len(outputs) == 0 {
		return Response{}, ErrNoMatch
	}

	excluded := make(map[enhance.Identity]bool, len(req.Exclude))
	for _, id := range req.Exclude {
		excluded[id] = true
	}
	available := make([]int, 0, len(outputs))
	for i := range outputs {
		if !excluded[enhance.Identity(i)] {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return Response{RequestID: req.RequestID}, nil
	}

	choice := available[p.pick(len(available))]
	return Response{
		RequestID: req.RequestID,
		Suggestion: &enhance.Suggestion{
			Text: outputs[choice],
			ID:   enhance.Identity(choice),
		},
	}, nil
}

func (p *LookupProvider) delay() time.Duration {
	if p.maxDelay <= 0 {
		return 0
	}
	span := p.maxDelay - p.minDelay
	if span <= 0 {
		return p.minDelay
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minDelay + time.Duration(p.rng.Int64N(int64(span)))
}

func (p *LookupProvider) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

func (p *LookupProvider) pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
