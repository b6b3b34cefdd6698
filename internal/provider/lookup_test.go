package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/casenote/internal/enhance"
)

func testCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := NewCorpus([]Entry{
		{Input: "Patient presents with cough", Outputs: []string{"A", "B", "C"}},
		{Input: "Empty outputs", Outputs: nil},
	})
	require.NoError(t, err)
	return c
}

// newInstantProvider returns a provider with no delay and no random failures.
func newInstantProvider(t *testing.T, opts ...LookupOption) *LookupProvider {
	t.Helper()
	base := []LookupOption{WithDelay(0, 0), WithErrorRate(0), WithSeed(1)}
	return NewLookupProvider(testCorpus(t), append(base, opts...)...)
}

func TestLookupProvider_ReturnsCandidateWithOriginalIndex(t *testing.T) {
	p := newInstantProvider(t)

	resp, err := p.Fetch(context.Background(), Request{RequestID: 7, Key: "patient presents with cough"})
	require.NoError(t, err)
	require.NotNil(t, resp.Suggestion)
	assert.Equal(t, uint64(7), resp.RequestID)

	outputs := []string{"A", "B", "C"}
	assert.Equal(t, outputs[resp.Suggestion.ID], resp.Suggestion.Text)
}

func TestLookupProvider_NormalizesTextWhenKeyMissing(t *testing.T) {
	p := newInstantProvider(t)

	resp, err := p.Fetch(context.Background(), Request{Text: "PATIENT presents with cough."})
	require.NoError(t, err)
	assert.NotNil(t, resp.Suggestion)
}

func TestLookupProvider_NeverRepeatsExcluded(t *testing.T) {
	p := newInstantProvider(t)

	var seen []enhance.Identity
	for i := 0; i < 3; i++ {
		resp, err := p.Fetch(context.Background(), Request{Key: "patient presents with cough", Exclude: seen})
		require.NoError(t, err)
		require.NotNil(t, resp.Suggestion)
		assert.NotContains(t, seen, resp.Suggestion.ID)
		seen = append(seen, resp.Suggestion.ID)
	}
	assert.ElementsMatch(t, []enhance.Identity{0, 1, 2}, seen)

	resp, err := p.Fetch(context.Background(), Request{Key: "patient presents with cough", Exclude: seen})
	require.NoError(t, err)
	assert.Nil(t, resp.Suggestion, "all candidates excluded")
}

func TestLookupProvider_Errors(t *testing.T) {
	p := newInstantProvider(t)

	_, err := p.Fetch(context.Background(), Request{Text: " ?? "})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.Fetch(context.Background(), Request{Key: "unknown input"})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = p.Fetch(context.Background(), Request{Key: "empty outputs"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestLookupProvider_TransientFailure(t *testing.T) {
	p := newInstantProvider(t, WithErrorRate(1))

	_, err := p.Fetch(context.Background(), Request{Key: "patient presents with cough"})
	assert.ErrorIs(t, err, ErrTransient)
}

type failingSource struct{}

func (failingSource) Candidates(context.Context, string) ([]string, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func TestLookupProvider_SourceError(t *testing.T) {
	p := NewLookupProvider(failingSource{}, WithDelay(0, 0), WithErrorRate(0))

	_, err := p.Fetch(context.Background(), Request{Key: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestLookupProvider_DelayWithinRange(t *testing.T) {
	var slept []time.Duration
	p := newInstantProvider(t,
		WithDelay(300*time.Millisecond, 1200*time.Millisecond),
		WithSleep(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)

	for i := 0; i < 20; i++ {
		_, err := p.Fetch(context.Background(), Request{Key: "patient presents with cough"})
		require.NoError(t, err)
	}
	require.Len(t, slept, 20)
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 300*time.Millisecond)
		assert.Less(t, d, 1200*time.Millisecond)
	}
}

func TestLookupProvider_CancelledDuringDelay(t *testing.T) {
	p := newInstantProvider(t, WithDelay(time.Hour, time.Hour), WithSleep(sleepContext))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx, Request{Key: "patient presents with cough"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupProvider_SeedIsDeterministic(t *testing.T) {
	pick := func() enhance.Identity {
		p := newInstantProvider(t, WithSeed(42))
		resp, err := p.Fetch(context.Background(), Request{Key: "patient presents with cough"})
		require.NoError(t, err)
		return resp.Suggestion.ID
	}
	assert.Equal(t, pick(), pick())
}

func TestWithErrorRate_Clamps(t *testing.T) {
	p := NewLookupProvider(testCorpus(t), WithErrorRate(-1))
	assert.Equal(t, 0.0, p.errorRate)

	p = NewLookupProvider(testCorpus(t), WithErrorRate(3))
	assert.Equal(t, 1.0, p.errorRate)
}

func TestWithDelay_OrdersBounds(t *testing.T) {
	p := NewLookupProvider(testCorpus(t), WithDelay(time.Second, time.Millisecond))
	assert.Equal(t, time.Second, p.minDelay)
	assert.Equal(t, time.Second, p.maxDelay)
	assert.Equal(t, time.Second, p.delay())
}
