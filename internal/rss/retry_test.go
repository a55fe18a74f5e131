package rss

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays results in order and repeats the last one.
type scriptedSource struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	entries []Entry
	err     error
}

func (s *scriptedSource) Fetch(context.Context) ([]Entry, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i].entries, s.results[i].err
}

func newTestRetrying(src Source, attempts int, delay time.Duration) (*RetryingFetcher, *[]time.Duration) {
	var slept []time.Duration
	r := NewRetryingFetcher(src, attempts, delay, discardLogger())
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetryingFetcher_SuccessOnFirstAttempt(t *testing.T) {
	src := &scriptedSource{results: []scriptedResult{{entries: []Entry{{ID: "a"}}}}}
	r, slept := newTestRetrying(src, 6, 10*time.Second)

	entries, err := r.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, src.calls)
	assert.Empty(t, *slept)
}

func TestRetryingFetcher_EmptyAndErrorAreRetried(t *testing.T) {
	src := &scriptedSource{results: []scriptedResult{
		{err: errors.New("connection reset")},
		{entries: nil},
		{entries: []Entry{{ID: "a"}, {ID: "b"}}},
	}}
	r, slept := newTestRetrying(src, 6, 10*time.Second)

	entries, err := r.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, *slept)
}

func TestRetryingFetcher_ExhaustsExactlySixAttempts(t *testing.T) {
	src := &scriptedSource{results: []scriptedResult{{entries: []Entry{}}}}
	r, slept := newTestRetrying(src, 6, 10*time.Second)

	entries, err := r.Fetch(context.Background())
	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Equal(t, 6, src.calls)
	assert.Len(t, *slept, 5)
	for _, d := range *slept {
		assert.Equal(t, 10*time.Second, d)
	}
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestRetryingFetcher_KeepsLastCause(t *testing.T) {
	cause := errors.New("dns failure")
	src := &scriptedSource{results: []scriptedResult{{entries: nil}, {err: cause}}}
	r, _ := newTestRetrying(src, 2, time.Millisecond)

	_, err := r.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoEntries)
}

func TestRetryingFetcher_ZeroAttemptsMeansOne(t *testing.T) {
	src := &scriptedSource{results: []scriptedResult{{entries: nil}}}
	r, slept := newTestRetrying(src, 0, time.Second)

	_, err := r.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, src.calls)
	assert.Empty(t, *slept)
}

func TestRetryingFetcher_ContextCancelledDuringSleep(t *testing.T) {
	src := &scriptedSource{results: []scriptedResult{{entries: nil}}}
	r := NewRetryingFetcher(src, 6, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.calls)
}
