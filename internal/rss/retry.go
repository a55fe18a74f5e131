package rss

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

var (
	// ErrNoEntries marks a fetch that succeeded but returned nothing.
	ErrNoEntries = errors.New("feed returned no entries")
	// ErrRetriesExhausted is returned once every attempt has failed.
	ErrRetriesExhausted = errors.New("feed fetch retries exhausted")
)

// RetryingFetcher retries a Source a fixed number of times with a fixed
// delay. Errors and empty results are both treated as retryable.
type RetryingFetcher struct {
	source   Source
	attempts int
	delay    time.Duration
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryingFetcher wraps source. attempts below 1 are raised to 1.
func NewRetryingFetcher(source Source, attempts int, delay time.Duration, logger *log.Logger) *RetryingFetcher {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingFetcher{
		source:   source,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Fetch returns the first non-empty result. After the last failed attempt
// the error wraps both ErrRetriesExhausted and the final cause.
func (r *RetryingFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		entries, err := r.source.Fetch(ctx)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err == nil {
			err = ErrNoEntries
		}
		lastErr = err
		r.logger.Printf("fetch attempt %d/%d failed: %v", attempt, r.attempts, err)

		if attempt == r.attempts {
			break
		}
		if err := r.sleep(ctx, r.delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.attempts, lastErr)
}

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
