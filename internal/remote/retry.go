package remote

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig holds retry configuration for idempotent reads
type RetryConfig struct {
	MaxRetries  int           // Maximum number of retry attempts
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
	Multiplier  float64       // Multiplier for exponential backoff
	JitterRatio float64       // Jitter ratio (0-1) to add randomness
}

// DefaultRetryConfig returns the defaults used for reads against the store.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2.0,
		JitterRatio: 0.1,
	}
}

// withRetry runs fn, retrying only NetworkErrors with exponential backoff.
// Writes never go through here: a retried create could insert twice.
func withRetry[T any](ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsNetworkError(err) || attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.delay(attempt)
		logger.Debug("retrying read",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}

// delay computes the backoff for a given attempt with jitter
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.JitterRatio > 0 {
		d += d * c.JitterRatio * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}
