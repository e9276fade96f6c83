package dataset

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/logger"
)

// RetryConfig defines retry behavior for dataset acquisition.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Jitter            bool          `yaml:"jitter"`
}

// DefaultRetryConfig is used when no retry settings are configured.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      1 * time.Second,
	MaxDelay:          30 * time.Second,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}

// Delay returns how long to wait after the given failed attempt (1-based).
func (c RetryConfig) Delay(attempt int) time.Duration {
	mult := c.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(mult, float64(attempt-1)))

	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	// ±5% jitter
	if c.Jitter {
		delay += time.Duration(float64(delay) * 0.1 * (rand.Float64() - 0.5))
	}
	return delay
}

// Retry runs op until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. Only errors for which errors.IsRetryable
// reports true are retried.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context, attempt int) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx, attempt); err == nil {
			return nil
		}
		if !apperrors.IsRetryable(err) || attempt == attempts {
			return err
		}

		delay := cfg.Delay(attempt)
		logger.WithContext(ctx).Warn("dataset load failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return apperrors.Wrap(ctx.Err(), apperrors.ErrorTypeTimeout, "retry aborted")
		case <-timer.C:
		}
	}
	return err
}
