// Package retry wraps pipeline runs in bounded retries with exponential
// backoff and jitter.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Config tunes the retry behavior.
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64 // 0 disables jitter
}

// DefaultConfig matches the run-level policy: a small retry ceiling with
// backoff capped at several minutes.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     30 * time.Second,
		MaxDelay:      10 * time.Minute,
		BackoffFactor: 2,
		JitterFactor:  0.2,
	}
}

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// Retrier executes operations under the configured policy.
type Retrier struct {
	cfg         Config
	isRetryable Classifier
	logger      *slog.Logger
}

func New(cfg Config, isRetryable Classifier, logger *slog.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{cfg: cfg, isRetryable: isRetryable, logger: logger}
}

// Do runs the operation until it succeeds, exhausts the attempt budget,
// hits a non-retryable error, or the context is cancelled.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	attempt := 1
	for ; ; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		retryable := r.isRetryable == nil || r.isRetryable(lastErr)
		if !retryable || attempt == r.cfg.MaxAttempts {
			r.logger.Error("operation failed permanently",
				"attempt", attempt, "retryable", retryable, "error", lastErr)
			break
		}

		delay := r.delay(attempt)
		r.logger.Warn("operation failed, backing off",
			"attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("after %d attempt(s): %w", attempt, lastErr)
}

func (r *Retrier) delay(attempt int) time.Duration {
	delay := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.BackoffFactor, float64(attempt-1))
	if limit := float64(r.cfg.MaxDelay); r.cfg.MaxDelay > 0 && delay > limit {
		delay = limit
	}
	if r.cfg.JitterFactor > 0 {
		delay *= 1 + (rand.Float64()-0.5)*r.cfg.JitterFactor
	}
	return time.Duration(delay)
}
