package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bitetrack/sales-engine/internal/core/domain"
)

const (
	DefaultMaxAttempts   = 3
	DefaultRetryBackoff  = 25 * time.Millisecond
	DefaultCommitTimeout = 5 * time.Second
)

// Config bounds the conflict-retry discipline shared by every writer.
type Config struct {
	MaxAttempts   int
	RetryBackoff  time.Duration
	CommitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = DefaultCommitTimeout
	}
	return c
}

// retryOnConflict runs fn until it succeeds, fails with a non-conflict error,
// or attempts run out. Contenders sleep a randomized, doubling backoff between
// attempts so they spread out instead of colliding again.
func retryOnConflict(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(jitter(base, i)):
		case <-ctx.Done():
			return fmt.Errorf("commit deadline exceeded: %w", domain.ErrUnavailable)
		}
	}
	return err
}

// jitter returns a duration in [d/2, d) where d = base << attempt. The
// exponent is capped so long retry runs cannot overflow the duration.
func jitter(base time.Duration, attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	d := base << attempt
	return d/2 + rand.N(d/2)
}
