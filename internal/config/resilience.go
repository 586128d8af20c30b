package config

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry configuration constants
const (
	// API requests are attempted once per tick; the next scheduled tick is the retry
	APIRequestMaxAttempts       = 1
	APIRequestInitialWait       = 0
	APIRequestMaxWait           = 0
	APIRequestBackoffMultiplier = 1.0
	APIRequestTimeout           = 30 * time.Second

	// Local JSON document write retry configuration
	DocumentWriteMaxAttempts       = 3
	DocumentWriteInitialWait       = 100 * time.Millisecond
	DocumentWriteMaxWait           = 1 * time.Second
	DocumentWriteBackoffMultiplier = 2.0
	DocumentWriteTimeout           = 5 * time.Second

	// Sheet Write retry configuration, shared by the other remote exporters
	SheetWriteMaxAttempts       = 3
	SheetWriteInitialWait       = 1 * time.Second
	SheetWriteMaxWait           = 10 * time.Second
	SheetWriteBackoffMultiplier = 2.0
	SheetWriteTimeout           = 30 * time.Second
)

// RetryConfig defines retry behavior for operations
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Timeout     time.Duration
}

// ResilienceConfig contains all retry configurations
type ResilienceConfig struct {
	APIRequest    RetryConfig
	DocumentWrite RetryConfig
	SheetWrite    RetryConfig
}

// DefaultResilienceConfig provides sensible defaults
var DefaultResilienceConfig = ResilienceConfig{
	APIRequest: RetryConfig{
		MaxAttempts: APIRequestMaxAttempts,
		InitialWait: APIRequestInitialWait,
		MaxWait:     APIRequestMaxWait,
		Multiplier:  APIRequestBackoffMultiplier,
		Timeout:     APIRequestTimeout,
	},
	DocumentWrite: RetryConfig{
		MaxAttempts: DocumentWriteMaxAttempts,
		InitialWait: DocumentWriteInitialWait,
		MaxWait:     DocumentWriteMaxWait,
		Multiplier:  DocumentWriteBackoffMultiplier,
		Timeout:     DocumentWriteTimeout,
	},
	SheetWrite: RetryConfig{
		MaxAttempts: SheetWriteMaxAttempts,
		InitialWait: SheetWriteInitialWait,
		MaxWait:     SheetWriteMaxWait,
		Multiplier:  SheetWriteBackoffMultiplier,
		Timeout:     SheetWriteTimeout,
	},
}

// Backoff returns the wait before the given retry (attempt is 1-based, so
// attempt 1 is the wait after the first failure).
func (rc RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 || rc.InitialWait <= 0 {
		return 0
	}

	wait := float64(rc.InitialWait)
	for i := 1; i < attempt; i++ {
		wait *= rc.Multiplier
	}

	if rc.MaxWait > 0 && time.Duration(wait) > rc.MaxWait {
		return rc.MaxWait
	}
	return time.Duration(wait)
}

// Do runs op until it succeeds, the attempts are exhausted or ctx is done.
// The last error is returned wrapped with the attempt count.
func (rc RetryConfig) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		opCtx := ctx
		var cancel context.CancelFunc
		if rc.Timeout > 0 {
			opCtx, cancel = context.WithTimeout(ctx, rc.Timeout)
		}
		lastErr = op(opCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		wait := rc.Backoff(attempt)
		log.Debug().
			Err(lastErr).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", name, attempt, lastErr)
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
