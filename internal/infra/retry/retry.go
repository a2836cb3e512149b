package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

// Config defines retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration // 0 = uncapped
	BackoffMultiple float64

	// Sleep waits between attempts. nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// IndexerConfig is used for every call to the indexing service.
var IndexerConfig = Config{
	MaxRetries:      5,
	InitialDelay:    300 * time.Millisecond,
	BackoffMultiple: 2.0,
}

// VaultConfig is used for vault reads that race with connection resets.
var VaultConfig = Config{
	MaxRetries:      5,
	InitialDelay:    1 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// Classifier decides whether an error is worth another attempt.
type Classifier func(err error) ErrorAction

// RateLimited retries HTTP 429 only.
func RateLimited(err error) ErrorAction {
	if errors.Is(err, domain.ErrRateLimited) {
		return ActionRetry
	}
	return ActionFatal
}

const connectionClosed = "connection closed before message completed"

// ConnectionClosed retries transport-level failures and the 400 the vault
// returns when its upstream connection drops mid-response. Other HTTP
// statuses are final.
func ConnectionClosed(err error) ErrorAction {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFatal
	}
	var te *domain.TransportError
	if !errors.As(err, &te) {
		return ActionRetry
	}
	if te.StatusCode == 400 && strings.Contains(te.Body, connectionClosed) {
		return ActionRetry
	}
	return ActionFatal
}

// Do runs fn until it succeeds, the classifier says stop, or retries run out.
func Do(ctx context.Context, config Config, classify Classifier, fn func(ctx context.Context) error) error {
	sleep := config.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err) == ActionFatal {
			return err
		}
		if attempt == config.MaxRetries {
			break
		}

		delay := calculateBackoff(attempt, config)
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

func calculateBackoff(attempt int, config Config) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
