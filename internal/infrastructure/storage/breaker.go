package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"estate-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("object storage temporarily unavailable")

// BreakerStore guards an ObjectStore with a circuit breaker.
type BreakerStore struct {
	next ObjectStore
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// BreakerSettings tunes NewBreakerStore. Zero values pick the defaults.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// NewBreakerStore wraps next. The breaker opens after consecutive failures and probes again
// after the open timeout.
func NewBreakerStore(next ObjectStore, s BreakerSettings) *BreakerStore {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}
	name := "object-storage"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// cancellations are the caller's doing, not a storage fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (b *BreakerStore) run(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (b *BreakerStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return b.run(func() error { return b.next.Put(ctx, key, r, size, contentType) })
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	return b.run(func() error { return b.next.Delete(ctx, key) })
}

func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.run(func() error { return b.next.Ping(ctx) })
}

func (b *BreakerStore) URL(key string) string {
	return b.next.URL(key)
}

func (b *BreakerStore) Key(downloadURL string) (string, bool) {
	return b.next.Key(downloadURL)
}

// State returns the breaker state name.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}
