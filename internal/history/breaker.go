package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/qtc-mcp-server/internal/domain"
)

// BreakerSettings configures a BreakerStore.
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// BreakerStore wraps a Store in a circuit breaker. While the breaker is open, calls fail fast
// with domain.ErrStorageUnavailable instead of waiting on a failing database.
type BreakerStore struct {
	store   Store
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewBreakerStore wraps store.
func NewBreakerStore(store Store, settings BreakerSettings, logger *logrus.Logger) *BreakerStore {
	if logger == nil {
		logger = logrus.New()
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "history",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// a missing record is an answer, not a storage failure
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("History circuit breaker changed state")
		},
	})

	return &BreakerStore{store: store, breaker: breaker, logger: logger}
}

// State returns the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return result, err
}

// Save stores a record through the breaker.
func (b *BreakerStore) Save(ctx context.Context, record *domain.EvaluationRecord) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.store.Save(ctx, record)
	})
	return err
}

// Get retrieves a record through the breaker.
func (b *BreakerStore) Get(ctx context.Context, id string) (*domain.EvaluationRecord, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.store.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.EvaluationRecord), nil
}

// List returns records through the breaker.
func (b *BreakerStore) List(ctx context.Context, limit, offset int) ([]*domain.EvaluationRecord, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.store.List(ctx, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.EvaluationRecord), nil
}

// Count counts records through the breaker.
func (b *BreakerStore) Count(ctx context.Context) (int64, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.store.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Delete removes a record through the breaker.
func (b *BreakerStore) Delete(ctx context.Context, id string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.store.Delete(ctx, id)
	})
	return err
}

// ExportJSON exports through the breaker.
func (b *BreakerStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.store.ExportJSON(ctx, writer)
	})
	return err
}

// ImportJSON imports through the breaker.
func (b *BreakerStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	_, err = b.execute(func() (interface{}, error) {
		var ierr error
		imported, skipped, ierr = b.store.ImportJSON(ctx, reader)
		return nil, ierr
	})
	return imported, skipped, err
}

// Close closes the wrapped store.
func (b *BreakerStore) Close() error {
	return b.store.Close()
}
