package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestChecker_NoProbes(t *testing.T) {
	status := NewChecker("v1", 0, nil).Check(context.Background())

	assert.Equal(t, StateHealthy, status.Status)
	assert.Equal(t, "v1", status.Version)
	assert.Empty(t, status.Components)
}

func TestChecker_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		probes   []Probe
		expected State
	}{
		{
			name:     "all healthy",
			probes:   []Probe{{Name: "db", Critical: true, Check: ok}, {Name: "redis", Check: ok}},
			expected: StateHealthy,
		},
		{
			name:     "non-critical failure degrades",
			probes:   []Probe{{Name: "db", Critical: true, Check: ok}, {Name: "redis", Check: failing}},
			expected: StateDegraded,
		},
		{
			name:     "critical failure is unhealthy",
			probes:   []Probe{{Name: "db", Critical: true, Check: failing}, {Name: "redis", Check: failing}},
			expected: StateUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker("v1", time.Second, nil)
			for _, p := range tt.probes {
				checker.Register(p)
			}

			status := checker.Check(context.Background())
			assert.Equal(t, tt.expected, status.Status)
			assert.Len(t, status.Components, len(tt.probes))
		})
	}
}

func TestChecker_ReportsError(t *testing.T) {
	checker := NewChecker("v1", time.Second, nil)
	checker.Register(Probe{Name: "redis", Check: failing})

	status := checker.Check(context.Background())

	assert.Equal(t, StateUnhealthy, status.Components["redis"].Status)
	assert.Equal(t, "connection refused", status.Components["redis"].Error)
}

func TestChecker_Timeout(t *testing.T) {
	checker := NewChecker("v1", 20*time.Millisecond, nil)
	checker.Register(Probe{Name: "slow", Critical: true, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	status := checker.Check(context.Background())

	assert.Equal(t, StateUnhealthy, status.Status)
	assert.Contains(t, status.Components["slow"].Error, "deadline")
}
