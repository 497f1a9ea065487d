// Package health aggregates named probes into one status report for GET /health.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the health of one component or of the whole service.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// ProbeFunc reports a component failure as an error.
type ProbeFunc func(ctx context.Context) error

// Probe is one named check. A failing critical probe makes the service unhealthy; a failing
// non-critical probe only degrades it.
type Probe struct {
	Name     string
	Critical bool
	Check    ProbeFunc
}

// ComponentHealth is the result of one probe.
type ComponentHealth struct {
	Status   State         `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Status is the aggregated report.
type Status struct {
	Status     State                      `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// Checker runs probes concurrently under a shared timeout.
type Checker struct {
	version string
	timeout time.Duration
	started time.Time
	logger  *logrus.Logger

	mu     sync.RWMutex
	probes []Probe
}

// NewChecker creates a checker. A zero timeout defaults to 5 seconds.
func NewChecker(version string, timeout time.Duration, logger *logrus.Logger) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Checker{
		version: version,
		timeout: timeout,
		started: time.Now(),
		logger:  logger,
	}
}

// Register adds a probe.
func (c *Checker) Register(probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, probe)
}

// Check runs every probe and aggregates the results.
func (c *Checker) Check(ctx context.Context) Status {
	c.mu.RLock()
	probes := append([]Probe(nil), c.probes...)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make([]ComponentHealth, len(probes))
	var wg sync.WaitGroup
	for i, probe := range probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = c.run(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	status := Status{
		Status:     StateHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth, len(probes)),
	}
	for i, probe := range probes {
		result := results[i]
		status.Components[probe.Name] = result
		if result.Status == StateHealthy {
			continue
		}
		if probe.Critical {
			status.Status = StateUnhealthy
		} else if status.Status == StateHealthy {
			status.Status = StateDegraded
		}
	}
	return status
}

func (c *Checker) run(ctx context.Context, probe Probe) ComponentHealth {
	start := time.Now()
	err := probe.Check(ctx)
	result := ComponentHealth{Status: StateHealthy, Duration: time.Since(start)}
	if err != nil {
		result.Status = StateUnhealthy
		result.Error = err.Error()
		c.logger.WithFields(logrus.Fields{
			"component": probe.Name,
			"critical":  probe.Critical,
			"error":     err.Error(),
		}).Warn("Health probe failed")
	}
	return result
}
