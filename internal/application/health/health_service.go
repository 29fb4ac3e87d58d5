// Package health aggregates dependency probes into the /health report
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Overall and per-check statuses
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

const defaultProbeTimeout = 2 * time.Second

// Probe checks one dependency
type Probe func(ctx context.Context) error

// Check is a named probe. A failing critical check makes the service unhealthy;
// any other failure only degrades it. A nil probe reports disabled.
type Check struct {
	Name     string
	Critical bool
	Probe    Probe
}

// CheckResult is the outcome of one probe
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Report is the /health response body
type Report struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Service runs the configured checks
type Service struct {
	name    string
	version string
	checks  []Check
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates a health service reporting as name
func NewService(name, version string, logger *zap.Logger, checks ...Check) *Service {
	return &Service{
		name:    name,
		version: version,
		checks:  checks,
		timeout: defaultProbeTimeout,
		logger:  logger,
	}
}

// Check runs every probe concurrently, each bounded by the probe timeout
func (s *Service) Check(ctx context.Context) Report {
	report := Report{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Service:   s.name,
		Version:   s.version,
		Checks:    make(map[string]CheckResult, len(s.checks)),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, c := range s.checks {
		g.Go(func() error {
			result := s.run(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			report.Checks[c.Name] = result
			if result.Status != StatusOK && result.Status != StatusDisabled {
				if c.Critical {
					report.Status = StatusUnhealthy
				} else if report.Status == StatusOK {
					report.Status = StatusDegraded
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if report.Status != StatusOK {
		s.logger.Warn("Health check failed", zap.String("status", report.Status), zap.Any("checks", report.Checks))
	}
	return report
}

func (s *Service) run(ctx context.Context, c Check) CheckResult {
	if c.Probe == nil {
		return CheckResult{Status: StatusDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := c.Probe(ctx)
	result := CheckResult{LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = StatusUnhealthy
		if !c.Critical {
			result.Status = StatusDegraded
		}
		result.Error = err.Error()
		return result
	}
	result.Status = StatusOK
	return result
}
