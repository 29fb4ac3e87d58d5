package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func ok(context.Context) error { return nil }

func failing(msg string) Probe {
	return func(context.Context) error { return errors.New(msg) }
}

func TestService_Check(t *testing.T) {
	tests := []struct {
		name       string
		checks     []Check
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name: "all healthy",
			checks: []Check{
				{Name: "database", Critical: true, Probe: ok},
				{Name: "redis", Probe: ok},
			},
			wantStatus: StatusOK,
			wantChecks: map[string]string{"database": StatusOK, "redis": StatusOK},
		},
		{
			name: "optional dependency down",
			checks: []Check{
				{Name: "database", Critical: true, Probe: ok},
				{Name: "notification", Probe: failing("connection refused")},
			},
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"database": StatusOK, "notification": StatusDegraded},
		},
		{
			name: "database down",
			checks: []Check{
				{Name: "database", Critical: true, Probe: failing("no route to host")},
				{Name: "redis", Probe: failing("timeout")},
			},
			wantStatus: StatusUnhealthy,
			wantChecks: map[string]string{"database": StatusUnhealthy, "redis": StatusDegraded},
		},
		{
			name: "disabled check does not degrade",
			checks: []Check{
				{Name: "database", Critical: true, Probe: ok},
				{Name: "logging"},
			},
			wantStatus: StatusOK,
			wantChecks: map[string]string{"database": StatusOK, "logging": StatusDisabled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService("flipflop-api", "1.0.0", zap.NewNop(), tt.checks...)

			report := svc.Check(context.Background())
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, "flipflop-api", report.Service)
			assert.WithinDuration(t, time.Now(), report.Timestamp, time.Minute)
			for name, status := range tt.wantChecks {
				assert.Equal(t, status, report.Checks[name].Status, name)
			}
		})
	}
}

func TestService_ProbeTimeout(t *testing.T) {
	svc := NewService("flipflop-api", "", zap.NewNop(), Check{
		Name: "redis",
		Probe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	svc.timeout = 20 * time.Millisecond

	report := svc.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Contains(t, report.Checks["redis"].Error, "deadline exceeded")
}
