// Package monitor provides background health monitoring for resources.
package monitor

import (
	"context"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

// CheckResult holds the result of a single resource health check.
type CheckResult struct {
	Resource string
	Status   health.Status
	Repaired bool
}

// Monitor periodically checks the health of every resource its actor can
// manage.
type Monitor struct {
	interval time.Duration
	ctl      *lifecycle.Controller
	actor    string
	repair   bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSessionRepair enables regenerating the credential of running
// resources whose tmate session has died.
func WithSessionRepair(enabled bool) Option {
	return func(m *Monitor) {
		m.repair = enabled
	}
}

// New creates a Monitor acting as actor, normally an admin.
func New(interval time.Duration, ctl *lifecycle.Controller, actor string, opts ...Option) *Monitor {
	m := &Monitor{
		interval: interval,
		ctl:      ctl,
		actor:    actor,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the monitoring loop. It blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Debug("starting health monitor", "interval", m.interval, "repair", m.repair)

	m.checkAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("health monitor stopping")
			return ctx.Err()
		case <-ticker.C:
			m.checkAll(ctx)
		}
	}
}

// checkAll reconciles and checks every resource. Records whose container
// is gone are dropped by the reconciling Get.
func (m *Monitor) checkAll(ctx context.Context) []CheckResult {
	records, err := m.ctl.List(ctx, m.actor)
	if err != nil {
		logging.Warn("monitor failed to list resources", "error", err)
		return nil
	}

	rt := m.ctl.Provisioner().Runtime()
	probe := m.ctl.Credentials()

	var results []CheckResult
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}

		cur, err := m.ctl.Get(ctx, m.actor, rec.Name)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				results = append(results, CheckResult{Resource: rec.Name, Status: health.StatusMissing})
			} else {
				logging.Warn("monitor failed to reconcile resource", "name", rec.Name, "error", err)
			}
			continue
		}

		check, err := health.Check(ctx, rt, probe, cur)
		if err != nil {
			logging.Warn("health check failed", "name", rec.Name, "error", err)
			continue
		}
		result := CheckResult{Resource: rec.Name, Status: check.Status()}

		if m.repair && result.Status == health.StatusNoSession {
			logging.Info("repairing dead session", "name", rec.Name)
			if _, err := m.ctl.RegenerateCredential(ctx, m.actor, rec.Name); err != nil {
				logging.Warn("session repair failed", "name", rec.Name, "error", err)
			} else {
				result.Status = health.StatusHealthy
				result.Repaired = true
			}
		}
		results = append(results, result)
	}

	return results
}
