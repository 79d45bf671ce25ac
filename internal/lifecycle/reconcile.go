package lifecycle

import (
	"context"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

// ReconcileReport lists the inconsistencies between the store and the
// runtime found by Reconcile.
type ReconcileReport struct {
	// StaleRecords have no sandbox in the runtime.
	StaleRecords []string `json:"staleRecords"`

	// Orphans are managed sandboxes with no record.
	Orphans []string `json:"orphans"`

	// Applied is set when the inconsistencies were repaired.
	Applied bool `json:"applied"`

	// Failed maps names to the error that prevented their repair.
	Failed map[string]string `json:"failed,omitempty"`
}

// Empty reports whether store and runtime agree.
func (r *ReconcileReport) Empty() bool {
	return len(r.StaleRecords) == 0 && len(r.Orphans) == 0
}

// Reconcile compares the store with the runtime. With apply it removes
// stale records and destroys orphaned sandboxes, rechecking each name
// under its lock first.
func (c *Controller) Reconcile(ctx context.Context, caller string, apply bool) (*ReconcileReport, error) {
	if !c.gate.IsAdmin(caller) {
		return nil, errors.Unauthorized("gc", "")
	}

	records, err := c.store.List()
	if err != nil {
		return nil, err
	}
	handles, err := c.prov.List(ctx)
	if err != nil {
		return nil, err
	}

	inRuntime := make(map[string]bool, len(handles))
	for _, h := range handles {
		inRuntime[h.Name] = true
	}
	inStore := make(map[string]bool, len(records))

	report := &ReconcileReport{StaleRecords: []string{}, Orphans: []string{}}
	for _, rec := range records {
		inStore[rec.Name] = true
		if !inRuntime[rec.Name] {
			report.StaleRecords = append(report.StaleRecords, rec.Name)
		}
	}
	for _, h := range handles {
		if !inStore[h.Name] {
			report.Orphans = append(report.Orphans, h.Name)
		}
	}

	if !apply {
		return report, nil
	}
	report.Applied = true

	for _, name := range report.StaleRecords {
		if err := c.removeStale(ctx, caller, name); err != nil {
			report.fail(name, err)
		}
	}
	for _, name := range report.Orphans {
		if err := c.destroyOrphan(ctx, caller, name); err != nil {
			report.fail(name, err)
		}
	}
	return report, nil
}

func (r *ReconcileReport) fail(name string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[name] = err.Error()
}

func (c *Controller) removeStale(ctx context.Context, caller, name string) error {
	unlock := c.lock(name)
	defer unlock()

	_, err := c.prov.Lookup(ctx, "gc", name)
	if err == nil {
		logging.Debug("record no longer stale", "name", name)
		return nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	if err := c.store.Remove(name); err != nil {
		return err
	}
	c.audit(audit.EventReconcile, name, caller, "removed stale record")
	c.archiveAudit(name)
	logging.Info("removed stale record", "name", name)
	return nil
}

func (c *Controller) destroyOrphan(ctx context.Context, caller, name string) error {
	unlock := c.lock(name)
	defer unlock()

	if _, err := c.store.Get(name); err == nil {
		logging.Debug("sandbox no longer orphaned", "name", name)
		return nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	h, err := c.prov.Lookup(ctx, "gc", name)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := c.prov.Destroy(ctx, h); err != nil {
		return err
	}
	c.audit(audit.EventReconcile, name, caller, "destroyed orphaned sandbox")
	c.archiveAudit(name)
	logging.Info("destroyed orphaned sandbox", "name", name)
	return nil
}
