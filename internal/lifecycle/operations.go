package lifecycle

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// DeployRequest describes a resource to deploy.
type DeployRequest struct {
	Name   string
	Limits session.Limits

	// Owner is the user the resource is deployed for; defaults to the caller.
	Owner string

	// Image overrides the configured default image.
	Image string
}

// Deploy provisions a sandbox, issues its first credential and persists
// the record as running. On any failure after the reservation the sandbox
// is torn down and no record remains.
func (c *Controller) Deploy(ctx context.Context, caller string, req DeployRequest) (*session.Record, error) {
	if !c.gate.CanDeploy(caller) {
		return nil, errors.Unauthorized("deploy", req.Name)
	}
	if err := config.ValidateName(req.Name); err != nil {
		return nil, errors.ValidationError(err.Error()).WithOp("deploy", req.Name)
	}
	limits, err := c.limitsFor(req.Limits)
	if err != nil {
		return nil, withOp(err, "deploy", req.Name)
	}

	owner := req.Owner
	if owner == "" {
		owner = caller
	}

	unlock := c.lock(req.Name)
	defer unlock()

	logging.Debug("deploying resource", "name", req.Name, "owner", owner, "limits", limits.String())

	now := c.now()
	rec := &session.Record{
		Name:      req.Name,
		OwnerID:   owner,
		State:     session.StateProvisioning,
		Limits:    limits,
		Image:     c.prov.ImageFor(req.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Insert(rec); err != nil {
		return nil, err
	}

	h, err := c.prov.Create(ctx, sandbox.CreateOptions{
		Name:   req.Name,
		Image:  req.Image,
		Limits: limits,
		Owner:  owner,
	})
	if err != nil {
		c.rollback(ctx, req.Name, nil)
		return nil, err
	}

	sess, err := c.creds.Issue(ctx, h)
	if err != nil {
		c.rollback(ctx, req.Name, h)
		return nil, withOp(err, "deploy", req.Name)
	}

	updated, err := c.store.Update(req.Name, func(r *session.Record) error {
		r.State = session.StateRunning
		r.Credential = sess.Connection
		r.Socket = sess.Socket
		r.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		c.rollback(ctx, req.Name, h)
		return nil, err
	}

	c.audit(audit.EventDeploy, req.Name, caller, fmt.Sprintf("owner=%s %s", owner, limits.String()))
	logging.Info("resource deployed", "name", req.Name, "owner", owner)
	return updated, nil
}

// rollback undoes a partial deploy. It runs even if ctx was cancelled.
func (c *Controller) rollback(ctx context.Context, name string, h *runtime.Handle) {
	ctx = context.WithoutCancel(ctx)
	logging.Debug("rolling back deploy", "name", name)

	if h != nil {
		if err := c.prov.Destroy(ctx, h); err != nil {
			logging.Error("failed to destroy sandbox during rollback", "name", name, "error", err)
		}
	}
	if err := c.store.Remove(name); err != nil {
		logging.Error("failed to remove reservation during rollback", "name", name, "error", err)
	}
}

// Start starts a stopped resource.
func (c *Controller) Start(ctx context.Context, caller, name string) (*session.Record, error) {
	return c.transition(ctx, "start", caller, name, c.prov.Start, session.StateRunning, audit.EventStart)
}

// Stop stops a running resource.
func (c *Controller) Stop(ctx context.Context, caller, name string) (*session.Record, error) {
	return c.transition(ctx, "stop", caller, name, c.prov.Stop, session.StateStopped, audit.EventStop)
}

// Restart restarts a resource, starting it if stopped.
func (c *Controller) Restart(ctx context.Context, caller, name string) (*session.Record, error) {
	return c.transition(ctx, "restart", caller, name, c.prov.Restart, session.StateRunning, audit.EventRestart)
}

func (c *Controller) transition(ctx context.Context, op, caller, name string,
	fn func(context.Context, string) (*runtime.Handle, error), to session.State, event audit.EventType) (*session.Record, error) {
	unlock := c.lock(name)
	defer unlock()

	if _, err := c.authorize(op, caller, name); err != nil {
		return nil, err
	}

	if _, err := fn(ctx, name); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, c.dropStale(op, caller, name)
		}
		return nil, err
	}

	rec, err := c.store.Update(name, func(r *session.Record) error {
		r.State = to
		r.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.audit(event, name, caller, "")
	logging.Debug("resource transitioned", "op", op, "name", name, "state", to)
	return rec, nil
}

// Delete force-removes the sandbox and then its record. The returned
// record carries the terminal deleted state.
func (c *Controller) Delete(ctx context.Context, caller, name string) (*session.Record, error) {
	unlock := c.lock(name)
	defer unlock()

	rec, err := c.authorize("delete", caller, name)
	if err != nil {
		return nil, err
	}

	if err := c.prov.Delete(ctx, name, true); err != nil {
		if errors.Is(err, errors.ErrStoreWriteFailure) {
			logging.Error("sandbox removed but record remains", "name", name, "error", err)
		}
		return nil, err
	}

	c.audit(audit.EventDelete, name, caller, "")
	c.archiveAudit(name)
	logging.Info("resource deleted", "name", name)

	rec.State = session.StateDeleted
	rec.Credential = ""
	rec.Socket = ""
	rec.UpdatedAt = c.now()
	return rec, nil
}

// RegenerateCredential replaces the credential of a running resource. On
// failure the record is left untouched and the prior session keeps serving
// its credential.
func (c *Controller) RegenerateCredential(ctx context.Context, caller, name string) (*session.Record, error) {
	unlock := c.lock(name)
	defer unlock()

	prior, err := c.authorize("regenerate", caller, name)
	if err != nil {
		return nil, err
	}

	h, err := c.prov.Lookup(ctx, "regenerate", name)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, c.dropStale("regenerate", caller, name)
		}
		return nil, err
	}
	if h.Status != runtime.StatusRunning {
		return nil, errors.ValidationError("resource is not running; start it first").WithOp("regenerate", name)
	}

	sess, err := c.creds.Regenerate(ctx, h, prior.Socket)
	if err != nil {
		return nil, withOp(err, "regenerate", name)
	}

	rec, err := c.store.Update(name, func(r *session.Record) error {
		r.Credential = sess.Connection
		r.Socket = sess.Socket
		r.State = session.StateRunning
		r.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.audit(audit.EventRegenerate, name, caller, "")
	return rec, nil
}

// List returns every record caller may manage, sorted by name.
func (c *Controller) List(ctx context.Context, caller string) ([]*session.Record, error) {
	all, err := c.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]*session.Record, 0, len(all))
	for _, rec := range all {
		if c.gate.CanManage(caller, rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get returns the record for name after reconciling it with the runtime: a
// record whose sandbox is gone is removed and reported as NotFound, and an
// observed running/stopped drift is persisted.
func (c *Controller) Get(ctx context.Context, caller, name string) (*session.Record, error) {
	unlock := c.lock(name)
	defer unlock()

	rec, err := c.authorize("get", caller, name)
	if err != nil {
		return nil, err
	}

	h, err := c.prov.Lookup(ctx, "get", name)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, c.dropStale("get", caller, name)
		}
		return nil, err
	}

	observed := rec.State
	switch h.Status {
	case runtime.StatusRunning:
		observed = session.StateRunning
	case runtime.StatusStopped:
		observed = session.StateStopped
	}
	if observed == rec.State {
		return rec, nil
	}

	logging.Debug("reconciling state drift", "name", name, "stored", rec.State, "observed", observed)
	return c.store.Update(name, func(r *session.Record) error {
		r.State = observed
		r.UpdatedAt = c.now()
		return nil
	})
}
