package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/auth"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/credential"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// CredentialIssuer issues connection strings into running sandboxes.
// Sessions are addressed by the socket of their multiplexer server.
type CredentialIssuer interface {
	Issue(ctx context.Context, h *runtime.Handle) (*credential.Session, error)
	Regenerate(ctx context.Context, h *runtime.Handle, current string) (*credential.Session, error)
	Alive(ctx context.Context, h *runtime.Handle, socket string) bool
}

// AuditLog records lifecycle events. Archive closes the history of a
// resource whose record is gone.
type AuditLog interface {
	Log(event audit.Event) error
	Archive(resource string) error
}

// Options configures a Controller.
type Options struct {
	// DefaultLimits fill zero fields of a deploy request.
	DefaultLimits session.Limits

	// MaxLimits bound every deploy request; zero fields are unbounded.
	MaxLimits session.Limits

	// Audit receives an event for every successful mutation (optional).
	Audit AuditLog
}

// Controller orchestrates resource lifecycles. It is safe for concurrent use.
type Controller struct {
	store *session.Store
	gate  *auth.Gate
	prov  *sandbox.Provisioner
	creds CredentialIssuer
	opts  Options
	locks sync.Map // resource name -> *sync.Mutex
	now   func() time.Time
}

// New creates a Controller.
func New(store *session.Store, gate *auth.Gate, prov *sandbox.Provisioner, creds CredentialIssuer, opts Options) *Controller {
	return &Controller{
		store: store,
		gate:  gate,
		prov:  prov,
		creds: creds,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Gate returns the authorization gate.
func (c *Controller) Gate() *auth.Gate {
	return c.gate
}

// Credentials returns the credential issuer.
func (c *Controller) Credentials() CredentialIssuer {
	return c.creds
}

// Provisioner returns the sandbox provisioner.
func (c *Controller) Provisioner() *sandbox.Provisioner {
	return c.prov
}

// lock acquires the mutex for name and returns its release function.
func (c *Controller) lock(name string) func() {
	v, _ := c.locks.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// authorize loads the record for name and checks that caller may manage
// it. Callers that are not admins get Unauthorized for absent names too.
func (c *Controller) authorize(op, caller, name string) (*session.Record, error) {
	rec, err := c.store.Get(name)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			if c.gate.IsAdmin(caller) {
				return nil, errors.NotFound(op, name)
			}
			return nil, errors.Unauthorized(op, name)
		}
		return nil, err
	}
	if !c.gate.CanManage(caller, rec) {
		logging.Debug("authorization denied", "op", op, "name", name, "caller", caller)
		return nil, errors.Unauthorized(op, name)
	}
	return rec, nil
}

// dropStale removes a record whose sandbox no longer exists and returns the
// NotFound to report.
func (c *Controller) dropStale(op, caller, name string) error {
	logging.Warn("removing stale record", "op", op, "name", name)
	if err := c.store.Remove(name); err != nil {
		return err
	}
	c.audit(audit.EventReconcile, name, caller, "removed stale record during "+op)
	c.archiveAudit(name)
	return errors.NotFound(op, name)
}

func (c *Controller) archiveAudit(name string) {
	if c.opts.Audit == nil {
		return
	}
	if err := c.opts.Audit.Archive(name); err != nil {
		logging.Warn("failed to archive audit log", "name", name, "error", err)
	}
}

func (c *Controller) audit(eventType audit.EventType, name, caller, details string) {
	if c.opts.Audit == nil {
		return
	}
	err := c.opts.Audit.Log(audit.Event{
		Timestamp: c.now(),
		Type:      eventType,
		Resource:  name,
		Actor:     caller,
		Details:   details,
	})
	if err != nil {
		logging.Warn("failed to write audit event", "type", eventType, "name", name, "error", err)
	}
}

// withOp annotates a taxonomy error with the operation it failed in.
func withOp(err error, op, name string) error {
	if fe, ok := err.(*errors.ForageError); ok {
		return fe.WithOp(op, name)
	}
	return err
}

// limitsFor fills zero fields of requested from the defaults and checks
// the result against the configured maximum.
func (c *Controller) limitsFor(requested session.Limits) (session.Limits, error) {
	l := requested
	if l.RAMMB == 0 {
		l.RAMMB = c.opts.DefaultLimits.RAMMB
	}
	if l.CPUCores == 0 {
		l.CPUCores = c.opts.DefaultLimits.CPUCores
	}
	if l.DiskGB == 0 {
		l.DiskGB = c.opts.DefaultLimits.DiskGB
	}
	if err := l.Validate(c.opts.MaxLimits); err != nil {
		return session.Limits{}, errors.ValidationError(err.Error())
	}
	return l, nil
}
