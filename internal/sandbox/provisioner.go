package sandbox

import (
	"context"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// Provisioner creates and operates sandboxes through a container runtime.
type Provisioner struct {
	store *session.Store
	rt    runtime.Runtime
	opts  Options
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(store *session.Store, rt runtime.Runtime, opts Options) *Provisioner {
	return &Provisioner{store: store, rt: rt, opts: opts}
}

// Runtime returns the underlying container runtime.
func (p *Provisioner) Runtime() runtime.Runtime {
	return p.rt
}

// ImageFor returns image, or the default image when it is empty.
func (p *Provisioner) ImageFor(image string) string {
	if image == "" {
		return p.opts.DefaultImage
	}
	return image
}

// Create runs a new sandbox. The name must be free in the runtime and must
// not belong to an established record; a Provisioning record is the
// caller's own reservation.
func (p *Provisioner) Create(ctx context.Context, opts CreateOptions) (*runtime.Handle, error) {
	logging.Debug("starting sandbox creation", "name", opts.Name, "limits", opts.Limits.String())

	rec, err := p.store.Get(opts.Name)
	switch {
	case err == nil:
		if rec.State != session.StateProvisioning {
			return nil, errors.NameConflict(opts.Name)
		}
	case !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	if _, err := p.rt.Get(ctx, opts.Name); err == nil {
		return nil, errors.NameConflict(opts.Name)
	} else if !errors.Is(err, runtime.ErrNotFound) {
		return nil, errors.RuntimeProvision("create", opts.Name, err)
	}

	image := p.ImageFor(opts.Image)

	runOpts := runtime.RunOptions{
		Name:      opts.Name,
		Image:     image,
		MemoryMB:  opts.Limits.RAMMB,
		CPUs:      opts.Limits.CPUCores,
		DiskGB:    opts.Limits.DiskGB,
		DiskQuota: p.opts.DiskQuota,
	}
	if opts.Owner != "" {
		runOpts.Labels = map[string]string{LabelOwner: opts.Owner}
	}

	logging.Debug("creating container via runtime", "name", opts.Name, "runtime", p.rt.Name(), "image", image)
	h, err := p.rt.Run(ctx, runOpts)
	if err != nil {
		return nil, errors.RuntimeProvision("create", opts.Name, err)
	}
	return h, nil
}

// Lookup returns the runtime handle for name, or NotFound if the runtime
// has no such sandbox.
func (p *Provisioner) Lookup(ctx context.Context, op, name string) (*runtime.Handle, error) {
	h, err := p.rt.Get(ctx, name)
	if err != nil {
		if errors.Is(err, runtime.ErrNotFound) {
			return nil, errors.NotFound(op, name)
		}
		return nil, errors.RuntimeProvision(op, name, err)
	}
	return h, nil
}

// Start starts the sandbox for name.
func (p *Provisioner) Start(ctx context.Context, name string) (*runtime.Handle, error) {
	return p.apply(ctx, "start", name, p.rt.Start)
}

// Stop stops the sandbox for name.
func (p *Provisioner) Stop(ctx context.Context, name string) (*runtime.Handle, error) {
	return p.apply(ctx, "stop", name, p.rt.Stop)
}

// Restart restarts the sandbox for name, starting it if stopped.
func (p *Provisioner) Restart(ctx context.Context, name string) (*runtime.Handle, error) {
	return p.apply(ctx, "restart", name, p.rt.Restart)
}

func (p *Provisioner) apply(ctx context.Context, op, name string, fn func(context.Context, *runtime.Handle) error) (*runtime.Handle, error) {
	h, err := p.Lookup(ctx, op, name)
	if err != nil {
		return nil, err
	}

	logging.Debug("applying runtime operation", "op", op, "name", name, "container", h.Container)
	if err := fn(ctx, h); err != nil {
		if errors.Is(err, runtime.ErrNotFound) {
			return nil, errors.NotFound(op, name)
		}
		return nil, errors.RuntimeProvision(op, name, err)
	}

	switch op {
	case "stop":
		h.Status = runtime.StatusStopped
	default:
		h.Status = runtime.StatusRunning
	}
	return h, nil
}

// List returns every sandbox the runtime manages.
func (p *Provisioner) List(ctx context.Context) ([]*runtime.Handle, error) {
	handles, err := p.rt.List(ctx)
	if err != nil {
		return nil, errors.RuntimeProvision("list", "", err)
	}
	return handles, nil
}
