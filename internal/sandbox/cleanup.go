package sandbox

import (
	"context"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
)

// Delete removes the sandbox and its record. An absent sandbox or record
// is not an error. If the runtime removal succeeds but the record cannot be
// removed, the error is StoreWriteFailure.
func (p *Provisioner) Delete(ctx context.Context, name string, force bool) error {
	logging.Debug("deleting sandbox", "name", name, "force", force)

	h, err := p.rt.Get(ctx, name)
	switch {
	case err == nil:
		if err := p.remove(ctx, h, force); err != nil {
			return errors.RuntimeProvision("delete", name, err)
		}
	case errors.Is(err, runtime.ErrNotFound):
		logging.Debug("sandbox already absent from runtime", "name", name)
	default:
		return errors.RuntimeProvision("delete", name, err)
	}

	if err := p.store.Remove(name); err != nil {
		return errors.StoreWriteFailure("delete", name, err)
	}
	return nil
}

// Destroy force-removes the container behind h without touching the store.
// It is the rollback path of a failed deploy.
func (p *Provisioner) Destroy(ctx context.Context, h *runtime.Handle) error {
	if h == nil {
		return nil
	}
	logging.Debug("destroying container", "name", h.Name, "container", h.Container)
	if err := p.remove(ctx, h, true); err != nil {
		return errors.RuntimeProvision("destroy", h.Name, err)
	}
	return nil
}

func (p *Provisioner) remove(ctx context.Context, h *runtime.Handle, force bool) error {
	err := p.rt.Remove(ctx, h, force)
	if errors.Is(err, runtime.ErrNotFound) {
		return nil
	}
	return err
}
