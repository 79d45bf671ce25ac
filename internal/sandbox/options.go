package sandbox

import (
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// Label recording the owner of a sandbox on its container.
const LabelOwner = "forage-vps.owner"

// Options configures a Provisioner.
type Options struct {
	// DefaultImage is used when CreateOptions.Image is empty.
	DefaultImage string

	// DiskQuota passes the disk limit to the runtime as a storage quota.
	// Requires a storage driver that supports it.
	DiskQuota bool
}

// CreateOptions holds all options for creating a sandbox.
type CreateOptions struct {
	// Name is the resource name (required)
	Name string

	// Image is the container image; empty means Options.DefaultImage
	Image string

	// Limits are the resource caps applied to the container
	Limits session.Limits

	// Owner is recorded as a container label (optional)
	Owner string
}
