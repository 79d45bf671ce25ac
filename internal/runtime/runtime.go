package runtime

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the runtime has no container for a name.
var ErrNotFound = errors.New("container not found")

// ContainerStatus represents the state of a container
type ContainerStatus string

const (
	StatusRunning  ContainerStatus = "running"
	StatusStopped  ContainerStatus = "stopped"
	StatusNotFound ContainerStatus = "not-found"
	StatusUnknown  ContainerStatus = "unknown"
)

// Handle identifies a container owned by the control plane.
type Handle struct {
	Name      string // resource name
	Container string // runtime container name
	ID        string
	Status    ContainerStatus
	StartedAt string
}

// ExecResult holds the result of executing a command in a container
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunOptions holds options for running a new detached container
type RunOptions struct {
	Name      string
	Image     string
	MemoryMB  int
	CPUs      int
	DiskGB    int  // applied only when DiskQuota is set
	DiskQuota bool // requires a storage driver with quota support
	Labels    map[string]string
	Command   []string // defaults to "sleep infinity"
}

// ExecOptions holds options for executing a command in a container
type ExecOptions struct {
	User       string   // User to run as
	WorkingDir string   // Working directory
	Env        []string // Environment variables
}

// Runtime is the interface that container backends must implement.
// All methods should be safe for concurrent use. Methods taking a name or
// handle return ErrNotFound (possibly wrapped) when the container is absent.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "docker", "podman")
	Name() string

	// Run creates and starts a detached container with resource limits
	Run(ctx context.Context, opts RunOptions) (*Handle, error)

	// Get looks up the container for a resource name
	Get(ctx context.Context, name string) (*Handle, error)

	// Exec executes a command inside a container. A non-zero exit is
	// reported in the result, not as an error.
	Exec(ctx context.Context, h *Handle, command []string, opts ExecOptions) (*ExecResult, error)

	// Start starts an existing container
	Start(ctx context.Context, h *Handle) error

	// Stop stops a running container
	Stop(ctx context.Context, h *Handle) error

	// Restart restarts a container, starting it if stopped
	Restart(ctx context.Context, h *Handle) error

	// Remove removes a container; force also removes a running one
	Remove(ctx context.Context, h *Handle, force bool) error

	// List returns all containers managed by this runtime
	List(ctx context.Context) ([]*Handle, error)
}
