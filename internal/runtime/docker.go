package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/system"
)

// Labels applied to every container the control plane runs.
const (
	LabelManaged  = "forage-vps.managed"
	LabelResource = "forage-vps.resource"
)

// DockerRuntime implements the Runtime interface using the Docker or Podman CLI.
type DockerRuntime struct {
	// Command is the container command to use (docker or podman)
	Command string

	// ContainerPrefix is prepended to resource names to form container names
	ContainerPrefix string

	// Executor runs the CLI; defaults to system.DefaultExecutor()
	Executor system.CommandExecutor
}

// NewDockerRuntime creates a runtime driving the given CLI command.
func NewDockerRuntime(command, containerPrefix string) *DockerRuntime {
	return &DockerRuntime{
		Command:         command,
		ContainerPrefix: containerPrefix,
		Executor:        system.DefaultExecutor(),
	}
}

// containerName returns the full container name for a resource
func (r *DockerRuntime) containerName(name string) string {
	return r.ContainerPrefix + name
}

// Name returns the runtime identifier
func (r *DockerRuntime) Name() string {
	return r.Command
}

func (r *DockerRuntime) executor() system.CommandExecutor {
	if r.Executor == nil {
		return system.DefaultExecutor()
	}
	return r.Executor
}

// runCmd executes a docker/podman command and returns its stdout.
func (r *DockerRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	res, err := r.executor().Run(ctx, r.Command, args...)
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %w", r.Command, args[0], err)
	}
	if res.ExitCode != 0 {
		stderr := strings.TrimSpace(res.Stderr)
		if isNoSuchContainer(stderr) {
			return "", fmt.Errorf("%s %s: %w", r.Command, args[0], ErrNotFound)
		}
		return "", fmt.Errorf("%s %s failed (exit %d): %s", r.Command, args[0], res.ExitCode, stderr)
	}
	return res.Stdout, nil
}

// isNoSuchContainer matches the "absent" messages of docker and podman.
func isNoSuchContainer(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such container") ||
		strings.Contains(s, "no such object") ||
		strings.Contains(s, "no container with name or id")
}

// Run creates and starts a detached container
func (r *DockerRuntime) Run(ctx context.Context, opts RunOptions) (*Handle, error) {
	containerName := r.containerName(opts.Name)
	logging.Debug("running container", "name", containerName, "runtime", r.Command, "image", opts.Image)

	args := []string{"run", "-d", "--init",
		"--name", containerName,
		"--hostname", opts.Name,
		"--label", LabelManaged + "=true",
		"--label", LabelResource + "=" + opts.Name,
	}

	labels := make([]string, 0, len(opts.Labels))
	for k, v := range opts.Labels {
		labels = append(labels, k+"="+v)
	}
	sort.Strings(labels)
	for _, l := range labels {
		args = append(args, "--label", l)
	}

	if opts.MemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", opts.MemoryMB))
	}
	if opts.CPUs > 0 {
		args = append(args, "--cpus", fmt.Sprintf("%d", opts.CPUs))
	}
	if opts.DiskQuota && opts.DiskGB > 0 {
		args = append(args, "--storage-opt", fmt.Sprintf("size=%dG", opts.DiskGB))
	}

	command := opts.Command
	if len(command) == 0 {
		command = []string{"sleep", "infinity"}
	}
	args = append(args, opts.Image)
	args = append(args, command...)

	out, err := r.runCmd(ctx, args...)
	if err != nil {
		return nil, err
	}

	return &Handle{
		Name:      opts.Name,
		Container: containerName,
		ID:        strings.TrimSpace(out),
		Status:    StatusRunning,
	}, nil
}

// dockerInspect holds the relevant fields from docker inspect
type dockerInspect struct {
	ID    string `json:"Id"`
	State struct {
		Status    string `json:"Status"`
		Running   bool   `json:"Running"`
		StartedAt string `json:"StartedAt"`
	} `json:"State"`
}

func statusFromState(state string) ContainerStatus {
	switch strings.ToLower(state) {
	case "running":
		return StatusRunning
	case "exited", "stopped", "created", "configured":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// Get looks up the container for a resource name
func (r *DockerRuntime) Get(ctx context.Context, name string) (*Handle, error) {
	containerName := r.containerName(name)

	output, err := r.runCmd(ctx, "inspect", "--type", "container", containerName)
	if err != nil {
		return nil, err
	}

	var inspects []dockerInspect
	if err := json.Unmarshal([]byte(output), &inspects); err != nil {
		return nil, fmt.Errorf("failed to parse inspect output: %w", err)
	}
	if len(inspects) == 0 {
		return nil, fmt.Errorf("%s: %w", containerName, ErrNotFound)
	}

	inspect := inspects[0]
	return &Handle{
		Name:      name,
		Container: containerName,
		ID:        inspect.ID,
		Status:    statusFromState(inspect.State.Status),
		StartedAt: inspect.State.StartedAt,
	}, nil
}

// Exec executes a command inside a container
func (r *DockerRuntime) Exec(ctx context.Context, h *Handle, command []string, opts ExecOptions) (*ExecResult, error) {
	args := []string{"exec"}

	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}

	if opts.WorkingDir != "" {
		args = append(args, "-w", opts.WorkingDir)
	}

	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}

	args = append(args, h.Container)
	args = append(args, command...)

	res, err := r.executor().Run(ctx, r.Command, args...)
	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}

	// The CLI itself exits 125 when it cannot reach the container.
	if res.ExitCode == 125 && isNoSuchContainer(res.Stderr) {
		return nil, fmt.Errorf("exec in %s: %w", h.Container, ErrNotFound)
	}

	return &ExecResult{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}, nil
}

// Start starts an existing container
func (r *DockerRuntime) Start(ctx context.Context, h *Handle) error {
	logging.Debug("starting container", "container", h.Container)
	_, err := r.runCmd(ctx, "start", h.Container)
	return err
}

// Stop stops a running container
func (r *DockerRuntime) Stop(ctx context.Context, h *Handle) error {
	logging.Debug("stopping container", "container", h.Container)
	_, err := r.runCmd(ctx, "stop", h.Container)
	return err
}

// Restart restarts a container
func (r *DockerRuntime) Restart(ctx context.Context, h *Handle) error {
	logging.Debug("restarting container", "container", h.Container)
	_, err := r.runCmd(ctx, "restart", h.Container)
	return err
}

// Remove removes a container
func (r *DockerRuntime) Remove(ctx context.Context, h *Handle, force bool) error {
	logging.Debug("removing container", "container", h.Container, "force", force)
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, h.Container)
	_, err := r.runCmd(ctx, args...)
	return err
}

// List returns all containers managed by this runtime
func (r *DockerRuntime) List(ctx context.Context) ([]*Handle, error) {
	output, err := r.runCmd(ctx, "ps", "-a",
		"--filter", "label="+LabelManaged+"=true",
		"--format", "{{.Names}}\t{{.State}}\t{{.ID}}")
	if err != nil {
		return nil, err
	}

	var handles []*Handle
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		containerName := fields[0]
		if !strings.HasPrefix(containerName, r.ContainerPrefix) {
			continue
		}
		handles = append(handles, &Handle{
			Name:      strings.TrimPrefix(containerName, r.ContainerPrefix),
			Container: containerName,
			ID:        fields[2],
			Status:    statusFromState(fields[1]),
		})
	}

	return handles, nil
}

// Ensure DockerRuntime implements Runtime
var _ Runtime = (*DockerRuntime)(nil)
