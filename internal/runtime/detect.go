package runtime

import (
	"fmt"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/system"
)

// RuntimeType identifies which container runtime to use
type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
	RuntimeAuto   RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// ContainerPrefix is prepended to resource names
	ContainerPrefix string

	// Executor runs the container CLI; nil means the OS executor
	Executor system.CommandExecutor
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() *Config {
	return &Config{
		Type:            RuntimeAuto,
		ContainerPrefix: "vps-",
	}
}

// Detect determines which container runtime is available on the system.
func Detect(exec system.CommandExecutor) (RuntimeType, error) {
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	// Try podman (preferred for rootless)
	if _, err := exec.LookPath("podman"); err == nil {
		logging.Debug("detected podman")
		return RuntimePodman, nil
	}

	// Try docker
	if _, err := exec.LookPath("docker"); err == nil {
		logging.Debug("detected docker")
		return RuntimeDocker, nil
	}

	return "", fmt.Errorf("no supported container runtime found (tried: podman, docker)")
}

// New creates a new Runtime based on the configuration.
// If Type is RuntimeAuto or empty, it auto-detects the runtime.
func New(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	exec := cfg.Executor
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	runtimeType := cfg.Type
	if runtimeType == RuntimeAuto || runtimeType == "" {
		detected, err := Detect(exec)
		if err != nil {
			return nil, err
		}
		runtimeType = detected
	}

	logging.Debug("creating runtime", "type", runtimeType)

	switch runtimeType {
	case RuntimeDocker, RuntimePodman:
		rt := NewDockerRuntime(string(runtimeType), cfg.ContainerPrefix)
		rt.Executor = exec
		return rt, nil

	default:
		return nil, fmt.Errorf("unknown runtime type: %s", runtimeType)
	}
}

// Available returns a list of available runtimes on this system
func Available(exec system.CommandExecutor) []RuntimeType {
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	var available []RuntimeType
	if _, err := exec.LookPath("podman"); err == nil {
		available = append(available, RuntimePodman)
	}
	if _, err := exec.LookPath("docker"); err == nil {
		available = append(available, RuntimeDocker)
	}
	return available
}
