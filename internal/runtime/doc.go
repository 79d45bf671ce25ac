// Package runtime provides a unified interface for container runtimes.
//
// Supported runtimes:
//   - docker: Docker Engine via the docker CLI
//   - podman: Podman via the podman CLI (preferred when both are present)
//
// Both are driven by DockerRuntime through a system.CommandExecutor, so
// tests can script CLI output without a daemon.
//
// # Runtime Interface
//
// The Runtime interface defines the operations the control plane needs:
//   - Run: create and start a detached container with memory, CPU and
//     optional disk limits
//   - Get: look up a container by resource name (ErrNotFound if absent)
//   - Exec: run a command inside a container
//   - Start, Stop, Restart, Remove: container lifecycle
//   - List: enumerate all managed containers
//
// Containers are named ContainerPrefix + resource name and carry the
// forage-vps.managed label, which List filters on.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create a mock implementation that can
// be configured with expected responses and used to verify calls.
package runtime
