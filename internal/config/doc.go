// Package config provides configuration loading and naming rules for
// forage-vps.
//
// # Configuration File
//
// The control plane reads /etc/forage-vps/config.toml (or the path given
// with --config or $FORAGE_VPS_CONFIG). A missing default file means the
// built-in defaults apply:
//
//	admins = ["42", "1093"]
//	image = "ubuntu:22.04"
//	state_dir = "/var/lib/forage-vps"
//	runtime = "docker"            # or "podman"; empty auto-detects
//	container_prefix = "vps-"
//	enforce_disk_quota = false
//	listen = "127.0.0.1:8787"
//
//	[credential]
//	attempts = 15
//	attempt_timeout = "10s"
//	poll_interval = "2s"
//	install_timeout = "5m"
//
//	[limits.default]
//	ram_mb = 1024
//	cpu_cores = 1
//	disk_gb = 10
//
//	[limits.max]
//	ram_mb = 16384
//	cpu_cores = 8
//	disk_gb = 200
//
// # Environment
//
// FORAGE_VPS_ADMIN_USER_IDS (comma separated), FORAGE_VPS_IMAGE,
// FORAGE_VPS_STATE_DIR, FORAGE_VPS_RUNTIME and FORAGE_VPS_LISTEN override
// the corresponding file settings.
//
// # State Paths
//
// The sessions file and audit directory are resolved inside state_dir with
// filepath-securejoin, so a configured name cannot point outside it.
package config
