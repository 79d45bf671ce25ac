package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAdmins, EnvImage, EnvStateDir, EnvRuntime, EnvListen, EnvConfig} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "box1", false},
		{"with hyphen", "my-box", false},
		{"with underscore", "my_box", false},
		{"digit first", "1box", false},
		{"max length", strings.Repeat("a", 63), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 64), true},
		{"uppercase", "Box1", true},
		{"leading hyphen", "-box", true},
		{"path traversal", "../etc", true},
		{"slash", "a/b", true},
		{"space", "my box", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FullFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
admins = ["42", "1093"]
image = "debian:12"
state_dir = "/srv/vps"
runtime = "podman"
container_prefix = "sbx-"
enforce_disk_quota = true
listen = "0.0.0.0:9000"

[credential]
attempts = 5
attempt_timeout = "3s"
poll_interval = "500ms"
install_timeout = "2m"

[limits.default]
ram_mb = 512
cpu_cores = 1
disk_gb = 5

[limits.max]
ram_mb = 4096
cpu_cores = 4
disk_gb = 40
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !reflect.DeepEqual(cfg.Admins, []string{"42", "1093"}) {
		t.Errorf("Admins = %v", cfg.Admins)
	}
	if cfg.Image != "debian:12" {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.Runtime != "podman" {
		t.Errorf("Runtime = %q", cfg.Runtime)
	}
	if !cfg.EnforceDiskQuota {
		t.Error("EnforceDiskQuota should be true")
	}
	if cfg.Credential.Attempts != 5 {
		t.Errorf("Attempts = %d", cfg.Credential.Attempts)
	}
	if cfg.Credential.AttemptTimeout != 3*time.Second {
		t.Errorf("AttemptTimeout = %v", cfg.Credential.AttemptTimeout)
	}
	if cfg.Credential.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.Credential.PollInterval)
	}
	if cfg.Credential.Socket != DefaultTmateSocket {
		t.Errorf("Socket = %q, want default", cfg.Credential.Socket)
	}
	if cfg.Limits.Max != (session.Limits{RAMMB: 4096, CPUCores: 4, DiskGB: 40}) {
		t.Errorf("Limits.Max = %+v", cfg.Limits.Max)
	}
	if cfg.SessionsFile != DefaultSessionsFile {
		t.Errorf("SessionsFile = %q, want default", cfg.SessionsFile)
	}
}

func TestDefault_WithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStateDir, "/tmp/forage-vps-test")

	cfg := Default()
	cfg.applyEnv()
	if cfg.StateDir != "/tmp/forage-vps-test" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrConfig) {
		t.Errorf("Load() error = %v, want config error", err)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "admins = [\n")

	_, err := Load(path)
	if !errors.Is(err, errors.ErrConfig) {
		t.Errorf("Load() error = %v, want config error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `admins = ["1"]
image = "debian:12"
`)
	t.Setenv(EnvAdmins, " 42, 7 ,,42")
	t.Setenv(EnvImage, "alpine:3")
	t.Setenv(EnvRuntime, "docker")
	t.Setenv(EnvListen, ":8080")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Admins, []string{"42", "7"}) {
		t.Errorf("Admins = %v, want [42 7]", cfg.Admins)
	}
	if cfg.Image != "alpine:3" {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.Runtime != "docker" {
		t.Errorf("Runtime = %q", cfg.Runtime)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestLoad_ConfigEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `image = "from-env-path"`)
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Image != "from-env-path" {
		t.Errorf("Image = %q", cfg.Image)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no image", func(c *Config) { c.Image = "" }, true},
		{"relative state dir", func(c *Config) { c.StateDir = "state" }, true},
		{"bad runtime", func(c *Config) { c.Runtime = "lxc" }, true},
		{"bad prefix", func(c *Config) { c.ContainerPrefix = "VPS/" }, true},
		{"zero attempts", func(c *Config) { c.Credential.Attempts = 0 }, true},
		{"zero attempt timeout", func(c *Config) { c.Credential.AttemptTimeout = 0 }, true},
		{"relative socket", func(c *Config) { c.Credential.Socket = "tmate.sock" }, true},
		{"default over max", func(c *Config) { c.Limits.Max.RAMMB = 512 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_StatePaths(t *testing.T) {
	stateDir := t.TempDir()
	cfg := Default()
	cfg.StateDir = stateDir

	p, err := cfg.SessionsPath()
	if err != nil {
		t.Fatalf("SessionsPath() error: %v", err)
	}
	if p != filepath.Join(stateDir, DefaultSessionsFile) {
		t.Errorf("SessionsPath() = %q", p)
	}

	cfg.SessionsFile = "../../etc/passwd"
	p, err = cfg.SessionsPath()
	if err != nil {
		t.Fatalf("SessionsPath() error: %v", err)
	}
	if !strings.HasPrefix(p, stateDir+string(filepath.Separator)) {
		t.Errorf("SessionsPath() = %q escapes %q", p, stateDir)
	}
}

func TestParseAdminList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"42", []string{"42"}},
		{"42,7", []string{"42", "7"}},
		{" 7 , 42 , 7 ", []string{"42", "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAdminList(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAdminList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
