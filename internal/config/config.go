package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// resourceNameRegex validates resource names.
// Names must start with a lowercase letter or digit, followed by lowercase letters, digits, underscores, or hyphens.
// Maximum length is 63 characters (common container name limit).
var resourceNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateName checks if a resource name is valid.
// Valid names:
//   - Start with a lowercase letter or digit
//   - Contain only lowercase letters, digits, underscores, or hyphens
//   - Are between 1 and 63 characters long
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("resource name cannot be empty")
	}

	if !resourceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid resource name %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

const (
	DefaultConfigPath      = "/etc/forage-vps/config.toml"
	DefaultStateDir        = "/var/lib/forage-vps"
	DefaultSessionsFile    = "sessions.json"
	DefaultAuditDir        = "audit"
	DefaultImage           = "ubuntu:22.04"
	DefaultContainerPrefix = "vps-"
	DefaultListen          = "127.0.0.1:8787"
	DefaultTmateSocket     = "/tmp/tmate.sock"
)

// Environment overrides.
const (
	EnvAdmins   = "FORAGE_VPS_ADMIN_USER_IDS"
	EnvImage    = "FORAGE_VPS_IMAGE"
	EnvStateDir = "FORAGE_VPS_STATE_DIR"
	EnvRuntime  = "FORAGE_VPS_RUNTIME"
	EnvListen   = "FORAGE_VPS_LISTEN"
	EnvConfig   = "FORAGE_VPS_CONFIG"
)

// Config is the control plane configuration loaded from config.toml.
type Config struct {
	Admins           []string         `toml:"admins"`
	Image            string           `toml:"image"`
	StateDir         string           `toml:"state_dir"`
	SessionsFile     string           `toml:"sessions_file"`
	AuditDir         string           `toml:"audit_dir"`
	Runtime          string           `toml:"runtime"` // "docker", "podman" or "" for auto-detect
	ContainerPrefix  string           `toml:"container_prefix"`
	EnforceDiskQuota bool             `toml:"enforce_disk_quota"`
	Listen           string           `toml:"listen"`
	Credential       CredentialConfig `toml:"credential"`
	Limits           LimitsConfig     `toml:"limits"`
}

// CredentialConfig bounds the credential issuance protocol.
type CredentialConfig struct {
	Attempts       int           `toml:"attempts"`
	AttemptTimeout time.Duration `toml:"attempt_timeout"`
	PollInterval   time.Duration `toml:"poll_interval"`
	InstallTimeout time.Duration `toml:"install_timeout"`
	Socket         string        `toml:"socket"`
}

// LimitsConfig holds the defaults applied to omitted request fields and
// the maxima a request may ask for.
type LimitsConfig struct {
	Default session.Limits `toml:"default"`
	Max     session.Limits `toml:"max"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Image:           DefaultImage,
		StateDir:        DefaultStateDir,
		SessionsFile:    DefaultSessionsFile,
		AuditDir:        DefaultAuditDir,
		ContainerPrefix: DefaultContainerPrefix,
		Listen:          DefaultListen,
		Credential: CredentialConfig{
			Attempts:       15,
			AttemptTimeout: 10 * time.Second,
			PollInterval:   2 * time.Second,
			InstallTimeout: 5 * time.Minute,
			Socket:         DefaultTmateSocket,
		},
		Limits: LimitsConfig{
			Default: session.Limits{RAMMB: 1024, CPUCores: 1, DiskGB: 10},
			Max:     session.Limits{RAMMB: 16384, CPUCores: 8, DiskGB: 200},
		},
	}
}

// Load reads the configuration at path, applies environment overrides and
// validates the result. When path is empty the default location is used
// and a missing file yields the defaults; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logging.Warn("unknown configuration keys ignored", "path", path, "keys", strings.Join(keys, ","))
		}
	case os.IsNotExist(err) && !explicit:
		logging.Debug("no configuration file, using defaults", "path", path)
	default:
		return nil, errors.ConfigError(fmt.Sprintf("failed to read %s", path), err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("invalid configuration", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvAdmins); ok {
		c.Admins = ParseAdminList(v)
	}
	if v := os.Getenv(EnvImage); v != "" {
		c.Image = v
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv(EnvRuntime); v != "" {
		c.Runtime = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
}

// ParseAdminList splits a comma separated list of caller ids, dropping
// blanks and duplicates.
func ParseAdminList(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("image is required")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if !filepath.IsAbs(c.StateDir) {
		return fmt.Errorf("state_dir must be absolute (got %q)", c.StateDir)
	}
	switch c.Runtime {
	case "", "docker", "podman":
	default:
		return fmt.Errorf("unsupported runtime %q (want docker or podman)", c.Runtime)
	}
	if c.ContainerPrefix != "" && !resourceNameRegex.MatchString(c.ContainerPrefix) {
		return fmt.Errorf("invalid container_prefix %q", c.ContainerPrefix)
	}
	if c.Credential.Attempts < 1 {
		return fmt.Errorf("credential.attempts must be at least 1")
	}
	if c.Credential.AttemptTimeout <= 0 {
		return fmt.Errorf("credential.attempt_timeout must be positive")
	}
	if c.Credential.PollInterval < 0 {
		return fmt.Errorf("credential.poll_interval cannot be negative")
	}
	if c.Credential.InstallTimeout <= 0 {
		return fmt.Errorf("credential.install_timeout must be positive")
	}
	if !filepath.IsAbs(c.Credential.Socket) {
		return fmt.Errorf("credential.socket must be absolute (got %q)", c.Credential.Socket)
	}
	if err := c.Limits.Default.Validate(c.Limits.Max); err != nil {
		return fmt.Errorf("limits.default: %w", err)
	}
	return nil
}

// SessionsPath returns the session store location inside the state directory.
func (c *Config) SessionsPath() (string, error) {
	return c.statePath(c.SessionsFile)
}

// AuditPath returns the audit log directory inside the state directory.
func (c *Config) AuditPath() (string, error) {
	return c.statePath(c.AuditDir)
}

// statePath resolves name under StateDir. Symlinks and ".." components are
// resolved within the state directory, so the result never escapes it.
func (c *Config) statePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty state path")
	}
	p, err := securejoin.SecureJoin(c.StateDir, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q under %s: %w", name, c.StateDir, err)
	}
	return p, nil
}
