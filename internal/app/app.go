// Package app wires the forage-vps components together.
// It allows dependency injection for testing.
package app

import (
	"os"
	"path/filepath"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/auth"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/credential"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/multiplexer"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Runtime is the container runtime
	Runtime runtime.Runtime

	// Store is the session store
	Store *session.Store

	// Audit is the lifecycle event log
	Audit *audit.Logger

	// Broker issues credentials into sandboxes
	Broker *credential.Broker

	// Controller runs the lifecycle operations
	Controller *lifecycle.Controller

	// CredentialOptions overrides the broker bounds taken from Config
	CredentialOptions *credential.Options
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithStore sets a custom session store
func WithStore(s *session.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithCredentialOptions overrides the broker bounds
func WithCredentialOptions(opts credential.Options) Option {
	return func(a *App) {
		a.CredentialOptions = &opts
	}
}

// New creates a new App with the given options.
// If runtime is not provided via WithRuntime, it will be auto-detected.
// If no store is provided, the state directory is created as needed.
func New(opts ...Option) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		app.Config = config.Default()
	}
	cfg := app.Config

	if app.Runtime == nil {
		rtType := runtime.RuntimeType(cfg.Runtime)
		if rtType == "" {
			rtType = runtime.RuntimeAuto
		}
		rt, err := runtime.New(&runtime.Config{
			Type:            rtType,
			ContainerPrefix: cfg.ContainerPrefix,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ExitRuntimeProvision, "no usable container runtime", err)
		}
		app.Runtime = rt
	}

	if app.Store == nil {
		path, err := cfg.SessionsPath()
		if err != nil {
			return nil, errors.ConfigError("invalid sessions file", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, errors.ConfigError("failed to create state directory", err)
		}
		app.Store = session.Open(path)
	}

	auditDir, err := cfg.AuditPath()
	if err != nil {
		return nil, errors.ConfigError("invalid audit directory", err)
	}
	app.Audit = audit.NewLogger(auditDir)

	credOpts := credential.Options{
		Attempts:       cfg.Credential.Attempts,
		AttemptTimeout: cfg.Credential.AttemptTimeout,
		PollInterval:   cfg.Credential.PollInterval,
		InstallTimeout: cfg.Credential.InstallTimeout,
	}
	if app.CredentialOptions != nil {
		credOpts = *app.CredentialOptions
	}
	app.Broker = credential.NewBroker(app.Runtime, multiplexer.NewTmate(cfg.Credential.Socket), credOpts)

	prov := sandbox.NewProvisioner(app.Store, app.Runtime, sandbox.Options{
		DefaultImage: cfg.Image,
		DiskQuota:    cfg.EnforceDiskQuota,
	})

	app.Controller = lifecycle.New(app.Store, auth.NewGate(cfg.Admins), prov, app.Broker, lifecycle.Options{
		DefaultLimits: cfg.Limits.Default,
		MaxLimits:     cfg.Limits.Max,
		Audit:         app.Audit,
	})

	logging.Debug("application wired",
		"runtime", app.Runtime.Name(),
		"store", app.Store.Location(),
		"admins", len(cfg.Admins))

	return app, nil
}
