// Package testutil provides test utilities for integration tests
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/credential"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// AdminID is the admin caller configured in every test environment.
const AdminID = "1"

// TestEnv holds the test environment
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	Config     *config.Config
	Runtime    *runtime.MockRuntime
	Tmate      *FakeTmate
	App        *app.App
	Controller *lifecycle.Controller
}

// NewTestEnv creates a new test environment with mock runtime and a file
// backed store in a temporary state directory.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.StateDir = filepath.Join(tmpDir, "state")
	cfg.Admins = []string{AdminID}

	mockRuntime := runtime.NewMockRuntime()
	tmate := NewFakeTmate()
	mockRuntime.SetExecHandler(tmate.Handle)

	testApp, err := app.New(
		app.WithConfig(cfg),
		app.WithRuntime(mockRuntime),
		app.WithCredentialOptions(credential.Options{
			Attempts:       5,
			AttemptTimeout: time.Second,
			PollInterval:   time.Millisecond,
			InstallTimeout: time.Second,
		}),
	)
	if err != nil {
		t.Fatalf("Failed to wire test app: %v", err)
	}

	return &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		Config:     cfg,
		Runtime:    mockRuntime,
		Tmate:      tmate,
		App:        testApp,
		Controller: testApp.Controller,
	}
}

// AddResource stores a record and, unless state is provisioning, a
// matching container in the mock runtime.
func (e *TestEnv) AddResource(name, owner string, state session.State) *session.Record {
	e.T.Helper()

	now := time.Now().UTC()
	rec := &session.Record{
		Name:      name,
		OwnerID:   owner,
		State:     state,
		Limits:    session.Limits{RAMMB: 512, CPUCores: 1, DiskGB: 5},
		Image:     e.Config.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.App.Store.Upsert(rec); err != nil {
		e.T.Fatalf("Failed to store record: %v", err)
	}

	switch state {
	case session.StateRunning:
		e.Runtime.AddContainer(name, runtime.StatusRunning)
	case session.StateStopped:
		e.Runtime.AddContainer(name, runtime.StatusStopped)
	}
	return rec
}

// Record returns the stored record for name, or nil.
func (e *TestEnv) Record(name string) *session.Record {
	e.T.Helper()

	rec, err := e.App.Store.Get(name)
	if err != nil {
		return nil
	}
	return rec
}

// StoreSnapshot returns the stored records keyed by name.
func (e *TestEnv) StoreSnapshot() map[string]*session.Record {
	e.T.Helper()

	m, err := e.App.Store.Load()
	if err != nil {
		e.T.Fatalf("Failed to load store: %v", err)
	}
	return m
}
