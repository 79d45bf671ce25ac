package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/credential"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
)

// Environment switches for integration tests.
const (
	EnvEnabled = "FORAGE_VPS_INTEGRATION_TESTS"
	EnvTmate   = "FORAGE_VPS_TMATE_TESTS"
	EnvImage   = "FORAGE_VPS_IT_IMAGE"
)

// AdminID is the admin caller of every harness.
const AdminID = "1000"

// ContainerPrefix keeps harness containers apart from real resources.
const ContainerPrefix = "vps-it-"

// TestHarness wires an App over the detected container runtime.
type TestHarness struct {
	t       *testing.T
	Config  *config.Config
	Runtime runtime.Runtime
	App     *app.App
	names   []string
}

// Enabled reports whether integration tests should run.
func Enabled() bool {
	return os.Getenv(EnvEnabled) == "1"
}

// NewHarness creates a harness. It skips the test if integration tests are
// disabled or no runtime is available.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if !Enabled() {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnvEnabled)
	}

	rt, err := runtime.New(&runtime.Config{Type: runtime.RuntimeAuto, ContainerPrefix: ContainerPrefix})
	if err != nil {
		t.Skipf("no container runtime available: %v", err)
	}

	cfg := config.Default()
	cfg.StateDir = filepath.Join(t.TempDir(), "state")
	cfg.ContainerPrefix = ContainerPrefix
	cfg.Admins = []string{AdminID}
	cfg.Image = Image()

	a, err := app.New(
		app.WithConfig(cfg),
		app.WithRuntime(rt),
		app.WithCredentialOptions(credential.Options{
			Attempts:       30,
			AttemptTimeout: 10 * time.Second,
			PollInterval:   time.Second,
			InstallTimeout: 3 * time.Minute,
		}),
	)
	if err != nil {
		t.Fatalf("Failed to wire app: %v", err)
	}

	h := &TestHarness{t: t, Config: cfg, Runtime: rt, App: a}
	t.Cleanup(h.cleanup)
	return h
}

// Image returns the image integration sandboxes run.
func Image() string {
	if image := os.Getenv(EnvImage); image != "" {
		return image
	}
	return "alpine:3.20"
}

// RequireTmate skips the test unless credential issuance tests are enabled.
func (h *TestHarness) RequireTmate() {
	h.t.Helper()
	if os.Getenv(EnvTmate) != "1" {
		h.t.Skipf("tmate tests disabled (set %s=1; needs network access)", EnvTmate)
	}
}

// Name returns a fresh resource name and tracks it for cleanup.
func (h *TestHarness) Name(base string) string {
	name := fmt.Sprintf("%s-%s", base, strings.SplitN(uuid.NewString(), "-", 2)[0])
	h.names = append(h.names, name)
	return name
}

// Context returns a context bounded for one integration step.
func (h *TestHarness) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	h.t.Cleanup(cancel)
	return ctx
}

func (h *TestHarness) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, name := range h.names {
		hd, err := h.Runtime.Get(ctx, name)
		if err != nil {
			continue
		}
		if err := h.Runtime.Remove(ctx, hd, true); err != nil {
			h.t.Logf("Failed to remove %s: %v", hd.Container, err)
		}
	}
}
