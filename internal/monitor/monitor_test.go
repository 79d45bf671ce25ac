package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/testutil"
)

// killSession stops the tmate server serving rec's credential.
func killSession(t *testing.T, env *testutil.TestEnv, rec *session.Record) {
	t.Helper()
	env.Tmate.Kill(rec.Name, rec.Socket)
	if env.Tmate.Sessions(rec.Name) != 0 {
		t.Fatalf("session of %s still running", rec.Name)
	}
}

func deploy(t *testing.T, env *testutil.TestEnv, name string) *session.Record {
	t.Helper()
	rec, err := env.Controller.Deploy(context.Background(), testutil.AdminID, lifecycle.DeployRequest{Name: name, Owner: "42"})
	if err != nil {
		t.Fatalf("Deploy(%s) error: %v", name, err)
	}
	return rec
}

func statuses(results []CheckResult) map[string]health.Status {
	m := make(map[string]health.Status, len(results))
	for _, r := range results {
		m[r.Resource] = r.Status
	}
	return m
}

func TestMonitor_New(t *testing.T) {
	env := testutil.NewTestEnv(t)

	m := New(30*time.Second, env.Controller, testutil.AdminID)
	if m.interval != 30*time.Second {
		t.Errorf("interval = %v, want %v", m.interval, 30*time.Second)
	}
	if m.repair {
		t.Error("repair should default to false")
	}

	m = New(time.Second, env.Controller, testutil.AdminID, WithSessionRepair(true))
	if !m.repair {
		t.Error("repair should be true")
	}
}

func TestMonitor_CheckAllEmpty(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := New(time.Second, env.Controller, testutil.AdminID)

	if results := m.checkAll(context.Background()); len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestMonitor_CheckAll(t *testing.T) {
	env := testutil.NewTestEnv(t)
	deploy(t, env, "healthy")
	killSession(t, env, deploy(t, env, "dead"))
	env.AddResource("off", "42", session.StateStopped)
	env.AddResource("gone", "42", session.StateRunning)
	if err := env.Runtime.Remove(context.Background(), &runtime.Handle{Name: "gone"}, true); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	m := New(time.Second, env.Controller, testutil.AdminID)
	got := statuses(m.checkAll(context.Background()))

	want := map[string]health.Status{
		"healthy": health.StatusHealthy,
		"dead":    health.StatusNoSession,
		"off":     health.StatusStopped,
		"gone":    health.StatusMissing,
	}
	for name, status := range want {
		if got[name] != status {
			t.Errorf("%s: status = %q, want %q", name, got[name], status)
		}
	}
	if env.Record("gone") != nil {
		t.Error("record without container should be dropped")
	}
}

func TestMonitor_SessionRepair(t *testing.T) {
	env := testutil.NewTestEnv(t)
	before := deploy(t, env, "dead")
	killSession(t, env, before)

	m := New(time.Second, env.Controller, testutil.AdminID, WithSessionRepair(true))
	results := m.checkAll(context.Background())

	if len(results) != 1 || !results[0].Repaired || results[0].Status != health.StatusHealthy {
		t.Fatalf("results = %+v", results)
	}
	after := env.Record("dead")
	if after.Credential == "" || after.Credential == before.Credential {
		t.Errorf("credential = %q, want a new one (was %q)", after.Credential, before.Credential)
	}
	if after.Credential != env.Tmate.ConnectionOn("dead", after.Socket) {
		t.Errorf("stored credential %q does not match live session %q", after.Credential, env.Tmate.ConnectionOn("dead", after.Socket))
	}

	// The repaired resource is healthy on the next sweep.
	if got := statuses(m.checkAll(context.Background())); got["dead"] != health.StatusHealthy {
		t.Errorf("after repair: status = %q, want healthy", got["dead"])
	}
}

func TestMonitor_NoRepairLeavesSessionDead(t *testing.T) {
	env := testutil.NewTestEnv(t)
	before := deploy(t, env, "dead")
	killSession(t, env, before)

	m := New(time.Second, env.Controller, testutil.AdminID)
	results := m.checkAll(context.Background())

	if len(results) != 1 || results[0].Repaired || results[0].Status != health.StatusNoSession {
		t.Fatalf("results = %+v", results)
	}
	if after := env.Record("dead"); after.Credential != before.Credential {
		t.Errorf("credential changed without repair: %q", after.Credential)
	}
}

func TestMonitor_NonAdminSeesOwnResources(t *testing.T) {
	env := testutil.NewTestEnv(t)
	deploy(t, env, "mine")
	env.AddResource("theirs", "7", session.StateStopped)

	m := New(time.Second, env.Controller, "42")
	got := statuses(m.checkAll(context.Background()))
	if len(got) != 1 || got["mine"] != health.StatusHealthy {
		t.Errorf("statuses = %v", got)
	}
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := New(time.Millisecond, env.Controller, testutil.AdminID)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := m.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}
}
