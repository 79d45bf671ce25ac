package runtime

import (
	"context"
	"errors"
	"testing"
)

func TestMockRuntime_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMockRuntime()

	h, err := m.Run(ctx, RunOptions{Name: "box1", Image: "ubuntu:22.04", MemoryMB: 512, CPUs: 1})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if m.ContainerStatus("box1") != StatusRunning {
		t.Errorf("status after Run = %q", m.ContainerStatus("box1"))
	}

	if _, err := m.Run(ctx, RunOptions{Name: "box1"}); err == nil {
		t.Error("Run() with a taken name should fail")
	}

	if err := m.Stop(ctx, h); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if m.ContainerStatus("box1") != StatusStopped {
		t.Errorf("status after Stop = %q", m.ContainerStatus("box1"))
	}

	if err := m.Restart(ctx, h); err != nil {
		t.Fatalf("Restart() error: %v", err)
	}
	if m.ContainerStatus("box1") != StatusRunning {
		t.Errorf("status after Restart = %q", m.ContainerStatus("box1"))
	}

	if err := m.Remove(ctx, h, false); err == nil {
		t.Error("Remove() of a running container without force should fail")
	}
	if err := m.Remove(ctx, h, true); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if m.HasContainer("box1") {
		t.Error("container should be gone after Remove")
	}

	if _, err := m.Get(ctx, "box1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrNotFound", err)
	}
	if err := m.Start(ctx, h); !errors.Is(err, ErrNotFound) {
		t.Errorf("Start() after Remove error = %v, want ErrNotFound", err)
	}

	if got := m.CountCalls("Run"); got != 2 {
		t.Errorf("Run calls = %d, want 2", got)
	}
}

func TestMockRuntime_ExecHandler(t *testing.T) {
	ctx := context.Background()
	m := NewMockRuntime()
	m.AddContainer("box1", StatusRunning)
	h, _ := m.Get(ctx, "box1")

	res, err := m.Exec(ctx, h, []string{"true"}, ExecOptions{})
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("default Exec() = %+v, %v", res, err)
	}

	m.SetExecResult("box1", &ExecResult{Stdout: "fixed"})
	res, _ = m.Exec(ctx, h, []string{"true"}, ExecOptions{})
	if res.Stdout != "fixed" {
		t.Errorf("Exec() Stdout = %q, want fixed", res.Stdout)
	}

	m.SetExecHandler(func(name string, command []string) (*ExecResult, error) {
		return &ExecResult{Stdout: name + ":" + command[0]}, nil
	})
	res, _ = m.Exec(ctx, h, []string{"echo"}, ExecOptions{})
	if res.Stdout != "box1:echo" {
		t.Errorf("Exec() Stdout = %q, want handler output", res.Stdout)
	}
}

func TestMockRuntime_SetError(t *testing.T) {
	ctx := context.Background()
	m := NewMockRuntime()
	boom := errors.New("daemon unavailable")

	m.SetError("Run", boom)
	if _, err := m.Run(ctx, RunOptions{Name: "box1"}); err != boom {
		t.Errorf("Run() error = %v, want injected", err)
	}
	if m.HasContainer("box1") {
		t.Error("failed Run should not create a container")
	}

	m.SetError("Run", nil)
	if _, err := m.Run(ctx, RunOptions{Name: "box1"}); err != nil {
		t.Errorf("Run() after clearing error: %v", err)
	}
}

func TestMockRuntime_List(t *testing.T) {
	m := NewMockRuntime()
	m.AddContainer("b", StatusRunning)
	m.AddContainer("a", StatusStopped)

	handles, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(handles) != 2 || handles[0].Name != "a" || handles[1].Name != "b" {
		t.Errorf("List() = %+v", handles)
	}
}
