package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/multiplexer"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
)

// FakeTmate simulates tmate inside mock sandboxes. Servers are keyed by
// sandbox and socket; each started session publishes a distinct
// connection string.
type FakeTmate struct {
	mu       sync.Mutex
	servers  map[string]map[string]int // sandbox -> socket -> session serial
	pending  map[string]int            // sandbox+socket -> empty reads left
	serial   int
	failing  bool
	delay    int
	Commands []string
}

// NewFakeTmate returns a FakeTmate with no running sessions.
func NewFakeTmate() *FakeTmate {
	return &FakeTmate{
		servers: make(map[string]map[string]int),
		pending: make(map[string]int),
	}
}

// SetFailing makes every connection read report a dead server.
func (f *FakeTmate) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// SetPendingReads sets how many empty reads a new session returns before
// its connection string.
func (f *FakeTmate) SetPendingReads(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = n
}

// Connection returns the connection string of the newest session still
// running in a sandbox, or "" when none runs there.
func (f *FakeTmate) Connection(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	newest := 0
	for _, serial := range f.servers[name] {
		newest = max(newest, serial)
	}
	if newest == 0 {
		return ""
	}
	return connectionString(name, newest)
}

// ConnectionOn returns the connection string served on socket, or "".
func (f *FakeTmate) ConnectionOn(name, socket string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	serial, ok := f.servers[name][socket]
	if !ok {
		return ""
	}
	return connectionString(name, serial)
}

// Sessions returns how many servers run in a sandbox.
func (f *FakeTmate) Sessions(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.servers[name])
}

// Kill stops the server on socket, or the default one if socket is empty.
func (f *FakeTmate) Kill(name, socket string) {
	_, _ = f.Handle(name, multiplexer.NewTmate(socket).KillArgs())
}

func connectionString(name string, serial int) string {
	return fmt.Sprintf("ssh %s%d@nyc1.tmate.io", strings.ReplaceAll(name, "_", "-"), serial)
}

// socketOf returns the value of the -S flag in a tmate argv.
func socketOf(command []string) string {
	for i := 0; i+1 < len(command); i++ {
		if command[i] == "-S" {
			return command[i+1]
		}
	}
	return multiplexer.DefaultSocket
}

// Handle answers an Exec call; install it with MockRuntime.SetExecHandler.
func (f *FakeTmate) Handle(name string, command []string) (*runtime.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	joined := strings.Join(command, " ")
	f.Commands = append(f.Commands, name+": "+joined)

	if len(command) > 0 && command[0] == "sh" {
		return &runtime.ExecResult{}, nil
	}

	socket := socketOf(command)
	serial, running := f.servers[name][socket]
	noServer := &runtime.ExecResult{ExitCode: 1, Stderr: "no server running on " + socket}

	switch {
	case strings.Contains(joined, "new-session"):
		if f.servers[name] == nil {
			f.servers[name] = make(map[string]int)
		}
		f.serial++
		f.servers[name][socket] = f.serial
		f.pending[name+socket] = f.delay
		return &runtime.ExecResult{}, nil
	case strings.Contains(joined, "display"):
		if !running || f.failing {
			return noServer, nil
		}
		if f.pending[name+socket] > 0 {
			f.pending[name+socket]--
			return &runtime.ExecResult{}, nil
		}
		return &runtime.ExecResult{Stdout: connectionString(name, serial) + "\n"}, nil
	case strings.Contains(joined, "kill-server"):
		if !running {
			return noServer, nil
		}
		delete(f.servers[name], socket)
		return &runtime.ExecResult{}, nil
	case strings.Contains(joined, "has-session"):
		if running {
			return &runtime.ExecResult{}, nil
		}
		return &runtime.ExecResult{ExitCode: 1}, nil
	}
	return &runtime.ExecResult{ExitCode: 127, Stderr: command[0] + ": command not found"}, nil
}
