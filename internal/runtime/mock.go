package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// Containers tracks the state of mock containers by resource name
	Containers map[string]*Handle

	// ExecResults maps resource names to predefined exec results
	ExecResults map[string]*ExecResult

	// ExecHandler, if set, answers every Exec call
	ExecHandler func(name string, command []string) (*ExecResult, error)

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	nextID int
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Containers:  make(map[string]*Handle),
		ExecResults: make(map[string]*ExecResult),
		Errors:      make(map[string]error),
		CallLog:     make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Errors, operation)
		return
	}
	m.Errors[operation] = err
}

// SetExecResult sets the result for exec operations on a container
func (m *MockRuntime) SetExecResult(name string, result *ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecResults[name] = result
}

// SetExecHandler installs a function answering every Exec call
func (m *MockRuntime) SetExecHandler(fn func(name string, command []string) (*ExecResult, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecHandler = fn
}

// AddContainer adds a container to the mock
func (m *MockRuntime) AddContainer(name string, status ContainerStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Containers[name] = &Handle{
		Name:      name,
		Container: "vps-" + name,
		ID:        fmt.Sprintf("mock-%d", m.nextID),
		Status:    status,
	}
}

// HasContainer reports whether a container exists for name
func (m *MockRuntime) HasContainer(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Containers[name]
	return ok
}

// ContainerStatus returns the status of the container for name
func (m *MockRuntime) ContainerStatus(name string) ContainerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.Containers[name]; ok {
		return c.Status
	}
	return StatusNotFound
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// CountCalls returns how many times method was called
func (m *MockRuntime) CountCalls(method string) int {
	return len(m.GetCallsFor(method))
}

// Reset clears all state
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers = make(map[string]*Handle)
	m.ExecResults = make(map[string]*ExecResult)
	m.ExecHandler = nil
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	return "mock"
}

// Run creates and starts a container
func (m *MockRuntime) Run(ctx context.Context, opts RunOptions) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Run", opts)

	if err, ok := m.Errors["Run"]; ok {
		return nil, err
	}
	if _, exists := m.Containers[opts.Name]; exists {
		return nil, fmt.Errorf("container name vps-%s is already in use", opts.Name)
	}

	m.nextID++
	h := &Handle{
		Name:      opts.Name,
		Container: "vps-" + opts.Name,
		ID:        fmt.Sprintf("mock-%d", m.nextID),
		Status:    StatusRunning,
	}
	m.Containers[opts.Name] = h
	c := *h
	return &c, nil
}

// Get looks up a container
func (m *MockRuntime) Get(ctx context.Context, name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Get", name)

	if err, ok := m.Errors["Get"]; ok {
		return nil, err
	}

	if container, ok := m.Containers[name]; ok {
		c := *container
		return &c, nil
	}

	return nil, fmt.Errorf("vps-%s: %w", name, ErrNotFound)
}

// Exec executes a command inside a container
func (m *MockRuntime) Exec(ctx context.Context, h *Handle, command []string, opts ExecOptions) (*ExecResult, error) {
	m.mu.Lock()
	m.record("Exec", h.Name, command, opts)

	if err, ok := m.Errors["Exec"]; ok {
		m.mu.Unlock()
		return nil, err
	}
	if _, ok := m.Containers[h.Name]; !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("exec in vps-%s: %w", h.Name, ErrNotFound)
	}
	handler := m.ExecHandler
	result, hasResult := m.ExecResults[h.Name]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if handler != nil {
		return handler(h.Name, command)
	}
	if hasResult {
		c := *result
		return &c, nil
	}

	return &ExecResult{ExitCode: 0, Stdout: "", Stderr: ""}, nil
}

func (m *MockRuntime) setStatus(method string, h *Handle, status ContainerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(method, h.Name)

	if err, ok := m.Errors[method]; ok {
		return err
	}

	if container, ok := m.Containers[h.Name]; ok {
		container.Status = status
		return nil
	}

	return fmt.Errorf("vps-%s: %w", h.Name, ErrNotFound)
}

// Start starts an existing container
func (m *MockRuntime) Start(ctx context.Context, h *Handle) error {
	return m.setStatus("Start", h, StatusRunning)
}

// Stop stops a running container
func (m *MockRuntime) Stop(ctx context.Context, h *Handle) error {
	return m.setStatus("Stop", h, StatusStopped)
}

// Restart restarts a container
func (m *MockRuntime) Restart(ctx context.Context, h *Handle) error {
	return m.setStatus("Restart", h, StatusRunning)
}

// Remove removes a container
func (m *MockRuntime) Remove(ctx context.Context, h *Handle, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Remove", h.Name, force)

	if err, ok := m.Errors["Remove"]; ok {
		return err
	}

	container, ok := m.Containers[h.Name]
	if !ok {
		return fmt.Errorf("vps-%s: %w", h.Name, ErrNotFound)
	}
	if container.Status == StatusRunning && !force {
		return fmt.Errorf("cannot remove running container vps-%s without force", h.Name)
	}

	delete(m.Containers, h.Name)
	return nil
}

// List returns all containers managed by this runtime, sorted by name
func (m *MockRuntime) List(ctx context.Context) ([]*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List")

	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}

	containers := make([]*Handle, 0, len(m.Containers))
	for _, container := range m.Containers {
		c := *container
		containers = append(containers, &c)
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })

	return containers, nil
}

// Ensure MockRuntime implements Runtime
var _ Runtime = (*MockRuntime)(nil)
