package session

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a resource.
type State string

const (
	StateProvisioning State = "provisioning"
	StateRunning      State = "running"
	StateStopped      State = "stopped"

	// StateDeleted is terminal and never persisted; it only appears on the
	// record returned by a successful delete.
	StateDeleted State = "deleted"
)

// Valid reports whether s may appear in the persisted store.
func (s State) Valid() bool {
	switch s {
	case StateProvisioning, StateRunning, StateStopped:
		return true
	}
	return false
}

// Limits are the resource limits declared for a sandbox.
type Limits struct {
	RAMMB    int `json:"ramMb" toml:"ram_mb"`
	CPUCores int `json:"cpuCores" toml:"cpu_cores"`
	DiskGB   int `json:"diskGb" toml:"disk_gb"`
}

// Minimum accepted limits.
const (
	MinRAMMB    = 64
	MinCPUCores = 1
	MinDiskGB   = 1
)

// Validate checks l against the minimums and, for every non-zero field of
// max, against that maximum.
func (l Limits) Validate(max Limits) error {
	if l.RAMMB < MinRAMMB {
		return fmt.Errorf("ram must be at least %d MB (got %d)", MinRAMMB, l.RAMMB)
	}
	if l.CPUCores < MinCPUCores {
		return fmt.Errorf("cpu must be at least %d core (got %d)", MinCPUCores, l.CPUCores)
	}
	if l.DiskGB < MinDiskGB {
		return fmt.Errorf("disk must be at least %d GB (got %d)", MinDiskGB, l.DiskGB)
	}
	if max.RAMMB > 0 && l.RAMMB > max.RAMMB {
		return fmt.Errorf("ram exceeds maximum of %d MB (got %d)", max.RAMMB, l.RAMMB)
	}
	if max.CPUCores > 0 && l.CPUCores > max.CPUCores {
		return fmt.Errorf("cpu exceeds maximum of %d cores (got %d)", max.CPUCores, l.CPUCores)
	}
	if max.DiskGB > 0 && l.DiskGB > max.DiskGB {
		return fmt.Errorf("disk exceeds maximum of %d GB (got %d)", max.DiskGB, l.DiskGB)
	}
	return nil
}

// String formats limits the way the list output shows them.
func (l Limits) String() string {
	return fmt.Sprintf("%dMB RAM, %d CPU, %dGB Disk", l.RAMMB, l.CPUCores, l.DiskGB)
}

// Record is the persisted session of one resource.
type Record struct {
	Name       string    `json:"name"`
	OwnerID    string    `json:"ownerId"`
	State      State     `json:"state"`
	Limits     Limits    `json:"limits"`
	Image      string    `json:"image,omitempty"`
	Credential string    `json:"credential,omitempty"`
	Socket     string    `json:"socket,omitempty"` // multiplexer server serving Credential
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
}

// Clone returns a copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Validate checks the record invariants that can be verified in isolation.
func (r *Record) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.OwnerID == "" {
		return fmt.Errorf("ownerId is required")
	}
	if !r.State.Valid() {
		return fmt.Errorf("invalid state %q", r.State)
	}
	return nil
}
