package health

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// Status represents the health status of a sandbox
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusNoSession Status = "no-session"
	StatusStopped   Status = "stopped"
	StatusMissing   Status = "missing"
)

// SessionProbe reports whether the multiplexer session on socket is alive.
type SessionProbe interface {
	Alive(ctx context.Context, h *runtime.Handle, socket string) bool
}

// CheckResult contains the results of health checks
type CheckResult struct {
	ContainerFound   bool
	ContainerRunning bool
	SessionActive    bool
	Uptime           string
}

// Status summarises the result.
func (r *CheckResult) Status() Status {
	switch {
	case !r.ContainerFound:
		return StatusMissing
	case !r.ContainerRunning:
		return StatusStopped
	case !r.SessionActive:
		return StatusNoSession
	default:
		return StatusHealthy
	}
}

// Check performs all health checks for the sandbox of rec. The probe is
// optional; without it SessionActive stays false.
func Check(ctx context.Context, rt runtime.Runtime, probe SessionProbe, rec *session.Record) (*CheckResult, error) {
	result := &CheckResult{}

	h, err := rt.Get(ctx, rec.Name)
	if err != nil {
		if stderrors.Is(err, runtime.ErrNotFound) {
			return result, nil
		}
		return nil, err
	}
	result.ContainerFound = true
	result.ContainerRunning = h.Status == runtime.StatusRunning
	if !result.ContainerRunning {
		return result, nil
	}

	result.Uptime = Uptime(h.StartedAt, time.Now())
	if probe != nil {
		result.SessionActive = probe.Alive(ctx, h, rec.Socket)
	}
	return result, nil
}

// Uptime returns the time since startedAt in human-readable format.
func Uptime(startedAt string, now time.Time) string {
	if startedAt == "" || startedAt == "n/a" {
		return "unknown"
	}

	var t time.Time
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999 -0700 MST",
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, startedAt); err == nil {
			t = parsed
			break
		}
	}

	if t.IsZero() {
		return startedAt // Return raw value if can't parse
	}

	return formatDuration(now.Sub(t))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
