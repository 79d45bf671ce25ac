// Package health reports whether a sandbox is fully operational.
//
// A sandbox is healthy when its container is running and its tmate
// session is alive. Status summarises a CheckResult:
//
//	StatusHealthy   - container running, session alive
//	StatusNoSession - container running but no tmate session
//	StatusStopped   - container present but not running
//	StatusMissing   - the runtime has no container for the name
//
// Typical use:
//
//	result, err := health.Check(ctx, rt, broker, rec)
//	status := result.Status()
package health
