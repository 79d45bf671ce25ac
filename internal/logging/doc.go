// Package logging provides logging utilities for forage-vps.
//
// This package provides two categories of output:
//   - Structured logging: control-plane logs via slog
//   - User output: Formatted messages for CLI users
//
// # Structured Logging
//
// Logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("provisioning sandbox", "name", name, "ramMb", limits.RAMMB)
//	logging.Warn("credential attempt failed", "name", name, "attempt", n)
//
// Components that want a fixed set of attributes use With:
//
//	log := logging.With("component", "broker")
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Deploying %s...", name)
//	logging.UserSuccess("Deployed %s", name)
//	logging.UserWarning("Record %s was stale and has been removed", name)
//	logging.UserError("Deploy failed: %v", err)
//
// Output destinations default to stdout (info, success) and stderr (warning,
// error) and can be redirected with SetUserOutput.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
