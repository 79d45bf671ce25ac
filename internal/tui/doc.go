// Package tui provides the interactive manage picker for forage-vps.
//
// The picker lists the resources a caller can manage, grouped by owner when
// more than one owner is shown, and runs lifecycle operations on the
// selected resource without leaving the list:
//
//	err := tui.RunPicker(ctx, controller, caller, entries)
//
// Keys: enter (show credential), s (start), x (stop), r (restart),
// g (regenerate credential), d (delete, confirmed with y), n (deploy a new
// resource by name), / (filter), q (quit).
//
// Operations run as bubbletea commands, so the list stays responsive while
// a sandbox is provisioned.
package tui
