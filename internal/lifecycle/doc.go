// Package lifecycle is the orchestration core of forage-vps.
//
// A Controller composes the session store, the authorization gate, the
// sandbox provisioner and the credential broker into the public operation
// set. Every front end (CLI, HTTP API, interactive picker) is a thin caller
// of these operations:
//
//	Deploy                admin only; all-or-nothing
//	Start, Stop, Restart  owner or admin
//	Delete                owner or admin; forced runtime removal
//	RegenerateCredential  owner or admin; the only credential overwrite
//	List                  every record the caller may manage
//	Get                   authorized lookup reconciled against the runtime
//	Reconcile             admin only; stale records and orphaned containers
//
// State machine per name:
//
//	(none) -> provisioning -> running <-> stopped
//	restart: running | stopped -> running
//	delete:  any -> deleted (record removed)
//
// Mutating operations on the same name serialize behind a per-name lock held
// for the whole operation. Operations on different names run concurrently.
// Callers that may not manage a record get Unauthorized whether or not the
// record exists.
package lifecycle
