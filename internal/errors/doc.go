// Package errors provides typed errors with exit codes for forage-vps.
//
// # Error Types
//
// ForageError is the base error type that wraps an error with an exit code
// and the operation context it happened in:
//
//	type ForageError struct {
//	    Code    int    // Exit code, one per error kind
//	    Op      string // Operation, e.g. "deploy"
//	    Name    string // Resource name
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Error Kinds
//
//	ExitNameConflict      = 2  // Resource name already used
//	ExitNotFound          = 3  // Record or runtime resource missing
//	ExitUnauthorized      = 4  // Caller may not act on the resource
//	ExitRuntimeProvision  = 5  // Container runtime failure
//	ExitCredentialTimeout = 6  // No valid connection string obtained
//	ExitStoreCorrupt      = 7  // Session store unreadable
//	ExitStoreWriteFailure = 8  // Session store write failed
//
// # Matching
//
// Each kind has a sentinel usable with errors.Is:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
