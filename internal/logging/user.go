package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// User-facing output functions with status prefixes.
// These write to stdout/stderr directly for CLI output,
// separate from the structured control-plane logging.

var (
	userMu  sync.Mutex
	userOut io.Writer = os.Stdout
	userErr io.Writer = os.Stderr
)

// SetUserOutput redirects user-facing output. Nil writers restore the
// process stdout/stderr.
func SetUserOutput(out, errOut io.Writer) {
	userMu.Lock()
	defer userMu.Unlock()
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	userOut, userErr = out, errOut
}

func userPrint(toErr bool, prefix, format string, args ...interface{}) {
	userMu.Lock()
	defer userMu.Unlock()
	w := userOut
	if toErr {
		w = userErr
	}
	fmt.Fprintf(w, prefix+format+"\n", args...)
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...interface{}) {
	userPrint(false, "ℹ ", format, args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...interface{}) {
	userPrint(false, "✓ ", format, args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	userPrint(true, "⚠ ", format, args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...interface{}) {
	userPrint(true, "✗ ", format, args...)
}
