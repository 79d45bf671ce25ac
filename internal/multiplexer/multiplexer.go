// Package multiplexer builds the commands that drive the shell multiplexer
// running inside each sandbox and interprets their output.
package multiplexer

// Type identifies a terminal multiplexer backend.
type Type string

const (
	TypeTmate Type = "tmate"
)

// Status classifies one attempt to read a connection string.
type Status int

const (
	// StatusPending means nothing usable was printed yet.
	StatusPending Status = iota
	// StatusReady means a well-formed connection string was printed.
	StatusReady
	// StatusFailed means the multiplexer reported an unrecoverable error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Multiplexer is the interface that every multiplexer backend implements.
// Every *Args method returns an argv to run inside the sandbox.
type Multiplexer interface {
	// Type returns the multiplexer type identifier.
	Type() Type

	// Socket returns the server socket every *Args method targets.
	Socket() string

	// At returns a copy of the backend targeting socket. An empty socket
	// keeps the current one.
	At(socket string) Multiplexer

	// NextSocket returns the socket for the session replacing the one
	// served on current.
	NextSocket(current string) string

	// InstallArgs installs the multiplexer if it is missing. Running it on
	// a sandbox that already has the multiplexer is a no-op.
	InstallArgs() []string

	// StartArgs starts a detached session that publishes a connection string.
	StartArgs() []string

	// ConnectionArgs prints the current connection string.
	ConnectionArgs() []string

	// KillArgs stops the multiplexer server.
	KillArgs() []string

	// CheckSessionArgs exits zero if a session is running.
	CheckSessionArgs() []string

	// Classify interprets the output of ConnectionArgs. The returned string
	// is the connection string when the status is StatusReady.
	Classify(exitCode int, stdout, stderr string) (Status, string)
}
