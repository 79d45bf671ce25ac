package multiplexer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// DefaultSocket is the socket of the first tmate server in a sandbox.
// Replacement servers use numbered siblings, see NextSocket.
const DefaultSocket = "/tmp/tmate.sock"

// connectionRegex matches the SSH connection strings tmate publishes,
// e.g. "ssh AbCd123@nyc1.tmate.io" or "ssh -p 2222 token@host.example".
var connectionRegex = regexp.MustCompile(`^ssh (-p [0-9]+ )?[A-Za-z0-9_-]+@[A-Za-z0-9.-]+$`)

// failureMarkers are output fragments that mean further polling is futile.
var failureMarkers = []string{
	"command not found",
	"no server running",
	"executable file not found",
}

// Tmate implements Multiplexer for tmate.
type Tmate struct {
	socket string
}

// NewTmate returns a tmate backend using socket, or DefaultSocket if empty.
func NewTmate(socket string) *Tmate {
	if socket == "" {
		socket = DefaultSocket
	}
	return &Tmate{socket: socket}
}

func (t *Tmate) Type() Type { return TypeTmate }

func (t *Tmate) Socket() string { return t.socket }

func (t *Tmate) At(socket string) Multiplexer {
	if socket == "" {
		return t
	}
	return &Tmate{socket: socket}
}

// NextSocket numbers server generations: /tmp/tmate.sock is followed by
// /tmp/tmate-1.sock, then /tmp/tmate-2.sock.
func (t *Tmate) NextSocket(current string) string {
	if current == "" {
		current = t.socket
	}
	base, gen := strings.TrimSuffix(current, ".sock"), 0
	if i := strings.LastIndex(base, "-"); i >= 0 {
		if n, err := strconv.Atoi(base[i+1:]); err == nil && n > 0 {
			base, gen = base[:i], n
		}
	}
	return fmt.Sprintf("%s-%d.sock", base, gen+1)
}

func (t *Tmate) tmate(args ...string) []string {
	return append([]string{"tmate", "-S", t.socket}, args...)
}

// InstallArgs installs tmate with whichever package manager the image has.
func (t *Tmate) InstallArgs() []string {
	pkgs := shellquote.Join(t.Packages()...)
	script := strings.Join([]string{
		"command -v tmate >/dev/null 2>&1 && exit 0",
		"if command -v apt-get >/dev/null 2>&1; then " +
			"export DEBIAN_FRONTEND=noninteractive; " +
			"apt-get update -qq && apt-get install -y -qq " + pkgs,
		"elif command -v apk >/dev/null 2>&1; then apk add --no-cache " + pkgs,
		"elif command -v dnf >/dev/null 2>&1; then dnf install -y " + pkgs,
		"else echo 'tmate: command not found and no supported package manager' >&2; exit 127",
		"fi",
	}, "\n")
	return []string{"sh", "-c", script}
}

// Packages returns the distribution packages providing tmate.
func (t *Tmate) Packages() []string { return []string{"tmate"} }

// StartArgs starts a detached tmate session.
func (t *Tmate) StartArgs() []string {
	return t.tmate("new-session", "-d")
}

func (t *Tmate) ConnectionArgs() []string {
	return t.tmate("display", "-p", "#{tmate_ssh}")
}

func (t *Tmate) KillArgs() []string {
	return t.tmate("kill-server")
}

func (t *Tmate) CheckSessionArgs() []string {
	return t.tmate("has-session")
}

// Classify interprets "tmate display -p '#{tmate_ssh}'" output. Empty or
// partial output, and the literal placeholder printed before the session
// has registered with the relay, are pending.
func (t *Tmate) Classify(exitCode int, stdout, stderr string) (Status, string) {
	if exitCode == 127 {
		return StatusFailed, ""
	}
	combined := strings.ToLower(stdout + "\n" + stderr)
	for _, marker := range failureMarkers {
		if strings.Contains(combined, marker) {
			return StatusFailed, ""
		}
	}

	if exitCode != 0 {
		return StatusPending, ""
	}
	out := strings.TrimSpace(stdout)
	if connectionRegex.MatchString(out) {
		return StatusReady, out
	}
	return StatusPending, ""
}

// ValidConnectionString reports whether s is a well-formed connection string.
func ValidConnectionString(s string) bool {
	return connectionRegex.MatchString(s)
}

var _ Multiplexer = (*Tmate)(nil)
