// Package ssh turns a resource credential into an ssh invocation.
// Credentials are the connection strings tmate prints, such as
// "ssh -p2222 AbC123@nyc1.tmate.io".
package ssh

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"
)

// DefaultConnectTimeout is the ssh ConnectTimeout in seconds.
const DefaultConnectTimeout = 10

// Target is the destination parsed from a connection string.
type Target struct {
	User string
	Host string
	Port int // 0 means the ssh default
}

// Parse parses a connection string of the form
// "ssh [-p port] user@host".
func Parse(credential string) (*Target, error) {
	words, err := shellquote.Split(strings.TrimSpace(credential))
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	if len(words) < 2 || words[0] != "ssh" {
		return nil, fmt.Errorf("connection string is not an ssh command: %q", credential)
	}

	t := &Target{}
	for i := 1; i < len(words); i++ {
		w := words[i]
		switch {
		case w == "-p":
			if i+1 >= len(words) {
				return nil, fmt.Errorf("missing port in %q", credential)
			}
			i++
			if t.Port, err = strconv.Atoi(words[i]); err != nil {
				return nil, fmt.Errorf("invalid port in %q", credential)
			}
		case strings.HasPrefix(w, "-p"):
			if t.Port, err = strconv.Atoi(strings.TrimPrefix(w, "-p")); err != nil {
				return nil, fmt.Errorf("invalid port in %q", credential)
			}
		case strings.HasPrefix(w, "-"):
			return nil, fmt.Errorf("unsupported ssh option %q", w)
		default:
			user, host, ok := strings.Cut(w, "@")
			if !ok || user == "" || host == "" || t.Host != "" {
				return nil, fmt.Errorf("invalid destination %q", w)
			}
			t.User, t.Host = user, host
		}
	}

	if t.Host == "" {
		return nil, fmt.Errorf("no destination in %q", credential)
	}
	if t.Port < 0 || t.Port > 65535 {
		return nil, fmt.Errorf("port out of range in %q", credential)
	}
	return t, nil
}

// Destination returns the user@host string.
func (t *Target) Destination() string {
	return t.User + "@" + t.Host
}

// Options configures the ssh client.
type Options struct {
	ConnectTimeout     int
	StrictHostKeyCheck bool
	KnownHostsFile     string
	RequestTTY         bool
}

// DefaultOptions returns options for an interactive session.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:     DefaultConnectTimeout,
		StrictHostKeyCheck: true,
		RequestTTY:         true,
	}
}

// Args returns the ssh arguments (without "ssh") for connecting to t.
func (t *Target) Args(o Options) []string {
	var args []string
	if t.Port > 0 {
		args = append(args, "-p", strconv.Itoa(t.Port))
	}
	if !o.StrictHostKeyCheck {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}
	if o.KnownHostsFile != "" {
		args = append(args, "-o", "UserKnownHostsFile="+o.KnownHostsFile)
	}
	if o.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", o.ConnectTimeout))
	}
	if o.RequestTTY {
		args = append(args, "-t")
	}
	return append(args, t.Destination())
}

// ReplaceWithSession replaces the current process with an ssh session.
// This uses syscall.Exec and does not return on success.
func ReplaceWithSession(t *Target, o Options) error {
	sshPath, err := exec.LookPath("ssh")
	if err != nil {
		return fmt.Errorf("ssh not found: %w", err)
	}

	argv := append([]string{"ssh"}, t.Args(o)...)
	return syscall.Exec(sshPath, argv, os.Environ())
}
