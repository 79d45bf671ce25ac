// Package credential issues ephemeral remote-shell connection strings by
// driving the multiplexer inside a sandbox.
package credential

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/multiplexer"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
)

// Options bound the issuance protocol.
type Options struct {
	// Attempts is the maximum number of connection string reads.
	Attempts int
	// AttemptTimeout bounds each command run inside the sandbox.
	AttemptTimeout time.Duration
	// PollInterval is the pause between reads.
	PollInterval time.Duration
	// InstallTimeout bounds the package installation step.
	InstallTimeout time.Duration
}

// DefaultOptions returns the built-in bounds.
func DefaultOptions() Options {
	return Options{
		Attempts:       15,
		AttemptTimeout: 10 * time.Second,
		PollInterval:   2 * time.Second,
		InstallTimeout: 5 * time.Minute,
	}
}

// Broker issues and regenerates credentials. It holds no per-sandbox state
// and is safe for concurrent use.
type Broker struct {
	rt    runtime.Runtime
	mux   multiplexer.Multiplexer
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBroker creates a broker. Zero fields of opts take their defaults.
func NewBroker(rt runtime.Runtime, mux multiplexer.Multiplexer, opts Options) *Broker {
	def := DefaultOptions()
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = def.AttemptTimeout
	}
	if opts.PollInterval < 0 {
		opts.PollInterval = 0
	}
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = def.InstallTimeout
	}
	return &Broker{rt: rt, mux: mux, opts: opts, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// run executes args inside the sandbox under its own timeout.
func (b *Broker) run(ctx context.Context, h *runtime.Handle, timeout time.Duration, args []string) (*runtime.ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Debug("exec in sandbox", "name", h.Name, "command", shellquote.Join(args...))
	res, err := b.rt.Exec(ctx, h, args, runtime.ExecOptions{User: "root"})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return res, nil
}

// Session is a running multiplexer server and the connection string it
// published.
type Session struct {
	Socket     string
	Connection string
}

// Issue runs the full protocol on the default socket: install the
// multiplexer if missing, start a detached session, then poll for a
// connection string. It returns only a validated connection string;
// anything else is CredentialIssueTimeout.
func (b *Broker) Issue(ctx context.Context, h *runtime.Handle) (*Session, error) {
	return b.issue(ctx, h, b.mux)
}

func (b *Broker) issue(ctx context.Context, h *runtime.Handle, mux multiplexer.Multiplexer) (*Session, error) {
	if err := b.install(ctx, h); err != nil {
		return nil, errors.CredentialIssueTimeout(h.Name, 0, err)
	}

	res, err := b.run(ctx, h, b.opts.AttemptTimeout, mux.StartArgs())
	if err != nil {
		return nil, errors.CredentialIssueTimeout(h.Name, 0, fmt.Errorf("start session: %w", err))
	}
	if res.ExitCode != 0 {
		return nil, errors.CredentialIssueTimeout(h.Name, 0,
			fmt.Errorf("start session: exit %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}

	conn, err := b.poll(ctx, h, mux)
	if err != nil {
		return nil, err
	}
	return &Session{Socket: mux.Socket(), Connection: conn}, nil
}

func (b *Broker) install(ctx context.Context, h *runtime.Handle) error {
	res, err := b.run(ctx, h, b.opts.InstallTimeout, b.mux.InstallArgs())
	if err != nil {
		return fmt.Errorf("install %s: %w", b.mux.Type(), err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("install %s: exit %d: %s", b.mux.Type(), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// poll reads the connection string until it is ready, a failure marker is
// seen, or the attempt budget is spent.
func (b *Broker) poll(ctx context.Context, h *runtime.Handle, mux multiplexer.Multiplexer) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= b.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := b.sleep(ctx, b.opts.PollInterval); err != nil {
				return "", errors.CredentialIssueTimeout(h.Name, attempt-1, err)
			}
		}

		res, err := b.run(ctx, h, b.opts.AttemptTimeout, mux.ConnectionArgs())
		if err != nil {
			if ctx.Err() != nil {
				return "", errors.CredentialIssueTimeout(h.Name, attempt, ctx.Err())
			}
			if errors.Is(err, runtime.ErrNotFound) {
				return "", errors.CredentialIssueTimeout(h.Name, attempt, err)
			}
			// A single slow read is not fatal.
			lastErr = err
			logging.Debug("credential attempt failed", "name", h.Name, "attempt", attempt, "error", err)
			continue
		}

		status, conn := mux.Classify(res.ExitCode, res.Stdout, res.Stderr)
		logging.Debug("credential attempt", "name", h.Name, "attempt", attempt, "status", status)
		switch status {
		case multiplexer.StatusReady:
			return conn, nil
		case multiplexer.StatusFailed:
			return "", errors.CredentialIssueTimeout(h.Name, attempt,
				fmt.Errorf("%s reported failure: exit %d: %s", mux.Type(), res.ExitCode, strings.TrimSpace(res.Stderr+" "+res.Stdout)))
		}
		lastErr = nil
	}
	return "", errors.CredentialIssueTimeout(h.Name, b.opts.Attempts, lastErr)
}

// Regenerate starts a replacement session next to the one served on
// current and stops the old server only once the new connection string
// has validated. On failure the replacement is stopped and the session on
// current keeps running.
func (b *Broker) Regenerate(ctx context.Context, h *runtime.Handle, current string) (*Session, error) {
	old := b.mux.At(current)
	next := b.mux.At(b.mux.NextSocket(old.Socket()))

	sess, err := b.issue(ctx, h, next)
	if err != nil {
		b.kill(context.WithoutCancel(ctx), h, next)
		return nil, err
	}
	b.kill(ctx, h, old)
	return sess, nil
}

// kill stops the server behind mux. Failures are logged only: usually
// there was no server left to stop.
func (b *Broker) kill(ctx context.Context, h *runtime.Handle, mux multiplexer.Multiplexer) {
	res, err := b.run(ctx, h, b.opts.AttemptTimeout, mux.KillArgs())
	switch {
	case err != nil:
		logging.Debug("kill-server failed", "name", h.Name, "socket", mux.Socket(), "error", err)
	case res.ExitCode != 0:
		logging.Debug("kill-server exited non-zero", "name", h.Name, "socket", mux.Socket(), "exit", res.ExitCode)
	}
}

// Alive reports whether the multiplexer session on socket is running in
// the sandbox. An empty socket means the default one.
func (b *Broker) Alive(ctx context.Context, h *runtime.Handle, socket string) bool {
	res, err := b.run(ctx, h, b.opts.AttemptTimeout, b.mux.At(socket).CheckSessionArgs())
	return err == nil && res.ExitCode == 0
}
