package api

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

// HeaderCaller carries the acting user id.
const HeaderCaller = "X-Forage-Caller"

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 30 * time.Second

// EventReader reads the audit trail of a resource.
type EventReader interface {
	Events(resource string) ([]audit.Event, error)
}

// Server exposes a Controller over HTTP.
type Server struct {
	ctl    *lifecycle.Controller
	events EventReader
	router chi.Router
}

// New creates a Server. events may be nil, which disables the events route.
func New(ctl *lifecycle.Controller, events EventReader) *Server {
	s := &Server{ctl: ctl, events: events}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	r.Group(func(r chi.Router) {
		r.Use(requireCaller)

		r.Route("/v1/resources", func(v1 chi.Router) {
			v1.Post("/", s.deploy)
			v1.Get("/", s.list)
			v1.Get("/{name}", recordHandler(ctl.Get))
			v1.Delete("/{name}", recordHandler(ctl.Delete))
			v1.Post("/{name}/start", recordHandler(ctl.Start))
			v1.Post("/{name}/stop", recordHandler(ctl.Stop))
			v1.Post("/{name}/restart", recordHandler(ctl.Restart))
			v1.Post("/{name}/credential", recordHandler(ctl.RegenerateCredential))
			v1.Get("/{name}/health", s.health)
			v1.Get("/{name}/events", s.listEvents)
		})
		r.Post("/v1/gc", s.gc)
	})

	s.router = r
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// Serve listens on addr until ctx is cancelled, then shuts down. Requests
// still running after ShutdownTimeout have their contexts cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelRequests := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRequests()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if stderrors.Is(err, context.DeadlineExceeded) {
		logging.Warn("in-flight requests did not finish; cancelling them")
		cancelRequests()
		err = srv.Close()
	}
	if serveErr := <-errCh; serveErr != nil && !stderrors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}
