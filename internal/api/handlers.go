package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// maxBodyBytes bounds deploy request bodies.
const maxBodyBytes = 64 << 10

type deployBody struct {
	Name     string `json:"name"`
	RAMMB    int    `json:"ramMb"`
	CPUCores int    `json:"cpuCores"`
	DiskGB   int    `json:"diskGb"`
	Owner    string `json:"owner"`
	Image    string `json:"image"`
}

type listResponse struct {
	Resources []*session.Record `json:"resources"`
}

type healthResponse struct {
	Name    string        `json:"name"`
	Status  health.Status `json:"status"`
	Running bool          `json:"running"`
	Session bool          `json:"session"`
	Uptime  string        `json:"uptime,omitempty"`
}

type eventsResponse struct {
	Events []audit.Event `json:"events"`
}

func (s *Server) deploy(w http.ResponseWriter, r *http.Request) {
	var body deployBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, errors.ValidationError("invalid request body: "+err.Error()).WithOp("deploy", ""), 0)
		return
	}

	rec, err := s.ctl.Deploy(r.Context(), callerFrom(r.Context()), lifecycle.DeployRequest{
		Name:   body.Name,
		Limits: session.Limits{RAMMB: body.RAMMB, CPUCores: body.CPUCores, DiskGB: body.DiskGB},
		Owner:  body.Owner,
		Image:  body.Image,
	})
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	records, err := s.ctl.List(r.Context(), callerFrom(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	if records == nil {
		records = []*session.Record{}
	}
	writeJSON(w, http.StatusOK, listResponse{Resources: records})
}

// recordOp is a controller operation on one named resource.
type recordOp func(ctx context.Context, caller, name string) (*session.Record, error)

func recordHandler(op recordOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := op(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, err, 0)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := s.ctl.Get(r.Context(), callerFrom(r.Context()), name)
	if err != nil {
		writeError(w, err, 0)
		return
	}

	result, err := health.Check(r.Context(), s.ctl.Provisioner().Runtime(), s.ctl.Credentials(), rec)
	if err != nil {
		writeError(w, errors.RuntimeProvision("health", name, err), 0)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Name:    name,
		Status:  result.Status(),
		Running: result.ContainerRunning,
		Session: result.SessionActive,
		Uptime:  result.Uptime,
	})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, errors.NotFound("events", ""), http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	if _, err := s.ctl.Get(r.Context(), callerFrom(r.Context()), name); err != nil {
		writeError(w, err, 0)
		return
	}

	events, err := s.events.Events(name)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func (s *Server) gc(w http.ResponseWriter, r *http.Request) {
	apply := false
	if v := r.URL.Query().Get("apply"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, errors.ValidationError("apply must be a boolean").WithOp("gc", ""), 0)
			return
		}
		apply = parsed
	}

	report, err := s.ctl.Reconcile(r.Context(), callerFrom(r.Context()), apply)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
