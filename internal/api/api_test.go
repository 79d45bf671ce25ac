package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/lifecycle"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/testutil"
)

type errorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newHandler(env *testutil.TestEnv) http.Handler {
	return api.New(env.Controller, env.App.Audit).Router()
}

func do(t *testing.T, h http.Handler, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set(api.HeaderCaller, caller)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRecord(t *testing.T, rec *httptest.ResponseRecorder) *session.Record {
	t.Helper()
	var r session.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode record: %v (body %s)", err, rec.Body.String())
	}
	return &r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error: %v (body %s)", err, rec.Body.String())
	}
	return e
}

func deployBox(t *testing.T, h http.Handler, name, owner string) *session.Record {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"ramMb":512,"cpuCores":1,"diskGb":5,"owner":%q}`, name, owner)
	rec := do(t, h, http.MethodPost, "/v1/resources", testutil.AdminID, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("deploy %s: status %d, body %s", name, rec.Code, rec.Body.String())
	}
	return decodeRecord(t, rec)
}

func TestHealthz(t *testing.T) {
	env := testutil.NewTestEnv(t)
	rec := do(t, newHandler(env), http.MethodGet, "/healthz", "", "")

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(api.HeaderRequestID) == "" {
		t.Error("response should carry a request id")
	}
}

func TestMissingCaller(t *testing.T) {
	env := testutil.NewTestEnv(t)
	rec := do(t, newHandler(env), http.MethodGet, "/v1/resources", "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decodeError(t, rec).Error.Kind; got != "Unauthorized" {
		t.Errorf("kind = %q", got)
	}
}

func TestDeploy(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := newHandler(env)

	got := deployBox(t, h, "box1", "42")
	if got.Name != "box1" || got.OwnerID != "42" || got.State != session.StateRunning {
		t.Errorf("deploy = %+v", got)
	}
	if got.Credential == "" || got.Credential != env.Tmate.Connection("box1") {
		t.Errorf("credential = %q, want %q", got.Credential, env.Tmate.Connection("box1"))
	}
	if stored := env.Record("box1"); stored == nil || stored.Credential != got.Credential {
		t.Errorf("stored record = %+v", stored)
	}
}

func TestDeploy_Errors(t *testing.T) {
	tests := []struct {
		name       string
		caller     string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"non admin", "42", `{"name":"box2"}`, http.StatusForbidden, "Unauthorized"},
		{"malformed json", testutil.AdminID, `{"name":`, http.StatusBadRequest, "ValidationError"},
		{"unknown field", testutil.AdminID, `{"name":"box2","gpu":1}`, http.StatusBadRequest, "ValidationError"},
		{"invalid name", testutil.AdminID, `{"name":"Bad Name"}`, http.StatusBadRequest, "ValidationError"},
		{"over limits", testutil.AdminID, `{"name":"box2","ramMb":999999}`, http.StatusBadRequest, "ValidationError"},
		{"name conflict", testutil.AdminID, `{"name":"box1"}`, http.StatusConflict, "NameConflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnv(t)
			env.AddResource("box1", "42", session.StateRunning)

			rec := do(t, newHandler(env), http.MethodPost, "/v1/resources", tt.caller, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec).Error.Kind; got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
			if env.Record("box2") != nil {
				t.Error("failed deploy left a record")
			}
		})
	}
}

func TestDeploy_CredentialTimeout(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.Tmate.SetFailing(true)

	rec := do(t, newHandler(env), http.MethodPost, "/v1/resources", testutil.AdminID, `{"name":"box1"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504 (body %s)", rec.Code, rec.Body.String())
	}
	if env.Record("box1") != nil || env.Runtime.HasContainer("box1") {
		t.Error("failed deploy should leave nothing behind")
	}
}

func TestLifecycleRoutes(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := newHandler(env)
	deployed := deployBox(t, h, "box1", "42")

	steps := []struct {
		method string
		path   string
		want   session.State
	}{
		{http.MethodPost, "/v1/resources/box1/stop", session.StateStopped},
		{http.MethodGet, "/v1/resources/box1", session.StateStopped},
		{http.MethodPost, "/v1/resources/box1/start", session.StateRunning},
		{http.MethodPost, "/v1/resources/box1/restart", session.StateRunning},
	}
	for _, step := range steps {
		rec := do(t, h, step.method, step.path, "42", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: status %d, body %s", step.method, step.path, rec.Code, rec.Body.String())
		}
		if got := decodeRecord(t, rec); got.State != step.want {
			t.Errorf("%s %s: state = %q, want %q", step.method, step.path, got.State, step.want)
		}
	}

	rec := do(t, h, http.MethodPost, "/v1/resources/box1/credential", "42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate: status %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeRecord(t, rec); got.Credential == "" || got.Credential == deployed.Credential {
		t.Errorf("regenerated credential = %q, previous %q", got.Credential, deployed.Credential)
	}

	rec = do(t, h, http.MethodDelete, "/v1/resources/box1", "42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeRecord(t, rec); got.State != session.StateDeleted {
		t.Errorf("delete state = %q", got.State)
	}
	if env.Record("box1") != nil || env.Runtime.HasContainer("box1") {
		t.Error("delete should remove record and container")
	}
}

func TestNonOwnerForbidden(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddResource("box1", "42", session.StateRunning)
	h := newHandler(env)

	for _, name := range []string{"box1", "ghost"} {
		for _, route := range []struct{ method, suffix string }{
			{http.MethodGet, ""},
			{http.MethodDelete, ""},
			{http.MethodPost, "/start"},
			{http.MethodPost, "/stop"},
			{http.MethodPost, "/restart"},
			{http.MethodPost, "/credential"},
			{http.MethodGet, "/health"},
			{http.MethodGet, "/events"},
		} {
			path := "/v1/resources/" + name + route.suffix
			rec := do(t, h, route.method, path, "99", "")
			if rec.Code != http.StatusForbidden {
				t.Errorf("%s %s: status %d, want 403", route.method, path, rec.Code)
			}
		}
	}

	if env.Runtime.CountCalls("Stop")+env.Runtime.CountCalls("Remove")+env.Runtime.CountCalls("Exec") != 0 {
		t.Error("unauthorized requests reached the runtime")
	}
}

func TestAdminMissingResource(t *testing.T) {
	env := testutil.NewTestEnv(t)
	rec := do(t, newHandler(env), http.MethodGet, "/v1/resources/ghost", testutil.AdminID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec).Error.Kind; got != "NotFound" {
		t.Errorf("kind = %q", got)
	}
}

func TestList(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddResource("b", "42", session.StateRunning)
	env.AddResource("a", "42", session.StateStopped)
	env.AddResource("c", "7", session.StateRunning)
	h := newHandler(env)

	tests := []struct {
		caller string
		want   []string
	}{
		{"42", []string{"a", "b"}},
		{"7", []string{"c"}},
		{"99", []string{}},
		{testutil.AdminID, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.caller, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/v1/resources", tt.caller, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var body struct {
				Resources []*session.Record `json:"resources"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Resources == nil {
				t.Fatal("resources should be an array, not null")
			}
			got := make([]string, 0, len(body.Resources))
			for _, r := range body.Resources {
				got = append(got, r.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("list = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthAndEvents(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := newHandler(env)
	deployBox(t, h, "box1", "42")

	rec := do(t, h, http.MethodGet, "/v1/resources/box1/health", "42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d, body %s", rec.Code, rec.Body.String())
	}
	var hr struct {
		Status  string `json:"status"`
		Running bool   `json:"running"`
		Session bool   `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hr); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if hr.Status != "healthy" || !hr.Running || !hr.Session {
		t.Errorf("health = %+v", hr)
	}

	rec = do(t, h, http.MethodGet, "/v1/resources/box1/events", "42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status %d, body %s", rec.Code, rec.Body.String())
	}
	var er struct {
		Events []audit.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(er.Events) == 0 || er.Events[0].Type != audit.EventDeploy {
		t.Errorf("events = %+v", er.Events)
	}
}

func TestEvents_RedeployHidesPreviousHistory(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := newHandler(env)
	deployBox(t, h, "box1", "42")
	if rec := do(t, h, http.MethodPost, "/v1/resources/box1/stop", "42", ""); rec.Code != http.StatusOK {
		t.Fatalf("stop: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/v1/resources/box1", testutil.AdminID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	deployBox(t, h, "box1", "7")

	rec := do(t, h, http.MethodGet, "/v1/resources/box1/events", "7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status %d, body %s", rec.Code, rec.Body.String())
	}
	var er struct {
		Events []audit.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(er.Events) != 1 || er.Events[0].Type != audit.EventDeploy {
		t.Errorf("events = %+v, want only the new deploy", er.Events)
	}
}

func TestGC(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddResource("stale", "42", session.StateProvisioning)
	env.Runtime.AddContainer("orphan", runtime.StatusRunning)
	h := newHandler(env)

	if rec := do(t, h, http.MethodPost, "/v1/gc", "42", ""); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin gc: status %d, want 403", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/gc?apply=maybe", testutil.AdminID, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad apply: status %d, want 400", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/v1/gc", testutil.AdminID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gc: status %d, body %s", rec.Code, rec.Body.String())
	}
	var report lifecycle.ReconcileReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Applied || len(report.StaleRecords) != 1 || len(report.Orphans) != 1 {
		t.Errorf("report = %+v", report)
	}
	if env.Record("stale") == nil {
		t.Error("dry run should not remove records")
	}

	rec = do(t, h, http.MethodPost, "/v1/gc?apply=true", testutil.AdminID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gc apply: status %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Record("stale") != nil || env.Runtime.HasContainer("orphan") {
		t.Error("gc apply should repair both sides")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NameConflict("a"), http.StatusConflict},
		{errors.NotFound("get", "a"), http.StatusNotFound},
		{errors.Unauthorized("stop", "a"), http.StatusForbidden},
		{errors.ValidationError("bad"), http.StatusBadRequest},
		{errors.CredentialIssueTimeout("a", 3, nil), http.StatusGatewayTimeout},
		{errors.RuntimeProvision("create", "a", nil), http.StatusBadGateway},
		{errors.StoreCorrupt("/x", nil), http.StatusInternalServerError},
		{errors.StoreWriteFailure("deploy", "a", nil), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := api.StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestServeListener_Shutdown(t *testing.T) {
	env := testutil.NewTestEnv(t)
	srv := api.New(env.Controller, env.App.Audit)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if buf.String() != "ok" {
		t.Errorf("healthz body = %q", buf.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeListener() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
