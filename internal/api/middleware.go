package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

type contextKey string

const callerContextKey contextKey = "caller"

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-Id"

// callerFrom returns the caller id stored by requireCaller.
func callerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerContextKey).(string)
	return caller
}

func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := strings.TrimSpace(r.Header.Get(HeaderCaller))
		if caller == "" {
			writeError(w, errors.Unauthorized("", "").WithOp("authenticate", ""), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerContextKey, caller)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logging.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"caller", r.Header.Get(HeaderCaller),
			"request_id", requestID)
	})
}
