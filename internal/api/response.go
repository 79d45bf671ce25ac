package api

import (
	"encoding/json"
	"net/http"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var statusByCode = map[int]int{
	errors.ExitNameConflict:      http.StatusConflict,
	errors.ExitNotFound:          http.StatusNotFound,
	errors.ExitUnauthorized:      http.StatusForbidden,
	errors.ExitValidation:        http.StatusBadRequest,
	errors.ExitCredentialTimeout: http.StatusGatewayTimeout,
	errors.ExitRuntimeProvision:  http.StatusBadGateway,
	errors.ExitStoreCorrupt:      http.StatusInternalServerError,
	errors.ExitStoreWriteFailure: http.StatusInternalServerError,
	errors.ExitConfigError:       http.StatusInternalServerError,
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	if status, ok := statusByCode[errors.GetExitCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// writeError writes err with the given status, or the status derived from
// its kind when status is zero.
func writeError(w http.ResponseWriter, err error, status int) {
	if status == 0 {
		status = StatusFor(err)
	}
	if status >= http.StatusInternalServerError {
		logging.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]errorBody{
		"error": {Kind: errors.KindName(errors.GetExitCode(err)), Message: err.Error()},
	})
}
