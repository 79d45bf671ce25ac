package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// legacyRecord is the flat per-name shape written by earlier releases:
//
//	{"box1": {"user_id": 42, "state": "running", "ram_mb": 1024, ...}}
type legacyRecord struct {
	UserID    json.RawMessage `json:"user_id"`
	State     string          `json:"state"`
	RAMMB     int             `json:"ram_mb"`
	CPUCores  int             `json:"cpu_cores"`
	DiskGB    int             `json:"disk_gb"`
	TmateLink string          `json:"tmate_link"`
}

// isEnvelope reports whether the top-level object is a versioned document.
// Only a numeric "version" counts: a legacy store may hold resources named
// "version" or "sessions", whose values are objects.
func isEnvelope(top map[string]json.RawMessage) bool {
	raw := bytes.TrimSpace(top["version"])
	if len(raw) == 0 {
		return false
	}
	return raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')
}

// migrateLegacy converts the flat mapping into current records.
func migrateLegacy(top map[string]json.RawMessage) (map[string]*Record, error) {
	out := make(map[string]*Record, len(top))
	for name, raw := range top {
		var lr legacyRecord
		if err := json.Unmarshal(raw, &lr); err != nil {
			return nil, fmt.Errorf("legacy record %q: %w", name, err)
		}
		state := State(strings.ToLower(lr.State))
		if !state.Valid() {
			state = StateStopped
		}
		out[name] = &Record{
			Name:       name,
			OwnerID:    legacyOwner(lr.UserID),
			State:      state,
			Limits:     Limits{RAMMB: lr.RAMMB, CPUCores: lr.CPUCores, DiskGB: lr.DiskGB},
			Credential: lr.TmateLink,
		}
	}
	return out, nil
}

// legacyOwner accepts both numeric and string user ids.
func legacyOwner(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
