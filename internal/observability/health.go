package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck is a function that checks if a subsystem is ready.
// It returns nil if the check passes, or an error describing the failure.
type ReadyCheck func(ctx context.Context) error

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealthJSON(rw, http.StatusOK, healthStatusOK)
	})
}

// ReadyHandler returns an [http.Handler] for readiness checks at /readyz.
// It runs all provided checks; if any fail, it returns HTTP 503 with
// {"status":"unavailable"}. If no checks are provided or all pass, it
// returns HTTP 200 with {"status":"ok"}.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				writeHealthJSON(rw, http.StatusServiceUnavailable, healthStatusUnavailable)

				return
			}
		}

		writeHealthJSON(rw, http.StatusOK, healthStatusOK)
	})
}

func writeHealthJSON(rw http.ResponseWriter, code int, status string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	data, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return
	}

	if _, err := rw.Write(data); err != nil {
		return
	}
}
