// Package health serves the liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
)

type ReadinessReporter interface {
	// Readiness reports whether a catalog snapshot is loaded and its size.
	Readiness() (ready bool, stores int)
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}` + "\n"))
	}
}

func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status string `json:"status"`
			Stores int    `json:"stores"`
		}
		ready, n := rr.Readiness()
		out := resp{Status: "not_ready", Stores: n}
		if ready {
			out.Status = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
