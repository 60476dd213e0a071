// Package health exposes liveness and readiness handlers.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadinessReporter is implemented by background workers whose state gates
// traffic, such as the ingest consumer.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Readiness reports ready when every reporter is ready. A nil or empty set of
// reporters is always ready.
func Readiness(reporters ...ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type resp struct {
			Status     string  `json:"status"`
			Partitions []int32 `json:"partitions,omitempty"`
		}
		ready := true
		var parts []int32
		for _, rr := range reporters {
			if rr == nil {
				continue
			}
			ok, p := rr.Readiness()
			if !ok {
				ready = false
				break
			}
			parts = append(parts, p...)
		}
		out := resp{Status: "not_ready"}
		if ready {
			out.Status = "ready"
			out.Partitions = parts
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
