package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/provider"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ReadinessCheck reports whether a dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// NewAdminRouter serves liveness and readiness checks on a separate listener. When
// snapshots is non-nil, POST /cache/invalidate drops cached provider snapshots: the
// scope given in the JSON body, or all of them for an empty body.
func NewAdminRouter(checks map[string]ReadinessCheck, snapshots provider.Invalidator) *mux.Router {
	r := mux.NewRouter()

	if snapshots != nil {
		r.HandleFunc("/cache/invalidate", func(w http.ResponseWriter, req *http.Request) {
			var scope *provider.Scope
			var body provider.Scope
			if err := json.NewDecoder(req.Body).Decode(&body); err == nil {
				scope = &body
			} else if !errors.Is(err, io.EOF) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scope"})
				return
			}

			if err := snapshots.Invalidate(req.Context(), scope); err != nil {
				log.Error().Err(err).Msg("snapshot invalidation failed")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "invalidation failed"})
				return
			}
			target := "all"
			if scope != nil {
				target = "scope"
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "target": target})
		}).Methods(http.MethodPost)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("readiness check failed")
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		body := map[string]interface{}{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		writeJSON(w, status, body)
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write admin response")
	}
}
