package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tourneyengine/server/store"
)

// Router builds the admin/health HTTP surface: liveness, readiness against
// the telemetry database, and a summary of a model's recorded standing. It
// does not serve a spectator UI; that surface is out of scope here.
func Router(db *store.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Get("/api/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Get("/api/models/{modelID}", func(w http.ResponseWriter, r *http.Request) {
		modelID := chi.URLParam(r, "modelID")
		row := db.QueryRow(r.Context(), `
			SELECT total_matches, wins, losses, draws, total_violations, last_played
			  FROM models WHERE model_id = $1`, modelID)

		var totalMatches, wins, losses, draws, violations int64
		var lastPlayed *time.Time
		if err := row.Scan(&totalMatches, &wins, &losses, &draws, &violations, &lastPlayed); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "model not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"model_id":         modelID,
			"total_matches":    totalMatches,
			"wins":             wins,
			"losses":           losses,
			"draws":            draws,
			"total_violations": violations,
			"last_played":      lastPlayed,
		})
	})

	r.Get("/api/matches/{matchID}", func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")
		var doc []byte
		err := db.QueryRow(r.Context(), `SELECT doc FROM matches WHERE match_id = $1`, matchID).Scan(&doc)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "match not found"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
