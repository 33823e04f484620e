package http

import (
	"encoding/json"
	"net/http"

	"github.com/voxquiz/voxquiz/internal/audit"
)

// ListAuditHandler exposes a run's proctoring trail to reviewers.
// GET /audit?user=u1&subtopic=s1
func ListAuditHandler(repo *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		subtopic := r.URL.Query().Get("subtopic")
		if user == "" || subtopic == "" {
			http.Error(w, "user and subtopic required", http.StatusBadRequest)
			return
		}
		events, err := repo.ListByRun(r.Context(), runKey(user, subtopic))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(events)
	}
}
