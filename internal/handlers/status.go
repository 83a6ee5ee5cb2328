package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/course-studio/internal/editor"
	"github.com/example/course-studio/internal/gateway"
	"github.com/example/course-studio/internal/platform/api"
	"github.com/example/course-studio/internal/savestatus"
)

type statusResponse struct {
	Statuses map[string]savestatus.Status `json:"statuses"`
	Saved    map[string]bool              `json:"saved"`
}

// GetStatus handles GET /v1/courses/{course_id}/status: the live
// per-operation save statuses plus the durable saved flag per category.
// Clients poll this to drive their banners; expired success and error
// entries are already pruned.
func GetStatus(sessions *editor.Sessions, gw gateway.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "course_id"))
		if courseID == "" {
			api.BadRequest(w, "MISSING_ID", "course_id is required", "", nil)
			return
		}
		s := sessions.Get(courseID)

		categories := make([]editor.Category, 0, len(editor.FlatCategories)+1)
		categories = append(categories, editor.FlatCategories...)
		categories = append(categories, editor.CategoryOutline)

		saved := make(map[string]bool, len(categories))
		for _, c := range categories {
			cat := string(c)
			if s.Status.Saved(courseID, cat) {
				saved[cat] = true
				continue
			}
			flag, err := gw.SavedFlag(r.Context(), courseID, cat)
			if err != nil {
				log.Warn("saved flag lookup failed",
					zap.String("course_id", courseID),
					zap.String("category", cat),
					zap.Error(err))
			}
			saved[cat] = flag
		}

		api.WriteJSON(w, http.StatusOK, statusResponse{
			Statuses: s.Status.Snapshot(),
			Saved:    saved,
		})
	}
}

// FlushSession handles POST /v1/courses/{course_id}/flush: block until
// every queued save for the course has completed. Used before
// navigation away and by tests.
func FlushSession(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "course_id"))
		if courseID == "" {
			api.BadRequest(w, "MISSING_ID", "course_id is required", "", nil)
			return
		}
		if err := sessions.Get(courseID).Flush(r.Context()); err != nil {
			api.Internal(w, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
