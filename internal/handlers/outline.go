package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/course-studio/internal/editor"
	"github.com/example/course-studio/internal/platform/api"
)

type sectionRequest struct {
	Title string `json:"title"`
}

type lectureRequest struct {
	Title string `json:"title"`
}

type expandedRequest struct {
	Expanded *bool `json:"expanded"`
}

type outlineResponse struct {
	Sections  []editor.Section `json:"sections"`
	Expansion map[string]bool  `json:"expansion"`
	LoadError string           `json:"load_error,omitempty"`
}

func session(sessions *editor.Sessions, w http.ResponseWriter, r *http.Request) *editor.Session {
	courseID := strings.TrimSpace(chi.URLParam(r, "course_id"))
	if courseID == "" {
		api.BadRequest(w, "MISSING_ID", "course_id is required", "", nil)
		return nil
	}
	return sessions.Get(courseID)
}

func outlineBody(s *editor.Session) outlineResponse {
	sections := s.Outline.Sections()
	s.Expansion.Init(sectionIDs(sections))
	return outlineResponse{
		Sections:  sections,
		Expansion: s.Expansion.Snapshot(),
		LoadError: s.Outline.LoadErr(),
	}
}

// GetOutline handles GET /v1/courses/{course_id}/outline. The first
// successful load initializes expansion state: small outlines start
// fully expanded, large ones collapsed.
func GetOutline(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		if !s.Outline.Loaded() {
			if err := s.Outline.Load(r.Context()); err != nil && !errors.Is(err, editor.ErrLoadInFlight) {
				api.WriteJSON(w, http.StatusOK, outlineResponse{Sections: []editor.Section{}, LoadError: s.Outline.LoadErr()})
				return
			}
		}
		api.WriteJSON(w, http.StatusOK, outlineBody(s))
	}
}

// ReloadOutline handles POST /v1/courses/{course_id}/outline/reload.
func ReloadOutline(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		if err := s.Outline.Load(r.Context()); err != nil {
			if errors.Is(err, editor.ErrLoadInFlight) {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			api.WriteJSON(w, http.StatusBadGateway, outlineResponse{Sections: []editor.Section{}, LoadError: s.Outline.LoadErr()})
			return
		}
		api.WriteJSON(w, http.StatusOK, outlineBody(s))
	}
}

// AddSection handles POST /v1/courses/{course_id}/outline/sections.
func AddSection(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req sectionRequest
		if !decode(w, r, &req) {
			return
		}
		sec, err := s.Outline.AddSection(r.Context(), strings.TrimSpace(req.Title))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, sec)
	}
}

// RenameSection handles PUT /v1/courses/{course_id}/outline/sections/{section_id}.
func RenameSection(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req sectionRequest
		if !decode(w, r, &req) {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "section_id"))
		if err := s.Outline.RenameSection(r.Context(), id, strings.TrimSpace(req.Title)); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveSection handles DELETE /v1/courses/{course_id}/outline/sections/{section_id}.
// The section's lectures go with it.
func RemoveSection(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "section_id"))
		if err := s.Outline.RemoveSection(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		s.Expansion.Forget(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReorderSections handles PUT /v1/courses/{course_id}/outline/sections/order.
func ReorderSections(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req reorderRequest
		if !decode(w, r, &req) {
			return
		}
		if err := s.Outline.ReorderSections(r.Context(), req.IDs); err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outlineBody(s))
	}
}

// MoveSection handles PUT /v1/courses/{course_id}/outline/sections/move,
// the drag form: one section dropped onto another.
func MoveSection(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req moveRequest
		if !decode(w, r, &req) {
			return
		}
		sections := s.Outline.Sections()
		moved := editor.Move(sections, func(sec editor.Section) string { return sec.ID }, req.SourceID, req.TargetID)
		if sameOrder(sectionIDs(sections), sectionIDs(moved)) {
			api.WriteJSON(w, http.StatusOK, outlineBody(s))
			return
		}
		if err := s.Outline.ReorderSections(r.Context(), sectionIDs(moved)); err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outlineBody(s))
	}
}

// SetSectionExpanded handles PUT /v1/courses/{course_id}/outline/sections/{section_id}/expanded.
// Pure UI state: nothing is persisted and no save status is produced.
func SetSectionExpanded(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req expandedRequest
		if !decode(w, r, &req) {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "section_id"))
		if req.Expanded == nil {
			s.Expansion.Toggle(id)
		} else {
			s.Expansion.Set(id, *req.Expanded)
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"expanded": s.Expansion.Expanded(id)})
	}
}

// SetOutlineVisibility handles PUT /v1/courses/{course_id}/outline/visibility.
func SetOutlineVisibility(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req visibilityRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Visible == nil {
			api.BadRequest(w, "MISSING_FIELD", "visible is required", "", nil)
			return
		}
		if err := s.Outline.SetVisibility(r.Context(), *req.Visible); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AddLecture handles POST /v1/courses/{course_id}/outline/sections/{section_id}/lectures.
func AddLecture(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req lectureRequest
		if !decode(w, r, &req) {
			return
		}
		sectionID := strings.TrimSpace(chi.URLParam(r, "section_id"))
		lec, err := s.Outline.AddLecture(r.Context(), sectionID, strings.TrimSpace(req.Title))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, lec)
	}
}

// UpdateLecture handles PUT /v1/courses/{course_id}/outline/lectures/{lecture_id}.
// Partial update: absent fields are left untouched.
func UpdateLecture(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req editor.LectureUpdate
		if !decode(w, r, &req) {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "lecture_id"))
		if err := s.Outline.UpdateLecture(r.Context(), id, req); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveLecture handles DELETE /v1/courses/{course_id}/outline/lectures/{lecture_id}.
func RemoveLecture(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "lecture_id"))
		if err := s.Outline.RemoveLecture(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReorderLectures handles PUT /v1/courses/{course_id}/outline/sections/{section_id}/lectures/order.
// The ids must all belong to the section; dragging into another section
// is rejected.
func ReorderLectures(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req reorderRequest
		if !decode(w, r, &req) {
			return
		}
		sectionID := strings.TrimSpace(chi.URLParam(r, "section_id"))
		if err := s.Outline.ReorderLectures(r.Context(), sectionID, req.IDs); err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outlineBody(s))
	}
}

// MoveLecture handles PUT /v1/courses/{course_id}/outline/sections/{section_id}/lectures/move.
func MoveLecture(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session(sessions, w, r)
		if s == nil {
			return
		}
		var req moveRequest
		if !decode(w, r, &req) {
			return
		}
		sectionID := strings.TrimSpace(chi.URLParam(r, "section_id"))
		var lectures []editor.Lecture
		for _, sec := range s.Outline.Sections() {
			if sec.ID == sectionID {
				lectures = sec.Lectures
				break
			}
		}
		if lectures == nil {
			api.NotFound(w, "NOT_FOUND", "section not found", "")
			return
		}
		moved := editor.Move(lectures, func(l editor.Lecture) string { return l.ID }, req.SourceID, req.TargetID)
		if sameOrder(lectureIDs(lectures), lectureIDs(moved)) {
			api.WriteJSON(w, http.StatusOK, outlineBody(s))
			return
		}
		if err := s.Outline.ReorderLectures(r.Context(), sectionID, lectureIDs(moved)); err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, outlineBody(s))
	}
}

// CloseSession handles DELETE /v1/courses/{course_id}/session, dropping
// the in-memory editing state for a course.
func CloseSession(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(chi.URLParam(r, "course_id"))
		if courseID == "" {
			api.BadRequest(w, "MISSING_ID", "course_id is required", "", nil)
			return
		}
		sessions.Close(courseID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func sectionIDs(in []editor.Section) []string {
	out := make([]string, len(in))
	for i := range in {
		out[i] = in[i].ID
	}
	return out
}

func lectureIDs(in []editor.Lecture) []string {
	out := make([]string, len(in))
	for i := range in {
		out[i] = in[i].ID
	}
	return out
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
