// Package handlers exposes the course editor over HTTP. Mutations are
// optimistic: the response reflects the local state immediately, and
// the save-status endpoint reports the outcome of the persistence call.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/course-studio/internal/editor"
	"github.com/example/course-studio/internal/platform/api"
)

const maxBodyBytes = 1 << 20

type addItemRequest struct {
	Content string `json:"content"`
}

type editItemRequest struct {
	Content string `json:"content"`
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type moveRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type itemsResponse struct {
	Items     []editor.Item `json:"items"`
	LoadError string        `json:"load_error,omitempty"`
}

// flatStore resolves the {course_id}/{category} pair to a store,
// writing the error response itself when the category is unknown.
func flatStore(sessions *editor.Sessions, w http.ResponseWriter, r *http.Request) *editor.Store {
	courseID := strings.TrimSpace(chi.URLParam(r, "course_id"))
	if courseID == "" {
		api.BadRequest(w, "MISSING_ID", "course_id is required", "", nil)
		return nil
	}
	category := editor.Category(strings.TrimSpace(chi.URLParam(r, "category")))
	if !editor.ValidFlat(category) {
		api.NotFound(w, "UNKNOWN_CATEGORY", "unknown category", "")
		return nil
	}
	return sessions.Get(courseID).Store(category)
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrEmptyContent):
		api.BadRequest(w, "EMPTY_CONTENT", "content must not be empty", "", nil)
	case errors.Is(err, editor.ErrBadOrder):
		api.BadRequest(w, "BAD_ORDER", "order must contain exactly the current sibling ids", "", nil)
	case errors.Is(err, editor.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "item not found", "")
	case errors.Is(err, editor.ErrClosed):
		api.Conflict(w, "SESSION_CLOSED", "editor session was closed", "", nil)
	default:
		api.Internal(w, "")
	}
}

// ListItems handles GET /v1/courses/{course_id}/{category}.
// A load failure is not a request failure: the response carries the
// retained error string and the reload endpoint is the retry control.
func ListItems(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		if !store.Loaded() {
			if err := store.Load(r.Context()); err != nil && !errors.Is(err, editor.ErrLoadInFlight) {
				api.WriteJSON(w, http.StatusOK, itemsResponse{Items: []editor.Item{}, LoadError: store.LoadErr()})
				return
			}
		}
		api.WriteJSON(w, http.StatusOK, itemsResponse{Items: store.Items(), LoadError: store.LoadErr()})
	}
}

// ReloadItems handles POST /v1/courses/{course_id}/{category}/reload,
// the user-initiated retry after a load failure. Never seeds.
func ReloadItems(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		if err := store.Reload(r.Context()); err != nil {
			if errors.Is(err, editor.ErrLoadInFlight) {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			api.WriteJSON(w, http.StatusBadGateway, itemsResponse{Items: []editor.Item{}, LoadError: store.LoadErr()})
			return
		}
		api.WriteJSON(w, http.StatusOK, itemsResponse{Items: store.Items()})
	}
}

// AddItem handles POST /v1/courses/{course_id}/{category}. The 201
// body carries the optimistic item; its temporary id is replaced by
// the durable one once the create confirms.
func AddItem(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		var req addItemRequest
		if !decode(w, r, &req) {
			return
		}
		item, err := store.Add(r.Context(), strings.TrimSpace(req.Content))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, item)
	}
}

// EditItem handles PUT /v1/courses/{course_id}/{category}/{item_id}.
func EditItem(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		var req editItemRequest
		if !decode(w, r, &req) {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "item_id"))
		if err := store.Edit(r.Context(), id, strings.TrimSpace(req.Content)); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveItem handles DELETE /v1/courses/{course_id}/{category}/{item_id}.
func RemoveItem(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "item_id"))
		if err := store.Remove(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReorderItems handles PUT /v1/courses/{course_id}/{category}/order
// with the complete sibling set in its new order.
func ReorderItems(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		var req reorderRequest
		if !decode(w, r, &req) {
			return
		}
		if err := store.Reorder(r.Context(), req.IDs); err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, itemsResponse{Items: store.Items()})
	}
}

// MoveItem handles PUT /v1/courses/{course_id}/{category}/move, the
// drag-and-drop form of reorder: one item dropped onto another. Equal
// or unknown ids are a no-op, matching the drag surface behavior.
func MoveItem(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
			return
		}
		var req moveRequest
		if !decode(w, r, &req) {
			return
		}
		items := store.Items()
		moved := editor.MoveItems(items, req.SourceID, req.TargetID)
		if sameOrder(editor.OrderedIDs(items), editor.OrderedIDs(moved)) {
			api.WriteJSON(w, http.StatusOK, itemsResponse{Items: items})
			return
		}
		if err := store.Reorder(r.Context(), editor.OrderedIDs(moved)); err != nil {
			writeStoreError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, itemsResponse{Items: store.Items()})
	}
}

// SetItemsVisibility handles PUT /v1/courses/{course_id}/{category}/visibility,
// the collection-wide show/hide toggle.
func SetItemsVisibility(sessions *editor.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := flatStore(sessions, w, r)
		if store == nil {
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
		if err := store.SetVisibility(r.Context(), *req.Visible); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
