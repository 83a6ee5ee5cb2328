package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/example/course-studio/internal/gateway"
)

func TestGetStatus_ReportsSavedFlags(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	sessions := newSessions(gw)

	rr := httptest.NewRecorder()
	AddItem(sessions).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/courses/course-1/objectives",
		`{"content":"a"}`, itemParams(nil), "instructor-a"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("add failed: %d", rr.Code)
	}
	flushCourse(t, sessions)

	rr = httptest.NewRecorder()
	GetStatus(sessions, gw, zap.NewNop()).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/courses/course-1/status",
		"", courseParams(nil), "instructor-a"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Saved["objectives"] {
		t.Fatalf("expected objectives saved after successful add, got %+v", resp.Saved)
	}
	if resp.Saved["materials"] {
		t.Fatalf("expected untouched category unsaved, got %+v", resp.Saved)
	}
	st, ok := resp.Statuses["add-objectives"]
	if !ok || st.Phase != "success" {
		t.Fatalf("expected success status for add-objectives, got %+v", resp.Statuses)
	}
}

func TestGetStatus_ReadsDurableFlags(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	if err := gw.MarkSaved(context.Background(), "course-1", "audiences"); err != nil {
		t.Fatalf("mark saved: %v", err)
	}
	sessions := newSessions(gw)

	rr := httptest.NewRecorder()
	GetStatus(sessions, gw, zap.NewNop()).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/courses/course-1/status",
		"", courseParams(nil), "instructor-a"))

	var resp statusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Saved["audiences"] {
		t.Fatalf("expected durable flag surfaced, got %+v", resp.Saved)
	}
}

func TestFlushSession(t *testing.T) {
	sessions := newSessions(gateway.NewMemoryGateway())

	rr := httptest.NewRecorder()
	AddItem(sessions).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/courses/course-1/objectives",
		`{"content":"a"}`, itemParams(nil), "instructor-a"))

	rr = httptest.NewRecorder()
	FlushSession(sessions).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/courses/course-1/flush",
		"", courseParams(nil), "instructor-a"))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
