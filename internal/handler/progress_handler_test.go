package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/chainlearn/internal/model"
)

// --- モック定義 ---

type mockProgressService struct {
	syncFn func(ctx context.Context, userID string, data model.ProgressData) error
	loadFn func(ctx context.Context, userID string) (model.ProgressData, error)
	calls  int
}

func (m *mockProgressService) Sync(ctx context.Context, userID string, data model.ProgressData) error {
	m.calls++
	if m.syncFn != nil {
		return m.syncFn(ctx, userID, data)
	}
	return nil
}

func (m *mockProgressService) Load(ctx context.Context, userID string) (model.ProgressData, error) {
	m.calls++
	if m.loadFn != nil {
		return m.loadFn(ctx, userID)
	}
	return nil, nil
}

// --- テスト ---

func TestLoadProgress_NoSession_Returns401(t *testing.T) {
	svc := &mockProgressService{}
	h := NewProgressHandler(sessionsForUser(nil), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/progress", nil)
	w := httptest.NewRecorder()

	h.LoadProgress(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if svc.calls != 0 {
		t.Error("service should not be called without a session")
	}
}

func TestLoadProgress_NoRow_ReturnsNullData(t *testing.T) {
	h := NewProgressHandler(sessionsForUser(&model.AuthUser{ID: "user-1"}), &mockProgressService{})

	req := authedRequest(t, http.MethodGet, "/api/progress", nil)
	w := httptest.NewRecorder()

	h.LoadProgress(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if len(body.Data) != 0 {
		t.Errorf("data = %s, want absent", body.Data)
	}
}

func TestLoadProgress_ExistingRow_ReturnsProgressData(t *testing.T) {
	svc := &mockProgressService{
		loadFn: func(ctx context.Context, userID string) (model.ProgressData, error) {
			return model.ProgressData{"lesson-1": {Completed: true}}, nil
		},
	}
	h := NewProgressHandler(sessionsForUser(&model.AuthUser{ID: "user-1"}), svc)

	req := authedRequest(t, http.MethodGet, "/api/progress", nil)
	w := httptest.NewRecorder()

	h.LoadProgress(w, req)

	var body struct {
		Data struct {
			ProgressData model.ProgressData `json:"progressData"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Data.ProgressData["lesson-1"].Completed {
		t.Error("lesson-1 should be completed")
	}
}

func TestSyncProgress_UpsertsForSessionUser(t *testing.T) {
	var gotUserID string
	var gotData model.ProgressData
	svc := &mockProgressService{
		syncFn: func(ctx context.Context, userID string, data model.ProgressData) error {
			gotUserID = userID
			gotData = data
			return nil
		},
	}
	h := NewProgressHandler(sessionsForUser(&model.AuthUser{ID: "user-1"}), svc)

	body := `{"progressData":{"lesson-1":{"completed":true}}}`
	req := authedRequest(t, http.MethodPut, "/api/progress", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SyncProgress(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", gotUserID)
	}
	if !gotData["lesson-1"].Completed {
		t.Error("lesson-1 should be completed in synced data")
	}
}

func TestSyncProgress_MalformedBody_Returns400(t *testing.T) {
	svc := &mockProgressService{}
	h := NewProgressHandler(sessionsForUser(&model.AuthUser{ID: "user-1"}), svc)

	req := authedRequest(t, http.MethodPut, "/api/progress", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.SyncProgress(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if svc.calls != 0 {
		t.Error("service should not be called for malformed body")
	}
}
