package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/chainlearn/internal/model"
)

// --- モック定義 ---

type mockCourseService struct {
	listCoursesFn  func(ctx context.Context) ([]*model.Course, error)
	createCourseFn func(ctx context.Context, title, description, slug string) (*model.Course, error)
	createCalls    int
}

func (m *mockCourseService) ListCourses(ctx context.Context) ([]*model.Course, error) {
	if m.listCoursesFn != nil {
		return m.listCoursesFn(ctx)
	}
	return nil, nil
}

func (m *mockCourseService) CreateCourse(ctx context.Context, title, description, slug string) (*model.Course, error) {
	m.createCalls++
	if m.createCourseFn != nil {
		return m.createCourseFn(ctx, title, description, slug)
	}
	return &model.Course{ID: slug, Title: title, Description: description, Slug: slug, Status: model.CourseStatusDraft}, nil
}

// --- テスト ---

func TestListCourses_NoAuthRequired_ReturnsEnvelope(t *testing.T) {
	svc := &mockCourseService{
		listCoursesFn: func(ctx context.Context) ([]*model.Course, error) {
			return []*model.Course{{ID: "markov-basics", Title: "Markov Basics"}}, nil
		},
	}
	h := NewCourseHandler(sessionsForUser(nil), &mockAdmins{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/courses", nil)
	w := httptest.NewRecorder()

	h.ListCourses(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Success bool           `json:"success"`
		Data    []model.Course `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success || len(body.Data) != 1 {
		t.Errorf("body = %+v, want one course", body)
	}
}

func TestListCourses_EmptyRepository_ReturnsEmptyArrayNotNull(t *testing.T) {
	h := NewCourseHandler(sessionsForUser(nil), &mockAdmins{}, &mockCourseService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/courses", nil)
	w := httptest.NewRecorder()

	h.ListCourses(w, req)

	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want data to be an empty array", w.Body.String())
	}
}

func TestCreateCourse_NoSession_Returns401BeforeAnythingElse(t *testing.T) {
	svc := &mockCourseService{}
	h := NewCourseHandler(sessionsForUser(nil), &mockAdmins{}, svc)

	// ボディは不正なJSONだが、認証チェックが先に失敗しなければならない
	req := httptest.NewRequest(http.MethodPost, "/api/admin/courses", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.CreateCourse(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if svc.createCalls != 0 {
		t.Error("service should not be called for unauthenticated request")
	}
}

func TestCreateCourse_NonAdmin_Returns403BeforeValidation(t *testing.T) {
	svc := &mockCourseService{}
	user := &model.AuthUser{ID: "user-1"}
	h := NewCourseHandler(sessionsForUser(user), &mockAdmins{}, svc)

	req := authedRequest(t, http.MethodPost, "/api/admin/courses", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.CreateCourse(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if svc.createCalls != 0 {
		t.Error("service should not be called for non-admin request")
	}
}

func TestCreateCourse_MissingFields_Returns400(t *testing.T) {
	svc := &mockCourseService{}
	admin := &model.AuthUser{ID: "admin-1"}
	h := NewCourseHandler(sessionsForUser(admin), &mockAdmins{adminIDs: map[string]bool{"admin-1": true}}, svc)

	req := authedRequest(t, http.MethodPost, "/api/admin/courses", strings.NewReader(`{"title":"Only Title"}`))
	w := httptest.NewRecorder()

	h.CreateCourse(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "Missing required fields" {
		t.Errorf("error = %q, want missing fields message", body.Error)
	}
	if svc.createCalls != 0 {
		t.Error("service should not be called for invalid payload")
	}
}

func TestCreateCourse_ValidPayload_Returns201(t *testing.T) {
	var gotTitle, gotSlug string
	svc := &mockCourseService{
		createCourseFn: func(ctx context.Context, title, description, slug string) (*model.Course, error) {
			gotTitle, gotSlug = title, slug
			return &model.Course{ID: "markov-basics", Title: title, Slug: "markov-basics"}, nil
		},
	}
	admin := &model.AuthUser{ID: "admin-1"}
	h := NewCourseHandler(sessionsForUser(admin), &mockAdmins{adminIDs: map[string]bool{"admin-1": true}}, svc)

	req := authedRequest(t, http.MethodPost, "/api/admin/courses",
		strings.NewReader(`{"title":"Markov Basics","description":"Intro"}`))
	w := httptest.NewRecorder()

	h.CreateCourse(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
	if gotTitle != "Markov Basics" || gotSlug != "" {
		t.Errorf("(title, slug) = (%q, %q), want title with empty slug", gotTitle, gotSlug)
	}
}

func TestCreateCourse_BackendError_Returns500WithGenericMessage(t *testing.T) {
	svc := &mockCourseService{
		createCourseFn: func(ctx context.Context, title, description, slug string) (*model.Course, error) {
			return nil, errors.New("pq: connection reset")
		},
	}
	admin := &model.AuthUser{ID: "admin-1"}
	h := NewCourseHandler(sessionsForUser(admin), &mockAdmins{adminIDs: map[string]bool{"admin-1": true}}, svc)

	req := authedRequest(t, http.MethodPost, "/api/admin/courses",
		strings.NewReader(`{"title":"T","description":"D"}`))
	w := httptest.NewRecorder()

	h.CreateCourse(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "pq:") {
		t.Error("backend error detail should not leak to the response")
	}
}
