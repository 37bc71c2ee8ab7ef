package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/chainlearn/internal/lms"
	"github.com/hitoshi/chainlearn/internal/model"
)

// --- モック定義 ---

type mockLessonService struct {
	listFn      func(ctx context.Context, courseID string) ([]*model.Lesson, error)
	createFn    func(ctx context.Context, courseID, title, description, content string) (*model.Lesson, error)
	getFn       func(ctx context.Context, id string) (*model.Lesson, error)
	updateFn    func(ctx context.Context, id string, patch lms.LessonPatch) (*model.Lesson, error)
	deleteFn    func(ctx context.Context, id string) error
	createCalls int
}

func (m *mockLessonService) ListLessons(ctx context.Context, courseID string) ([]*model.Lesson, error) {
	if m.listFn != nil {
		return m.listFn(ctx, courseID)
	}
	return nil, nil
}

func (m *mockLessonService) CreateLesson(ctx context.Context, courseID, title, description, content string) (*model.Lesson, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, courseID, title, description, content)
	}
	return &model.Lesson{ID: "1", CourseID: courseID, Title: title, Description: description, Content: content, Status: model.LessonStatusDraft, Order: 1}, nil
}

func (m *mockLessonService) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Lesson{ID: id}, nil
}

func (m *mockLessonService) UpdateLesson(ctx context.Context, id string, patch lms.LessonPatch) (*model.Lesson, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return &model.Lesson{ID: id}, nil
}

func (m *mockLessonService) DeleteLesson(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// adminLessonsHandlerForAdmin は管理者として解決されるハンドラーを生成する。
func adminLessonsHandlerForAdmin(svc LessonServiceInterface) *AdminLessonsHandler {
	user := &model.AuthUser{ID: "admin-1"}
	admins := &mockAdmins{adminIDs: map[string]bool{"admin-1": true}}
	return NewAdminLessonsHandler(sessionsForUser(user), admins, svc)
}

// --- テスト ---

func TestAdminLessons_NoSession_Returns401(t *testing.T) {
	svc := &mockLessonService{}
	h := NewAdminLessonsHandler(sessionsForUser(nil), &mockAdmins{}, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/lessons", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.CreateLesson(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if svc.createCalls != 0 {
		t.Error("service should not be called for unauthenticated request")
	}
}

func TestAdminLessons_NonAdmin_Returns403(t *testing.T) {
	svc := &mockLessonService{}
	user := &model.AuthUser{ID: "user-1"}
	h := NewAdminLessonsHandler(sessionsForUser(user), &mockAdmins{}, svc)

	req := authedRequest(t, http.MethodPost, "/api/admin/lessons", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	h.CreateLesson(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if svc.createCalls != 0 {
		t.Error("service should not be called for non-admin request")
	}
}

func TestListLessons_PassesCourseFilter(t *testing.T) {
	var gotCourseID string
	svc := &mockLessonService{
		listFn: func(ctx context.Context, courseID string) ([]*model.Lesson, error) {
			gotCourseID = courseID
			return nil, nil
		},
	}
	h := adminLessonsHandlerForAdmin(svc)

	req := authedRequest(t, http.MethodGet, "/api/admin/lessons?courseId=markov-chains", nil)
	w := httptest.NewRecorder()

	h.ListLessons(w, req)

	if gotCourseID != "markov-chains" {
		t.Errorf("courseId filter = %q, want %q", gotCourseID, "markov-chains")
	}
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want data to be an empty array", w.Body.String())
	}
}

func TestCreateLesson_MissingRequiredFields_Returns400(t *testing.T) {
	svc := &mockLessonService{}
	h := adminLessonsHandlerForAdmin(svc)

	// descriptionが欠けている
	body := `{"courseId":"markov-chains","title":"States"}`
	req := authedRequest(t, http.MethodPost, "/api/admin/lessons", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.CreateLesson(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	if svc.createCalls != 0 {
		t.Error("service should not be called on validation failure")
	}
}

func TestCreateLesson_Valid_Returns201(t *testing.T) {
	h := adminLessonsHandlerForAdmin(&mockLessonService{})

	body := `{"courseId":"markov-chains","title":"States","description":"Intro","content":"body"}`
	req := authedRequest(t, http.MethodPost, "/api/admin/lessons", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.CreateLesson(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Errorf("body = %s, want success envelope", w.Body.String())
	}
}

func TestGetLesson_NotFound_Returns404(t *testing.T) {
	svc := &mockLessonService{
		getFn: func(ctx context.Context, id string) (*model.Lesson, error) {
			return nil, model.NewLessonNotFoundError()
		},
	}
	h := adminLessonsHandlerForAdmin(svc)

	req := authedRequest(t, http.MethodGet, "/api/admin/lessons/missing", nil)
	w := httptest.NewRecorder()

	h.GetLesson(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), "Lesson not found") {
		t.Errorf("body = %s, want not-found message", w.Body.String())
	}
}

func TestUpdateLesson_ForwardsPatchFields(t *testing.T) {
	var gotPatch lms.LessonPatch
	svc := &mockLessonService{
		updateFn: func(ctx context.Context, id string, patch lms.LessonPatch) (*model.Lesson, error) {
			gotPatch = patch
			return &model.Lesson{ID: id}, nil
		},
	}
	h := adminLessonsHandlerForAdmin(svc)

	body := `{"title":"Transitions","status":"published"}`
	req := authedRequest(t, http.MethodPut, "/api/admin/lessons/lesson-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.UpdateLesson(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotPatch.Title == nil || *gotPatch.Title != "Transitions" {
		t.Errorf("patch.Title = %v, want Transitions", gotPatch.Title)
	}
	if gotPatch.Status == nil || *gotPatch.Status != "published" {
		t.Errorf("patch.Status = %v, want published", gotPatch.Status)
	}
	if gotPatch.Description != nil || gotPatch.Content != nil || gotPatch.Order != nil {
		t.Error("unprovided fields should stay nil in the patch")
	}
}

func TestDeleteLesson_ReturnsSuccessMessage(t *testing.T) {
	h := adminLessonsHandlerForAdmin(&mockLessonService{})

	req := authedRequest(t, http.MethodDelete, "/api/admin/lessons/lesson-1", nil)
	w := httptest.NewRecorder()

	h.DeleteLesson(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "Lesson deleted successfully") {
		t.Errorf("body = %s, want deletion message", w.Body.String())
	}
}
