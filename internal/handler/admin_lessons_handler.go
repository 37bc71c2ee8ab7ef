package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/chainlearn/internal/lms"
	"github.com/hitoshi/chainlearn/internal/model"
)

// LessonServiceInterface はレッスン管理ハンドラーが必要とするサービスインターフェース。
type LessonServiceInterface interface {
	// ListLessons はレッスン一覧を返す。courseIDで絞り込み可能。
	ListLessons(ctx context.Context, courseID string) ([]*model.Lesson, error)
	// CreateLesson はレッスンを作成する。
	CreateLesson(ctx context.Context, courseID, title, description, content string) (*model.Lesson, error)
	// GetLesson は指定IDのレッスンを返す。
	GetLesson(ctx context.Context, id string) (*model.Lesson, error)
	// UpdateLesson は指定IDのレッスンをパッチで部分更新する。
	UpdateLesson(ctx context.Context, id string, patch lms.LessonPatch) (*model.Lesson, error)
	// DeleteLesson は指定IDのレッスンを削除する。
	DeleteLesson(ctx context.Context, id string) error
}

// AdminLessonsHandler はレッスン管理のHTTPハンドラー。
// すべての操作は 認証 → 認可 → ペイロード検証 → 変異 の順序で検証する。
type AdminLessonsHandler struct {
	sessions *Sessions
	admins   AdminAuthorizer
	service  LessonServiceInterface
}

// NewAdminLessonsHandler はAdminLessonsHandlerを生成する。
func NewAdminLessonsHandler(sessions *Sessions, admins AdminAuthorizer, service LessonServiceInterface) *AdminLessonsHandler {
	return &AdminLessonsHandler{
		sessions: sessions,
		admins:   admins,
		service:  service,
	}
}

// createLessonRequest はレッスン作成リクエストのボディ。
type createLessonRequest struct {
	CourseID    string `json:"courseId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Content     string `json:"content"`
}

// updateLessonRequest はレッスン更新リクエストのボディ。
// nilのフィールドは更新されない。
type updateLessonRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	Status      *string `json:"status"`
	Order       *int    `json:"order"`
}

// requireAdmin は現在のユーザーが管理者であることを検証する。
// 失敗時はレスポンスを書き込み、nilを返す。
func (h *AdminLessonsHandler) requireAdmin(w http.ResponseWriter, r *http.Request) *model.AuthUser {
	user := h.sessions.RequireUser(w, r)
	if user == nil {
		return nil
	}
	if !h.admins.IsAdmin(r.Context(), user.ID) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return nil
	}
	return user
}

// ListLessons はレッスン一覧を返す。管理者のみ。
// GET /api/admin/lessons?courseId=...
func (h *AdminLessonsHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	lessons, err := h.service.ListLessons(r.Context(), r.URL.Query().Get("courseId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if lessons == nil {
		lessons = []*model.Lesson{}
	}
	writeSuccessResponse(w, http.StatusOK, lessons)
}

// CreateLesson はレッスン作成を処理する。管理者のみ。
// POST /api/admin/lessons
func (h *AdminLessonsHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var req createLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	lesson, err := h.service.CreateLesson(r.Context(), req.CourseID, req.Title, req.Description, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, lesson)
}

// GetLesson は指定IDのレッスンを返す。管理者のみ。
// GET /api/admin/lessons/{lessonId}
func (h *AdminLessonsHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	lesson, err := h.service.GetLesson(r.Context(), chi.URLParam(r, "lessonId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, lesson)
}

// UpdateLesson はレッスンの部分更新を処理する。管理者のみ。
// PUT /api/admin/lessons/{lessonId}
func (h *AdminLessonsHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var req updateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	lesson, err := h.service.UpdateLesson(r.Context(), chi.URLParam(r, "lessonId"), lms.LessonPatch{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Status:      req.Status,
		Order:       req.Order,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, lesson)
}

// DeleteLesson はレッスンの削除を処理する。管理者のみ。
// DELETE /api/admin/lessons/{lessonId}
func (h *AdminLessonsHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	if err := h.service.DeleteLesson(r.Context(), chi.URLParam(r, "lessonId")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessageResponse(w, http.StatusOK, "Lesson deleted successfully")
}
