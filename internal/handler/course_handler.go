package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/model"
)

// CourseServiceInterface はコースハンドラーが必要とするサービスインターフェース。
type CourseServiceInterface interface {
	// ListCourses は全コースを返す。
	ListCourses(ctx context.Context) ([]*model.Course, error)
	// CreateCourse は新しいコースを作成する。slugが空の場合はtitleから導出する。
	CreateCourse(ctx context.Context, title, description, slug string) (*model.Course, error)
}

// CourseHandler はコース管理のHTTPハンドラー。
type CourseHandler struct {
	sessions *Sessions
	admins   AdminAuthorizer
	service  CourseServiceInterface
}

// NewCourseHandler はCourseHandlerを生成する。
func NewCourseHandler(sessions *Sessions, admins AdminAuthorizer, service CourseServiceInterface) *CourseHandler {
	return &CourseHandler{
		sessions: sessions,
		admins:   admins,
		service:  service,
	}
}

// createCourseRequest はコース作成リクエストのボディ。
type createCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Slug        string `json:"slug"`
}

// ListCourses は全コース一覧を返す。認証不要。
// GET /api/admin/courses
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if courses == nil {
		courses = []*model.Course{}
	}
	writeSuccessResponse(w, http.StatusOK, courses)
}

// CreateCourse はコース作成を処理する。管理者のみ。
// 検証順序: 認証 → 認可 → ペイロード検証 → 変異。
// POST /api/admin/courses
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.RequireUser(w, r)
	if user == nil {
		return
	}

	if !h.admins.IsAdmin(r.Context(), user.ID) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	course, err := h.service.CreateCourse(r.Context(), req.Title, req.Description, req.Slug)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, course)
}
