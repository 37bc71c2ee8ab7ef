package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/questions"
)

// importFileMaxBytes はインポートファイルの最大サイズ。
const importFileMaxBytes = 10 << 20

// QuestionAdminServiceInterface は練習問題管理ハンドラーが必要とするサービスインターフェース。
type QuestionAdminServiceInterface interface {
	// ListQuestions は全ステータスの問題を新しい順に返す。statusで絞り込み可能。
	ListQuestions(ctx context.Context, status string) ([]*model.Question, error)
	// GetQuestion は指定IDの問題を返す。
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	// CreateQuestion は問題を新規作成する。
	CreateQuestion(ctx context.Context, input *questions.Input) (*model.Question, error)
	// UpdateQuestion は指定IDの問題をパッチで部分更新する。
	UpdateQuestion(ctx context.Context, id string, patch *questions.Patch) (*model.Question, error)
	// DeleteQuestion は指定IDの問題を削除する。削除は冪等。
	DeleteQuestion(ctx context.Context, id string) error
	// Export は全問題を含むエクスポート文書を返す。
	Export(ctx context.Context) (*questions.ExportDocument, error)
	// Import はエクスポート文書の問題を取り込む。
	Import(ctx context.Context, doc *questions.ExportDocument, opts questions.ImportOptions) (*questions.ImportResult, error)
}

// AdminQuestionsHandler は練習問題管理のHTTPハンドラー。
// すべての操作は 認証 → 認可 → ペイロード検証 → 変異 の順序で検証する。
type AdminQuestionsHandler struct {
	sessions *Sessions
	admins   AdminAuthorizer
	service  QuestionAdminServiceInterface
	now      func() time.Time
}

// NewAdminQuestionsHandler はAdminQuestionsHandlerを生成する。
func NewAdminQuestionsHandler(sessions *Sessions, admins AdminAuthorizer, service QuestionAdminServiceInterface) *AdminQuestionsHandler {
	return &AdminQuestionsHandler{
		sessions: sessions,
		admins:   admins,
		service:  service,
		now:      time.Now,
	}
}

// requireAdmin は現在のユーザーが管理者であることを検証する。
// 失敗時はレスポンスを書き込み、nilを返す。
func (h *AdminQuestionsHandler) requireAdmin(w http.ResponseWriter, r *http.Request) *model.AuthUser {
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

// ListQuestions は全ステータスの問題一覧を返す。管理者のみ。
// GET /api/admin/practice-questions?status=draft|published
func (h *AdminQuestionsHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	listed, err := h.service.ListQuestions(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if listed == nil {
		listed = []*model.Question{}
	}
	writeSuccessResponse(w, http.StatusOK, listed)
}

// GetQuestion は指定IDの問題を返す。管理者のみ。
// GET /api/admin/practice-questions/{id}
func (h *AdminQuestionsHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	q, err := h.service.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, q)
}

// CreateQuestion は問題作成を処理する。管理者のみ。
// POST /api/admin/practice-questions
func (h *AdminQuestionsHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var input questions.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	q, err := h.service.CreateQuestion(r.Context(), &input)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, q)
}

// UpdateQuestion は問題の部分更新を処理する。管理者のみ。
// PUT /api/admin/practice-questions/{id}
func (h *AdminQuestionsHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	var patch questions.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	q, err := h.service.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), &patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, q)
}

// DeleteQuestion は問題の削除を処理する。管理者のみ。
// DELETE /api/admin/practice-questions/{id}
func (h *AdminQuestionsHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	if err := h.service.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessageResponse(w, http.StatusOK, "Practice question deleted successfully")
}

// ExportQuestions は全問題のJSONファイルダウンロードを処理する。管理者のみ。
// レスポンスはエンベロープを持たず、エクスポート文書そのものを返す。
// GET /api/admin/practice-questions/export
func (h *AdminQuestionsHandler) ExportQuestions(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	doc, err := h.service.Export(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("practice-questions-export-%s.json", h.now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, doc)
}

// ImportQuestions はJSONファイルからの一括取り込みを処理する。管理者のみ。
// multipart/form-dataのfileフィールドにエクスポート文書、optionsフィールドに
// 衝突解決オプションのJSONを受け取る。
// POST /api/admin/practice-questions/import
func (h *AdminQuestionsHandler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	if err := r.ParseMultipartForm(importFileMaxBytes); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("No file uploaded"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("No file uploaded"))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("Invalid file type. Please upload a JSON file."))
		return
	}

	var raw struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("Invalid JSON format"))
		return
	}

	var doc questions.ExportDocument
	if len(raw.Questions) == 0 || json.Unmarshal(raw.Questions, &doc.Questions) != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("Invalid format: missing or invalid 'questions' array"))
		return
	}

	var opts questions.ImportOptions
	if optsJSON := r.FormValue("options"); optsJSON != "" {
		if err := json.Unmarshal([]byte(optsJSON), &opts); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("Invalid options format"))
			return
		}
	}

	result, err := h.service.Import(r.Context(), &doc, opts)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, result)
}
