package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
)

// AdminOpsServiceInterface は管理者操作ハンドラーが必要とするサービスインターフェース。
type AdminOpsServiceInterface interface {
	// ResetPassword は対象ユーザーへパスワード回復リンク送信を依頼する。
	ResetPassword(ctx context.Context, targetUserID string) error
	// ResetProgress は対象ユーザーの進捗を空の状態にリセットする。
	ResetProgress(ctx context.Context, targetUserID string) error
	// ListUsers は全ユーザーに管理者フラグと進捗を結合した一覧を返す。
	ListUsers(ctx context.Context) ([]*repository.AdminUserEntry, error)
}

// AdminUsersHandler は管理者専用のユーザー操作のHTTPハンドラー。
// すべての操作は 認証 → 認可 → 変異 の順序で検証する。
type AdminUsersHandler struct {
	sessions *Sessions
	admins   AdminAuthorizer
	service  AdminOpsServiceInterface
}

// NewAdminUsersHandler はAdminUsersHandlerを生成する。
func NewAdminUsersHandler(sessions *Sessions, admins AdminAuthorizer, service AdminOpsServiceInterface) *AdminUsersHandler {
	return &AdminUsersHandler{
		sessions: sessions,
		admins:   admins,
		service:  service,
	}
}

// adminUserEntryResponse はユーザー一覧の1エントリのAPIレスポンス。
type adminUserEntryResponse struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	Name        string             `json:"name,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	IsAdmin     bool               `json:"isAdmin"`
	HasProgress bool               `json:"hasProgress"`
	Progress    model.ProgressData `json:"progress,omitempty"`
	UpdatedAt   *time.Time         `json:"progressUpdatedAt,omitempty"`
}

// requireAdmin は現在のユーザーが管理者であることを検証する。
// 失敗時はレスポンスを書き込み、nilを返す。
func (h *AdminUsersHandler) requireAdmin(w http.ResponseWriter, r *http.Request) *model.AuthUser {
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

// ListUsers は全ユーザーの一覧を返す。管理者のみ。
// GET /api/admin/users
func (h *AdminUsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	entries, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	results := make([]adminUserEntryResponse, len(entries))
	for i, entry := range entries {
		results[i] = toAdminUserEntryResponse(entry)
	}
	writeSuccessResponse(w, http.StatusOK, results)
}

// ResetPassword は対象ユーザーへのパスワードリセットメール送信を処理する。管理者のみ。
// POST /api/admin/users/{userId}/reset-password
func (h *AdminUsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	targetUserID := chi.URLParam(r, "userId")
	if err := h.service.ResetPassword(r.Context(), targetUserID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessageResponse(w, http.StatusOK, "Password reset email sent")
}

// ResetProgress は対象ユーザーの進捗リセットを処理する。管理者のみ。
// POST /api/admin/users/{userId}/reset-progress
func (h *AdminUsersHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	if h.requireAdmin(w, r) == nil {
		return
	}

	targetUserID := chi.URLParam(r, "userId")
	if err := h.service.ResetProgress(r.Context(), targetUserID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessageResponse(w, http.StatusOK, "User progress reset")
}

// toAdminUserEntryResponse はドメインのAdminUserEntryをAPIレスポンス型に変換する。
func toAdminUserEntryResponse(entry *repository.AdminUserEntry) adminUserEntryResponse {
	resp := adminUserEntryResponse{
		ID:          entry.User.ID,
		Email:       entry.User.Email,
		Name:        entry.User.Name,
		CreatedAt:   entry.User.CreatedAt,
		IsAdmin:     entry.IsAdmin,
		HasProgress: entry.HasProgress,
	}
	if entry.HasProgress {
		resp.Progress = entry.Progress
		updatedAt := entry.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
