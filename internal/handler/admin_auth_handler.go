package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/model"
)

// AdminAuthorizer は管理者判定のインターフェース。
// adminauth.Serviceの部分集合として定義する。
type AdminAuthorizer interface {
	// IsAdmin はユーザーが管理者集合に属するかを返す。判定不能時はfalse。
	IsAdmin(ctx context.Context, userID string) bool
}

// AdminAuthHandler は管理者セッション判定のHTTPハンドラー。
type AdminAuthHandler struct {
	sessions *Sessions
	admins   AdminAuthorizer
}

// NewAdminAuthHandler はAdminAuthHandlerを生成する。
func NewAdminAuthHandler(sessions *Sessions, admins AdminAuthorizer) *AdminAuthHandler {
	return &AdminAuthHandler{
		sessions: sessions,
		admins:   admins,
	}
}

// userResponse は認証済みユーザーのAPIレスポンス。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// adminAuthResponse は管理者判定のAPIレスポンス。
type adminAuthResponse struct {
	Authenticated bool          `json:"authenticated"`
	IsAdmin       bool          `json:"isAdmin"`
	Message       string        `json:"message,omitempty"`
	User          *userResponse `json:"user,omitempty"`
}

// CheckAuth は現在のセッションの管理者ステータスを返す。
// 認証済みであれば管理者でなくても200を返す（isAdmin:falseとして）。
// GET /api/admin/auth
func (h *AdminAuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.RequireUser(w, r)
	if user == nil {
		return
	}

	writeJSON(w, http.StatusOK, adminAuthResponse{
		Authenticated: true,
		IsAdmin:       h.admins.IsAdmin(r.Context(), user.ID),
		User:          toUserResponse(user),
	})
}

// VerifyAdmin は現在のセッションが管理者であることを検証する。
// 管理者でない場合は403を返す。
// POST /api/admin/auth
func (h *AdminAuthHandler) VerifyAdmin(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.RequireUser(w, r)
	if user == nil {
		return
	}

	if !h.admins.IsAdmin(r.Context(), user.ID) {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	writeJSON(w, http.StatusOK, adminAuthResponse{
		Authenticated: true,
		IsAdmin:       true,
		Message:       "Admin access verified",
		User:          toUserResponse(user),
	})
}

// toUserResponse はドメインのAuthUserをAPIレスポンス型に変換する。
func toUserResponse(user *model.AuthUser) *userResponse {
	return &userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}
