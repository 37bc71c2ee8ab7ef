package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/model"
)

// AuthClientInterface は認証ハンドラーが必要とするプロバイダー操作のインターフェース。
// identity.Clientの部分集合として定義する。
type AuthClientInterface interface {
	// ExchangeCode は認可コードをセッションに交換する。
	ExchangeCode(ctx context.Context, code string) (*model.Session, error)
	// SignOut はセッションをプロバイダー側で無効化する。
	SignOut(ctx context.Context, accessToken string) error
}

// AuthHandler は認証フローのHTTPハンドラー。
type AuthHandler struct {
	client  AuthClientInterface
	cookies identity.CookieConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(client AuthClientInterface, cookies identity.CookieConfig) *AuthHandler {
	return &AuthHandler{
		client:  client,
		cookies: cookies,
	}
}

// Callback はプロバイダーからの認可コードコールバックを処理する。
// コード交換に成功すればセッションCookieを設定して/learnへ、
// 失敗すればエラークエリ付きでトップへリダイレクトする。
// GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/?error=auth_failed", http.StatusTemporaryRedirect)
		return
	}

	session, err := h.client.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("failed to exchange auth code",
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/?error=auth_failed", http.StatusTemporaryRedirect)
		return
	}

	identity.WriteSessionCookies(w, session, h.cookies)
	http.Redirect(w, r, "/learn", http.StatusTemporaryRedirect)
}

// ForceLogout はプロバイダー側のセッション無効化とCookieの全消去を行う。
// プロバイダー側の無効化に失敗してもCookieは必ず消去する。
// POST /api/auth/force-logout
func (h *AuthHandler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := identity.ReadTokens(r)
	if accessToken != "" {
		if err := h.client.SignOut(r.Context(), accessToken); err != nil {
			slog.Warn("failed to sign out at provider, clearing cookies anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	identity.ClearSessionCookies(w, r, h.cookies)
	writeMessageResponse(w, http.StatusOK, "Logged out")
}
