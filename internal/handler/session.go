package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/middleware"
	"github.com/hitoshi/chainlearn/internal/model"
)

// SessionResolverInterface はCookieトークンからユーザーを解決するインターフェース。
// identity.Resolverの部分集合として定義する。
type SessionResolverInterface interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (*model.AuthUser, *model.Session, error)
}

// Sessions はハンドラー側の権威的なセッション解決を提供する。
//
// セッションゲートが解決済みユーザーをコンテキストに載せている場合はそれを
// 使い、載っていない場合はCookieから再解決する。ゲートはフェイルオープン
// だが、ここでは解決できなければ未認証として扱う（フェイルクローズ）。
type Sessions struct {
	resolver SessionResolverInterface
	cookies  identity.CookieConfig
}

// NewSessions はSessionsを生成する。
func NewSessions(resolver SessionResolverInterface, cookies identity.CookieConfig) *Sessions {
	return &Sessions{
		resolver: resolver,
		cookies:  cookies,
	}
}

// CurrentUser はリクエストの現在のユーザーを解決する。未認証の場合はnilを返す。
// Cookieからの再解決でリフレッシュが発生した場合は新しいトークンペアを
// レスポンスCookieに書き込む。ゲートが先にリフレッシュ済みであれば
// リクエストのCookieヘッダーは更新されており、ここで再度のリフレッシュは
// 起きない。
func (s *Sessions) CurrentUser(w http.ResponseWriter, r *http.Request) *model.AuthUser {
	if user, err := middleware.UserFromContext(r.Context()); err == nil {
		return user
	}

	accessToken, refreshToken := identity.ReadTokens(r)
	if accessToken == "" && refreshToken == "" {
		return nil
	}

	user, refreshed, err := s.resolver.Resolve(r.Context(), accessToken, refreshToken)
	if err != nil {
		// プロバイダー障害でも権限を付与しない。認可の文脈では未認証として扱う。
		slog.Warn("failed to resolve session user",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if refreshed != nil {
		identity.WriteSessionCookies(w, refreshed, s.cookies)
	}

	return user
}

// RequireUser は現在のユーザーを解決し、未認証の場合は401を書き込んでnilを返す。
func (s *Sessions) RequireUser(w http.ResponseWriter, r *http.Request) *model.AuthUser {
	user := s.CurrentUser(w, r)
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return nil
	}
	return user
}
