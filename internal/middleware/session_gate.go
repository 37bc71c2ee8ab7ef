package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/model"
)

// SessionResolver はCookieトークンからユーザーを解決するインターフェース。
// identity.Resolverの部分集合として定義する。
type SessionResolver interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (*model.AuthUser, *model.Session, error)
}

// AuthFailureRecorder は認証系の障害をメトリクスに記録するインターフェース。
type AuthFailureRecorder interface {
	RecordAuthFailure(kind string)
}

// SessionGate はエッジで動作する助言的なセッションミドルウェア。
//
// 役割は3つ:
//  1. Cookieトークンからユーザーを解決し、コンテキストに注入する
//  2. アクセストークンが失効していればリフレッシュトークンで透過的に更新し、
//     新しいトークンペアをレスポンスCookieとリクエストCookieの両方に反映する
//  3. パスワードリセット画面のみ未認証リクエストを/learnへリダイレクトする
//
// 管理画面プレフィックス配下もここを通るが、ゲートは決して401/403を返さない。
// プロバイダー障害時もリクエストを通す（フェイルオープン）。真正の認可判定は
// 各ハンドラーとadminauth.Serviceが行う（そちらはフェイルクローズ）。
// ゲートの判断を権威として扱ってはならない。
type SessionGate struct {
	resolver SessionResolver
	cookies  identity.CookieConfig
	metrics  AuthFailureRecorder
}

// NewSessionGate はSessionGateを生成する。
func NewSessionGate(resolver SessionResolver, cookies identity.CookieConfig, metrics AuthFailureRecorder) *SessionGate {
	return &SessionGate{
		resolver: resolver,
		cookies:  cookies,
		metrics:  metrics,
	}
}

// resetPasswordPath は認証必須のパスワードリセット画面のパス。
const resetPasswordPath = "/reset-password"

// adminPathPrefix は管理画面のパスプレフィックス。ゲートでは助言的にのみ扱う。
const adminPathPrefix = "/admin"

// Middleware はセッションゲートのミドルウェア関数を返す。
func (g *SessionGate) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipGate(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			user := g.resolveUser(w, r)

			if r.URL.Path == resetPasswordPath && user == nil {
				// リセット画面だけは未認証で表示させない
				http.Redirect(w, r, "/learn", http.StatusTemporaryRedirect)
				return
			}

			if strings.HasPrefix(r.URL.Path, adminPathPrefix) && user == nil {
				// 通過させる。実際の拒否はハンドラー側の責務。
				slog.Debug("unauthenticated request to admin path passed through",
					slog.String("path", r.URL.Path),
				)
			}

			if user != nil {
				r = r.WithContext(ContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveUser はCookieトークンからユーザーを解決する。
// リフレッシュが発生した場合は新しいトークンペアをレスポンスCookieに書き込み、
// 下流のハンドラーが同じリフレッシュを繰り返さないようリクエストのCookie
// ヘッダーも書き換える。障害時はnilを返すのみで、リクエストは止めない。
func (g *SessionGate) resolveUser(w http.ResponseWriter, r *http.Request) *model.AuthUser {
	accessToken, refreshToken := identity.ReadTokens(r)
	if accessToken == "" && refreshToken == "" {
		return nil
	}

	user, refreshed, err := g.resolver.Resolve(r.Context(), accessToken, refreshToken)
	if err != nil {
		slog.Warn("session gate failed to resolve user, passing through",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		g.metrics.RecordAuthFailure("gate_resolve")
		return nil
	}

	if refreshed != nil {
		identity.WriteSessionCookies(w, refreshed, g.cookies)
		rewriteRequestCookies(r, map[string]string{
			identity.AccessTokenCookie:  refreshed.AccessToken,
			identity.RefreshTokenCookie: refreshed.RefreshToken,
		})
	}

	return user
}

// rewriteRequestCookies はリクエストのCookieヘッダーの指定Cookieを差し替える。
func rewriteRequestCookies(r *http.Request, replacements map[string]string) {
	cookies := r.Cookies()
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		value := c.Value
		if v, ok := replacements[c.Name]; ok {
			value = v
		}
		pairs = append(pairs, c.Name+"="+value)
	}
	r.Header.Set("Cookie", strings.Join(pairs, "; "))
}

// skipGate は静的アセットなどセッション解決が不要なパスを判定する。
func skipGate(path string) bool {
	switch path {
	case "/health", "/metrics", "/favicon.ico":
		return true
	}
	return strings.HasPrefix(path, "/static/")
}
