package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
)

// プロバイダー規約のセッションCookie名。
const (
	// AccessTokenCookie はアクセストークンを保持するCookie名。
	AccessTokenCookie = "sb-access-token"
	// RefreshTokenCookie はリフレッシュトークンを保持するCookie名。
	RefreshTokenCookie = "sb-refresh-token"

	// cookiePrefix はプロバイダーが発行するCookieの共通プレフィックス。
	// 強制ログアウト時はこのプレフィックスを持つCookieをすべてクリアする。
	cookiePrefix = "sb-"
)

// CookieConfig はセッションCookieの属性設定。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge int // 秒
}

// ReadTokens はリクエストのCookieからトークンペアを読み取る。
// 存在しないCookieは空文字列として返す。
func ReadTokens(r *http.Request) (accessToken, refreshToken string) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		accessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = c.Value
	}
	return accessToken, refreshToken
}

// WriteSessionCookies はセッションのトークンペアをHTTP Only Cookieとして書き込む。
func WriteSessionCookies(w http.ResponseWriter, session *model.Session, cfg CookieConfig) {
	http.SetCookie(w, sessionCookie(AccessTokenCookie, session.AccessToken, cfg))
	http.SetCookie(w, sessionCookie(RefreshTokenCookie, session.RefreshToken, cfg))
}

// ClearSessionCookies はセッション関連のCookieをすべて失効させる。
// 既知の2つに加え、リクエストに含まれるプロバイダープレフィックス付きの
// Cookieも対象とする。
func ClearSessionCookies(w http.ResponseWriter, r *http.Request, cfg CookieConfig) {
	cleared := map[string]bool{}

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, expiredCookie(name, cfg))
		cleared[name] = true
	}

	for _, c := range r.Cookies() {
		if cleared[c.Name] || !strings.HasPrefix(c.Name, cookiePrefix) {
			continue
		}
		http.SetCookie(w, expiredCookie(c.Name, cfg))
		cleared[c.Name] = true
	}
}

func sessionCookie(name, value string, cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredCookie(name string, cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
