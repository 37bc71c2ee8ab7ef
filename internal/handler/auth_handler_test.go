package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/model"
)

// --- モック定義 ---

type mockAuthClient struct {
	exchangeCodeFn func(ctx context.Context, code string) (*model.Session, error)
	signOutFn      func(ctx context.Context, accessToken string) error
}

func (m *mockAuthClient) ExchangeCode(ctx context.Context, code string) (*model.Session, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, errors.New("no exchange configured")
}

func (m *mockAuthClient) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

// --- テスト ---

func TestCallback_ValidCode_SetsCookiesAndRedirectsToLearn(t *testing.T) {
	client := &mockAuthClient{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "auth-code-1" {
				t.Errorf("code = %q, want auth-code-1", code)
			}
			return &model.Session{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
		},
	}
	h := NewAuthHandler(client, identity.CookieConfig{MaxAge: 3600})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code-1", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "/learn" {
		t.Errorf("Location = %q, want /learn", loc)
	}

	cookies := map[string]string{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}
	if cookies[identity.AccessTokenCookie] != "access-1" {
		t.Errorf("access cookie = %q, want access-1", cookies[identity.AccessTokenCookie])
	}
	if cookies[identity.RefreshTokenCookie] != "refresh-1" {
		t.Errorf("refresh cookie = %q, want refresh-1", cookies[identity.RefreshTokenCookie])
	}
}

func TestCallback_ExchangeFailure_RedirectsWithErrorQuery(t *testing.T) {
	client := &mockAuthClient{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.Session, error) {
			return nil, errors.New("invalid code")
		},
	}
	h := NewAuthHandler(client, identity.CookieConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=bad-code", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if loc := resp.Header.Get("Location"); loc != "/?error=auth_failed" {
		t.Errorf("Location = %q, want /?error=auth_failed", loc)
	}
	if len(resp.Cookies()) != 0 {
		t.Error("no session cookies should be set on failure")
	}
}

func TestCallback_MissingCode_RedirectsWithErrorQuery(t *testing.T) {
	h := NewAuthHandler(&mockAuthClient{}, identity.CookieConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if loc := w.Result().Header.Get("Location"); loc != "/?error=auth_failed" {
		t.Errorf("Location = %q, want /?error=auth_failed", loc)
	}
}

func TestForceLogout_ClearsSessionAndPrefixedCookies(t *testing.T) {
	var signedOutToken string
	client := &mockAuthClient{
		signOutFn: func(ctx context.Context, accessToken string) error {
			signedOutToken = accessToken
			return nil
		},
	}
	h := NewAuthHandler(client, identity.CookieConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/force-logout", nil)
	req.AddCookie(&http.Cookie{Name: identity.AccessTokenCookie, Value: "access-1"})
	req.AddCookie(&http.Cookie{Name: identity.RefreshTokenCookie, Value: "refresh-1"})
	req.AddCookie(&http.Cookie{Name: "sb-provider-token", Value: "p1"})
	w := httptest.NewRecorder()

	h.ForceLogout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if signedOutToken != "access-1" {
		t.Errorf("signed out token = %q, want access-1", signedOutToken)
	}

	cleared := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	for _, name := range []string{identity.AccessTokenCookie, identity.RefreshTokenCookie, "sb-provider-token"} {
		if !cleared[name] {
			t.Errorf("cookie %s should be expired", name)
		}
	}
}

func TestForceLogout_ProviderSignOutFails_StillClearsCookies(t *testing.T) {
	client := &mockAuthClient{
		signOutFn: func(ctx context.Context, accessToken string) error {
			return errors.New("provider unavailable")
		},
	}
	h := NewAuthHandler(client, identity.CookieConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/force-logout", nil)
	req.AddCookie(&http.Cookie{Name: identity.AccessTokenCookie, Value: "access-1"})
	w := httptest.NewRecorder()

	h.ForceLogout(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Error("cookies should still be cleared when provider sign-out fails")
	}
}
