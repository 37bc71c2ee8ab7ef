package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/chainlearn/internal/model"
)

func TestReadTokens_MissingCookies_ReturnsEmptyStrings(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	access, refresh := ReadTokens(req)
	if access != "" || refresh != "" {
		t.Errorf("tokens = (%q, %q), want empty", access, refresh)
	}
}

func TestWriteSessionCookies_SetsHTTPOnlyPair(t *testing.T) {
	w := httptest.NewRecorder()
	cfg := CookieConfig{Secure: true, MaxAge: 86400}

	WriteSessionCookies(w, &model.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}, cfg)

	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("len(cookies) = %d, want 2", len(cookies))
	}

	for _, c := range cookies {
		if !c.HttpOnly {
			t.Errorf("cookie %s should be HttpOnly", c.Name)
		}
		if !c.Secure {
			t.Errorf("cookie %s should be Secure", c.Name)
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Errorf("cookie %s SameSite = %v, want Lax", c.Name, c.SameSite)
		}
		if c.MaxAge != 86400 {
			t.Errorf("cookie %s MaxAge = %d, want 86400", c.Name, c.MaxAge)
		}
	}
}

func TestWriteSessionCookies_RoundTripsThroughReadTokens(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSessionCookies(w, &model.Session{AccessToken: "a1", RefreshToken: "r1"}, CookieConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}

	access, refresh := ReadTokens(req)
	if access != "a1" || refresh != "r1" {
		t.Errorf("tokens = (%q, %q), want (a1, r1)", access, refresh)
	}
}

func TestClearSessionCookies_ExpiresKnownAndPrefixedCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a1"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "r1"})
	req.AddCookie(&http.Cookie{Name: "sb-provider-token", Value: "p1"})
	req.AddCookie(&http.Cookie{Name: "unrelated", Value: "keep"})

	w := httptest.NewRecorder()
	ClearSessionCookies(w, req, CookieConfig{})

	cleared := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s MaxAge = %d, want negative (expired)", c.Name, c.MaxAge)
		}
		cleared[c.Name] = true
	}

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, "sb-provider-token"} {
		if !cleared[name] {
			t.Errorf("cookie %s should be cleared", name)
		}
	}
	if cleared["unrelated"] {
		t.Error("non-provider cookie should not be cleared")
	}
}
