package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/model"
)

// --- 共有モック定義 ---

// mockResolver はSessionResolverInterfaceの関数フィールド実装。
type mockResolver struct {
	resolveFn func(ctx context.Context, accessToken, refreshToken string) (*model.AuthUser, *model.Session, error)
}

func (m *mockResolver) Resolve(ctx context.Context, accessToken, refreshToken string) (*model.AuthUser, *model.Session, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, accessToken, refreshToken)
	}
	return nil, nil, nil
}

// mockAdmins はAdminAuthorizerの固定集合実装。
type mockAdmins struct {
	adminIDs map[string]bool
}

func (m *mockAdmins) IsAdmin(ctx context.Context, userID string) bool {
	return m.adminIDs[userID]
}

// sessionsForUser は指定ユーザーに解決されるSessionsを生成する。
// userがnilの場合は常に未認証となる。
func sessionsForUser(user *model.AuthUser) *Sessions {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, accessToken, refreshToken string) (*model.AuthUser, *model.Session, error) {
			if accessToken == "" {
				return nil, nil, nil
			}
			return user, nil, nil
		},
	}
	return NewSessions(resolver, identity.CookieConfig{})
}

// authedRequest はセッションCookie付きのテストリクエストを生成する。
func authedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: identity.AccessTokenCookie, Value: "access-token"})
	return req
}
