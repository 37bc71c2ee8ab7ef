package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/chainlearn/internal/model"
)

// --- モック定義 ---

type mockClient struct {
	getUserFn        func(ctx context.Context, accessToken string) (*model.AuthUser, error)
	refreshSessionFn func(ctx context.Context, refreshToken string) (*model.Session, error)
}

func (m *mockClient) GetUser(ctx context.Context, accessToken string) (*model.AuthUser, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, accessToken)
	}
	return nil, ErrInvalidToken
}

func (m *mockClient) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	if m.refreshSessionFn != nil {
		return m.refreshSessionFn(ctx, refreshToken)
	}
	return nil, ErrInvalidToken
}

func (m *mockClient) ExchangeCode(ctx context.Context, code string) (*model.Session, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) SignOut(ctx context.Context, accessToken string) error { return nil }

func (m *mockClient) AdminGetUser(ctx context.Context, userID string) (*model.AuthUser, error) {
	return nil, ErrUserNotFound
}

func (m *mockClient) AdminListUsers(ctx context.Context, page, perPage int) ([]*model.AuthUser, error) {
	return nil, nil
}

func (m *mockClient) GenerateRecoveryLink(ctx context.Context, email string) error { return nil }

// --- テスト ---

func TestResolve_ValidAccessToken_NoRefresh(t *testing.T) {
	client := &mockClient{
		getUserFn: func(ctx context.Context, accessToken string) (*model.AuthUser, error) {
			return &model.AuthUser{ID: "user-1"}, nil
		},
	}
	resolver := NewResolver(client)

	user, refreshed, err := resolver.Resolve(context.Background(), "valid", "refresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("user = %v, want user-1", user)
	}
	if refreshed != nil {
		t.Errorf("refreshed = %v, want nil", refreshed)
	}
}

func TestResolve_ExpiredAccessToken_FallsBackToRefresh(t *testing.T) {
	client := &mockClient{
		getUserFn: func(ctx context.Context, accessToken string) (*model.AuthUser, error) {
			if accessToken == "expired" {
				return nil, ErrInvalidToken
			}
			return &model.AuthUser{ID: "user-1"}, nil
		},
		refreshSessionFn: func(ctx context.Context, refreshToken string) (*model.Session, error) {
			return &model.Session{
				AccessToken:  "new-access",
				RefreshToken: "new-refresh",
				User:         &model.AuthUser{ID: "user-1"},
			}, nil
		},
	}
	resolver := NewResolver(client)

	user, refreshed, err := resolver.Resolve(context.Background(), "expired", "refresh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("user = %v, want user-1", user)
	}
	if refreshed == nil || refreshed.AccessToken != "new-access" {
		t.Errorf("refreshed = %v, want new session", refreshed)
	}
}

func TestResolve_RefreshResponseWithoutUser_FetchesUser(t *testing.T) {
	getUserCalls := 0
	client := &mockClient{
		getUserFn: func(ctx context.Context, accessToken string) (*model.AuthUser, error) {
			getUserCalls++
			if accessToken == "new-access" {
				return &model.AuthUser{ID: "user-1"}, nil
			}
			return nil, ErrInvalidToken
		},
		refreshSessionFn: func(ctx context.Context, refreshToken string) (*model.Session, error) {
			return &model.Session{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
		},
	}
	resolver := NewResolver(client)

	user, refreshed, err := resolver.Resolve(context.Background(), "expired", "refresh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("user = %v, want user-1", user)
	}
	if refreshed == nil {
		t.Error("refreshed session should be returned")
	}
	if getUserCalls != 2 {
		t.Errorf("GetUser calls = %d, want 2", getUserCalls)
	}
}

func TestResolve_BothTokensInvalid_ReturnsNilWithoutError(t *testing.T) {
	resolver := NewResolver(&mockClient{})

	user, refreshed, err := resolver.Resolve(context.Background(), "expired", "revoked")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil || refreshed != nil {
		t.Errorf("(user, refreshed) = (%v, %v), want (nil, nil)", user, refreshed)
	}
}

func TestResolve_NoTokens_ReturnsNilWithoutError(t *testing.T) {
	resolver := NewResolver(&mockClient{})

	user, refreshed, err := resolver.Resolve(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil || refreshed != nil {
		t.Errorf("(user, refreshed) = (%v, %v), want (nil, nil)", user, refreshed)
	}
}

func TestResolve_ProviderFailure_ReturnsError(t *testing.T) {
	client := &mockClient{
		getUserFn: func(ctx context.Context, accessToken string) (*model.AuthUser, error) {
			return nil, errors.New("provider unavailable")
		},
	}
	resolver := NewResolver(client)

	_, _, err := resolver.Resolve(context.Background(), "token", "refresh")
	if err == nil {
		t.Fatal("expected error for provider failure")
	}
}
