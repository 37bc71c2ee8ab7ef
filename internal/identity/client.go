// Package identity はホスト型アイデンティティプロバイダーのクライアントを提供する。
// セッションの発行・検証・リフレッシュ・破棄はすべてプロバイダーが所有し、
// アプリケーションはこのクライアント経由で依頼するのみ。
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
)

// ErrInvalidToken はアクセストークンまたはリフレッシュトークンが
// 無効・期限切れであることを示す。未認証として扱う正常系の否定結果。
var ErrInvalidToken = errors.New("identity: invalid or expired token")

// ErrUserNotFound は管理APIで指定されたユーザーが存在しないことを示す。
var ErrUserNotFound = errors.New("identity: user not found")

// Client はアイデンティティプロバイダーへの操作のインターフェース。
type Client interface {
	// GetUser はアクセストークンから現在のユーザーを取得する。
	// トークンが無効な場合はErrInvalidTokenを返す。
	GetUser(ctx context.Context, accessToken string) (*model.AuthUser, error)
	// RefreshSession はリフレッシュトークンで新しいトークンペアを取得する。
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
	// ExchangeCode は認可コードをセッションに交換する。
	ExchangeCode(ctx context.Context, code string) (*model.Session, error)
	// SignOut はセッションをプロバイダー側で無効化する。
	SignOut(ctx context.Context, accessToken string) error

	// AdminGetUser はサービスロールキーで任意のユーザーを取得する。
	// 存在しない場合はErrUserNotFoundを返す。
	AdminGetUser(ctx context.Context, userID string) (*model.AuthUser, error)
	// AdminListUsers はサービスロールキーでユーザー一覧をページ取得する。
	AdminListUsers(ctx context.Context, page, perPage int) ([]*model.AuthUser, error)
	// GenerateRecoveryLink は指定メールアドレス宛のパスワード回復リンクを
	// 生成・送信するようプロバイダーに依頼する。
	GenerateRecoveryLink(ctx context.Context, email string) error
}

// HTTPClientConfig はHTTPClientの設定。
type HTTPClientConfig struct {
	BaseURL    string // プロバイダーのベースURL（例: https://xyz.example.co）
	AnonKey    string // ユーザースコープ呼び出し用の匿名キー
	ServiceKey string // 管理API呼び出し用のサービスロールキー
	Timeout    time.Duration

	// テスト用にオーバーライド可能なHTTPクライアント
	HTTPClient *http.Client
}

// HTTPClient はGoTrue互換のREST APIを話すClient実装。
type HTTPClient struct {
	config HTTPClientConfig
	client *http.Client
}

// NewHTTPClient はHTTPClientを生成する。
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		config: config,
		client: client,
	}
}

// userPayload はプロバイダーのユーザーレスポンス。
type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *userPayload) toModel() *model.AuthUser {
	return &model.AuthUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.UserMetadata.Name,
		CreatedAt: u.CreatedAt,
	}
}

// tokenPayload はトークンエンドポイントのレスポンス。
type tokenPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         *userPayload `json:"user"`
}

func (t *tokenPayload) toSession() *model.Session {
	session := &model.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.User != nil {
		session.User = t.User.toModel()
	}
	return session
}

// GetUser はアクセストークンから現在のユーザーを取得する。
func (c *HTTPClient) GetUser(ctx context.Context, accessToken string) (*model.AuthUser, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	body, status, err := c.do(ctx, http.MethodGet, "/auth/v1/user", c.config.AnonKey, accessToken, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get user failed with status %d", status)
	}

	var user userPayload
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in response")
	}

	return user.toModel(), nil
}

// RefreshSession はリフレッシュトークンで新しいトークンペアを取得する。
func (c *HTTPClient) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	payload := map[string]string{"refresh_token": refreshToken}
	return c.requestToken(ctx, "refresh_token", payload)
}

// ExchangeCode は認可コードをセッションに交換する。
func (c *HTTPClient) ExchangeCode(ctx context.Context, code string) (*model.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}

	payload := map[string]string{"auth_code": code}
	return c.requestToken(ctx, "authorization_code", payload)
}

// requestToken はトークンエンドポイントを呼び出しセッションを取得する。
func (c *HTTPClient) requestToken(ctx context.Context, grantType string, payload map[string]string) (*model.Session, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	path := "/auth/v1/token?grant_type=" + grantType
	body, status, err := c.do(ctx, http.MethodPost, path, c.config.AnonKey, "", strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusBadRequest {
		return nil, ErrInvalidToken
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("token request failed with status %d", status)
	}

	var token tokenPayload
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return token.toSession(), nil
}

// SignOut はセッションをプロバイダー側で無効化する。
func (c *HTTPClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	_, status, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", c.config.AnonKey, accessToken, nil)
	if err != nil {
		return err
	}
	// トークンがすでに無効な場合もログアウト成功として扱う
	if status != http.StatusNoContent && status != http.StatusOK && status != http.StatusUnauthorized {
		return fmt.Errorf("sign out failed with status %d", status)
	}
	return nil
}

// AdminGetUser はサービスロールキーで任意のユーザーを取得する。
func (c *HTTPClient) AdminGetUser(ctx context.Context, userID string) (*model.AuthUser, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+userID, c.config.ServiceKey, c.config.ServiceKey, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("admin get user failed with status %d", status)
	}

	var user userPayload
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse admin user response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrUserNotFound
	}

	return user.toModel(), nil
}

// adminUsersPayload はユーザー一覧エンドポイントのレスポンス。
type adminUsersPayload struct {
	Users []*userPayload `json:"users"`
}

// AdminListUsers はサービスロールキーでユーザー一覧をページ取得する。
func (c *HTTPClient) AdminListUsers(ctx context.Context, page, perPage int) ([]*model.AuthUser, error) {
	path := "/auth/v1/admin/users?page=" + strconv.Itoa(page) + "&per_page=" + strconv.Itoa(perPage)
	body, status, err := c.do(ctx, http.MethodGet, path, c.config.ServiceKey, c.config.ServiceKey, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("admin list users failed with status %d", status)
	}

	var payload adminUsersPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse admin users response: %w", err)
	}

	users := make([]*model.AuthUser, 0, len(payload.Users))
	for _, u := range payload.Users {
		users = append(users, u.toModel())
	}
	return users, nil
}

// GenerateRecoveryLink はパスワード回復リンクの生成・送信を依頼する。
func (c *HTTPClient) GenerateRecoveryLink(ctx context.Context, email string) error {
	payload := map[string]string{
		"type":  "recovery",
		"email": email,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode recovery request: %w", err)
	}

	_, status, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/generate_link", c.config.ServiceKey, c.config.ServiceKey, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("generate recovery link failed with status %d", status)
	}
	return nil
}

// do はプロバイダーAPIへのHTTPリクエストを実行し、ボディとステータスを返す。
// apikeyヘッダーとBearerトークンを付与する。
func (c *HTTPClient) do(ctx context.Context, method, path, apiKey, bearer string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// compile-time interface check
var _ Client = (*HTTPClient)(nil)
