package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// Resolver はリクエストのCookieトークンから現在のユーザーを解決する。
// アクセストークンが期限切れの場合はリフレッシュトークンで透過的に
// 新しいトークンペアを取得する。リフレッシュが起きた場合、新しいペアは
// 呼び出し側がレスポンスのCookieに反映しなければならない。
type Resolver struct {
	client Client
}

// NewResolver はResolverを生成する。
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve はトークンペアから現在のユーザーを解決する。
// 戻り値のrefreshedはリフレッシュが発生した場合のみ非nil。
// 未認証（トークンなし・無効・リフレッシュ不能）は正常系の否定結果として
// (nil, nil, nil) を返し、エラーはプロバイダー障害の場合のみ返す。
func (r *Resolver) Resolve(ctx context.Context, accessToken, refreshToken string) (user *model.AuthUser, refreshed *model.Session, err error) {
	if accessToken != "" {
		user, err := r.client.GetUser(ctx, accessToken)
		if err == nil {
			return user, nil, nil
		}
		if !errors.Is(err, ErrInvalidToken) {
			return nil, nil, fmt.Errorf("failed to get user: %w", err)
		}
		// アクセストークン失効。リフレッシュにフォールバックする。
	}

	if refreshToken == "" {
		return nil, nil, nil
	}

	session, err := r.client.RefreshSession(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			// リフレッシュトークンも失効。再ログインが必要なだけでエラーではない。
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	if session.User != nil {
		return session.User, session, nil
	}

	// プロバイダーがトークンレスポンスにユーザーを含めない場合は追加で取得する
	user, err = r.client.GetUser(ctx, session.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user after refresh: %w", err)
	}
	return user, session, nil
}
