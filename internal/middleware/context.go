// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに解決済みユーザーを格納するためのキー。
var userContextKey = contextKey("auth_user")

// requestIDContextKey はリクエストIDを格納するためのキー。
var requestIDContextKey = contextKey("request_id")

// userHolderContextKey はロギングミドルウェアが設置するuserHolderのキー。
var userHolderContextKey = contextKey("auth_user_holder")

// userHolder は下流のミドルウェアで解決されたユーザーをロギングミドルウェアへ
// 伝搬するための入れ物。コンテキスト値は下流方向にしか流れないため、
// 上流が設置したポインタを下流が埋める形で共有する。
type userHolder struct {
	user *model.AuthUser
}

// contextWithUserHolder はコンテキストに空のuserHolderを設置する。
func contextWithUserHolder(ctx context.Context) (context.Context, *userHolder) {
	holder := &userHolder{}
	return context.WithValue(ctx, userHolderContextKey, holder), holder
}

// UserFromContext はリクエストコンテキストから解決済みユーザーを取得する。
// セッションゲートを通過したリクエストでのみ有効。未認証の場合はエラーを返す。
func UserFromContext(ctx context.Context) (*model.AuthUser, error) {
	user, ok := ctx.Value(userContextKey).(*model.AuthUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに解決済みユーザーを注入する。
// 上流のuserHolderがあればそこにも記録し、ロギングミドルウェアが
// 内側で解決されたユーザーをアクセスログに含められるようにする。
func ContextWithUser(ctx context.Context, user *model.AuthUser) context.Context {
	if holder, ok := ctx.Value(userHolderContextKey).(*userHolder); ok {
		holder.user = user
	}
	return context.WithValue(ctx, userContextKey, user)
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
// 存在しない場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// contextWithRequestID はコンテキストにリクエストIDを注入する。
func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
