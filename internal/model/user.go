// Package model はドメインモデルを定義する。
package model

import "time"

// AuthUser はアイデンティティプロバイダーが管理するユーザーを表す。
// アプリケーションはこのレコードを所有せず、読み取りのみを行う。
type AuthUser struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// AdminUser は管理者集合のエントリを表す。
// admin_usersテーブルに行が存在すること自体が管理者権限の唯一のシグナルであり、
// セッションに埋め込まれたロールやクレームは一切参照しない。
// 行の作成・削除はデータベース管理者が直接行い、アプリケーションは読み取り専用。
type AdminUser struct {
	UserID    string
	Email     string
	CreatedAt time.Time
}

// Session はプロバイダーが発行したトークンペアを表す。
// アプリケーションはこれを直接変更せず、リフレッシュと破棄をプロバイダーに依頼する。
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // アクセストークンの有効期間（秒）
	User         *AuthUser
}
