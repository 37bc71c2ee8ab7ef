package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// PostgresAdminUserRepo はPostgreSQLを使用した管理者集合リポジトリ。
// admin_usersテーブルは行レベルセキュリティで全アクセスを拒否しているため、
// 必ず特権接続経由でアクセスすること。
type PostgresAdminUserRepo struct {
	db *sql.DB
}

// NewPostgresAdminUserRepo はPostgresAdminUserRepoを生成する。
func NewPostgresAdminUserRepo(db *sql.DB) *PostgresAdminUserRepo {
	return &PostgresAdminUserRepo{db: db}
}

// FindByUserID は指定ユーザーIDの管理者エントリを取得する。
// 見つからない場合はnilを返す。「行なし」は正常系の否定結果であり、
// クエリ障害とは区別される。
func (r *PostgresAdminUserRepo) FindByUserID(ctx context.Context, userID string) (*model.AdminUser, error) {
	admin := &model.AdminUser{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, created_at FROM admin_users WHERE user_id = $1`,
		userID,
	).Scan(&admin.UserID, &admin.Email, &admin.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin user: %w", err)
	}

	return admin, nil
}

// compile-time interface check
var _ AdminUserRepository = (*PostgresAdminUserRepo)(nil)
