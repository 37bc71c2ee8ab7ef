package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// PostgresProgressRepo はPostgreSQLを使用した進捗リポジトリ。
type PostgresProgressRepo struct {
	db *sql.DB
}

// NewPostgresProgressRepo はPostgresProgressRepoを生成する。
func NewPostgresProgressRepo(db *sql.DB) *PostgresProgressRepo {
	return &PostgresProgressRepo{db: db}
}

// Upsert はuser_idをコンフリクトターゲットとして進捗を冪等に書き込む。
func (r *PostgresProgressRepo) Upsert(ctx context.Context, progress *model.UserProgress) error {
	data, err := json.Marshal(progress.ProgressData)
	if err != nil {
		return fmt.Errorf("failed to encode progress data: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, progress_data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET progress_data = EXCLUDED.progress_data, updated_at = EXCLUDED.updated_at`,
		progress.UserID, data, progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// FindByUserID は指定ユーザーの進捗行を取得する。行が存在しない場合はnilを返す。
func (r *PostgresProgressRepo) FindByUserID(ctx context.Context, userID string) (*model.UserProgress, error) {
	progress := &model.UserProgress{UserID: userID}
	var data []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT progress_data, updated_at FROM user_progress WHERE user_id = $1`,
		userID,
	).Scan(&data, &progress.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find progress: %w", err)
	}

	if err := json.Unmarshal(data, &progress.ProgressData); err != nil {
		return nil, fmt.Errorf("failed to decode progress data: %w", err)
	}

	return progress, nil
}

// ListAll は全ユーザーの進捗行を返す。
func (r *PostgresProgressRepo) ListAll(ctx context.Context) ([]*model.UserProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, progress_data, updated_at FROM user_progress`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var result []*model.UserProgress
	for rows.Next() {
		progress := &model.UserProgress{}
		var data []byte
		if err := rows.Scan(&progress.UserID, &data, &progress.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if err := json.Unmarshal(data, &progress.ProgressData); err != nil {
			return nil, fmt.Errorf("failed to decode progress data: %w", err)
		}
		result = append(result, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress rows: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ ProgressRepository = (*PostgresProgressRepo)(nil)
