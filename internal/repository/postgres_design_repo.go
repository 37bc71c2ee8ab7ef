package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// PostgresDesignRepo はPostgreSQLを使用したデザインリポジトリ。
type PostgresDesignRepo struct {
	db *sql.DB
}

// NewPostgresDesignRepo はPostgresDesignRepoを生成する。
func NewPostgresDesignRepo(db *sql.DB) *PostgresDesignRepo {
	return &PostgresDesignRepo{db: db}
}

// List は全デザインを保存日時降順で返す。
func (r *PostgresDesignRepo) List(ctx context.Context) ([]*model.Design, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, chain_data, saved_at FROM designs ORDER BY saved_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	defer rows.Close()

	designs := []*model.Design{}
	for rows.Next() {
		design := &model.Design{}
		var chain []byte
		if err := rows.Scan(&design.ID, &design.Name, &chain, &design.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan design row: %w", err)
		}
		design.Chain = chain
		designs = append(designs, design)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate design rows: %w", err)
	}

	return designs, nil
}

// Upsert はデザインをIDをコンフリクトターゲットとして書き込む。
func (r *PostgresDesignRepo) Upsert(ctx context.Context, design *model.Design) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO designs (id, name, chain_data, saved_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id)
		 DO UPDATE SET name = EXCLUDED.name, chain_data = EXCLUDED.chain_data, saved_at = EXCLUDED.saved_at`,
		design.ID, design.Name, []byte(design.Chain), design.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert design: %w", err)
	}
	return nil
}

// Delete は指定IDのデザインを削除する。
// 存在しない場合はデザイン未検出のAPIErrorを返す。
func (r *PostgresDesignRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM designs WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete design: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewDesignNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ DesignRepository = (*PostgresDesignRepo)(nil)
