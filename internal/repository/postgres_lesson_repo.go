package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// PostgresLessonRepo はPostgreSQLを使用したレッスンリポジトリ。
type PostgresLessonRepo struct {
	db *sql.DB
}

// NewPostgresLessonRepo はPostgresLessonRepoを生成する。
func NewPostgresLessonRepo(db *sql.DB) *PostgresLessonRepo {
	return &PostgresLessonRepo{db: db}
}

// List はレッスンをorder昇順で返す。
// courseIDが指定された場合はそのコースのレッスンのみを返す。
func (r *PostgresLessonRepo) List(ctx context.Context, courseID string) ([]*model.Lesson, error) {
	query := `SELECT id, course_id, title, description, content, status, "order", created_at, updated_at
	          FROM lessons`
	args := []any{}

	if courseID != "" {
		query += ` WHERE course_id = $1`
		args = append(args, courseID)
	}

	query += ` ORDER BY "order" ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []*model.Lesson{}
	for rows.Next() {
		lesson := &model.Lesson{}
		if err := rows.Scan(
			&lesson.ID, &lesson.CourseID, &lesson.Title, &lesson.Description,
			&lesson.Content, &lesson.Status, &lesson.Order, &lesson.CreatedAt, &lesson.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lesson row: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lesson rows: %w", err)
	}

	return lessons, nil
}

// CountByCourse は指定コースのレッスン数を返す。
func (r *PostgresLessonRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons WHERE course_id = $1`,
		courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

// Create はレッスンを新規作成する。
func (r *PostgresLessonRepo) Create(ctx context.Context, lesson *model.Lesson) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lessons (id, course_id, title, description, content, status, "order", created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Description,
		lesson.Content, lesson.Status, lesson.Order, lesson.CreatedAt, lesson.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lesson: %w", err)
	}
	return nil
}

// FindByID は指定IDのレッスンを取得する。見つからない場合はnilを返す。
func (r *PostgresLessonRepo) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	lesson := &model.Lesson{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, description, content, status, "order", created_at, updated_at
		 FROM lessons WHERE id = $1`,
		id,
	).Scan(
		&lesson.ID, &lesson.CourseID, &lesson.Title, &lesson.Description,
		&lesson.Content, &lesson.Status, &lesson.Order, &lesson.CreatedAt, &lesson.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}

	return lesson, nil
}

// Update は指定IDのレッスンを全フィールド上書きする。
// 存在しない場合はmodel.ErrCodeLessonNotFoundのAPIErrorを返す。
func (r *PostgresLessonRepo) Update(ctx context.Context, lesson *model.Lesson) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE lessons
		 SET course_id = $2, title = $3, description = $4, content = $5,
		     status = $6, "order" = $7, created_at = $8, updated_at = $9
		 WHERE id = $1`,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Description,
		lesson.Content, lesson.Status, lesson.Order, lesson.CreatedAt, lesson.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewLessonNotFoundError()
	}
	return nil
}

// Delete は指定IDのレッスンを削除する。
// 存在しない場合はmodel.ErrCodeLessonNotFoundのAPIErrorを返す。
func (r *PostgresLessonRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM lessons WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewLessonNotFoundError()
	}
	return nil
}

// compile-time interface check
var _ LessonRepository = (*PostgresLessonRepo)(nil)
