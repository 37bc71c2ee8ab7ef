package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chainlearn/internal/model"
)

// PostgresCourseRepo はPostgreSQLを使用したコースリポジトリ。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

// List は全コースを作成日時昇順で返す。
func (r *PostgresCourseRepo) List(ctx context.Context) ([]*model.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, slug, lessons, status, created_at, updated_at
		 FROM courses
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := []*model.Course{}
	for rows.Next() {
		course := &model.Course{}
		if err := rows.Scan(
			&course.ID, &course.Title, &course.Description, &course.Slug,
			&course.Lessons, &course.Status, &course.CreatedAt, &course.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate course rows: %w", err)
	}

	return courses, nil
}

// Create はコースを作成する。ID（スラッグ）の重複は主キー制約で拒否される。
func (r *PostgresCourseRepo) Create(ctx context.Context, course *model.Course) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, description, slug, lessons, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		course.ID, course.Title, course.Description, course.Slug,
		course.Lessons, course.Status, course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
func (r *PostgresCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	course := &model.Course{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, slug, lessons, status, created_at, updated_at
		 FROM courses WHERE id = $1`,
		id,
	).Scan(
		&course.ID, &course.Title, &course.Description, &course.Slug,
		&course.Lessons, &course.Status, &course.CreatedAt, &course.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}

	return course, nil
}

// compile-time interface check
var _ CourseRepository = (*PostgresCourseRepo)(nil)
