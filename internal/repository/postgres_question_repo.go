package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/hitoshi/chainlearn/internal/model"
)

// undefinedTableCode はPostgreSQLのundefined_tableエラーコード。
// 練習問題テーブルが未作成の環境では空の結果として扱う。
const undefinedTableCode = "42P01"

// questionColumns はSELECT句の列リスト。scanQuestionの順序と一致させること。
const questionColumns = `id, lesson_id, title, type, question, options, correct_answer,
	                 solution, math_explanation, hint, difficulty, tags, status, created_at, updated_at`

// PostgresQuestionRepo はPostgreSQLを使用した練習問題リポジトリ。
type PostgresQuestionRepo struct {
	db *sql.DB
}

// NewPostgresQuestionRepo はPostgresQuestionRepoを生成する。
func NewPostgresQuestionRepo(db *sql.DB) *PostgresQuestionRepo {
	return &PostgresQuestionRepo{db: db}
}

// ListPublished は公開済みの問題をcreated_at昇順で返す。
// バッキングテーブルが存在しない場合は空スライスを返す。
func (r *PostgresQuestionRepo) ListPublished(ctx context.Context, lessonID, courseID string) ([]*model.Question, error) {
	query := `SELECT ` + questionColumns + `
	          FROM practice_questions
	          WHERE status = 'published'`
	args := []any{}

	switch {
	case lessonID != "":
		query += ` AND lesson_id = $1`
		args = append(args, lessonID)
	case courseID != "":
		query += ` AND lesson_id IN (SELECT id FROM lessons WHERE course_id = $1)`
		args = append(args, courseID)
	}

	query += ` ORDER BY created_at ASC`

	return r.queryQuestions(ctx, query, args...)
}

// List は全ステータスの問題をcreated_at降順で返す。
// statusが指定された場合はそのステータスの問題のみを返す。
func (r *PostgresQuestionRepo) List(ctx context.Context, status string) ([]*model.Question, error) {
	query := `SELECT ` + questionColumns + `
	          FROM practice_questions`
	args := []any{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC`

	return r.queryQuestions(ctx, query, args...)
}

// FindByID は指定IDの問題を取得する。見つからない場合はnilを返す。
func (r *PostgresQuestionRepo) FindByID(ctx context.Context, id string) (*model.Question, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM practice_questions WHERE id = $1`,
		id,
	)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return q, nil
}

// Insert は問題を新規作成する。
func (r *PostgresQuestionRepo) Insert(ctx context.Context, question *model.Question) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO practice_questions
		   (id, lesson_id, title, type, question, options, correct_answer,
		    solution, math_explanation, hint, difficulty, tags, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		questionArgs(question)...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// Update は指定IDの問題を全フィールド上書きする。
// 存在しない場合はmodel.ErrCodeQuestionNotFoundのAPIErrorを返す。
func (r *PostgresQuestionRepo) Update(ctx context.Context, question *model.Question) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE practice_questions
		 SET lesson_id = $2, title = $3, type = $4, question = $5, options = $6,
		     correct_answer = $7, solution = $8, math_explanation = $9, hint = $10,
		     difficulty = $11, tags = $12, status = $13, created_at = $14, updated_at = $15
		 WHERE id = $1`,
		questionArgs(question)...,
	)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewQuestionNotFoundError()
	}
	return nil
}

// Upsert はIDをコンフリクトターゲットとして問題を書き込む。
func (r *PostgresQuestionRepo) Upsert(ctx context.Context, question *model.Question) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO practice_questions
		   (id, lesson_id, title, type, question, options, correct_answer,
		    solution, math_explanation, hint, difficulty, tags, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
		   lesson_id = EXCLUDED.lesson_id,
		   title = EXCLUDED.title,
		   type = EXCLUDED.type,
		   question = EXCLUDED.question,
		   options = EXCLUDED.options,
		   correct_answer = EXCLUDED.correct_answer,
		   solution = EXCLUDED.solution,
		   math_explanation = EXCLUDED.math_explanation,
		   hint = EXCLUDED.hint,
		   difficulty = EXCLUDED.difficulty,
		   tags = EXCLUDED.tags,
		   status = EXCLUDED.status,
		   updated_at = EXCLUDED.updated_at`,
		questionArgs(question)...,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert question: %w", err)
	}
	return nil
}

// Delete は指定IDの問題を削除する。存在しない場合も成功として扱う。
func (r *PostgresQuestionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM practice_questions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// queryQuestions はクエリを実行して問題スライスを返す。
// バッキングテーブルが存在しない場合は空スライスを返す。
func (r *PostgresQuestionRepo) queryQuestions(ctx context.Context, query string, args ...any) ([]*model.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isUndefinedTable(err) {
			slog.Warn("practice questions table does not exist yet, returning empty result")
			return []*model.Question{}, nil
		}
		return nil, fmt.Errorf("failed to list practice questions: %w", err)
	}
	defer rows.Close()

	questions := []*model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question rows: %w", err)
	}

	return questions, nil
}

// rowScanner は*sql.Rowと*sql.Rowsを同一視するためのインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanQuestion は1行をQuestionに読み込む。列順はquestionColumnsと一致させること。
func scanQuestion(row rowScanner) (*model.Question, error) {
	q := &model.Question{}
	var options, correctAnswer, mathExplanation, hint, difficulty sql.NullString
	if err := row.Scan(
		&q.ID, &q.LessonID, &q.Title, &q.Type, &q.Question, &options, &correctAnswer,
		&q.Solution, &mathExplanation, &hint, &difficulty, pq.Array(&q.Tags),
		&q.Status, &q.CreatedAt, &q.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if options.Valid {
		q.Options = []byte(options.String)
	}
	q.CorrectAnswer = correctAnswer.String
	q.MathExplanation = mathExplanation.String
	q.Hint = hint.String
	q.Difficulty = difficulty.String
	if q.Tags == nil {
		q.Tags = []string{}
	}
	return q, nil
}

// questionArgs はINSERT/UPDATEのプレースホルダ引数を組み立てる。
func questionArgs(q *model.Question) []any {
	var options any
	if len(q.Options) > 0 {
		options = []byte(q.Options)
	}
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		q.ID, q.LessonID, q.Title, q.Type, q.Question, options,
		nullIfEmpty(q.CorrectAnswer), q.Solution, nullIfEmpty(q.MathExplanation),
		nullIfEmpty(q.Hint), nullIfEmpty(q.Difficulty), pq.Array(tags),
		q.Status, q.CreatedAt, q.UpdatedAt,
	}
}

// nullIfEmpty は空文字列をNULLとして書き込むための変換。
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUndefinedTable はエラーがundefined_tableかどうか判定する。
func isUndefinedTable(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == undefinedTableCode
	}
	return false
}

// compile-time interface check
var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
