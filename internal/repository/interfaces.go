// Package repository はデータ永続化のインターフェースを定義する。
//
// Postgres実装はすべてサービスロールDSNで開いた特権接続を使用する。
// この経路は行レベルセキュリティをバイパスするため、書き込み系の操作は
// 呼び出し側で管理者判定が済んでいることが前提となる。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
)

// AdminUserRepository は管理者集合の読み取りインターフェース。
// アプリケーションから管理者集合への書き込みは存在しない。
type AdminUserRepository interface {
	// FindByUserID は指定ユーザーIDの管理者エントリを取得する。
	// 見つからない場合はnilを返す（エラーではない）。
	FindByUserID(ctx context.Context, userID string) (*model.AdminUser, error)
}

// ProgressRepository はユーザー進捗の永続化インターフェース。
type ProgressRepository interface {
	// Upsert はuser_idをコンフリクトターゲットとして進捗を冪等に書き込む。
	// マージは行わず、常に上書き（last write wins）となる。
	Upsert(ctx context.Context, progress *model.UserProgress) error

	// FindByUserID は指定ユーザーの進捗行を取得する。
	// 行が存在しない場合はnilを返す（エラーではない）。
	FindByUserID(ctx context.Context, userID string) (*model.UserProgress, error)

	// ListAll は全ユーザーの進捗行を返す。管理者のユーザー一覧表示で使用する。
	ListAll(ctx context.Context) ([]*model.UserProgress, error)
}

// QuestionRepository は練習問題の永続化インターフェース。
// 書き込み系の操作は管理APIからのみ呼ばれる。
type QuestionRepository interface {
	// ListPublished は公開済みの問題をcreated_at昇順で返す。
	// lessonIDが指定された場合はそのレッスンの問題のみ、
	// courseIDのみが指定された場合はそのコースの全レッスンの問題を返す。
	// バッキングテーブルが未作成の場合は空スライスを返す（エラーではない）。
	ListPublished(ctx context.Context, lessonID, courseID string) ([]*model.Question, error)

	// List は全ステータスの問題をcreated_at降順で返す。
	// statusが指定された場合はそのステータスの問題のみを返す。
	// バッキングテーブルが未作成の場合は空スライスを返す（エラーではない）。
	List(ctx context.Context, status string) ([]*model.Question, error)

	// FindByID は指定IDの問題を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Question, error)

	// Insert は問題を新規作成する。IDが既に存在する場合はエラーを返す。
	Insert(ctx context.Context, question *model.Question) error

	// Update は指定IDの問題を全フィールド上書きする。
	// 存在しない場合はmodel.ErrCodeQuestionNotFoundのAPIErrorを返す。
	Update(ctx context.Context, question *model.Question) error

	// Upsert はIDをコンフリクトターゲットとして問題を書き込む。
	// インポートの上書きモードで使用する。
	Upsert(ctx context.Context, question *model.Question) error

	// Delete は指定IDの問題を削除する。存在しない場合も成功として扱う。
	Delete(ctx context.Context, id string) error
}

// LessonRepository はレッスンの永続化インターフェース。
type LessonRepository interface {
	// List はレッスンをorder昇順で返す。
	// courseIDが指定された場合はそのコースのレッスンのみを返す。
	List(ctx context.Context, courseID string) ([]*model.Lesson, error)

	// CountByCourse は指定コースのレッスン数を返す。
	CountByCourse(ctx context.Context, courseID string) (int, error)

	// Create はレッスンを新規作成する。
	Create(ctx context.Context, lesson *model.Lesson) error

	// FindByID は指定IDのレッスンを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Lesson, error)

	// Update は指定IDのレッスンを全フィールド上書きする。
	// 存在しない場合はmodel.ErrCodeLessonNotFoundのAPIErrorを返す。
	Update(ctx context.Context, lesson *model.Lesson) error

	// Delete は指定IDのレッスンを削除する。
	// 存在しない場合はmodel.ErrCodeLessonNotFoundのAPIErrorを返す。
	Delete(ctx context.Context, id string) error
}

// CourseRepository はコースデータの永続化インターフェース。
type CourseRepository interface {
	// List は全コースを作成日時昇順で返す。
	List(ctx context.Context) ([]*model.Course, error)

	// Create はコースを作成する。
	// スラッグの一意性は強制しない。重複は呼び出し側で警告ログを出す。
	Create(ctx context.Context, course *model.Course) error

	// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

// DesignRepository は保存済みデザインの永続化インターフェース。
type DesignRepository interface {
	// List は全デザインを保存日時降順で返す。
	List(ctx context.Context) ([]*model.Design, error)

	// Upsert はデザインをIDをコンフリクトターゲットとして書き込む。
	Upsert(ctx context.Context, design *model.Design) error

	// Delete は指定IDのデザインを削除する。
	// 存在しない場合はmodel.ErrCodeDesignNotFoundのAPIErrorを返し、
	// コレクションは変更しない。
	Delete(ctx context.Context, id string) error
}

// AdminUserEntry はユーザー一覧表示用に管理者フラグと進捗を結合した構造体。
type AdminUserEntry struct {
	User        *model.AuthUser
	IsAdmin     bool
	Progress    model.ProgressData
	UpdatedAt   time.Time
	HasProgress bool
}
