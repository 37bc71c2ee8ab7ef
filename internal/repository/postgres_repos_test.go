package repository

import (
	"testing"
)

// コンパイル時チェック：各Postgres実装が対応するインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ AdminUserRepository = (*PostgresAdminUserRepo)(nil)
	var _ ProgressRepository = (*PostgresProgressRepo)(nil)
	var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
	var _ LessonRepository = (*PostgresLessonRepo)(nil)
	var _ CourseRepository = (*PostgresCourseRepo)(nil)
	var _ DesignRepository = (*PostgresDesignRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresAdminUserRepo(nil) == nil {
		t.Error("expected non-nil admin user repo")
	}
	if NewPostgresProgressRepo(nil) == nil {
		t.Error("expected non-nil progress repo")
	}
	if NewPostgresQuestionRepo(nil) == nil {
		t.Error("expected non-nil question repo")
	}
	if NewPostgresLessonRepo(nil) == nil {
		t.Error("expected non-nil lesson repo")
	}
	if NewPostgresCourseRepo(nil) == nil {
		t.Error("expected non-nil course repo")
	}
	if NewPostgresDesignRepo(nil) == nil {
		t.Error("expected non-nil design repo")
	}
}
