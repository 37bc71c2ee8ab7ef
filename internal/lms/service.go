// Package lms はコース管理のビジネスロジックを提供する。
package lms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
	"github.com/hitoshi/chainlearn/internal/security"
)

// Service はコースの参照・作成を提供する。
type Service struct {
	repo      repository.CourseRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.CourseRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// ListCourses は全コースを返す。
func (s *Service) ListCourses(ctx context.Context) ([]*model.Course, error) {
	return s.repo.List(ctx)
}

// CreateCourse はコースを作成する。
// スラッグが未指定の場合はタイトルから導出する（小文字化し空白をハイフンに置換）。
// レッスン数は0、ステータスはdraftで初期化される。
// タイトルと説明は保存前にサニタイズされる。
//
// スラッグ（=ID）の一意性は強制しない。重複は警告ログで通知するのみで、
// 黙って重複排除することはしない。
func (s *Service) CreateCourse(ctx context.Context, title, description, slug string) (*model.Course, error) {
	title = s.sanitizer.Sanitize(title)
	description = s.sanitizer.Sanitize(description)

	if slug == "" {
		slug = DeriveSlug(title)
	}

	if existing, err := s.repo.FindByID(ctx, slug); err == nil && existing != nil {
		slog.Warn("course slug collision",
			slog.String("slug", slug),
			slog.String("existing_title", existing.Title),
		)
	}

	now := s.now()
	course := &model.Course{
		ID:          slug,
		Title:       title,
		Description: description,
		Slug:        slug,
		Lessons:     0,
		Status:      model.CourseStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	return course, nil
}

// DeriveSlug はタイトルからスラッグを導出する。
// 小文字化した上で連続する空白を1つのハイフンに置換する。
func DeriveSlug(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}
