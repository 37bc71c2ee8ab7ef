package lms

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
	"github.com/hitoshi/chainlearn/internal/security"
)

// LessonService はレッスン管理のビジネスロジックを提供する。
// 書き込み系の操作は管理APIからのみ呼ばれる前提。
type LessonService struct {
	lessons   repository.LessonRepository
	courses   repository.CourseRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewLessonService はLessonServiceを生成する。
func NewLessonService(lessons repository.LessonRepository, courses repository.CourseRepository, sanitizer security.ContentSanitizerService) *LessonService {
	return &LessonService{
		lessons:   lessons,
		courses:   courses,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// LessonPatch は部分更新のパッチ。nilのフィールドは更新されない。
type LessonPatch struct {
	Title       *string
	Description *string
	Content     *string
	Status      *string
	Order       *int
}

// ListLessons はレッスン一覧を返す。
// courseIDが指定された場合はそのコースのレッスンのみを返す。
func (s *LessonService) ListLessons(ctx context.Context, courseID string) ([]*model.Lesson, error) {
	return s.lessons.List(ctx, courseID)
}

// CreateLesson はレッスンを作成する。
// IDは作成時刻のミリ秒エポック、orderはコース内の既存レッスン数+1、
// ステータスはdraftで初期化される。タイトルと説明は保存前にサニタイズされる。
// 指定コースが存在しない場合はバリデーションエラーを返す。
func (s *LessonService) CreateLesson(ctx context.Context, courseID, title, description, content string) (*model.Lesson, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify course: %w", err)
	}
	if course == nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("Course with ID %q does not exist", courseID))
	}

	count, err := s.lessons.CountByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}

	now := s.now()
	lesson := &model.Lesson{
		ID:          strconv.FormatInt(now.UnixMilli(), 10),
		CourseID:    courseID,
		Title:       s.sanitizer.Sanitize(title),
		Description: s.sanitizer.Sanitize(description),
		Content:     content,
		Status:      model.LessonStatusDraft,
		Order:       count + 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	return lesson, nil
}

// GetLesson は指定IDのレッスンを返す。
// 存在しない場合はmodel.ErrCodeLessonNotFoundのAPIErrorを返す。
func (s *LessonService) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}
	if lesson == nil {
		return nil, model.NewLessonNotFoundError()
	}
	return lesson, nil
}

// UpdateLesson は指定IDのレッスンをパッチで部分更新する。
// ステータスはdraft/publishedのみ受け付ける。
func (s *LessonService) UpdateLesson(ctx context.Context, id string, patch LessonPatch) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		lesson.Title = s.sanitizer.Sanitize(*patch.Title)
	}
	if patch.Description != nil {
		lesson.Description = s.sanitizer.Sanitize(*patch.Description)
	}
	if patch.Content != nil {
		lesson.Content = *patch.Content
	}
	if patch.Status != nil {
		status := model.LessonStatus(*patch.Status)
		if status != model.LessonStatusDraft && status != model.LessonStatusPublished {
			return nil, model.NewBadRequestError("Invalid status. Must be 'draft' or 'published'")
		}
		lesson.Status = status
	}
	if patch.Order != nil {
		lesson.Order = *patch.Order
	}
	lesson.UpdatedAt = s.now()

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, err
	}

	return lesson, nil
}

// DeleteLesson は指定IDのレッスンを削除する。
func (s *LessonService) DeleteLesson(ctx context.Context, id string) error {
	return s.lessons.Delete(ctx, id)
}
