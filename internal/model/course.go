package model

import "time"

// CourseStatus はコースの公開状態を表す。
type CourseStatus string

const (
	// CourseStatusDraft は下書き状態。新規作成時の初期状態。
	CourseStatusDraft CourseStatus = "draft"
	// CourseStatusPublished は公開状態。
	CourseStatusPublished CourseStatus = "published"
)

// Course は学習コースを表す。
// IDはスラッグと同一で、タイトルから導出される場合がある。
type Course struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Slug        string       `json:"slug"`
	Lessons     int          `json:"lessons"`
	Status      CourseStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// LessonStatus はレッスンの公開状態を表す。
type LessonStatus string

const (
	// LessonStatusDraft は下書き状態。新規作成時の初期状態。
	LessonStatusDraft LessonStatus = "draft"
	// LessonStatusPublished は公開状態。
	LessonStatusPublished LessonStatus = "published"
)

// Lesson はコース内のレッスンを表す。
// 練習問題のコース絞り込みとレッスン管理APIで参照される。
type Lesson struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"courseId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Content     string       `json:"content"`
	Status      LessonStatus `json:"status"`
	Order       int          `json:"order"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
