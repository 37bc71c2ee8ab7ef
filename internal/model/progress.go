package model

import "time"

// LessonProgress は1レッスンの進捗を表す。
type LessonProgress struct {
	Completed      bool       `json:"completed"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// ProgressData はレッスンIDから進捗へのマッピング。
// ローカル（クライアント保持）とリモート（user_progressの1行）の2コピーが存在し、
// マージはキー単位でリモート優先となる。
type ProgressData map[string]LessonProgress

// UserProgress はuser_progressテーブルの1行を表す。
// user_idをコンフリクトターゲットとするUPSERTで書き込まれるため、
// 繰り返しの書き込みは冪等となる。
type UserProgress struct {
	UserID       string
	ProgressData ProgressData
	UpdatedAt    time.Time
}
