package model

import (
	"encoding/json"
	"time"
)

// QuestionStatus は練習問題の公開状態を表す。
type QuestionStatus string

const (
	// QuestionStatusDraft は下書き状態。
	QuestionStatusDraft QuestionStatus = "draft"
	// QuestionStatusPublished は公開状態。公開APIはこの状態の問題のみを返す。
	QuestionStatusPublished QuestionStatus = "published"
)

// 問題形式。
const (
	// QuestionTypeMultipleChoice は選択式。optionsが必須となる。
	QuestionTypeMultipleChoice = "multiple_choice"
	// QuestionTypeTextInput は記述式。correct_answerが必須となる。
	QuestionTypeTextInput = "text_input"
	// QuestionTypeNumericInput は数値入力式。correct_answerが必須となる。
	QuestionTypeNumericInput = "numeric_input"
)

// Question は練習問題を表す。
// optionsは選択式問題の場合のみ設定されるJSON配列。
// lessonIdが空の場合はどのレッスンにも紐付かない。
type Question struct {
	ID              string          `json:"id"`
	LessonID        string          `json:"lessonId"`
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	Question        string          `json:"question"`
	Options         json.RawMessage `json:"options,omitempty"`
	CorrectAnswer   string          `json:"correctAnswer,omitempty"`
	Hint            string          `json:"hint,omitempty"`
	Solution        string          `json:"solution"`
	MathExplanation string          `json:"mathExplanation,omitempty"`
	Difficulty      string          `json:"difficulty,omitempty"`
	Tags            []string        `json:"tags"`
	Status          QuestionStatus  `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
