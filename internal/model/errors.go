// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはそのままレスポンスのerrorフィールドとして返されるため、
// バックエンドの診断情報を含めてはならない（詳細はログのみに記録する）。
type APIError struct {
	Code     string // エラーコード
	Message  string // ユーザー向けエラーメッセージ
	Category string // カテゴリ: auth, validation, admin, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeUserNoEmail      = "USER_NO_EMAIL"
	ErrCodeDesignNotFound   = "DESIGN_NOT_FOUND"
	ErrCodeQuestionNotFound = "QUESTION_NOT_FOUND"
	ErrCodeLessonNotFound   = "LESSON_NOT_FOUND"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は未認証エラーを生成する。
// 有効なセッションを持たないリクエストが保護された操作を呼んだ場合に返す。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Not authenticated",
		Category: "auth",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// セッションは有効だが管理者集合に属さないユーザーの場合に返す。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Access denied. Admin privileges required.",
		Category: "auth",
	}
}

// NewBadRequestError は不正リクエストエラーを生成する。
func NewBadRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  reason,
		Category: "validation",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError() *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  "Missing required fields",
		Category: "validation",
	}
}

// NewUserNotFoundError は対象ユーザーが存在しない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "admin",
	}
}

// NewUserNoEmailError は対象ユーザーにメールアドレスがない場合のエラーを生成する。
// パスワードリセットはメールアドレス宛のリカバリーリンクで行うため必須となる。
func NewUserNoEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNoEmail,
		Message:  "User email not found",
		Category: "admin",
	}
}

// NewDesignNotFoundError は指定されたデザインが存在しない場合のエラーを生成する。
func NewDesignNotFoundError(designID string) *APIError {
	return &APIError{
		Code:     ErrCodeDesignNotFound,
		Message:  fmt.Sprintf("Design not found: %s", designID),
		Category: "validation",
	}
}

// NewQuestionNotFoundError は指定された練習問題が存在しない場合のエラーを生成する。
func NewQuestionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeQuestionNotFound,
		Message:  "Practice question not found",
		Category: "validation",
	}
}

// NewLessonNotFoundError は指定されたレッスンが存在しない場合のエラーを生成する。
func NewLessonNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeLessonNotFound,
		Message:  "Lesson not found",
		Category: "validation",
	}
}

// NewInternalError は内部エラーを生成する。
// messageには汎用メッセージのみを渡すこと。バックエンドのエラー詳細は
// 呼び出し側でログに記録する。
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  message,
		Category: "system",
	}
}
