package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/model"
)

// QuestionListerInterface は練習問題ハンドラーが必要とするインターフェース。
// repository.QuestionRepositoryの部分集合として定義する。
type QuestionListerInterface interface {
	// ListPublished は公開済みの練習問題を返す。lessonID、courseIDで絞り込める。
	ListPublished(ctx context.Context, lessonID, courseID string) ([]*model.Question, error)
}

// QuestionHandler は練習問題のHTTPハンドラー。認証不要。
type QuestionHandler struct {
	questions QuestionListerInterface
}

// NewQuestionHandler はQuestionHandlerを生成する。
func NewQuestionHandler(questions QuestionListerInterface) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// ListQuestions は公開済み練習問題の一覧を返す。
// クエリパラメータ lessonId または courseId で絞り込む。
// GET /api/practice-questions
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	lessonID := r.URL.Query().Get("lessonId")
	courseID := r.URL.Query().Get("courseId")

	questions, err := h.questions.ListPublished(r.Context(), lessonID, courseID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if questions == nil {
		questions = []*model.Question{}
	}
	writeSuccessResponse(w, http.StatusOK, questions)
}
