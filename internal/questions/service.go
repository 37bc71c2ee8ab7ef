// Package questions は練習問題の管理ロジックを提供する。
// 公開APIの読み取りとは別系統で、作成・更新・削除・インポート/エクスポートを扱う。
// すべての操作は管理者判定が済んでいる前提で呼ばれる。
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
)

// Service は練習問題の管理操作を提供する。
type Service struct {
	questions repository.QuestionRepository
	lessons   repository.LessonRepository
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(questions repository.QuestionRepository, lessons repository.LessonRepository) *Service {
	return &Service{
		questions: questions,
		lessons:   lessons,
		now:       time.Now,
	}
}

// Input は作成・インポート時の問題データ。
// JSONのフィールド名はQuestionと同一で、statusが空の場合はdraftとして扱う。
type Input struct {
	ID              string          `json:"id"`
	LessonID        string          `json:"lessonId"`
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	Question        string          `json:"question"`
	Options         json.RawMessage `json:"options"`
	CorrectAnswer   string          `json:"correctAnswer"`
	Hint            string          `json:"hint"`
	Solution        string          `json:"solution"`
	MathExplanation string          `json:"mathExplanation"`
	Difficulty      string          `json:"difficulty"`
	Tags            []string        `json:"tags"`
	Status          string          `json:"status"`
}

// Patch は部分更新のパッチ。nilのフィールドは更新されない。
type Patch struct {
	LessonID        *string          `json:"lessonId"`
	Title           *string          `json:"title"`
	Type            *string          `json:"type"`
	Question        *string          `json:"question"`
	Options         *json.RawMessage `json:"options"`
	CorrectAnswer   *string          `json:"correctAnswer"`
	Hint            *string          `json:"hint"`
	Solution        *string          `json:"solution"`
	MathExplanation *string          `json:"mathExplanation"`
	Difficulty      *string          `json:"difficulty"`
	Tags            *[]string        `json:"tags"`
	Status          *string          `json:"status"`
}

// ExportDocument はエクスポート/インポートで使用するファイル形式。
type ExportDocument struct {
	Questions []Input `json:"questions"`
}

// ImportOptions はインポート時の衝突解決オプション。
type ImportOptions struct {
	// Overwrite はIDごとの上書きフラグ。trueのIDは既存の問題を置き換える。
	Overwrite map[string]bool `json:"overwriteQuestions"`
	// SaveAsNew に含まれるIDは新しいIDを払い出して別問題として保存する。
	SaveAsNew []string `json:"saveQuestionsAsNew"`
}

// ImportResult はインポートの集計結果。
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// ListQuestions は全ステータスの問題を新しい順に返す。
// statusが指定された場合はそのステータスの問題のみを返す。
func (s *Service) ListQuestions(ctx context.Context, status string) ([]*model.Question, error) {
	if status != "" && status != string(model.QuestionStatusDraft) && status != string(model.QuestionStatusPublished) {
		return nil, model.NewBadRequestError("Invalid status. Must be 'draft' or 'published'")
	}
	return s.questions.List(ctx, status)
}

// GetQuestion は指定IDの問題を返す。
// 存在しない場合はmodel.ErrCodeQuestionNotFoundのAPIErrorを返す。
func (s *Service) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	if q == nil {
		return nil, model.NewQuestionNotFoundError()
	}
	return q, nil
}

// CreateQuestion は問題を新規作成する。
// 必須フィールドと問題形式ごとの制約を検証し、
// lessonIdが指定されている場合はレッスンの存在も確認する。
func (s *Service) CreateQuestion(ctx context.Context, input *Input) (*model.Question, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if input.LessonID != "" {
		lesson, err := s.lessons.FindByID(ctx, input.LessonID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify lesson: %w", err)
		}
		if lesson == nil {
			return nil, model.NewBadRequestError(fmt.Sprintf("Lesson with ID %q does not exist", input.LessonID))
		}
	}

	existing, err := s.questions.FindByID(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing question: %w", err)
	}
	if existing != nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("Question with ID %q already exists", input.ID))
	}

	q := s.buildQuestion(input)
	if err := s.questions.Insert(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	return q, nil
}

// UpdateQuestion は指定IDの問題をパッチで部分更新する。
// 問題形式を変更する場合は形式の妥当性を、lessonIdを変更する場合は
// レッスンの存在を検証する。lessonIdに空文字列を指定すると紐付けを解除する。
func (s *Service) UpdateQuestion(ctx context.Context, id string, patch *Patch) (*model.Question, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Type != nil {
		if !isValidType(*patch.Type) {
			return nil, model.NewBadRequestError("Invalid type. Must be 'multiple_choice', 'text_input', or 'numeric_input'")
		}
		q.Type = *patch.Type
	}
	if patch.LessonID != nil {
		if *patch.LessonID != "" {
			lesson, err := s.lessons.FindByID(ctx, *patch.LessonID)
			if err != nil {
				return nil, fmt.Errorf("failed to verify lesson: %w", err)
			}
			if lesson == nil {
				return nil, model.NewBadRequestError(fmt.Sprintf("Lesson with ID %q does not exist", *patch.LessonID))
			}
		}
		q.LessonID = *patch.LessonID
	}
	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.Question != nil {
		q.Question = *patch.Question
	}
	if patch.Options != nil {
		q.Options = *patch.Options
	}
	if patch.CorrectAnswer != nil {
		q.CorrectAnswer = *patch.CorrectAnswer
	}
	if patch.Hint != nil {
		q.Hint = *patch.Hint
	}
	if patch.Solution != nil {
		q.Solution = *patch.Solution
	}
	if patch.MathExplanation != nil {
		q.MathExplanation = *patch.MathExplanation
	}
	if patch.Difficulty != nil {
		q.Difficulty = *patch.Difficulty
	}
	if patch.Tags != nil {
		q.Tags = *patch.Tags
	}
	if patch.Status != nil {
		status := model.QuestionStatus(*patch.Status)
		if status != model.QuestionStatusDraft && status != model.QuestionStatusPublished {
			return nil, model.NewBadRequestError("Invalid status. Must be 'draft' or 'published'")
		}
		q.Status = status
	}
	q.UpdatedAt = s.now()

	if err := s.questions.Update(ctx, q); err != nil {
		return nil, err
	}

	return q, nil
}

// DeleteQuestion は指定IDの問題を削除する。
// 既に存在しない場合も成功として扱う（削除は冪等）。
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	return s.questions.Delete(ctx, id)
}

// Export は全問題を作成日時昇順で含むエクスポート文書を返す。
func (s *Service) Export(ctx context.Context) (*ExportDocument, error) {
	listed, err := s.questions.List(ctx, "")
	if err != nil {
		return nil, err
	}

	// Listは新しい順のため、エクスポートでは作成日時昇順に並べ直す
	inputs := make([]Input, 0, len(listed))
	for i := len(listed) - 1; i >= 0; i-- {
		inputs = append(inputs, toInput(listed[i]))
	}

	return &ExportDocument{Questions: inputs}, nil
}

// Import はエクスポート文書の問題を取り込む。
// 既存IDと衝突した問題はoptsに従い、上書き・新規ID払い出し・スキップのいずれかで
// 処理される。個々の問題の失敗は集計のみ行い、残りの取り込みは継続する。
func (s *Service) Import(ctx context.Context, doc *ExportDocument, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{Errors: []string{}}

	for i := range doc.Questions {
		input := &doc.Questions[i]
		if input.ID == "" || input.Title == "" || input.Question == "" || input.Type == "" || input.Solution == "" {
			id := input.ID
			if id == "" {
				id = "unknown"
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Question missing required fields: %s", id))
			continue
		}

		if err := s.importOne(ctx, input, opts, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Question %s: %v", input.ID, err))
		}
	}

	return result, nil
}

// importOne は1問を取り込み、resultの作成・更新カウントを進める。
func (s *Service) importOne(ctx context.Context, input *Input, opts ImportOptions, result *ImportResult) error {
	if containsID(opts.SaveAsNew, input.ID) {
		clone := *input
		clone.ID = fmt.Sprintf("%s-%d", input.ID, s.now().UnixMilli())
		if err := s.questions.Insert(ctx, s.buildQuestion(&clone)); err != nil {
			return err
		}
		result.Created++
		return nil
	}

	existing, err := s.questions.FindByID(ctx, input.ID)
	if err != nil {
		return err
	}

	if opts.Overwrite[input.ID] {
		if err := s.questions.Upsert(ctx, s.buildQuestion(input)); err != nil {
			return err
		}
		if existing != nil {
			result.Updated++
		} else {
			result.Created++
		}
		return nil
	}

	// 上書き指定も新規保存指定もない既存問題はスキップする
	if existing != nil {
		return nil
	}

	if err := s.questions.Insert(ctx, s.buildQuestion(input)); err != nil {
		return err
	}
	result.Created++
	return nil
}

// buildQuestion はInputからQuestionを組み立てる。
func (s *Service) buildQuestion(input *Input) *model.Question {
	status := model.QuestionStatus(input.Status)
	if status == "" {
		status = model.QuestionStatusDraft
	}
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	now := s.now()
	return &model.Question{
		ID:              input.ID,
		LessonID:        input.LessonID,
		Title:           input.Title,
		Type:            input.Type,
		Question:        input.Question,
		Options:         input.Options,
		CorrectAnswer:   input.CorrectAnswer,
		Hint:            input.Hint,
		Solution:        input.Solution,
		MathExplanation: input.MathExplanation,
		Difficulty:      input.Difficulty,
		Tags:            tags,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// validateInput は必須フィールドと問題形式ごとの制約を検証する。
func validateInput(input *Input) error {
	if input.ID == "" || input.Title == "" || input.Question == "" || input.Type == "" || input.Solution == "" {
		return model.NewBadRequestError("Missing required fields: id, title, question, type, solution")
	}

	if !isValidType(input.Type) {
		return model.NewBadRequestError("Invalid type. Must be 'multiple_choice', 'text_input', or 'numeric_input'")
	}

	switch input.Type {
	case model.QuestionTypeMultipleChoice:
		var options []json.RawMessage
		if len(input.Options) == 0 || json.Unmarshal(input.Options, &options) != nil || len(options) == 0 {
			return model.NewBadRequestError("Multiple choice questions require options array")
		}
	case model.QuestionTypeTextInput, model.QuestionTypeNumericInput:
		if input.CorrectAnswer == "" {
			return model.NewBadRequestError(fmt.Sprintf("%s questions require correct_answer", input.Type))
		}
	}

	if input.Status != "" && input.Status != string(model.QuestionStatusDraft) && input.Status != string(model.QuestionStatusPublished) {
		return model.NewBadRequestError("Invalid status. Must be 'draft' or 'published'")
	}

	return nil
}

// isValidType は問題形式の値が既知のものか判定する。
func isValidType(t string) bool {
	switch t {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeTextInput, model.QuestionTypeNumericInput:
		return true
	}
	return false
}

// containsID はidsにidが含まれるか判定する。
func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// toInput はQuestionをエクスポート用のInputに変換する。
func toInput(q *model.Question) Input {
	return Input{
		ID:              q.ID,
		LessonID:        q.LessonID,
		Title:           q.Title,
		Type:            q.Type,
		Question:        q.Question,
		Options:         q.Options,
		CorrectAnswer:   q.CorrectAnswer,
		Hint:            q.Hint,
		Solution:        q.Solution,
		MathExplanation: q.MathExplanation,
		Difficulty:      q.Difficulty,
		Tags:            q.Tags,
		Status:          string(q.Status),
	}
}
