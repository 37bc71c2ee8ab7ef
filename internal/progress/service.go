// Package progress はローカルとリモートの進捗同期を提供する。
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
)

// Repository は進捗の永続化に必要なインターフェース。
// repository.ProgressRepositoryの部分集合として定義する。
type Repository interface {
	Upsert(ctx context.Context, progress *model.UserProgress) error
	FindByUserID(ctx context.Context, userID string) (*model.UserProgress, error)
}

// Service は進捗同期のビジネスロジックを提供する。
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Sync はローカル進捗をリモートへ書き込む。
// user_idをコンフリクトターゲットとするUPSERTのため冪等な上書きとなり、
// サーバー側ではマージを行わない（last write wins）。
// 認証チェックは呼び出し側（ハンドラー）の責務。
func (s *Service) Sync(ctx context.Context, userID string, data model.ProgressData) error {
	if data == nil {
		data = model.ProgressData{}
	}

	err := s.repo.Upsert(ctx, &model.UserProgress{
		UserID:       userID,
		ProgressData: data,
		UpdatedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to sync progress: %w", err)
	}
	return nil
}

// Load はリモート進捗を取得する。
// 行が存在しない場合はnilを返す（エラーではない）。
func (s *Service) Load(ctx context.Context, userID string) (model.ProgressData, error) {
	progress, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if progress == nil {
		return nil, nil
	}
	return progress.ProgressData, nil
}

// Merge はローカルとリモートの進捗をマージした新しいマップを返す。純粋関数。
//
// リモートに存在するレッスンIDの値はローカルの値を常に上書きし、
// ローカルのみに存在するキーはそのまま残る。リモートがnilの場合は
// ローカルをそのまま返す。
// Merge(Merge(local, remote), remote) == Merge(local, remote) が成り立つ（冪等）。
func Merge(local, remote model.ProgressData) model.ProgressData {
	if remote == nil {
		return local
	}

	merged := make(model.ProgressData, len(local)+len(remote))
	for lessonID, p := range local {
		merged[lessonID] = p
	}
	for lessonID, p := range remote {
		merged[lessonID] = p
	}
	return merged
}
