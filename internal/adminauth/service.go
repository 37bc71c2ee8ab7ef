// Package adminauth は管理者認可サービスを提供する。
//
// 管理者権限は admin_users テーブルに行が存在するかどうかのみで決まる。
// セッションに埋め込まれたロールやクレームは参照しない。
// 照会は必ず特権データクライアント経由で行う。通常の行レベルセキュリティ下では
// admin_usersテーブルへの全アクセスが拒否されるためである。
package adminauth

import (
	"context"
	"log/slog"

	"github.com/hitoshi/chainlearn/internal/model"
)

// AdminUserFinder は管理者集合の照会に必要なインターフェース。
// repository.AdminUserRepositoryの部分集合として定義する。
type AdminUserFinder interface {
	FindByUserID(ctx context.Context, userID string) (*model.AdminUser, error)
}

// CheckRecorder は管理者照会結果のメトリクス記録インターフェース。
type CheckRecorder interface {
	RecordAdminCheck(allowed bool)
}

// Service は管理者認可のビジネスロジックを提供する。
//
// 照会エラー時の方針はセッションゲートと非対称である点に注意:
// ゲートはUX目的の助言的チェックとしてフェイルオープンだが、
// このサービスは実際の強制の裏付けとなるためフェイルクローズ
// （エラーは非管理者として扱う）とする。この非対称は意図的な設計であり、
// 統一してはならない。
type Service struct {
	repo    AdminUserFinder
	metrics CheckRecorder
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(repo AdminUserFinder, metrics CheckRecorder) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
	}
}

// IsAdmin は指定ユーザーが管理者かどうかを返す。
// 「行なし」は正常系の否定結果としてfalseを返す。
// 予期しない照会エラーはログに記録した上でfalseを返し、
// 呼び出し側へはbool以外の形で伝播させない。
func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	admin, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		slog.Error("failed to check admin status",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.record(false)
		return false
	}

	allowed := admin != nil
	s.record(allowed)
	return allowed
}

// GetAdminUser は指定ユーザーの管理者プロファイルを取得する。
// 管理者でない場合はnilを返す。
func (s *Service) GetAdminUser(ctx context.Context, userID string) (*model.AdminUser, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.FindByUserID(ctx, userID)
}

// GetCurrentAdmin は現在のセッションユーザーの管理者プロファイルを取得する。
// userは呼び出し側がセッションから解決済みのユーザー（nil可）。
// 未認証または非管理者の場合はnilを返す。
func (s *Service) GetCurrentAdmin(ctx context.Context, user *model.AuthUser) (*model.AdminUser, error) {
	if user == nil {
		return nil, nil
	}
	return s.GetAdminUser(ctx, user.ID)
}

func (s *Service) record(allowed bool) {
	if s.metrics != nil {
		s.metrics.RecordAdminCheck(allowed)
	}
}
