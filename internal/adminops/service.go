// Package adminops は管理者専用のユーザー操作を提供する。
//
// 各操作は認可済みの管理者からの呼び出しを前提とする。認証・認可の
// シーケンス（セッション解決→管理者判定）はハンドラー側の契約であり、
// このパッケージは対象ユーザーの検証と変異のみを担う。
package adminops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
)

// IdentityAdminClient は管理操作に必要なプロバイダー管理APIのインターフェース。
// identity.Clientの部分集合として定義する。
type IdentityAdminClient interface {
	AdminGetUser(ctx context.Context, userID string) (*model.AuthUser, error)
	AdminListUsers(ctx context.Context, page, perPage int) ([]*model.AuthUser, error)
	GenerateRecoveryLink(ctx context.Context, email string) error
}

// AdminUserFinder は管理者集合の照会インターフェース。
type AdminUserFinder interface {
	FindByUserID(ctx context.Context, userID string) (*model.AdminUser, error)
}

// Service は管理者専用のユーザー操作を提供する。
type Service struct {
	identityClient IdentityAdminClient
	progressRepo   repository.ProgressRepository
	adminRepo      AdminUserFinder
	now            func() time.Time
}

// NewService はServiceを生成する。
func NewService(identityClient IdentityAdminClient, progressRepo repository.ProgressRepository, adminRepo AdminUserFinder) *Service {
	return &Service{
		identityClient: identityClient,
		progressRepo:   progressRepo,
		adminRepo:      adminRepo,
		now:            time.Now,
	}
}

// ResetPassword は対象ユーザーへのパスワード回復リンク送信を依頼する。
// 対象が存在しない場合はユーザー未検出、メールアドレスを持たない場合は
// メール未登録のAPIErrorを返す。
func (s *Service) ResetPassword(ctx context.Context, targetUserID string) error {
	target, err := s.identityClient.AdminGetUser(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("failed to look up target user: %w", err)
	}

	if target.Email == "" {
		return model.NewUserNoEmailError()
	}

	if err := s.identityClient.GenerateRecoveryLink(ctx, target.Email); err != nil {
		return fmt.Errorf("failed to generate recovery link: %w", err)
	}

	slog.Info("password reset email requested",
		slog.String("target_user_id", targetUserID),
	)
	return nil
}

// ResetProgress は対象ユーザーの進捗を空の状態にリセットする。
// 対象が存在しない場合はユーザー未検出を返し、UPSERTは実行しない。
// user_idをコンフリクトターゲットとするUPSERTのため、繰り返し呼んでも
// 同じ空状態に収束する（冪等）。
func (s *Service) ResetProgress(ctx context.Context, targetUserID string) error {
	if _, err := s.identityClient.AdminGetUser(ctx, targetUserID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("failed to look up target user: %w", err)
	}

	err := s.progressRepo.Upsert(ctx, &model.UserProgress{
		UserID:       targetUserID,
		ProgressData: model.ProgressData{},
		UpdatedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}

	slog.Info("user progress reset",
		slog.String("target_user_id", targetUserID),
	)
	return nil
}

// listUsersPageSize はプロバイダーのユーザー一覧の1ページあたりの件数。
const listUsersPageSize = 1000

// ListUsers は全ユーザーに管理者フラグと進捗を結合した一覧を返す。
// 進捗や管理者集合の取得に失敗した場合でも、ユーザー一覧自体は返す
// （欠けた情報はゼロ値となる）。
func (s *Service) ListUsers(ctx context.Context) ([]*repository.AdminUserEntry, error) {
	var users []*model.AuthUser
	for page := 1; ; page++ {
		batch, err := s.identityClient.AdminListUsers(ctx, page, listUsersPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, batch...)
		if len(batch) < listUsersPageSize {
			break
		}
	}

	progressByUser := map[string]*model.UserProgress{}
	if all, err := s.progressRepo.ListAll(ctx); err != nil {
		slog.Error("failed to list user progress", slog.String("error", err.Error()))
	} else {
		for _, p := range all {
			progressByUser[p.UserID] = p
		}
	}

	entries := make([]*repository.AdminUserEntry, 0, len(users))
	for _, u := range users {
		entry := &repository.AdminUserEntry{User: u}

		admin, err := s.adminRepo.FindByUserID(ctx, u.ID)
		if err != nil {
			slog.Error("failed to check admin flag",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()),
			)
		}
		entry.IsAdmin = admin != nil

		if p, ok := progressByUser[u.ID]; ok {
			entry.Progress = p.ProgressData
			entry.UpdatedAt = p.UpdatedAt
			entry.HasProgress = true
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
