// Package store はコース/デザインのJSONファイル永続化ストアを提供する。
//
// 外部データベースの開発時代替であり、repositoryパッケージの
// CourseRepository/DesignRepositoryインターフェースを満たす。
// 起動時にファイルから読み込み、変更をメモリ上に反映した後、
// スナップショットを非同期でファイルに書き戻す。
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
)

// FileStore はコースとデザインをメモリ上に保持し、JSONファイルへ永続化する。
type FileStore struct {
	mu      sync.Mutex
	path    string
	courses []*model.Course
	designs []*model.Design
}

// fileSnapshot はファイルに書き出すスナップショット形式。
type fileSnapshot struct {
	Courses []*model.Course `json:"courses"`
	Designs []*model.Design `json:"designs"`
}

// NewFileStore はdataDir/lms.jsonをバッキングファイルとするFileStoreを生成する。
// ファイルが存在しない場合は空のストアから開始する。
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &FileStore{
		path:    filepath.Join(dataDir, "lms.json"),
		courses: []*model.Course{},
		designs: []*model.Design{},
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var snapshot fileSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	if snapshot.Courses != nil {
		s.courses = snapshot.Courses
	}
	if snapshot.Designs != nil {
		s.designs = snapshot.Designs
	}

	return s, nil
}

// List は全コースを返す。
func (s *FileStore) List(ctx context.Context) ([]*model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.courses), nil
}

// Create はコースを追加する。
func (s *FileStore) Create(ctx context.Context, course *model.Course) error {
	s.mu.Lock()
	s.courses = append(s.courses, course)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot)
	return nil
}

// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
func (s *FileStore) FindByID(ctx context.Context, id string) (*model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// Designs はDesignRepositoryとしてのビューを返す。
// FileStore自体が両インターフェースを満たすが、ワイヤリング側の可読性のために分ける。
func (s *FileStore) Designs() repository.DesignRepository {
	return (*designView)(s)
}

// designView はFileStoreのDesignRepository実装。
type designView FileStore

// List は全デザインを保存日時降順で返す。
func (v *designView) List(ctx context.Context) ([]*model.Design, error) {
	s := (*FileStore)(v)
	s.mu.Lock()
	defer s.mu.Unlock()

	designs := slices.Clone(s.designs)
	slices.SortStableFunc(designs, func(a, b *model.Design) int {
		return b.SavedAt.Compare(a.SavedAt)
	})
	return designs, nil
}

// Upsert はデザインをIDで上書きまたは追加する。
func (v *designView) Upsert(ctx context.Context, design *model.Design) error {
	s := (*FileStore)(v)
	s.mu.Lock()
	replaced := false
	for i, d := range s.designs {
		if d.ID == design.ID {
			s.designs[i] = design
			replaced = true
			break
		}
	}
	if !replaced {
		s.designs = append(s.designs, design)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot)
	return nil
}

// Delete は指定IDのデザインを削除する。
// 存在しない場合はデザイン未検出のAPIErrorを返し、コレクションは変更しない。
func (v *designView) Delete(ctx context.Context, id string) error {
	s := (*FileStore)(v)
	s.mu.Lock()
	idx := -1
	for i, d := range s.designs {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.NewDesignNotFoundError(id)
	}
	s.designs = slices.Delete(s.designs, idx, idx+1)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snapshot)
	return nil
}

// snapshotLocked は現在の状態のスナップショットを返す。mu保持中に呼ぶこと。
func (s *FileStore) snapshotLocked() fileSnapshot {
	return fileSnapshot{
		Courses: slices.Clone(s.courses),
		Designs: slices.Clone(s.designs),
	}
}

// persist はスナップショットを非同期でファイルへ書き出す。
// 開発用ストアのため書き込み失敗は警告ログに留める。
func (s *FileStore) persist(snapshot fileSnapshot) {
	go func() {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			slog.Warn("failed to encode store snapshot", slog.String("error", err.Error()))
			return
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			slog.Warn("failed to persist store snapshot",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// compile-time interface checks
var (
	_ repository.CourseRepository = (*FileStore)(nil)
	_ repository.DesignRepository = (*designView)(nil)
)
