package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/model"
)

// ProgressServiceInterface は進捗ハンドラーが必要とするサービスインターフェース。
type ProgressServiceInterface interface {
	// Sync はユーザーの進捗をサーバー側に上書き保存する。
	Sync(ctx context.Context, userID string, data model.ProgressData) error
	// Load はユーザーの進捗を取得する。行が存在しない場合はnilを返す。
	Load(ctx context.Context, userID string) (model.ProgressData, error)
}

// ProgressHandler は学習進捗同期のHTTPハンドラー。
type ProgressHandler struct {
	sessions *Sessions
	service  ProgressServiceInterface
}

// NewProgressHandler はProgressHandlerを生成する。
func NewProgressHandler(sessions *Sessions, service ProgressServiceInterface) *ProgressHandler {
	return &ProgressHandler{
		sessions: sessions,
		service:  service,
	}
}

// syncProgressRequest は進捗同期リクエストのボディ。
type syncProgressRequest struct {
	ProgressData model.ProgressData `json:"progressData"`
}

// progressResponse は進捗のAPIレスポンス。
type progressResponse struct {
	ProgressData model.ProgressData `json:"progressData"`
}

// LoadProgress は現在のユーザーのサーバー側進捗を返す。
// 行が存在しない場合はdata:nullの正常応答となる。
// GET /api/progress
func (h *ProgressHandler) LoadProgress(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.RequireUser(w, r)
	if user == nil {
		return
	}

	data, err := h.service.Load(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if data == nil {
		writeSuccessResponse(w, http.StatusOK, nil)
		return
	}
	writeSuccessResponse(w, http.StatusOK, progressResponse{ProgressData: data})
}

// SyncProgress はローカルの進捗をサーバー側に上書き保存する。
// 最後の書き込みが勝つ。サーバー側でのマージは行わない。
// PUT /api/progress
func (h *ProgressHandler) SyncProgress(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.RequireUser(w, r)
	if user == nil {
		return
	}

	var req syncProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	if err := h.service.Sync(r.Context(), user.ID, req.ProgressData); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeMessageResponse(w, http.StatusOK, "Progress synced")
}
