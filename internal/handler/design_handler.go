package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/chainlearn/internal/model"
	"github.com/hitoshi/chainlearn/internal/repository"
	"github.com/hitoshi/chainlearn/internal/security"

	"github.com/go-chi/chi/v5"
)

// DesignHandler はチェーンデザインギャラリーのHTTPハンドラー。
// ギャラリーは共有の公開領域であり、全エンドポイントが認証不要。
type DesignHandler struct {
	repo      repository.DesignRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewDesignHandler はDesignHandlerを生成する。
func NewDesignHandler(repo repository.DesignRepository, sanitizer security.ContentSanitizerService) *DesignHandler {
	return &DesignHandler{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// saveDesignRequest はデザイン保存リクエストのボディ。
type saveDesignRequest struct {
	Name  string          `json:"name" validate:"required"`
	Chain json.RawMessage `json:"chain" validate:"required"`
}

// ListDesigns は保存済みデザインの一覧を返す（保存日時の降順）。
// GET /api/designs
func (h *DesignHandler) ListDesigns(w http.ResponseWriter, r *http.Request) {
	designs, err := h.repo.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if designs == nil {
		designs = []*model.Design{}
	}
	writeSuccessResponse(w, http.StatusOK, designs)
}

// SaveDesign は新しいデザインを保存する。
// IDはミリ秒タイムスタンプから生成する。
// POST /api/designs
func (h *DesignHandler) SaveDesign(w http.ResponseWriter, r *http.Request) {
	var req saveDesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	now := h.now()
	design := &model.Design{
		ID:      fmt.Sprintf("design-%d", now.UnixMilli()),
		Name:    h.sanitizer.Sanitize(req.Name),
		Chain:   req.Chain,
		SavedAt: now,
	}

	if err := h.repo.Upsert(r.Context(), design); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, design)
}

// DeleteDesign は指定IDのデザインを削除する。存在しない場合は404。
// DELETE /api/designs/{id}
func (h *DesignHandler) DeleteDesign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
