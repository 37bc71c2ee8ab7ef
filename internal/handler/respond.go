// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/middleware"
	"github.com/hitoshi/chainlearn/internal/model"
)

// successResponse は成功レスポンスの統一エンベロープ。
type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON は任意のレスポンスボディをJSONで書き込む。
// エンベロープを持たない管理者判定レスポンスなどで使用する。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeSuccessResponse は統一エンベロープで成功レスポンスを書き込む。
func writeSuccessResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(successResponse{
		Success: true,
		Data:    data,
	})
}

// writeMessageResponse は本文リソースを持たない成功レスポンスを書き込む。
func writeMessageResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(successResponse{
		Success: true,
		Message: message,
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// statusForAPIError はAPIErrorのコードをHTTPステータスコードにマッピングする。
func statusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeBadRequest:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound, model.ErrCodeDesignNotFound,
		model.ErrCodeQuestionNotFound, model.ErrCodeLessonNotFound:
		return http.StatusNotFound
	case model.ErrCodeUserNoEmail:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラーは詳細をログにのみ記録し、一般的な500を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, statusForAPIError(apiErr), apiErr)
		return
	}

	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}
