package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/chainlearn/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// successは常にfalse、errorにはユーザー向けメッセージのみを含める。
type ErrorResponseBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Success: false,
		Error:   apiErr.Message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError("Internal server error"))
}
