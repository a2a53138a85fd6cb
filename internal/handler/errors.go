package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leun/authgate/internal/middleware"
	"github.com/leun/authgate/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if statusCode >= 500 {
			// 上流・整合性エラーは原因込みでログに残す
			slog.Error("service error", slog.String("code", apiErr.Code), slog.String("error", apiErr.Error()))
		}
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials,
		model.ErrCodeTokenInvalid,
		model.ErrCodeTokenExpired,
		model.ErrCodeTokenMismatch,
		model.ErrCodeTokenNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeProviderConflict, model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeUpstreamExchangeFailed, model.ErrCodeUpstreamIdentityInvalid:
		return http.StatusBadGateway
	case model.ErrCodeProfileMissing, model.ErrCodeSettingMissing:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
