package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/leun/authgate/internal/model"
)

// OAuthServiceInterface はOAuthハンドラーが必要とするサービスインターフェース。
type OAuthServiceInterface interface {
	LoginWithAuthCode(ctx context.Context, provider model.ProviderType, code string) (*model.AuthResult, error)
}

// OAuthHandler はOAuth連携ログインのHTTPハンドラー。
type OAuthHandler struct {
	service OAuthServiceInterface
}

// NewOAuthHandler はOAuthHandlerを生成する。
func NewOAuthHandler(service OAuthServiceInterface) *OAuthHandler {
	return &OAuthHandler{
		service: service,
	}
}

type oauthLoginRequest struct {
	Code string `json:"code"`
}

// GoogleLogin はGoogleの認可コードでログインする。
// POST /v1/auth/google/login
func (h *OAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.ProviderGoogle)
}

// NaverLogin はNaverの認可コードでログインする。
// POST /v1/auth/naver/login
func (h *OAuthHandler) NaverLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.ProviderNaver)
}

func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request, provider model.ProviderType) {
	var req oauthLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("Authorization code cannot be null or empty."))
		return
	}

	// 空コードの検証はサービス層でも行うが、ここで早期に弾く
	result, err := h.service.LoginWithAuthCode(r.Context(), provider, req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Name:         result.Name,
		Image:        result.Image,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}
