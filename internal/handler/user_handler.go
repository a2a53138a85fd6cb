package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/leun/authgate/internal/middleware"
	"github.com/leun/authgate/internal/model"
	"github.com/leun/authgate/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, email, password, name string) error
	GetProfile(ctx context.Context, email string) (*user.Profile, error)
	GetSetting(ctx context.Context, email string) (*user.Setting, error)
	UpdateName(ctx context.Context, email, name string) error
	UpdateImage(ctx context.Context, email, image string) error
	UpdateLanguage(ctx context.Context, email, language string) error
	UpdateCountry(ctx context.Context, email, country string) error
	UpdateTimezone(ctx context.Context, email, timezone string) error
	Withdraw(ctx context.Context, email string) error
}

// UserHandler はアカウント・プロフィール・設定管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register はローカルアカウントを登録する。
// POST /v1/user
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("Invalid request body."))
		return
	}

	if err := h.service.Register(r.Context(), req.Email, req.Password, req.Name); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetProfile は認証済みユーザーのプロフィールを返す。
// GET /v1/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := authedEmail(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetSetting は認証済みユーザーの設定を返す。
// GET /v1/user/setting
func (h *UserHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	email, ok := authedEmail(w, r)
	if !ok {
		return
	}

	setting, err := h.service.GetSetting(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

// UpdateName は表示名を更新する。
// PATCH /v1/user/profile/name
func (h *UserHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	h.updateField(w, r, "name", h.service.UpdateName)
}

// UpdateImage はプロフィール画像の参照を更新する。
// POST /v1/user/profile/image
func (h *UserHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	h.updateField(w, r, "image", h.service.UpdateImage)
}

// UpdateLanguage は言語設定を更新する。
// PATCH /v1/user/setting/language
func (h *UserHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	h.updateField(w, r, "language", h.service.UpdateLanguage)
}

// UpdateCountry は国設定を更新する。
// PATCH /v1/user/setting/country
func (h *UserHandler) UpdateCountry(w http.ResponseWriter, r *http.Request) {
	h.updateField(w, r, "country", h.service.UpdateCountry)
}

// UpdateTimezone はタイムゾーン設定を更新する。
// PATCH /v1/user/setting/timezone
func (h *UserHandler) UpdateTimezone(w http.ResponseWriter, r *http.Request) {
	h.updateField(w, r, "timezone", h.service.UpdateTimezone)
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /v1/user
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	email, ok := authedEmail(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), email); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdminProfile はADMINロール専用のプロフィール取得。
// ロール検証はミドルウェア（RequireRole）が行う。
// GET /v1/admin/profile
func (h *UserHandler) AdminProfile(w http.ResponseWriter, r *http.Request) {
	h.GetProfile(w, r)
}

// updateField は単一フィールドの更新リクエストを共通処理する。
// リクエストボディはフィールド名をキーとするJSONオブジェクト。
func (h *UserHandler) updateField(w http.ResponseWriter, r *http.Request, field string, update func(ctx context.Context, email, value string) error) {
	email, ok := authedEmail(w, r)
	if !ok {
		return
	}

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		handleServiceError(w, model.NewInvalidRequestError("Invalid request body."))
		return
	}

	if err := update(r.Context(), email, body[field]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// authedEmail はコンテキストから認証済みemailを取り出す。
// 認証ミドルウェアを通過していない場合は401を書き込む。
func authedEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAccessTokenInvalidError())
		return "", false
	}
	return email, true
}
