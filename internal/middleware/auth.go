// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/leun/authgate/internal/model"
)

type contextKey string

const (
	emailContextKey contextKey = "auth_email"
	roleContextKey  contextKey = "auth_role"
)

// ErrNoAuthContext は認証情報がコンテキストに無い場合のエラー。
var ErrNoAuthContext = errors.New("authentication context not found")

// TokenVerifier はアクセストークンの検証インターフェース。
type TokenVerifier interface {
	// ExtractSubject はトークンを検証してsubject（email）を取り出す。
	ExtractSubject(token string) (string, error)
}

// UserFinder は認証済みユーザーの解決インターフェース。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// NewAuthMiddleware はBearerアクセストークンを検証するミドルウェアを返す。
// 検証済みのemailとロールをリクエストコンテキストに格納する。
// ヘッダー欠落・形式不正・署名不正は401、期限切れはTOKEN_EXPIREDの401を返す。
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAccessTokenInvalidError())
				return
			}

			email, err := verifier.ExtractSubject(token)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeTokenExpired {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAccessTokenInvalidError())
				return
			}

			user, err := users.FindByEmail(r.Context(), email)
			if err != nil {
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				// トークンは有効だがユーザーが退会済みなど
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUserNotFoundError(email))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), user.Email, user.Role)))
		})
	}
}

// RequireRole は指定ロールを要求するミドルウェアを返す。
// NewAuthMiddlewareの内側で使用すること。ロール不足は403を返す。
func RequireRole(role model.UserRole) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := RoleFromContext(r.Context())
			if err != nil || got != role {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithAuth は認証済みのemailとロールをコンテキストに格納する。
func ContextWithAuth(ctx context.Context, email string, role model.UserRole) context.Context {
	ctx = context.WithValue(ctx, emailContextKey, email)
	return context.WithValue(ctx, roleContextKey, role)
}

// EmailFromContext はコンテキストから認証済みemailを取り出す。
func EmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(emailContextKey).(string)
	if !ok || email == "" {
		return "", ErrNoAuthContext
	}
	return email, nil
}

// RoleFromContext はコンテキストから認証済みユーザーのロールを取り出す。
func RoleFromContext(ctx context.Context) (model.UserRole, error) {
	role, ok := ctx.Value(roleContextKey).(model.UserRole)
	if !ok {
		return "", ErrNoAuthContext
	}
	return role, nil
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
