// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Errには上流（プロバイダー）呼び出し等の元エラーを保持し、診断ログに残す。
type APIError struct {
	Code     string // エラーコード
	Message  string // クライアント向けメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Err      error  // ラップされた原因（存在する場合のみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はラップされた原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeTokenInvalid            = "TOKEN_INVALID"
	ErrCodeTokenExpired            = "TOKEN_EXPIRED"
	ErrCodeTokenMismatch           = "TOKEN_MISMATCH"
	ErrCodeTokenNotFound           = "TOKEN_NOT_FOUND"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeProviderConflict        = "PROVIDER_CONFLICT"
	ErrCodeDuplicateEmail          = "DUPLICATE_EMAIL"
	ErrCodeUpstreamExchangeFailed  = "UPSTREAM_EXCHANGE_FAILED"
	ErrCodeUpstreamIdentityInvalid = "UPSTREAM_IDENTITY_INVALID"
	ErrCodeProfileMissing          = "PROFILE_MISSING"
	ErrCodeSettingMissing          = "SETTING_MISSING"
	ErrCodeForbidden               = "FORBIDDEN"
)

// NewInvalidRequestError は入力不備エラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウント列挙を避けるため、ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
	}
}

// NewTokenInvalidError はトークンの署名・構造不正エラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "Invalid Refresh Token.",
		Category: "auth",
	}
}

// NewAccessTokenInvalidError はアクセストークンの欠落・不正エラーを生成する。
func NewAccessTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "Invalid or missing access token.",
		Category: "auth",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "Token has expired.",
		Category: "auth",
	}
}

// NewTokenMismatchError は保存済みトークンと提示トークンの不一致エラーを生成する。
// ローテーション後の旧トークンのリプレイを拒否する。
func NewTokenMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMismatch,
		Message:  "Refresh Token mismatch.",
		Category: "auth",
	}
}

// NewTokenNotFoundError は保存済みトークン不在エラーを生成する。
func NewTokenNotFoundError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  fmt.Sprintf("Refresh Token not found for user: %s", email),
		Category: "auth",
	}
}

// NewUserNotFoundError はユーザー不在エラーを生成する。
func NewUserNotFoundError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("User not found with email: %s", email),
		Category: "auth",
	}
}

// NewProviderConflictError はプロバイダー競合エラーを生成する。
// 同一メールが別の認証手段で既に登録されている場合、自動マージは拒否する。
func NewProviderConflictError(provider ProviderType) *APIError {
	return &APIError{
		Code:     ErrCodeProviderConflict,
		Message:  fmt.Sprintf("Email is already registered with another provider: %s", provider),
		Category: "auth",
	}
}

// NewDuplicateEmailError はメール重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email is already registered.",
		Category: "validation",
	}
}

// NewUpstreamExchangeFailedError は認可コード交換の上流エラーを生成する。
// 原因エラーをラップし、自動リトライはしない。
func NewUpstreamExchangeFailedError(provider ProviderType, err error) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamExchangeFailed,
		Message:  fmt.Sprintf("Failed to exchange auth code for tokens with %s.", provider),
		Category: "upstream",
		Err:      err,
	}
}

// NewUpstreamIdentityInvalidError はプロバイダーから得たアイデンティティの
// 検証失敗・欠落エラーを生成する。
func NewUpstreamIdentityInvalidError(provider ProviderType, err error) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamIdentityInvalid,
		Message:  fmt.Sprintf("Invalid identity response from %s.", provider),
		Category: "upstream",
		Err:      err,
	}
}

// NewProfileMissingError はUserが存在するのにProfileが無い整合性エラーを生成する。
func NewProfileMissingError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileMissing,
		Message:  fmt.Sprintf("User profile not found: %s", email),
		Category: "system",
	}
}

// NewForbiddenError はロール不足による拒否エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to access this resource.",
		Category: "auth",
	}
}

// NewSettingMissingError はUserが存在するのにSettingが無い整合性エラーを生成する。
func NewSettingMissingError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeSettingMissing,
		Message:  fmt.Sprintf("User setting not found: %s", email),
		Category: "system",
	}
}
