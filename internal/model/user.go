// Package model はドメインモデルを定義する。
package model

import "time"

// ProviderType はユーザーの認証手段（ローカル or 外部IdP）を表す。
type ProviderType string

const (
	// ProviderLocal はメール/パスワードによるローカル認証。
	ProviderLocal ProviderType = "LOCAL"
	// ProviderGoogle はGoogle OAuthによる認証。
	ProviderGoogle ProviderType = "GOOGLE"
	// ProviderNaver はNaver OAuthによる認証。
	ProviderNaver ProviderType = "NAVER"
)

// UserRole はユーザーの権限ロールを表す。
type UserRole string

const (
	// RoleUser は一般ユーザー。
	RoleUser UserRole = "USER"
	// RoleAdmin は管理者。
	RoleAdmin UserRole = "ADMIN"
)

// User はサービス利用ユーザーを表す。
// emailはプロバイダーを問わずグローバルに一意。
// providerはアカウント作成時に確定し、以降変更されない。
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Provider     ProviderType
	Role         UserRole
	CreatedAt    time.Time
}

// UserProfile はユーザーの表示名とプロフィール画像を表す。
// Userと1:1で、User削除時にCASCADE削除される。
type UserProfile struct {
	UserID    int64
	Name      string
	Image     string
	UpdatedAt time.Time
}

// UserSetting はユーザーの言語・国・タイムゾーン設定を表す。
// アカウント作成時にデフォルト値で生成され、項目ごとに更新できる。
type UserSetting struct {
	UserID    int64
	Language  string
	Country   string
	Timezone  string
	UpdatedAt time.Time
}

// UserSettingのデフォルト値。アカウント作成時に適用される。
const (
	DefaultLanguage = "Korean"
	DefaultCountry  = "South Korea"
	DefaultTimezone = "KST +09:00"
)

// RefreshToken はユーザーごとに高々1行存在するリフレッシュトークンを表す。
// ログインまたはリフレッシュのたびに値が置き換えられ、ログアウトで削除される。
type RefreshToken struct {
	UserID    int64
	Token     string
	UpdatedAt time.Time
}

// TokenPair はアクセストークンとリフレッシュトークンの組を表す。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult はログイン成功時にクライアントへ返す情報を表す。
type AuthResult struct {
	Name         string
	Image        string
	AccessToken  string
	RefreshToken string
}
