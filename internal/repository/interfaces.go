// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/leun/authgate/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithProfileAndSetting はユーザー・プロフィール・設定を
	// 同一トランザクションで作成し、採番されたユーザーIDをuserに書き戻す。
	CreateWithProfileAndSetting(ctx context.Context, user *model.User, profile *model.UserProfile, setting *model.UserSetting) error

	// DeleteByID は指定IDのユーザーを削除する。
	// user_profiles、user_settings、refresh_tokensはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID int64) (*model.UserProfile, error)

	// UpdateName は表示名を更新する。
	UpdateName(ctx context.Context, userID int64, name string) error

	// UpdateImage はプロフィール画像の参照を更新する。
	UpdateImage(ctx context.Context, userID int64, image string) error
}

// SettingRepository はユーザー設定の永続化インターフェース。
type SettingRepository interface {
	// FindByUserID は指定ユーザーの設定を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID int64) (*model.UserSetting, error)

	// UpdateLanguage は言語設定を更新する。
	UpdateLanguage(ctx context.Context, userID int64, language string) error

	// UpdateCountry は国設定を更新する。
	UpdateCountry(ctx context.Context, userID int64, country string) error

	// UpdateTimezone はタイムゾーン設定を更新する。
	UpdateTimezone(ctx context.Context, userID int64, timezone string) error
}

// RefreshTokenRepository はリフレッシュトークンの永続化インターフェース。
// ユーザーごとに高々1行の不変条件はUPSERTと主キー制約で保証する。
type RefreshTokenRepository interface {
	// FindByUserID は指定ユーザーの保存済みトークンを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID int64) (*model.RefreshToken, error)

	// Upsert はトークン行を作成または値を置き換える。
	// ログイン・リフレッシュのたびに呼ばれ、既存行があれば上書きする。
	Upsert(ctx context.Context, userID int64, token string) error

	// DeleteByUserID は指定ユーザーのトークン行を削除する。
	// 行が存在しない場合もエラーにしない（冪等）。
	DeleteByUserID(ctx context.Context, userID int64) error

	// DeleteOlderThan は最終更新がcutoffより古い行を削除し、削除件数を返す。
	// リフレッシュTTLを超えて放置された行の掃除に使う。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
