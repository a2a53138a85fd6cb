package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leun/authgate/internal/model"
)

// PostgresSettingRepo はPostgreSQLを使用したユーザー設定リポジトリ。
type PostgresSettingRepo struct {
	db *sql.DB
}

// NewPostgresSettingRepo はPostgresSettingRepoを生成する。
func NewPostgresSettingRepo(db *sql.DB) *PostgresSettingRepo {
	return &PostgresSettingRepo{db: db}
}

// FindByUserID は指定ユーザーの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresSettingRepo) FindByUserID(ctx context.Context, userID int64) (*model.UserSetting, error) {
	setting := &model.UserSetting{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, language, country, timezone, updated_at
		 FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(&setting.UserID, &setting.Language, &setting.Country, &setting.Timezone, &setting.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user setting: %w", err)
	}

	return setting, nil
}

// UpdateLanguage は言語設定を更新する。
func (r *PostgresSettingRepo) UpdateLanguage(ctx context.Context, userID int64, language string) error {
	return r.update(ctx, userID, "language", language)
}

// UpdateCountry は国設定を更新する。
func (r *PostgresSettingRepo) UpdateCountry(ctx context.Context, userID int64, country string) error {
	return r.update(ctx, userID, "country", country)
}

// UpdateTimezone はタイムゾーン設定を更新する。
func (r *PostgresSettingRepo) UpdateTimezone(ctx context.Context, userID int64, timezone string) error {
	return r.update(ctx, userID, "timezone", timezone)
}

// update は単一カラムを更新する。列名は呼び出し側の定数のみを受け付ける。
func (r *PostgresSettingRepo) update(ctx context.Context, userID int64, column, value string) error {
	query := fmt.Sprintf(
		`UPDATE user_settings SET %s = $1, updated_at = $2 WHERE user_id = $3`, column)

	result, err := r.db.ExecContext(ctx, query, value, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user setting %s: %w", column, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user setting not found: %d", userID)
	}
	return nil
}

// compile-time interface check
var _ SettingRepository = (*PostgresSettingRepo)(nil)
