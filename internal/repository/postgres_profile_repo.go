package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leun/authgate/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID int64) (*model.UserProfile, error) {
	profile := &model.UserProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, name, image, updated_at
		 FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.Name, &profile.Image, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}

	return profile, nil
}

// UpdateName は表示名を更新する。
func (r *PostgresProfileRepo) UpdateName(ctx context.Context, userID int64, name string) error {
	return r.update(ctx, userID, "name", name)
}

// UpdateImage はプロフィール画像の参照を更新する。
func (r *PostgresProfileRepo) UpdateImage(ctx context.Context, userID int64, image string) error {
	return r.update(ctx, userID, "image", image)
}

// update は単一カラムを更新する。列名は呼び出し側の定数のみを受け付ける。
func (r *PostgresProfileRepo) update(ctx context.Context, userID int64, column, value string) error {
	query := fmt.Sprintf(
		`UPDATE user_profiles SET %s = $1, updated_at = $2 WHERE user_id = $3`, column)

	result, err := r.db.ExecContext(ctx, query, value, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user profile %s: %w", column, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user profile not found: %d", userID)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
