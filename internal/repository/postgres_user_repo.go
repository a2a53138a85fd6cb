package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leun/authgate/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, provider, role, created_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Provider, &user.Role, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// CreateWithProfileAndSetting はユーザー・プロフィール・設定を同一トランザクションで作成する。
// 3つのINSERTが全て成功した場合のみコミットする。
func (r *PostgresUserRepo) CreateWithProfileAndSetting(ctx context.Context, user *model.User, profile *model.UserProfile, setting *model.UserSetting) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成し、採番されたIDを受け取る
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, provider, role, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		user.Email, user.PasswordHash, user.Provider, user.Role, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// プロフィールを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, name, image, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		user.ID, profile.Name, profile.Image, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user profile: %w", err)
	}
	profile.UserID = user.ID

	// 設定を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, language, country, timezone, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, setting.Language, setting.Country, setting.Timezone, setting.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user setting: %w", err)
	}
	setting.UserID = user.ID

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// user_profiles、user_settings、refresh_tokensはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %d", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
