package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leun/authgate/internal/model"
)

// PostgresRefreshTokenRepo はPostgreSQLを使用したリフレッシュトークンリポジトリ。
// user_idを主キーとする単一行UPSERTにより
// 「ユーザーごとに有効なリフレッシュトークンは高々1つ」を保証する。
// 同時ログインの競合はDBの行更新セマンティクスに委ね、後勝ちとする。
type PostgresRefreshTokenRepo struct {
	db *sql.DB
}

// NewPostgresRefreshTokenRepo はPostgresRefreshTokenRepoを生成する。
func NewPostgresRefreshTokenRepo(db *sql.DB) *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{db: db}
}

// FindByUserID は指定ユーザーの保存済みトークンを取得する。見つからない場合はnilを返す。
func (r *PostgresRefreshTokenRepo) FindByUserID(ctx context.Context, userID int64) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, token, updated_at
		 FROM refresh_tokens WHERE user_id = $1`,
		userID,
	).Scan(&rt.UserID, &rt.Token, &rt.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	return rt, nil
}

// Upsert はトークン行を作成または値を置き換える。
func (r *PostgresRefreshTokenRepo) Upsert(ctx context.Context, userID int64, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET token = $2, updated_at = $3`,
		userID, token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert refresh token: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーのトークン行を削除する。行が無くてもエラーにしない。
func (r *PostgresRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// DeleteOlderThan は最終更新がcutoffより古い行を削除し、削除件数を返す。
func (r *PostgresRefreshTokenRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale refresh tokens: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
