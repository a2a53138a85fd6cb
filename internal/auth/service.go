// Package auth はローカル認証、OAuth連携、トークンのローテーションを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leun/authgate/internal/model"
	"github.com/leun/authgate/internal/repository"
)

// TokenCodec はトークンの発行・検証インターフェース。
// 実装はinternal/tokenのCodec。
type TokenCodec interface {
	// IssueAccessToken はsubjectを埋め込んだアクセストークンを発行する。
	IssueAccessToken(subject string) (string, error)
	// IssueRefreshToken はsubjectを埋め込んだリフレッシュトークンを発行する。
	IssueRefreshToken(subject string) (string, error)
	// ExtractSubject はトークンを検証してsubjectを取り出す。
	ExtractSubject(token string) (string, error)
	// Validate は署名が正しく期限内の場合にのみtrueを返す。
	Validate(token string) bool
}

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordLogin(provider string, success bool)
	RecordTokenRefresh(success bool)
	RecordUpstreamLatency(provider string, duration time.Duration)
}

// Service はローカル認証とトークンライフサイクルのビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tokenRepo   repository.RefreshTokenRepository
	codec       TokenCodec
	metrics     MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	tokenRepo repository.RefreshTokenRepository,
	codec TokenCodec,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		tokenRepo:   tokenRepo,
		codec:       codec,
		metrics:     metrics,
	}
}

// Login はemail/passwordを検証し、トークンペアを発行する。
// ユーザー不在とパスワード不一致は区別せずInvalidCredentialsを返す（列挙対策）。
// 成功時はリフレッシュトークン行をUPSERTする（既存セッションは上書き）。
func (s *Service) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil || !VerifyPassword(user.PasswordHash, password) {
		s.recordLogin(string(model.ProviderLocal), false)
		return nil, model.NewInvalidCredentialsError()
	}

	profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileMissingError(email)
	}

	pair, err := s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recordLogin(string(model.ProviderLocal), true)
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("provider", string(model.ProviderLocal)),
	)

	return &model.AuthResult{
		Name:         profile.Name,
		Image:        profile.Image,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh は提示されたリフレッシュトークンを検証し、新しいペアに交換する。
// 保存済みトークンとの完全一致を要求し、成功時は保存行を新トークンで上書きする
// （使用時ローテーション）。旧トークンのリプレイはTokenMismatchで拒否される。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	if !s.codec.Validate(refreshToken) {
		s.recordRefresh(false)
		return nil, model.NewTokenInvalidError()
	}

	email, err := s.codec.ExtractSubject(refreshToken)
	if err != nil {
		s.recordRefresh(false)
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.recordRefresh(false)
		return nil, model.NewUserNotFoundError(email)
	}

	stored, err := s.tokenRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	if stored == nil {
		s.recordRefresh(false)
		return nil, model.NewTokenNotFoundError(email)
	}
	if stored.Token != refreshToken {
		s.recordRefresh(false)
		return nil, model.NewTokenMismatchError()
	}

	pair, err := s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.recordRefresh(true)
	slog.Info("refresh token rotated", slog.Int64("user_id", user.ID))
	return pair, nil
}

// Logout は提示されたリフレッシュトークンを無効化する。
// 保存行が既に無い場合は「ログアウト済み」として成功扱いにする（冪等）。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if !s.codec.Validate(refreshToken) {
		return model.NewTokenInvalidError()
	}

	email, err := s.codec.ExtractSubject(refreshToken)
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(email)
	}

	if err := s.tokenRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	slog.Info("user logged out", slog.Int64("user_id", user.ID))
	return nil
}

// issueAndStoreTokens はトークンペアを発行し、リフレッシュトークン行をUPSERTする。
func (s *Service) issueAndStoreTokens(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	accessToken, err := s.codec.IssueAccessToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, err := s.codec.IssueRefreshToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if err := s.tokenRepo.Upsert(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) recordLogin(provider string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(provider, success)
	}
}

func (s *Service) recordRefresh(success bool) {
	if s.metrics != nil {
		s.metrics.RecordTokenRefresh(success)
	}
}
