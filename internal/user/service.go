// Package user はアカウント登録、プロフィール・設定の管理、退会処理を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leun/authgate/internal/auth"
	"github.com/leun/authgate/internal/model"
	"github.com/leun/authgate/internal/repository"
)

// Profile はプロフィール取得APIのビュー。
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Setting は設定取得APIのビュー。
type Setting struct {
	Language string `json:"language"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// RegistrationRecorder はアカウント登録のメトリクス記録インターフェース。
type RegistrationRecorder interface {
	RecordRegistration()
}

// Service はユーザー管理のサービス層。
// 呼び出し元はアクセストークンのsubject（email）でユーザーを特定する。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	settingRepo repository.SettingRepository
	tokenRepo   repository.RefreshTokenRepository
	metrics     RegistrationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	settingRepo repository.SettingRepository,
	tokenRepo repository.RefreshTokenRepository,
	metrics RegistrationRecorder,
) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		settingRepo: settingRepo,
		tokenRepo:   tokenRepo,
		metrics:     metrics,
	}
}

// Register はローカルアカウントを登録する。
// User・Profile・Settingは1トランザクションで作成される。
// 同一emailが既に存在する場合はプロバイダーを問わずDuplicateEmailを返す。
func (s *Service) Register(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return model.NewInvalidRequestError("A valid email is required.")
	}
	if password == "" {
		return model.NewInvalidRequestError("Password is required.")
	}
	if strings.TrimSpace(name) == "" {
		return model.NewInvalidRequestError("Name is required.")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return model.NewDuplicateEmailError()
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Provider:     model.ProviderLocal,
		Role:         model.RoleUser,
	}
	profile := &model.UserProfile{Name: strings.TrimSpace(name)}
	setting := &model.UserSetting{
		Language: model.DefaultLanguage,
		Country:  model.DefaultCountry,
		Timezone: model.DefaultTimezone,
	}
	if err := s.userRepo.CreateWithProfileAndSetting(ctx, user, profile, setting); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}

	slog.Info("new user created",
		slog.Int64("user_id", user.ID),
		slog.String("provider", string(model.ProviderLocal)),
	)

	return nil
}

// GetProfile はemailでプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, email string) (*Profile, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileMissingError(email)
	}

	return &Profile{
		Email: user.Email,
		Name:  profile.Name,
		Image: profile.Image,
	}, nil
}

// GetSetting はemailで設定を取得する。
func (s *Service) GetSetting(ctx context.Context, email string) (*Setting, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	setting, err := s.settingRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user setting: %w", err)
	}
	if setting == nil {
		return nil, model.NewSettingMissingError(email)
	}

	return &Setting{
		Language: setting.Language,
		Country:  setting.Country,
		Timezone: setting.Timezone,
	}, nil
}

// UpdateName は表示名を更新する。
func (s *Service) UpdateName(ctx context.Context, email, name string) error {
	if strings.TrimSpace(name) == "" {
		return model.NewInvalidRequestError("Name is required.")
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.profileRepo.UpdateName(ctx, user.ID, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("failed to update profile name: %w", err)
	}
	return nil
}

// UpdateImage はプロフィール画像の参照を更新する。
func (s *Service) UpdateImage(ctx context.Context, email, image string) error {
	if strings.TrimSpace(image) == "" {
		return model.NewInvalidRequestError("Image is required.")
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.profileRepo.UpdateImage(ctx, user.ID, image); err != nil {
		return fmt.Errorf("failed to update profile image: %w", err)
	}
	return nil
}

// UpdateLanguage は言語設定を更新する。
func (s *Service) UpdateLanguage(ctx context.Context, email, language string) error {
	if strings.TrimSpace(language) == "" {
		return model.NewInvalidRequestError("Language is required.")
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.settingRepo.UpdateLanguage(ctx, user.ID, language); err != nil {
		return fmt.Errorf("failed to update language: %w", err)
	}
	return nil
}

// UpdateCountry は国設定を更新する。
func (s *Service) UpdateCountry(ctx context.Context, email, country string) error {
	if strings.TrimSpace(country) == "" {
		return model.NewInvalidRequestError("Country is required.")
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.settingRepo.UpdateCountry(ctx, user.ID, country); err != nil {
		return fmt.Errorf("failed to update country: %w", err)
	}
	return nil
}

// UpdateTimezone はタイムゾーン設定を更新する。
func (s *Service) UpdateTimezone(ctx context.Context, email, timezone string) error {
	if strings.TrimSpace(timezone) == "" {
		return model.NewInvalidRequestError("Timezone is required.")
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}
	if err := s.settingRepo.UpdateTimezone(ctx, user.ID, timezone); err != nil {
		return fmt.Errorf("failed to update timezone: %w", err)
	}
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: refresh_tokens → user（+ CASCADE: user_profiles, user_settings）
func (s *Service) Withdraw(ctx context.Context, email string) error {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	slog.Info("退会処理を開始します",
		slog.Int64("user_id", user.ID),
	)

	// 1. リフレッシュトークンを削除（行が無くてもエラーにしない）
	if err := s.tokenRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	// 2. ユーザーを削除（user_profiles, user_settingsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.Int64("user_id", user.ID),
	)

	return nil
}

// findUser はemailでユーザーを取得する。不在はUserNotFound。
func (s *Service) findUser(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(email)
	}
	return user, nil
}
