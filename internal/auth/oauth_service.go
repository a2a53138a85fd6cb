package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leun/authgate/internal/model"
	"github.com/leun/authgate/internal/repository"
)

// OAuthIdentity はOAuthプロバイダーから取得・検証済みのユーザー情報を表す。
type OAuthIdentity struct {
	ProviderUserID string
	Email          string
	Name           string
	Image          string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// プロバイダーごとにコード交換とアイデンティティ取得の機構が異なる。
type OAuthProvider interface {
	// ProviderType はこのプロバイダーの種別を返す。
	ProviderType() model.ProviderType
	// ExchangeCode は認可コードをプロバイダートークンに交換し、
	// 検証済みのユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthIdentity, error)
}

// OAuthService はOAuth連携ログインのビジネスロジックを提供する。
// ローカルアカウントの解決・作成、プロバイダー競合の検出、トークン発行を行う。
type OAuthService struct {
	providers   map[model.ProviderType]OAuthProvider
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tokenRepo   repository.RefreshTokenRepository
	codec       TokenCodec
	metrics     MetricsRecorder
}

// NewOAuthService はOAuthServiceを生成する。metricsはnilでもよい。
func NewOAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	tokenRepo repository.RefreshTokenRepository,
	codec TokenCodec,
	metrics MetricsRecorder,
	providers ...OAuthProvider,
) *OAuthService {
	m := make(map[model.ProviderType]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.ProviderType()] = p
	}
	return &OAuthService{
		providers:   m,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		tokenRepo:   tokenRepo,
		codec:       codec,
		metrics:     metrics,
	}
}

// LoginWithAuthCode は認可コードでOAuthログインを実行する。
//
// 失敗の優先順位: 入力検証はネットワーク呼び出しに先行し、
// 上流エラーはローカル永続化に先行し、競合検出はトークン発行に先行する。
// 競合したアカウントにトークンが発行されることはない。
func (s *OAuthService) LoginWithAuthCode(ctx context.Context, provider model.ProviderType, code string) (*model.AuthResult, error) {
	// 1. 入力検証
	if code == "" {
		return nil, model.NewInvalidRequestError("Authorization code cannot be null or empty.")
	}

	p, ok := s.providers[provider]
	if !ok {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("Unsupported provider: %s", provider))
	}

	// 2-4. コード交換とアイデンティティ検証（プロバイダー実装に委譲）
	exchangeStart := time.Now()
	identity, err := p.ExchangeCode(ctx, code)
	s.recordUpstreamLatency(string(provider), time.Since(exchangeStart))
	if err != nil {
		s.recordLogin(string(provider), false)
		return nil, err
	}

	// 5. ローカルアカウントの解決
	user, err := s.userRepo.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 初回ログイン: User・Profile・Settingを1トランザクションで作成する。
		// 連携アカウントはパスワードログイン不可のプレースホルダーハッシュを持つ。
		user = &model.User{
			Email:        identity.Email,
			PasswordHash: placeholderPasswordHash,
			Provider:     provider,
			Role:         model.RoleUser,
			CreatedAt:    time.Now(),
		}
		profile := &model.UserProfile{
			Name:      identity.Name,
			Image:     identity.Image,
			UpdatedAt: time.Now(),
		}
		setting := &model.UserSetting{
			Language:  model.DefaultLanguage,
			Country:   model.DefaultCountry,
			Timezone:  model.DefaultTimezone,
			UpdatedAt: time.Now(),
		}
		if err := s.userRepo.CreateWithProfileAndSetting(ctx, user, profile, setting); err != nil {
			return nil, fmt.Errorf("failed to create federated user: %w", err)
		}

		slog.Info("new federated user created",
			slog.Int64("user_id", user.ID),
			slog.String("provider", string(provider)),
		)
	} else if user.Provider != provider {
		// 同一メールが別の認証手段で登録済み。自動マージは拒否する。
		s.recordLogin(string(provider), false)
		return nil, model.NewProviderConflictError(user.Provider)
	}
	// プロバイダー一致の再ログインではUser/Profile/Settingを書き換えない。
	// 既存データを正とする。

	// 6. トークン発行とリフレッシュトークン行のUPSERT
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

	profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileMissingError(user.Email)
	}

	s.recordLogin(string(provider), true)
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("provider", string(provider)),
	)

	return &model.AuthResult{
		Name:         profile.Name,
		Image:        profile.Image,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *OAuthService) recordLogin(provider string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(provider, success)
	}
}

func (s *OAuthService) recordUpstreamLatency(provider string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordUpstreamLatency(provider, d)
	}
}
