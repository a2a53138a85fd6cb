package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/leun/authgate/internal/model"
)

// NaverOAuthConfig はNaver OAuthプロバイダーの設定。
// TokenURLとUserInfoURLは設定で差し替え可能（テストでも使用）。
type NaverOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenURL     string
	UserInfoURL  string

	// HTTPClientが指定された場合はそのクライアントを使用する。
	HTTPClient *http.Client
}

// NaverOAuthProvider はNaver OAuth 2.0による認証を提供する。
// NaverはIDトークンを発行しないため、交換したアクセストークンで
// ユーザー情報エンドポイントを呼び出してアイデンティティを得る。
type NaverOAuthProvider struct {
	config NaverOAuthConfig
	client *http.Client
}

// NewNaverOAuthProvider はNaverOAuthProviderを生成する。
func NewNaverOAuthProvider(config NaverOAuthConfig) *NaverOAuthProvider {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &NaverOAuthProvider{config: config, client: client}
}

// ProviderType はNAVERを返す。
func (p *NaverOAuthProvider) ProviderType() model.ProviderType {
	return model.ProviderNaver
}

// naverTokenResponse はNaverのトークンエンドポイントのレスポンス。
type naverTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    string `json:"expires_in"`
}

// naverUserInfoResponse はNaverのユーザー情報エンドポイントのレスポンス。
// ユーザー情報はネストされたresponseフィールドに入る。
type naverUserInfoResponse struct {
	ResultCode string         `json:"resultcode"`
	Message    string         `json:"message"`
	Response   *naverUserInfo `json:"response"`
}

type naverUserInfo struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
// 交換失敗はUpstreamExchangeFailed、ユーザー情報の取得失敗・必須フィールドの
// 欠落はUpstreamIdentityInvalidを返す。
func (p *NaverOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthIdentity, error) {
	// 1. 認可コードをアクセストークンに交換
	accessToken, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, model.NewUpstreamExchangeFailedError(model.ProviderNaver, err)
	}

	// 2. アクセストークンでユーザー情報を取得
	info, err := p.fetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, model.NewUpstreamIdentityInvalidError(model.ProviderNaver, err)
	}

	return info, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *NaverOAuthProvider) exchangeToken(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp naverTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", errors.New("empty access token in response")
	}

	return tokenResp.AccessToken, nil
}

// fetchUserInfo はアクセストークンでNaverのユーザー情報を取得する。
// ネストされたresponseペイロードの欠落、プロバイダーユーザーIDまたは
// emailの欠落はエラーにする。
func (p *NaverOAuthProvider) fetchUserInfo(ctx context.Context, accessToken string) (*OAuthIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfoResp naverUserInfoResponse
	if err := json.Unmarshal(body, &userInfoResp); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfoResp.Response == nil {
		return nil, errors.New("response field missing from user info")
	}
	if userInfoResp.Response.ID == "" || userInfoResp.Response.Email == "" {
		return nil, errors.New("required user info (id or email) missing from response")
	}

	return &OAuthIdentity{
		ProviderUserID: userInfoResp.Response.ID,
		Email:          userInfoResp.Response.Email,
		Name:           userInfoResp.Response.Name,
		Image:          userInfoResp.Response.ProfileImage,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*NaverOAuthProvider)(nil)
