package auth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/leun/authgate/internal/model"
)

// IDTokenVerifier はGoogleのIDトークンを公開鍵で検証する関数。
// audienceはクライアントIDに固定する。テスト用に差し替え可能。
type IDTokenVerifier func(ctx context.Context, rawIDToken, audience string) (*idtoken.Payload, error)

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なエンドポイントと検証関数
	Endpoint oauth2.Endpoint
	Verifier IDTokenVerifier
}

// GoogleOAuthProvider はGoogle OAuth 2.0による認証を提供する。
// 認可コードをトークンに交換し、応答に含まれるIDトークンを
// Googleの公開鍵に対して検証してユーザー情報を得る。
type GoogleOAuthProvider struct {
	oauth    *oauth2.Config
	clientID string
	verify   IDTokenVerifier
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.Endpoint == (oauth2.Endpoint{}) {
		config.Endpoint = googleoauth.Endpoint
	}
	if config.Verifier == nil {
		config.Verifier = func(ctx context.Context, rawIDToken, audience string) (*idtoken.Payload, error) {
			return idtoken.Validate(ctx, rawIDToken, audience)
		}
	}
	return &GoogleOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     config.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		clientID: config.ClientID,
		verify:   config.Verifier,
	}
}

// ProviderType はGOOGLEを返す。
func (p *GoogleOAuthProvider) ProviderType() model.ProviderType {
	return model.ProviderGoogle
}

// ExchangeCode は認可コードをトークンに交換し、IDトークンを検証してユーザー情報を取得する。
// 交換失敗はUpstreamExchangeFailed、IDトークンの欠落・検証失敗はUpstreamIdentityInvalidを返す。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthIdentity, error) {
	// 1. 認可コードをトークンに交換
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, model.NewUpstreamExchangeFailedError(model.ProviderGoogle, err)
	}

	// 2. 応答からIDトークン文字列を抽出
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, model.NewUpstreamIdentityInvalidError(model.ProviderGoogle,
			errors.New("id_token not present in token response"))
	}

	// 3. IDトークンをGoogleの公開鍵で検証（audience = クライアントID）
	payload, err := p.verify(ctx, rawIDToken, p.clientID)
	if err != nil {
		return nil, model.NewUpstreamIdentityInvalidError(model.ProviderGoogle, err)
	}
	if payload == nil {
		return nil, model.NewUpstreamIdentityInvalidError(model.ProviderGoogle,
			errors.New("verified ID token payload is empty"))
	}

	// 4. ペイロードからユーザー情報を抽出。emailは必須。
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, model.NewUpstreamIdentityInvalidError(model.ProviderGoogle,
			errors.New("email missing from ID token payload"))
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return &OAuthIdentity{
		ProviderUserID: payload.Subject,
		Email:          email,
		Name:           name,
		Image:          picture,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
