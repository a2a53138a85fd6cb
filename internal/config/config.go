// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultNaverTokenURL    = "https://nid.naver.com/oauth2.0/token"
	defaultNaverUserInfoURL = "https://openapi.naver.com/v1/nid/me"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// JWT
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Naver OAuth
	NaverClientID     string
	NaverClientSecret string
	NaverRedirectURL  string
	NaverTokenURL     string
	NaverUserInfoURL  string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	required := []struct {
		key  string
		dest *string
	}{
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"JWT_SECRET", &cfg.JWTSecret},
		{"GOOGLE_CLIENT_ID", &cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", &cfg.GoogleClientSecret},
		{"GOOGLE_REDIRECT_URL", &cfg.GoogleRedirectURL},
		{"NAVER_CLIENT_ID", &cfg.NaverClientID},
		{"NAVER_CLIENT_SECRET", &cfg.NaverClientSecret},
		{"NAVER_REDIRECT_URL", &cfg.NaverRedirectURL},
	}
	for _, f := range required {
		*f.dest = os.Getenv(f.key)
		if *f.dest == "" {
			missing = append(missing, f.key)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.NaverTokenURL = getEnvString("NAVER_TOKEN_URL", defaultNaverTokenURL)
	cfg.NaverUserInfoURL = getEnvString("NAVER_USERINFO_URL", defaultNaverUserInfoURL)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL (%v) must be shorter than REFRESH_TOKEN_TTL (%v)",
			cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
