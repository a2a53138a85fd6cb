// Package token は署名付き・期限付きベアラートークンの発行と検証を提供する。
// トークンはステートレスで、発行記録は保持しない。失効は
// リポジトリ側の「ユーザーごとに1行」のリフレッシュトークン照合でのみ行う。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/leun/authgate/internal/model"
)

// Codec はHMAC-SHA256で署名されたJWTを発行・検証する。
// 鍵とTTLはプロセス起動時に1回設定され、以降変更されない。
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// テスト用にオーバーライド可能な現在時刻
	now func() time.Time
}

// NewCodec はCodecを生成する。
// accessTTLはrefreshTTLより十分短いことを想定する。
func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		key:        []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccessToken はsubject（ユーザーのemail）を埋め込んだアクセストークンを発行する。
func (c *Codec) IssueAccessToken(subject string) (string, error) {
	return c.issue(subject, c.accessTTL)
}

// IssueRefreshToken はsubjectを埋め込んだリフレッシュトークンを発行する。
func (c *Codec) IssueRefreshToken(subject string) (string, error) {
	return c.issue(subject, c.refreshTTL)
}

// issue は指定TTLのトークンを発行する。
// jtiを付与し、同一秒内のローテーションでも必ず異なる文字列になるようにする。
func (c *Codec) issue(subject string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ExtractSubject はトークンを検証し、subject（email）を取り出す。
// 期限切れはTokenExpired、署名・構造不正はTokenInvalidを返す。
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.NewTokenExpiredError()
		}
		return "", model.NewTokenInvalidError()
	}

	if claims.Subject == "" {
		return "", model.NewTokenInvalidError()
	}
	return claims.Subject, nil
}

// Validate は署名が正しく期限内である場合にのみtrueを返す。エラーは返さない。
func (c *Codec) Validate(tokenString string) bool {
	_, err := jwt.Parse(tokenString, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	return err == nil
}

// keyFunc は検証に使用する対称鍵を返す。
func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	return c.key, nil
}
