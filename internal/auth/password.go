package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// placeholderPasswordHash は外部IdP連携アカウントに格納するハッシュ。
// bcrypt形式として不正な値のため、どのパスワードとも一致せず、
// 連携アカウントがパスワードログインできないことを保証する。
const placeholderPasswordHash = "*"

// HashPassword はパスワードをbcryptでハッシュ化する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードを格納済みハッシュと照合する。
// 一致した場合のみtrueを返す。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
