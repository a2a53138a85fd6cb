package repository

import (
	"testing"
)

// 各Postgresリポジトリがインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

func TestPostgresProfileRepo_ImplementsInterface(t *testing.T) {
	var _ ProfileRepository = (*PostgresProfileRepo)(nil)
}

func TestPostgresSettingRepo_ImplementsInterface(t *testing.T) {
	var _ SettingRepository = (*PostgresSettingRepo)(nil)
}

func TestPostgresRefreshTokenRepo_ImplementsInterface(t *testing.T) {
	var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)
}

// 各リポジトリのコンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Fatal("expected non-nil user repo")
	}
	if NewPostgresProfileRepo(nil) == nil {
		t.Fatal("expected non-nil profile repo")
	}
	if NewPostgresSettingRepo(nil) == nil {
		t.Fatal("expected non-nil setting repo")
	}
	if NewPostgresRefreshTokenRepo(nil) == nil {
		t.Fatal("expected non-nil refresh token repo")
	}
}
