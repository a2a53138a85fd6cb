package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leun/authgate/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn   func(ctx context.Context, email, password string) (*model.AuthResult, error)
	refreshFn func(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	logoutFn  func(ctx context.Context, refreshToken string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, model.NewTokenInvalidError()
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, refreshToken)
	}
	return nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

// --- POST /v1/auth/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, email, password string) (*model.AuthResult, error) {
			if email != "test@user" || password != "password1234!" {
				t.Errorf("login called with email=%q password=%q", email, password)
			}
			return &model.AuthResult{
				Name:         "Test User",
				Image:        "http://img.example/1.png",
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"test@user","password":"password1234!"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["name"] != "Test User" {
		t.Errorf("name = %v, want Test User", body["name"])
	}
	if body["accessToken"] != "access-token" || body["refreshToken"] != "refresh-token" {
		t.Errorf("tokens = %v / %v", body["accessToken"], body["refreshToken"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"email":"test@user","password":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, w)
	if body["message"] != "Invalid email or password" {
		t.Errorf("message = %v, want %q", body["message"], "Invalid email or password")
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (*model.AuthResult, error) {
			t.Error("service must not be called for invalid input")
			return nil, nil
		},
	})

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing password", `{"email":"test@user"}`},
		{"missing email", `{"password":"password1234!"}`},
		{"malformed json", `{notjson`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			h.Login(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// --- POST /v1/auth/refresh-token テスト ---

func TestAuthHandler_Refresh_Success(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(_ context.Context, refreshToken string) (*model.TokenPair, error) {
			if refreshToken != "old-refresh" {
				t.Errorf("refreshToken = %q, want old-refresh", refreshToken)
			}
			return &model.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh-token",
		strings.NewReader(`{"refreshToken":"old-refresh"}`))
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["accessToken"] != "new-access" || body["refreshToken"] != "new-refresh" {
		t.Errorf("tokens = %v / %v", body["accessToken"], body["refreshToken"])
	}
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh-token", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, w)
	if body["message"] != "Refresh Token is required." {
		t.Errorf("message = %v, want %q", body["message"], "Refresh Token is required.")
	}
}

func TestAuthHandler_Refresh_Mismatch(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(_ context.Context, _ string) (*model.TokenPair, error) {
			return nil, model.NewTokenMismatchError()
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh-token",
		strings.NewReader(`{"refreshToken":"stale-token"}`))
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, w)
	if body["message"] != "Refresh Token mismatch." {
		t.Errorf("message = %v, want %q", body["message"], "Refresh Token mismatch.")
	}
}

// --- POST /v1/auth/logout テスト ---

func TestAuthHandler_Logout_Success(t *testing.T) {
	logoutCalled := false
	svc := &mockAuthService{
		logoutFn: func(_ context.Context, refreshToken string) error {
			logoutCalled = true
			return nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout",
		strings.NewReader(`{"refreshToken":"current-refresh"}`))
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !logoutCalled {
		t.Error("expected Logout to be called")
	}
	body := decodeBody(t, w)
	if body["message"] != "Logout successful." {
		t.Errorf("message = %v, want %q", body["message"], "Logout successful.")
	}
}

func TestAuthHandler_Logout_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
