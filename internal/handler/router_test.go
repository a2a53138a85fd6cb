package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leun/authgate/internal/metrics"
	"github.com/leun/authgate/internal/model"
	"github.com/leun/authgate/internal/token"
	"github.com/leun/authgate/internal/user"
)

// mockUserFinder はmiddleware.UserFinderのモック実装。
type mockUserFinder struct {
	users map[string]*model.User
}

func (m *mockUserFinder) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return m.users[email], nil
}

type nilPinger struct{}

func (nilPinger) PingContext(context.Context) error { return nil }

func newTestRouter(t *testing.T, codec *token.Codec, users map[string]*model.User) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		TokenVerifier:     codec,
		UserFinder:        &mockUserFinder{users: users},
		AuthService:       &mockAuthService{},
		OAuthService:      &mockOAuthService{},
		UserService: &mockUserService{
			getProfileFn: func(_ context.Context, email string) (*user.Profile, error) {
				return &user.Profile{Email: email, Name: "Test User"}, nil
			},
		},
		DB:              nilPinger{},
		StatusRecorder:  collector,
		MetricsGatherer: reg,
	})
}

func testRouterCodec() *token.Codec {
	return token.NewCodec("router-test-secret-32-bytes-long!!", 30*time.Minute, 7*24*time.Hour)
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t, testRouterCodec(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, testRouterCodec(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_PublicRoutes_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t, testRouterCodec(), nil)

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/v1/auth/login", `{"email":"a@b","password":"p"}`},
		{http.MethodPost, "/v1/auth/refresh-token", `{"refreshToken":"x"}`},
		{http.MethodPost, "/v1/auth/google/login", `{"code":"c"}`},
		{http.MethodPost, "/v1/auth/naver/login", `{"code":"c"}`},
		{http.MethodPost, "/v1/user", `{"email":"a@b","password":"p","name":"n"}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// 認証ミドルウェアによる401ではないこと（モックサービスの応答は問わない）
		if w.Code == http.StatusNotFound || w.Code == http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, route not wired", tc.method, tc.path, w.Code)
		}
	}
}

func TestRouter_GatedRoutes_RequireBearer(t *testing.T) {
	router := newTestRouter(t, testRouterCodec(), nil)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/user/profile"},
		{http.MethodGet, "/v1/user/setting"},
		{http.MethodPatch, "/v1/user/profile/name"},
		{http.MethodPost, "/v1/user/profile/image"},
		{http.MethodPatch, "/v1/user/setting/language"},
		{http.MethodDelete, "/v1/user"},
		{http.MethodGet, "/v1/admin/profile"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestRouter_GatedRoute_ValidBearer(t *testing.T) {
	codec := testRouterCodec()
	users := map[string]*model.User{
		"test@user": {ID: 1, Email: "test@user", Role: model.RoleUser},
	}
	router := newTestRouter(t, codec, users)

	accessToken, err := codec.IssueAccessToken("test@user")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["email"] != "test@user" {
		t.Errorf("email = %v, want test@user", body["email"])
	}
}

func TestRouter_AdminRoute_RoleEnforced(t *testing.T) {
	codec := testRouterCodec()
	users := map[string]*model.User{
		"user@user":  {ID: 1, Email: "user@user", Role: model.RoleUser},
		"admin@user": {ID: 2, Email: "admin@user", Role: model.RoleAdmin},
	}
	router := newTestRouter(t, codec, users)

	// USERロールは403
	userToken, err := codec.IssueAccessToken("user@user")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/profile", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("USER role: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// ADMINロールは200
	adminToken, err := codec.IssueAccessToken("admin@user")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/admin/profile", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("ADMIN role: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(t, testRouterCodec(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
