package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leun/authgate/internal/middleware"
	"github.com/leun/authgate/internal/model"
	"github.com/leun/authgate/internal/user"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	registerFn       func(ctx context.Context, email, password, name string) error
	getProfileFn     func(ctx context.Context, email string) (*user.Profile, error)
	getSettingFn     func(ctx context.Context, email string) (*user.Setting, error)
	updateNameFn     func(ctx context.Context, email, name string) error
	updateImageFn    func(ctx context.Context, email, image string) error
	updateLanguageFn func(ctx context.Context, email, language string) error
	updateCountryFn  func(ctx context.Context, email, country string) error
	updateTimezoneFn func(ctx context.Context, email, timezone string) error
	withdrawFn       func(ctx context.Context, email string) error
}

func (m *mockUserService) Register(ctx context.Context, email, password, name string) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password, name)
	}
	return nil
}

func (m *mockUserService) GetProfile(ctx context.Context, email string) (*user.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, email)
	}
	return nil, model.NewUserNotFoundError(email)
}

func (m *mockUserService) GetSetting(ctx context.Context, email string) (*user.Setting, error) {
	if m.getSettingFn != nil {
		return m.getSettingFn(ctx, email)
	}
	return nil, model.NewUserNotFoundError(email)
}

func (m *mockUserService) UpdateName(ctx context.Context, email, name string) error {
	if m.updateNameFn != nil {
		return m.updateNameFn(ctx, email, name)
	}
	return nil
}

func (m *mockUserService) UpdateImage(ctx context.Context, email, image string) error {
	if m.updateImageFn != nil {
		return m.updateImageFn(ctx, email, image)
	}
	return nil
}

func (m *mockUserService) UpdateLanguage(ctx context.Context, email, language string) error {
	if m.updateLanguageFn != nil {
		return m.updateLanguageFn(ctx, email, language)
	}
	return nil
}

func (m *mockUserService) UpdateCountry(ctx context.Context, email, country string) error {
	if m.updateCountryFn != nil {
		return m.updateCountryFn(ctx, email, country)
	}
	return nil
}

func (m *mockUserService) UpdateTimezone(ctx context.Context, email, timezone string) error {
	if m.updateTimezoneFn != nil {
		return m.updateTimezoneFn(ctx, email, timezone)
	}
	return nil
}

func (m *mockUserService) Withdraw(ctx context.Context, email string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, email)
	}
	return nil
}

var _ UserServiceInterface = (*mockUserService)(nil)

// withAuth は認証済みコンテキストを注入したリクエストを返す。
func withAuth(req *http.Request, email string, role model.UserRole) *http.Request {
	return req.WithContext(middleware.ContextWithAuth(req.Context(), email, role))
}

// --- POST /v1/user テスト ---

func TestUserHandler_Register_Success(t *testing.T) {
	registerCalled := false
	svc := &mockUserService{
		registerFn: func(_ context.Context, email, password, name string) error {
			registerCalled = true
			if email != "new@user" || password != "password1234!" || name != "New User" {
				t.Errorf("register called with %q %q %q", email, password, name)
			}
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/user",
		strings.NewReader(`{"email":"new@user","password":"password1234!","name":"New User"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !registerCalled {
		t.Error("expected Register to be called")
	}
}

func TestUserHandler_Register_DuplicateEmail_Returns409(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(_ context.Context, _, _, _ string) error {
			return model.NewDuplicateEmailError()
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/user",
		strings.NewReader(`{"email":"taken@user","password":"password1234!","name":"Someone"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- GET /v1/user/profile テスト ---

func TestUserHandler_GetProfile_Success(t *testing.T) {
	svc := &mockUserService{
		getProfileFn: func(_ context.Context, email string) (*user.Profile, error) {
			return &user.Profile{Email: email, Name: "Test User", Image: "http://img.example/1.png"}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/user/profile", nil)
	req = withAuth(req, "test@user", model.RoleUser)
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["email"] != "test@user" || body["name"] != "Test User" {
		t.Errorf("body = %v", body)
	}
}

func TestUserHandler_GetProfile_NoAuthContext_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/user/profile", nil)
	w := httptest.NewRecorder()

	h.GetProfile(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- GET /v1/user/setting テスト ---

func TestUserHandler_GetSetting_Success(t *testing.T) {
	svc := &mockUserService{
		getSettingFn: func(_ context.Context, _ string) (*user.Setting, error) {
			return &user.Setting{
				Language: model.DefaultLanguage,
				Country:  model.DefaultCountry,
				Timezone: model.DefaultTimezone,
			}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/user/setting", nil)
	req = withAuth(req, "test@user", model.RoleUser)
	w := httptest.NewRecorder()

	h.GetSetting(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["language"] != model.DefaultLanguage {
		t.Errorf("language = %v, want %q", body["language"], model.DefaultLanguage)
	}
	if body["timezone"] != model.DefaultTimezone {
		t.Errorf("timezone = %v, want %q", body["timezone"], model.DefaultTimezone)
	}
}

// --- 単一フィールド更新テスト ---

func TestUserHandler_UpdateName(t *testing.T) {
	var gotEmail, gotName string
	svc := &mockUserService{
		updateNameFn: func(_ context.Context, email, name string) error {
			gotEmail = email
			gotName = name
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/v1/user/profile/name",
		strings.NewReader(`{"name":"Renamed"}`))
	req = withAuth(req, "test@user", model.RoleUser)
	w := httptest.NewRecorder()

	h.UpdateName(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotEmail != "test@user" || gotName != "Renamed" {
		t.Errorf("got email=%q name=%q", gotEmail, gotName)
	}
}

func TestUserHandler_UpdateImage(t *testing.T) {
	var gotImage string
	svc := &mockUserService{
		updateImageFn: func(_ context.Context, _, image string) error {
			gotImage = image
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/user/profile/image",
		strings.NewReader(`{"image":"http://img.example/new.png"}`))
	req = withAuth(req, "test@user", model.RoleUser)
	w := httptest.NewRecorder()

	h.UpdateImage(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotImage != "http://img.example/new.png" {
		t.Errorf("image = %q", gotImage)
	}
}

func TestUserHandler_UpdateSettingFields(t *testing.T) {
	var gotLanguage, gotCountry, gotTimezone string
	svc := &mockUserService{
		updateLanguageFn: func(_ context.Context, _, v string) error { gotLanguage = v; return nil },
		updateCountryFn:  func(_ context.Context, _, v string) error { gotCountry = v; return nil },
		updateTimezoneFn: func(_ context.Context, _, v string) error { gotTimezone = v; return nil },
	}
	h := NewUserHandler(svc)

	calls := []struct {
		handler func(http.ResponseWriter, *http.Request)
		path    string
		body    string
	}{
		{h.UpdateLanguage, "/v1/user/setting/language", `{"language":"English"}`},
		{h.UpdateCountry, "/v1/user/setting/country", `{"country":"Japan"}`},
		{h.UpdateTimezone, "/v1/user/setting/timezone", `{"timezone":"JST +09:00"}`},
	}
	for _, call := range calls {
		req := httptest.NewRequest(http.MethodPatch, call.path, strings.NewReader(call.body))
		req = withAuth(req, "test@user", model.RoleUser)
		w := httptest.NewRecorder()

		call.handler(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", call.path, w.Code, http.StatusOK)
		}
	}

	if gotLanguage != "English" || gotCountry != "Japan" || gotTimezone != "JST +09:00" {
		t.Errorf("got language=%q country=%q timezone=%q", gotLanguage, gotCountry, gotTimezone)
	}
}

func TestUserHandler_UpdateField_EmptyValue_Returns400(t *testing.T) {
	svc := &mockUserService{
		updateNameFn: func(_ context.Context, _, name string) error {
			if strings.TrimSpace(name) == "" {
				return model.NewInvalidRequestError("Name is required.")
			}
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/v1/user/profile/name", strings.NewReader(`{}`))
	req = withAuth(req, "test@user", model.RoleUser)
	w := httptest.NewRecorder()

	h.UpdateName(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- DELETE /v1/user テスト ---

func TestUserHandler_Withdraw_Success(t *testing.T) {
	withdrawCalled := false
	svc := &mockUserService{
		withdrawFn: func(_ context.Context, email string) error {
			withdrawCalled = true
			if email != "test@user" {
				t.Errorf("email = %q, want test@user", email)
			}
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/v1/user", nil)
	req = withAuth(req, "test@user", model.RoleUser)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if !withdrawCalled {
		t.Error("expected Withdraw to be called")
	}
}

func TestUserHandler_Withdraw_NoAuthContext_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/user", nil)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
