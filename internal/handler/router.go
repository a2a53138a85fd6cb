package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leun/authgate/internal/metrics"
	"github.com/leun/authgate/internal/middleware"
	"github.com/leun/authgate/internal/model"
)

// Pinger はヘルスチェック用のDB疎通確認インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder

	// サービス
	AuthService  AuthServiceInterface
	OAuthService OAuthServiceInterface
	UserService  UserServiceInterface

	// 運用系
	DB              Pinger
	StatusRecorder  middleware.HTTPStatusRecorder
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 認証が必要なルートはその内側でAuth（Bearer検証）を通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	oauthHandler := NewOAuthHandler(deps.OAuthService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.DB))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Post("/google/login", oauthHandler.GoogleLogin)
			r.Post("/naver/login", oauthHandler.NaverLogin)
		})

		// アカウント登録は認証不要
		r.Post("/user", userHandler.Register)

		// --- Bearer認証が必要なルート ---
		// POST /v1/userと同一パターンを共有するためサブルーターは使わない
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))

			r.Get("/user/profile", userHandler.GetProfile)
			r.Get("/user/setting", userHandler.GetSetting)
			r.Patch("/user/profile/name", userHandler.UpdateName)
			r.Post("/user/profile/image", userHandler.UpdateImage)
			r.Patch("/user/setting/language", userHandler.UpdateLanguage)
			r.Patch("/user/setting/country", userHandler.UpdateCountry)
			r.Patch("/user/setting/timezone", userHandler.UpdateTimezone)
			r.Delete("/user", userHandler.Withdraw)

			// 管理者専用
			r.With(middleware.RequireRole(model.RoleAdmin)).Get("/admin/profile", userHandler.AdminProfile)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
