package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// メトリクス（nil可）
	HTTPRecorder        middleware.HTTPRecorder
	AuthFailureRecorder middleware.AuthFailureRecorder
	MetricsHandler      http.Handler

	// ヘルスチェック
	Pinger repository.Pinger

	// 認証
	AuthService AuthServiceInterface

	// Todo
	TodoService TodoServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → BearerAuth → RateLimit(General)
//
// /health、/metrics、登録・ログインは認証不要。登録・ログインにはIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, notFoundRouteError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowedError())
	})

	authHandler := NewAuthHandler(deps.AuthService)
	todoHandler := NewTodoHandler(deps.TodoService)

	// --- 認証不要のルート ---

	if deps.Pinger != nil {
		r.Get("/health", NewHealthHandler(deps.Pinger).Check)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier, deps.AuthFailureRecorder))
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Get("/me", authHandler.Me)
		})
	})

	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Route("/api/todos", func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier, deps.AuthFailureRecorder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", todoHandler.List)
		r.Post("/", todoHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Patch("/", todoHandler.Patch)
			r.Delete("/", todoHandler.Delete)
		})
	})

	return r
}

func notFoundRouteError() *model.APIError {
	return &model.APIError{
		Code:     "ROUTE_NOT_FOUND",
		Message:  "指定されたエンドポイントは存在しません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

func methodNotAllowedError() *model.APIError {
	return &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "このメソッドは許可されていません。",
		Category: "system",
		Action:   "HTTPメソッドを確認してください。",
	}
}
