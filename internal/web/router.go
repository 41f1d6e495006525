package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipeman/internal/middleware"
	"github.com/hitoshi/recipeman/internal/security"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/recipeman/internal/metrics"
)

//go:embed static
var staticFS embed.FS

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// セッション
	Sessions SessionService

	// レシピAPI
	RecipeService  RecipeService
	CommentLister  CommentLister
	CommentService CommentService
	RatingService  RatingService

	// セキュリティ
	Sanitizer  security.ContentSanitizerService
	ImageGuard ImageURLValidator

	// 画像プロキシ
	ImageProxy http.Handler

	// ミドルウェア依存
	LoginLimiter *middleware.LoginRateLimiter
	CSRFConfig   middleware.CSRFConfig

	// 認証設定
	AuthConfig AuthHandlerConfig

	// メトリクス公開
	Gatherer prometheus.Gatherer

	Renderer *Renderer
	Logger   *slog.Logger
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CSRF
//
// 保護ルートはさらにAuthGuardを通過する。/metricsと/healthzは
// ページ用ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	authHandler := NewAuthHandler(deps.Sessions, deps.Renderer, deps.AuthConfig, deps.Logger)
	recipeHandler := NewRecipeHandler(
		deps.RecipeService,
		deps.CommentLister,
		deps.Sessions,
		deps.Sanitizer,
		deps.ImageGuard,
		deps.Renderer,
		deps.Logger,
	)
	commentHandler := NewCommentHandler(deps.CommentService, deps.Logger)
	ratingHandler := NewRatingHandler(deps.RatingService, deps.Logger)

	// --- 運用エンドポイント（ページ用ミドルウェアの外） ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- ページルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware())
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 静的アセット
		staticRoot, err := fs.Sub(staticFS, "static")
		if err != nil {
			panic(err)
		}
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))

		// 画像プロキシ
		r.Method(http.MethodGet, "/img", deps.ImageProxy)

		// 認証ルート（ログイン系はIPごとのレート制限を追加）
		r.Get("/login", authHandler.ShowLogin)
		r.With(deps.LoginLimiter.Middleware()).Post("/login", authHandler.Login)
		r.Get("/register", authHandler.ShowRegister)
		r.With(deps.LoginLimiter.Middleware()).Post("/register", authHandler.Register)
		r.Get("/auth/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)

		// 閲覧ルート（認証不要）
		r.Get("/", recipeHandler.List)
		r.Get("/recipes", recipeHandler.List)

		// 投稿・編集ルート（要認証）
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthGuard(deps.Sessions))

			r.Get("/recipes/new", recipeHandler.NewForm)
			r.Post("/recipes", recipeHandler.Create)

			r.Route("/recipes/{id}", func(r chi.Router) {
				r.Get("/edit", recipeHandler.EditForm)
				r.Post("/", recipeHandler.Update)
				r.Post("/delete", recipeHandler.Delete)
				r.Post("/comments", commentHandler.Create)
				r.Post("/rate", ratingHandler.Rate)
			})

			r.Route("/comments/{commentID}", func(r chi.Router) {
				r.Post("/vote", commentHandler.Vote)
				r.Post("/delete", commentHandler.Delete)
			})
		})

		// レシピ詳細は投稿ルートより後に登録する（/recipes/newとの衝突回避）
		r.Get("/recipes/{id}", recipeHandler.Detail)
	})

	return r
}
