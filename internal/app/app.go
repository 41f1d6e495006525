package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/recipeman/internal/config"
	"github.com/hitoshi/recipeman/internal/imageproxy"
	"github.com/hitoshi/recipeman/internal/logger"
	"github.com/hitoshi/recipeman/internal/metrics"
	"github.com/hitoshi/recipeman/internal/middleware"
	"github.com/hitoshi/recipeman/internal/recipeapi"
	"github.com/hitoshi/recipeman/internal/security"
	"github.com/hitoshi/recipeman/internal/session"
	"github.com/hitoshi/recipeman/internal/storage"
	"github.com/hitoshi/recipeman/internal/web"
	"github.com/hitoshi/recipeman/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップする
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.String("auth_mode", cfg.AuthMode),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// ローカル状態DBを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. ローカル状態DB
	// 状態DBはこのプロセス専用のSQLiteファイルのため、起動時にマイグレーションを適用する
	if err := storage.RunMigrations(cfg.StateDBPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	db, err := storage.Open(cfg.StateDBPath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to state database: %w", err)
	}

	slog.Info("state database opened", slog.String("path", cfg.StateDBPath))

	credStore := storage.NewCredentialStore(db)

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. レシピAPIクライアント
	// トークンの添付と401時の強制ログアウトはトランスポート層で行う。
	// TokensとOnUnauthorizedはセッションマネージャー生成後に配線する。
	bearer := &recipeapi.BearerTransport{
		Base: &recipeapi.MetricsTransport{Metrics: collector},
	}
	apiClient := recipeapi.New(cfg.APIBaseURL, &http.Client{
		Transport: bearer,
		Timeout:   30 * time.Second,
	}, slog.Default())

	// 4. 認証戦略の選択
	var strategy session.Strategy
	switch cfg.AuthMode {
	case config.AuthModeOIDC:
		// プロバイダーとの通信にはベアラートークンを添付しない素のクライアントを使う
		oidcStrategy, err := session.NewOIDCStrategy(ctx, session.OIDCConfig{
			Authority:             cfg.OIDCAuthority,
			ClientID:              cfg.OIDCClientID,
			RedirectURL:           cfg.OIDCRedirectURL,
			Scopes:                cfg.OIDCScopes,
			PostLogoutRedirectURL: cfg.BaseURL,
		}, &http.Client{Timeout: 10 * time.Second}, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC strategy: %w", err)
		}
		strategy = oidcStrategy
	default:
		strategy = session.NewDirectStrategy(apiClient)
	}

	// 5. セッションマネージャー
	sessions := session.NewManager(strategy, credStore, slog.Default())
	bearer.Tokens = sessions
	bearer.OnUnauthorized = func() {
		collector.RecordSessionInvalidated("unauthorized")
		sessions.Invalidate()
	}

	// 認証状態の遷移をメトリクスに記録する
	authCh, unsubscribeAuth := sessions.SubscribeAuth()
	defer unsubscribeAuth()
	go func() {
		for authenticated := range authCh {
			collector.RecordAuthTransition(authenticated)
		}
	}()

	// 保存済みトークンからセッションを復元する
	sessions.Initialize(ctx)

	// 6. セキュリティサービス
	imageGuard := security.NewImageGuard()
	sanitizer := security.NewContentSanitizer()

	// 7. 画像プロキシ
	imageProxy := imageproxy.NewProxy(
		imageGuard, collector, slog.Default(),
		cfg.ProxyTimeout, cfg.ProxyMaxSize,
	)

	// 8. ログインレートリミッター
	loginLimiter := middleware.NewLoginRateLimiter(
		middleware.NewLoginRateLimiterConfig(cfg.RateLimitLogin),
	)
	defer loginLimiter.Stop()

	// 9. ルーターの構築
	renderer, err := web.NewRenderer(slog.Default())
	if err != nil {
		return fmt.Errorf("failed to compile templates: %w", err)
	}

	router := web.NewRouter(&web.RouterDeps{
		Sessions:       sessions,
		RecipeService:  apiClient,
		CommentLister:  apiClient,
		CommentService: apiClient,
		RatingService:  apiClient,
		Sanitizer:      sanitizer,
		ImageGuard:     imageGuard,
		ImageProxy:     imageProxy,
		LoginLimiter:   loginLimiter,
		CSRFConfig:     middleware.CSRFConfig{CookieSecure: cfg.CookieSecure},
		AuthConfig: web.AuthHandlerConfig{
			OIDCMode:     cfg.AuthMode == config.AuthModeOIDC,
			CookieSecure: cfg.CookieSecure,
		},
		Gatherer: registry,
		Renderer: renderer,
		Logger:   slog.Default(),
	})

	// 10. セッション再検証スケジューラ
	scheduler := refresh.NewScheduler(sessions, slog.Default())
	go scheduler.Start(ctx, cfg.SessionRefreshInterval)

	// 11. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("web server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runMigrate はローカル状態DBのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running state database migrations",
		slog.String("path", cfg.StateDBPath),
	)

	if err := storage.RunMigrations(cfg.StateDBPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("state database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
