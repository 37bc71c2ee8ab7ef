// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
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
	"golang.org/x/time/rate"

	"github.com/hitoshi/chainlearn/internal/adminauth"
	"github.com/hitoshi/chainlearn/internal/adminops"
	"github.com/hitoshi/chainlearn/internal/config"
	"github.com/hitoshi/chainlearn/internal/database"
	"github.com/hitoshi/chainlearn/internal/handler"
	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/lms"
	"github.com/hitoshi/chainlearn/internal/logger"
	"github.com/hitoshi/chainlearn/internal/metrics"
	"github.com/hitoshi/chainlearn/internal/middleware"
	"github.com/hitoshi/chainlearn/internal/progress"
	"github.com/hitoshi/chainlearn/internal/questions"
	"github.com/hitoshi/chainlearn/internal/repository"
	"github.com/hitoshi/chainlearn/internal/security"
	"github.com/hitoshi/chainlearn/internal/store"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		slog.String("base_url", cfg.BaseURL),
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

// runServe はAPIサーバーモードで起動する。
// 特権DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続（サービスロールDSN。行レベルセキュリティをバイパスする特権経路）
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. Identity Providerクライアントの初期化
	identityClient := identity.NewHTTPClient(identity.HTTPClientConfig{
		BaseURL:    cfg.IdentityURL,
		AnonKey:    cfg.IdentityAnonKey,
		ServiceKey: cfg.IdentityServiceKey,
		Timeout:    cfg.IdentityHTTPTimeout,
	})
	resolver := identity.NewResolver(identityClient)

	cookieCfg := identity.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
		MaxAge: cfg.SessionMaxAge,
	}

	// 4. リポジトリの初期化
	adminRepo := repository.NewPostgresAdminUserRepo(db)
	progressRepo := repository.NewPostgresProgressRepo(db)
	questionRepo := repository.NewPostgresQuestionRepo(db)
	lessonRepo := repository.NewPostgresLessonRepo(db)

	// コース/デザインのストアバックエンドを選択する。
	// fileバックエンドは開発用のJSON永続化インメモリストア。
	var courseRepo repository.CourseRepository
	var designRepo repository.DesignRepository
	if cfg.StoreBackend == config.StoreBackendFile {
		fileStore, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open file store: %w", err)
		}
		courseRepo = fileStore
		designRepo = fileStore.Designs()
		slog.Info("using file store backend", slog.String("data_dir", cfg.DataDir))
	} else {
		courseRepo = repository.NewPostgresCourseRepo(db)
		designRepo = repository.NewPostgresDesignRepo(db)
	}

	// 5. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()
	adminAuthService := adminauth.NewService(adminRepo, collector)
	courseService := lms.NewService(courseRepo, sanitizer)
	lessonService := lms.NewLessonService(lessonRepo, courseRepo, sanitizer)
	questionAdminService := questions.NewService(questionRepo, lessonRepo)
	progressService := progress.NewService(progressRepo)
	adminOpsService := adminops.NewService(identityClient, progressRepo, adminRepo)

	// 6. ミドルウェアの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.AdminRate = rate.Limit(float64(cfg.RateLimitAdmin) / 60.0)
	rateLimiterCfg.AdminBurst = cfg.RateLimitAdmin
	rateLimiterCfg.AdminAuthRate = rate.Limit(float64(cfg.RateLimitAdminAuth) / 60.0)
	rateLimiterCfg.AdminAuthBurst = cfg.RateLimitAdminAuth
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	sessionGate := middleware.NewSessionGate(resolver, cookieCfg, collector)

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionGate:       sessionGate,
		RateLimiter:       rateLimiter,
		RequestRecorder:   collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,

		Sessions: handler.NewSessions(resolver, cookieCfg),

		AdminAuthorizer: adminAuthService,

		AuthClient:           identityClient,
		CourseService:        courseService,
		LessonService:        lessonService,
		AdminOpsService:      adminOpsService,
		ProgressService:      progressService,
		QuestionLister:       questionRepo,
		QuestionAdminService: questionAdminService,

		DesignHandler: handler.NewDesignHandler(designRepo, sanitizer),

		HealthHandler:  handler.NewHealthHandler(db),
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
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
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
