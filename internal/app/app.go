package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/todoman/internal/auth"
	"github.com/hitoshi/todoman/internal/config"
	"github.com/hitoshi/todoman/internal/database"
	"github.com/hitoshi/todoman/internal/handler"
	"github.com/hitoshi/todoman/internal/logger"
	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/todo"
	"github.com/hitoshi/todoman/internal/token"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込み、LOG_LEVELを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	level := new(slog.LevelVar)
	logger.SetupDefault(w, level)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	level.Set(lvl)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// SIGINTまたはSIGTERMを受信するとキャンセルされるコンテキストでRunContextを呼び出す。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, w, args)
}

// RunContext はコマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// serveモードはctxがキャンセルされるまでブロックする。
func RunContext(ctx context.Context, w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(ctx, port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// storage は選択されたバックエンドのリポジトリとストレージハンドルをまとめる。
type storage struct {
	users  repository.UserRepository
	todos  repository.TodoRepository
	pinger repository.Pinger
	close  func() error
}

// openStorage はSTORAGE_BACKENDに応じたストレージを開く。
// postgresとsqliteは起動時に未適用のマイグレーションを適用する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(database.DriverPostgres, cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return sqlStorage(db, repository.NewPostgresUserRepo(db), repository.NewPostgresTodoRepo(db)), nil

	case config.StorageSQLite:
		if err := database.RunMigrations(database.DriverSQLite, cfg.SQLitePath); err != nil {
			return nil, err
		}
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("sqlite database opened", slog.String("path", cfg.SQLitePath))
		return sqlStorage(db, repository.NewSQLiteUserRepo(db), repository.NewSQLiteTodoRepo(db)), nil

	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		store := repository.NewMemoryStore()
		return &storage{
			users:  store.Users(),
			todos:  store.Todos(),
			pinger: store,
			close:  func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.StorageBackend)
	}
}

func sqlStorage(db *sql.DB, users repository.UserRepository, todos repository.TodoRepository) *storage {
	return &storage{users: users, todos: todos, pinger: db, close: db.Close}
}

// buildRouter は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// 返り値のstopはレートリミッターのバックグラウンド処理を停止する。
func buildRouter(cfg *config.Config, store *storage) (http.Handler, func(), error) {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. トークンの発行・検証
	tokenCfg := token.Config{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
		Leeway: cfg.JWTLeeway,
	}
	issuer := token.NewIssuer(tokenCfg)
	verifier := token.NewVerifier(tokenCfg)

	// 3. ドメインサービス
	authService, err := auth.NewService(store.users, issuer, collector, auth.ServiceConfig{
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create auth service: %w", err)
	}
	todoService := todo.NewService(store.todos, collector)

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:              slog.Default(),
		TokenVerifier:       verifier,
		CORSAllowedOrigin:   cfg.CORSAllowedOrigin,
		RateLimiter:         rateLimiter,
		HTTPRecorder:        collector,
		AuthFailureRecorder: collector,
		MetricsHandler:      metrics.Handler(reg),
		Pinger:              store.pinger,
		AuthService:         handler.NewAuthServiceAdapter(authService),
		TodoService:         todoService,
	})

	return router, rateLimiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	router, stopLimiter, err := buildRouter(cfg, store)
	if err != nil {
		return err
	}
	defer stopLimiter()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	var driver, dsn string
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		driver, dsn = database.DriverPostgres, cfg.DatabaseURL
	case config.StorageSQLite:
		driver, dsn = database.DriverSQLite, cfg.SQLitePath
	default:
		slog.Info("storage backend has no schema; nothing to migrate",
			slog.String("storage_backend", cfg.StorageBackend),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("driver", driver),
		slog.String("database_url", maskDatabaseURL(dsn)),
	)

	if err := database.RunMigrations(driver, dsn); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := client.Do(req)
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
// URLとして解釈できない値（SQLiteのパスなど）はそのまま返す。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.Scheme == "" {
		return raw
	}
	return u.Redacted()
}
