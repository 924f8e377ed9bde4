package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/auth"
	"exam-practice-service/internal/config"
	"exam-practice-service/internal/infra/memory"
	"exam-practice-service/internal/infra/postgres"
	redisinfra "exam-practice-service/internal/infra/redis"
	"exam-practice-service/internal/infra/sqlite"
	transport "exam-practice-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam practice server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// backingStore is everything the services need from durable storage.
type backingStore interface {
	app.Store
	auth.UserStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

// openStore picks Postgres, then SQLite, then memory. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (backingStore, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("using postgres store")
		return postgres.NewStore(pool), pool.Close, nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("using sqlite store", "path", cfg.SQLite.Path)
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Warn("no database configured, results are kept in memory")
		return memory.NewStore(), func() {}, nil
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()
	if cfg.Auth.SecretGenerated {
		logger.Warn("auth.jwt_secret not configured, using a random secret; tokens are invalidated on restart")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("exam timezone: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	shareTTL := config.TTLDuration(cfg.Exam.ShareCacheTTL, 10*time.Minute)
	var (
		shares      app.ShareReader
		attempts    app.AttemptRepository
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		shares = redisinfra.NewShareCache(redisClient, store, shareTTL)
		attempts = redisinfra.NewAttemptStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
		logger.Info("using redis share cache", "addr", cfg.Redis.Addr)
	} else {
		shares = memory.NewShareCache(store, shareTTL)
		attempts = memory.NewAttemptStore()
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 7*24*time.Hour))
	service := app.NewExamService(store, attempts, shares, nil, logger,
		app.WithLocation(loc),
		app.WithRetention(config.TTLDuration(cfg.Exam.AttemptRetention, 30*time.Minute)),
	)
	handler := transport.NewHandler(service, auth.NewService(store, tokens), tokens, logger)
	if p, ok := store.(pinger); ok {
		handler.AddHealthCheck("store", p.Ping)
	}
	if redisClient != nil {
		handler.AddHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.Logging(logger)(transport.CORS(handler.Routes())),
		ReadTimeout:       config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting exam service", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
