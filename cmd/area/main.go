package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/splax/arena/internal/app/migrate"
	httpx "github.com/splax/arena/internal/http"
	"github.com/splax/arena/internal/repository"
	"github.com/splax/arena/internal/repository/postgres"
	"github.com/splax/arena/internal/service/notify"
	"github.com/splax/arena/internal/service/presence"
	"github.com/splax/arena/internal/service/registry"
	"github.com/splax/arena/internal/service/team"
	"github.com/splax/arena/internal/ws"
	"github.com/splax/arena/pkg/config"
	"github.com/splax/arena/pkg/logger"
	"github.com/splax/arena/pkg/telemetry"
)

func main() {
	cfg, err := config.LoadAreaConfig()
	if err != nil {
		logger.New("arena-area", slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, ok := logger.ParseLevel(cfg.LogLevel)
	log := logger.New("arena-area", level).With("server_id", cfg.ServerID, "area_id", cfg.AreaID)
	if !ok {
		log.Warn("unknown log level, using info", "level", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("area server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AreaConfig, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, "arena-area", cfg.ServerID, cfg.OTelEndpoint)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	var (
		journal  repository.TeamEventRepository
		dbHealth func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		runner, err := migrate.New(pool, cfg.MigrationsDir, log)
		if err != nil {
			return err
		}
		defer runner.Close()
		if err := runner.Ping(ctx); err != nil {
			return err
		}
		if err := runner.Ensure(ctx); err != nil {
			return err
		}
		journal = postgres.New(pool)
		dbHealth = runner.Ping
	} else {
		log.Info("team journal disabled, DATABASE_URL not set")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = ws.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, pushes stay local", "error", err)
			redisClient = nil
		}
	}

	hub := ws.NewHub()
	relay := ws.NewRelay(hub, redisClient, cfg.ServerID, log)
	defer relay.Close()

	limiter := httpx.NewMemoryRateLimiter()
	if redisClient != nil {
		limiter.Close()
		limiter = httpx.NewRedisRateLimiter(redisClient, log)
	}

	teams := registry.New(cfg.MaxTeamSize, log)
	players := presence.New()
	metrics, err := team.NewMetrics(prometheus.DefaultRegisterer, teams.Count)
	if err != nil {
		return err
	}
	teamSvc := team.New(teams, players, notify.New(relay, log), journal, metrics, cfg.ServerID, log)

	router := httpx.NewRouter(log, httpx.Config{
		AreaID:      cfg.AreaID,
		ServerID:    cfg.ServerID,
		JWTSecret:   cfg.JWTSecret,
		FrameLimit:  cfg.FrameRateLimit,
		FrameWindow: cfg.FrameRateWindow,
	}, teamSvc, players, hub, limiter, dbHealth)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("area server starting", "addr", cfg.Addr, "max_team_size", cfg.MaxTeamSize, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		// Sessions are hijacked connections that Shutdown does not close.
		hub.Close()
		teams.Close(shutdownCtx)
		log.Info("area server stopped")
		return nil
	})
	return g.Wait()
}
