// Command bot runs the confession-bot gamification engine: the point
// ledger, rank state machine, achievement qualifier, anonymized
// leaderboards, and the Telegram notification path that reacts to them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/confession-hub/confession-bot/config"
	"github.com/confession-hub/confession-bot/internal/application"
	"github.com/confession-hub/confession-bot/internal/application/command"
	"github.com/confession-hub/confession-bot/internal/application/eventhandler"
	"github.com/confession-hub/confession-bot/internal/application/query"
	"github.com/confession-hub/confession-bot/internal/domain/ranking"
	"github.com/confession-hub/confession-bot/internal/domain/shared"
	"github.com/confession-hub/confession-bot/internal/infrastructure/external/telegram"
	"github.com/confession-hub/confession-bot/internal/infrastructure/messaging"
	"github.com/confession-hub/confession-bot/internal/infrastructure/persistence/postgres"
	rediscache "github.com/confession-hub/confession-bot/internal/infrastructure/persistence/redis"
	"github.com/confession-hub/confession-bot/internal/infrastructure/scheduler"
	"github.com/confession-hub/confession-bot/internal/infrastructure/scheduler/jobs"
	"github.com/confession-hub/confession-bot/internal/infrastructure/service"
	"github.com/confession-hub/confession-bot/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─── 1. Configuration ───────────────────────────────────────────────────

	// A missing .env is fine; containers pass real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ─── 2. Logging ─────────────────────────────────────────────────────────

	slogger := setupLogger(cfg)
	slog.SetDefault(slogger)

	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	slogger.Info("starting confession bot",
		"version", cfg.App.Version,
		"environment", string(cfg.App.Environment),
	)

	// ─── 3. Database ────────────────────────────────────────────────────────

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer conn.Close()

	slogger.Info("connected to postgres")

	// ─── 4. Migrations ──────────────────────────────────────────────────────

	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if status, err := migrator.Status(ctx); err == nil {
		slogger.Info("migrations up to date", "applied", len(status))
	}

	// ─── 5. Redis (optional) ────────────────────────────────────────────────

	// The engine runs without Redis: the leaderboard query falls through to
	// PostgreSQL on every call. Only the hot read path degrades.
	var redisCache *rediscache.Cache
	var boardCache *rediscache.LeaderboardCache
	if !cfg.Redis.Disabled {
		cache, err := rediscache.NewCache(rediscache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			slogger.Warn("redis unavailable, leaderboard caching disabled", "error", err)
		} else {
			defer cache.Close()
			redisCache = cache
			boardCache = rediscache.NewLeaderboardCache(cache, slogger).
				WithTTL(cfg.Ranking.LeaderboardCacheTTL)
			slogger.Info("connected to redis", "addr", cfg.Redis.Host)
		}
	}

	// ─── 6. Event bus ───────────────────────────────────────────────────────

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		Logger:         slogger,
		EnableMetrics:  true,
	})

	// ─── 7. Repositories ────────────────────────────────────────────────────

	ledgerRepo := postgres.NewLedgerRepo(conn, slogger)
	achievementRepo := postgres.NewAchievementRepo(conn, slogger)
	leaderboardRepo := postgres.NewLeaderboardRepo(conn, slogger)

	// ─── 8. Domain services ─────────────────────────────────────────────────

	registry := ranking.MustRegistry(ranking.DefaultRanks())
	catalog := ranking.MustCatalog(ranking.DefaultCatalog())
	anonymizer := ranking.NewAnonymizer(rand.New(rand.NewSource(time.Now().UnixNano())))

	// ─── 9. Application layer ───────────────────────────────────────────────

	awardHandler := command.NewAwardPointsHandler(
		ledgerRepo,
		achievementRepo,
		registry,
		catalog,
		bus,
		appLog,
		command.AwardPointsConfig{
			EvaluationPasses:  cfg.Ranking.EvaluationPasses,
			MinStreakForBonus: cfg.Ranking.MinStreakForBonus,
			RankUpReason:      "Points threshold reached",
		},
	)

	userRankHandler := query.NewGetUserRankHandler(ledgerRepo, registry, appLog)

	var cacheForQuery query.LeaderboardCache
	if boardCache != nil {
		cacheForQuery = boardCache
	}
	leaderboardHandler := query.NewGetLeaderboardHandler(leaderboardRepo, anonymizer, cacheForQuery, appLog)

	achievementsHandler := query.NewGetUserAchievementsHandler(achievementRepo, appLog)

	facade := application.NewRankingFacade(
		awardHandler,
		userRankHandler,
		leaderboardHandler,
		achievementsHandler,
		appLog,
	)
	_ = facade // handed to the confession/comment flows as they come online

	// ─── 10. Notifications ──────────────────────────────────────────────────

	if cfg.Telegram.NotificationsEnabled {
		tgClient := telegram.NewClient(telegram.ClientConfig{
			Token:   cfg.Telegram.Token,
			Timeout: cfg.Telegram.RequestTimeout,
			Logger:  slogger,
			Debug:   cfg.App.Debug,
		})

		me, err := tgClient.GetMe(ctx)
		if err != nil {
			return fmt.Errorf("verify telegram token: %w", err)
		}
		slogger.Info("telegram bot authorized", "username", me.Username)

		notifier := service.NewTelegramNotifier(tgClient, slogger)

		rankUpHandler := eventhandler.NewOnRankUpHandler(notifier, slogger)
		if err := bus.Subscribe(shared.EventRankUp, rankUpHandler.Handle); err != nil {
			return fmt.Errorf("subscribe rank-up handler: %w", err)
		}

		achievementHandler := eventhandler.NewOnAchievementGrantedHandler(notifier, slogger)
		if err := bus.Subscribe(shared.EventAchievementGranted, achievementHandler.Handle); err != nil {
			return fmt.Errorf("subscribe achievement handler: %w", err)
		}
	} else {
		slogger.Info("telegram notifications disabled")
	}

	// ─── 11. Scheduler ──────────────────────────────────────────────────────

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:   slogger,
			Timezone: time.UTC,
		})

		// Window resets fire at the same UTC hour: weekly on Monday,
		// monthly on the 1st.
		var invalidator jobs.BoardInvalidator
		if boardCache != nil {
			invalidator = boardCache
		}

		weeklyReset := jobs.NewResetWindowJob(ranking.WindowWeekly, leaderboardRepo, invalidator, bus, slogger)
		if err := sched.Register(weeklyReset, scheduler.NewWeeklySchedule(time.Monday, cfg.Scheduler.ResetHourUTC)); err != nil {
			return fmt.Errorf("register weekly reset: %w", err)
		}

		monthlyReset := jobs.NewResetWindowJob(ranking.WindowMonthly, leaderboardRepo, invalidator, bus, slogger)
		if err := sched.Register(monthlyReset, scheduler.NewMonthlySchedule(1, cfg.Scheduler.ResetHourUTC)); err != nil {
			return fmt.Errorf("register monthly reset: %w", err)
		}

		if cfg.Scheduler.HealthInterval > 0 {
			var cachePing jobs.CachePinger
			if redisCache != nil {
				cachePing = redisCache
			}
			healthJob := jobs.NewStorageHealthJob(conn, cachePing, slogger)
			if err := sched.Register(healthJob, scheduler.NewIntervalSchedule(cfg.Scheduler.HealthInterval)); err != nil {
				return fmt.Errorf("register health job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		slogger.Info("scheduler started", "jobs", len(sched.ListJobs()))
	}

	// ─── 12. Shutdown ───────────────────────────────────────────────────────

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	slogger.Info("confession bot is running")

	select {
	case sig := <-sigCh:
		slogger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		slogger.Info("context cancelled")
	}

	if sched != nil {
		if err := sched.Stop(); err != nil {
			slogger.Error("scheduler stop failed", "error", err)
		}
	}

	// Drain in-flight event handlers before the pool goes away, but never
	// hang shutdown on a stuck notification.
	drained := make(chan struct{})
	go func() {
		_ = bus.Close()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(cfg.App.ShutdownTimeout):
		slogger.Warn("event bus drain timed out")
	}

	slogger.Info("confession bot stopped")
	return nil
}

// setupLogger builds the process-wide slog logger from observability
// settings: JSON in production, human-readable text in development.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"app", cfg.App.Name,
		"env", string(cfg.App.Environment),
	)
}
