// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/olegiv/sitehub/internal/auth"
	"github.com/olegiv/sitehub/internal/cache"
	"github.com/olegiv/sitehub/internal/config"
	"github.com/olegiv/sitehub/internal/handler"
	"github.com/olegiv/sitehub/internal/logging"
	"github.com/olegiv/sitehub/internal/mail"
	"github.com/olegiv/sitehub/internal/middleware"
	"github.com/olegiv/sitehub/internal/notify"
	"github.com/olegiv/sitehub/internal/rbac"
	"github.com/olegiv/sitehub/internal/scheduler"
	"github.com/olegiv/sitehub/internal/service"
	"github.com/olegiv/sitehub/internal/store"
	"github.com/olegiv/sitehub/internal/tenant"
	"github.com/olegiv/sitehub/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const (
	apiRateLimit       = 10 // requests per second per caller
	apiRateBurst       = 30
	rateLimiterMaxSize = 10000
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "sitehub - multi-tenant publishing backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_JWT_SECRET        Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_DB_PATH           SQLite database path (default: ./data/sitehub.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_BASE_DOMAIN       Platform domain sites live under (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_REDIS_URL         Redis URL for shared caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_NOTIFY_TRANSPORT  none|redis|amqp (default: none)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITEHUB_SMTP_HOST         SMTP server; mail is only logged when empty\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Println(version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime})
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	build := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}

	logLevel := cfg.ParseLogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	catalog := rbac.DefaultCatalog()
	if err := store.ReseedRoles(ctx, db, catalog); err != nil {
		return fmt.Errorf("seeding roles: %w", err)
	}
	if cfg.DoSeed {
		if err := store.SeedAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	}

	registry, err := rbac.NewRegistry(catalog)
	if err != nil {
		return fmt.Errorf("building role registry: %w", err)
	}
	eval := rbac.NewEvaluator(registry)

	var redisClient *redis.Client
	if cfg.UseRedisCache() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	var siteCache cache.Cacher
	if redisClient != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			slog.Warn("redis unavailable, using memory cache", "error", err)
		} else {
			siteCache = cache.NewRedisCache(redisClient, cfg.CachePrefix, cfg.CacheTTL)
			slog.Info("site cache initialized", "backend", "redis")
		}
	}
	if siteCache == nil {
		mem := cache.NewMemoryCache(cache.MemoryCacheOptions{
			DefaultTTL:      cfg.CacheTTL,
			MaxSize:         cfg.CacheMaxSize,
			CleanupInterval: time.Minute,
		})
		defer func() { _ = mem.Close() }()
		siteCache = mem
		slog.Info("site cache initialized", "backend", "memory")
	}

	transport, closeTransport, err := notifyTransport(cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeTransport()
	dispatcher := notify.NewDispatcher(transport, logger, notify.Config{Workers: cfg.NotifyWorkers})
	dispatcher.Start(ctx)

	var mailer mail.Mailer = mail.LogMailer{Logger: logger}
	if cfg.SMTPEnabled() {
		smtp, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			return fmt.Errorf("initializing mailer: %w", err)
		}
		mailer = smtp
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	resolver := tenant.NewResolver(db, siteCache, cfg.CacheTTL, cfg.BaseDomain, logger)

	events := service.NewEventService(db, logger)
	accounts := service.NewAccountService(db, eval, tokens, mailer, events, logger, service.AccountConfig{
		UnverifiedRetention: cfg.UnverifiedRetention,
		ResetURL:            cfg.ResetURL,
	})
	posts := service.NewPostService(db, eval, dispatcher, events, logger)
	comments := service.NewCommentService(db, eval, events, logger)
	taxonomy := service.NewTaxonomyService(db, eval, events, logger)
	sites := service.NewSiteService(db, eval, resolver, events, logger)
	subscriptions := service.NewSubscriptionService(db, eval, resolver, events, logger)

	sched := scheduler.New(logger)
	for _, job := range scheduler.DefaultJobs(posts, accounts, events) {
		if err := sched.Register(job); err != nil {
			return fmt.Errorf("registering job %s: %w", job.Name, err)
		}
	}
	sched.Start()

	lpCfg := middleware.DefaultLoginProtectionConfig()
	lpCfg.Logger = logger
	loginProtection := middleware.NewLoginProtection(lpCfg)
	rateLimiter := middleware.NewRateLimiter(apiRateLimit, apiRateBurst)

	api, err := handler.New(handler.Deps{
		DB:              db,
		Cache:           siteCache,
		Tokens:          tokens,
		Eval:            eval,
		Accounts:        accounts,
		Posts:           posts,
		Comments:        comments,
		Taxonomy:        taxonomy,
		Sites:           sites,
		Subscriptions:   subscriptions,
		Events:          events,
		Resolver:        resolver,
		Boundary:        tenant.NewBoundary(db),
		Jobs:            sched.Registry(),
		LoginProtection: loginProtection,
		RateLimiter:     rateLimiter,
		Security:        middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment()),
		Build:           build,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating api handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           api.Routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	pruneDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimiter.Prune(rateLimiterMaxSize)
			case <-pruneDone:
				return
			}
		}
	}()

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "base_domain", cfg.BaseDomain, "version", build.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	close(pruneDone)
	sched.Stop()
	sites.WaitInitialized()
	dispatcher.Stop()
	loginProtection.Close()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// notifyTransport opens the configured notification transport. The returned
// close function is always safe to call.
func notifyTransport(cfg *config.Config, redisClient *redis.Client) (notify.Notifier, func(), error) {
	switch cfg.NotifyTransport {
	case config.TransportRedis:
		if redisClient == nil {
			return nil, nil, errors.New("redis notifications need SITEHUB_REDIS_URL")
		}
		slog.Info("notifications enabled", "transport", "redis")
		return notify.NewRedisNotifier(redisClient, cfg.CachePrefix), func() {}, nil
	case config.TransportAMQP:
		n, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting notification broker: %w", err)
		}
		slog.Info("notifications enabled", "transport", "amqp", "exchange", cfg.AMQPExchange)
		return n, func() { _ = n.Close() }, nil
	default:
		return notify.Nop{}, func() {}, nil
	}
}
