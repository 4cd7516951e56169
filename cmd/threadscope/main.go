package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/threadscope/threadscope/internal/analysis"
	"github.com/threadscope/threadscope/internal/api"
	"github.com/threadscope/threadscope/internal/ollama"
	"github.com/threadscope/threadscope/internal/publisher"
	"github.com/threadscope/threadscope/internal/rate"
	"github.com/threadscope/threadscope/internal/reddit"
	internalsecrets "github.com/threadscope/threadscope/internal/secrets"
	"github.com/threadscope/threadscope/internal/store"
	"github.com/threadscope/threadscope/pkg/config"
	"github.com/threadscope/threadscope/pkg/logger"
	"github.com/threadscope/threadscope/pkg/secrets"
	"github.com/threadscope/threadscope/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()
	cfg.ServiceName = "threadscope"

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [threadscope]...")
	if cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	}

	// --- AWS Secrets Manager provider (fallback credential source) ---
	var awsProvider secrets.Provider
	if p, err := secrets.NewAWSProvider(cfg.AWSRegion); err != nil {
		logg.Warnw("AWS Secrets Manager unavailable, credential fallback disabled", "error", err)
	} else {
		awsProvider = p
	}

	// --- Reddit credential resolver (env > secret.json > AWS, cached) ---
	credCache := secrets.NewCache[internalsecrets.Credentials](cfg.CacheTTL)
	stopCleaner := make(chan struct{})
	go credCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	resolver := internalsecrets.NewResolver(
		logg.Desugar(),
		cfg.Env,
		cfg.RedditSecretFile,
		awsProvider,
		credCache,
	)

	creds, err := resolver.Resolve(ctx)
	if err != nil {
		logg.Fatalw("failed to resolve Reddit credentials", "error", err)
	}
	logg.Infow("Reddit credentials resolved", "client_id", utils.MaskSecret(creds.ClientID))

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter (Reddit allows 60 req/min for app-only clients) ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerMinute: cfg.RedditRequestsPerMin,
		Burst:             cfg.RedditBurst,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Reddit client and service ---
	tokens := reddit.NewTokenManager(logg.Desugar(), resolver, cfg.RedditUserAgent)
	redditClient := reddit.NewClient(logg.Desugar(), rateMgr, tokens, cfg.RedditUserAgent)
	redditSvc := reddit.NewService(*cfg, logg.Desugar(), redditClient, st, pub)

	// --- Ollama client ---
	llm := ollama.NewClient(logg.Desugar(), cfg.OllamaURL, cfg.OllamaTimeout)
	if err := llm.CheckModel(ctx, cfg.OllamaModel); err != nil {
		logg.Warnw("configured Ollama model not available, analyses will fail until it is pulled",
			"model", cfg.OllamaModel,
			"error", err)
	}

	// --- Analysis engine ---
	hub := analysis.NewProgressHub()
	engine := analysis.NewEngine(ctx, analysis.Config{
		DefaultModel:  cfg.OllamaModel,
		Workers:       cfg.AnalysisWorkers,
		Delay:         cfg.AnalysisDelay,
		ProgressEvery: cfg.ProgressEvery,
	}, logg.Desugar(), llm, st, pub, hub)

	// --- Subreddit poller ---
	poller := reddit.NewPoller(
		logg.Desugar(),
		redditSvc,
		cfg.WatchSubreddits,
		cfg.WatchThreadLimit,
		cfg.WatchInterval,
	)
	go poller.Start(ctx)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewHandler(logg.Desugar(), redditSvc, engine, st)
	api.RegisterRoutes(app, nc, st, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Progress WebSocket server ---
	wsSrv := api.NewProgressServer(fmt.Sprintf(":%d", cfg.WSPort), logg.Desugar(), engine)
	go func() {
		logg.Infof("progress WebSocket listening on :%d", cfg.WSPort)
		if err := wsSrv.ListenAndServe(); err != nil {
			logg.Fatalw("ws.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("[threadscope] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"ollama_model", cfg.OllamaModel,
		"watched_subreddits", len(cfg.WatchSubreddits))

	<-ctx.Done()
	logg.Info("shutting down [threadscope]...")

	close(stopCleaner)
	poller.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := wsSrv.Shutdown(shutdownCtx); err != nil {
		logg.Warnw("ws.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
