package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hordeclient/internal/adapter/repo"
	"hordeclient/internal/controller"
	"hordeclient/internal/horde"
	"hordeclient/internal/http/handlers"
	"hordeclient/internal/http/httpapi"
	"hordeclient/internal/infra"
	"hordeclient/internal/infra/credentials"
	"hordeclient/internal/pending"
	"hordeclient/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("horded: db connection failed")
	}
	defer pool.Close()

	if err := infra.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("horded: schema migration failed")
	}

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	requests := repo.NewRequestRepository(runner)
	images := repo.NewImageRepository(runner)

	apiKey := strings.TrimSpace(cfg.HordeAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.HordeAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("horded: failed to load horde api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("horded: no horde api key configured, submitting anonymously")
	}

	client := horde.NewClient(horde.Options{
		BaseURL:     cfg.HordeBaseURL,
		APIKey:      apiKey,
		ClientAgent: cfg.HordeClientName,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	})
	downloader := horde.NewDownloader(&http.Client{Timeout: 60 * time.Second})

	index := pending.NewIndex()
	hub := ws.NewHub(logger)
	hub.Start()

	ctrl := controller.New(controller.Config{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		AllowNSFW:         cfg.AllowNSFW,
		PromoteInterval:   cfg.PromoteInterval,
		PollInterval:      cfg.PollInterval,
		PollDebounce:      cfg.PollDebounce,
		CheckGateTTL:      cfg.CheckGateTTL,
		RateLimitBackoff:  cfg.RateLimitBackoff,
	}, controller.Deps{
		Jobs:     jobs,
		Requests: requests,
		Images:   images,
		Index:    index,
		Client:   client,
		Fetcher:  downloader,
		Hub:      hub,
		Logger:   logger,
	})

	if err := ctrl.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("horded: pending index bootstrap failed")
	}

	enqueue := repo.NewEnqueueRepository(runner)
	app := handlers.NewApp(logger, enqueue, jobs, images, index, hub)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("horded: API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("horded: http server failed")
		}
	}()

	ctrl.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("horded: http shutdown failed")
	}
	logger.Info().Msg("horded: stopped")
}
