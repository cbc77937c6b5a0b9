package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tryon/internal/adapter/repo"
	"tryon/internal/http/handlers"
	"tryon/internal/http/httpapi"
	"tryon/internal/infra"
	"tryon/internal/infra/geoip"
	"tryon/internal/middleware"
	"tryon/internal/providers/genai"
	"tryon/internal/storage"
	"tryon/internal/tryon"
	"tryon/internal/worker"
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
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	records := repo.NewTryOnRepository(pool)

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("gemini api key missing, generation calls will fail")
	}

	generator := tryon.NewGenerator(geminiClient, cfg.GeminiImageModel, logger)
	auditor := tryon.NewAuditor(geminiClient, cfg.GeminiAuditModel, logger)
	pipeline := tryon.NewPipeline(generator, auditor, fileStore, records, logger)

	jobPool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize, logger)
	jobPool.Start(context.Background())
	defer jobPool.Shutdown()

	app := handlers.NewApp(logger, records, fileStore, jobPool, pipeline, cfg.MaxRetries)

	var countryLookup middleware.CountryLookup
	if geoResolver != nil {
		countryLookup = geoResolver.CountryCode
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   countryLookup,
		DefaultLocale:   "en",
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
