package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-builder/internal/ai"
	"agent-builder/internal/analytics"
	"agent-builder/internal/cache"
	"agent-builder/internal/collab"
	"agent-builder/internal/config"
	"agent-builder/internal/database"
	"agent-builder/internal/db"
	"agent-builder/internal/debuglog"
	"agent-builder/internal/directory"
	"agent-builder/internal/handlers"
	"agent-builder/internal/integrations"
	"agent-builder/internal/logging"
	"agent-builder/internal/metrics"
	"agent-builder/internal/middleware"
	"agent-builder/internal/websocket"
	"agent-builder/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()
	if envErr != nil {
		envErr = godotenv.Load("../.env")
	}

	cfg := config.Load()
	logging.Init(cfg.Environment)
	defer logging.Sync()
	log := logging.Named("main")

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("starting agent builder API",
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.Database.Driver),
	)

	if cfg.Database.Driver == db.DriverPostgres && cfg.RunMigrations {
		if err := database.RunMigrations(database.PostgresURL(cfg.Database)); err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
	}

	store, err := db.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	if err := store.SeedTemplates(); err != nil {
		log.Warn("template seeding failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agentCache := cache.NewAgentCache(newCacheStore(ctx, cfg, log), cfg.AgentCacheTTL)

	gdb := store.GetDB()
	debug := debuglog.NewService(gdb)
	hub := websocket.NewHub(cfg.CORSOrigins)
	go hub.Run()
	debug.SetPublisher(hub)
	stats := analytics.NewService(gdb)
	dir := directory.NewService(gdb, agentCache)

	aiRouter := ai.NewAIRouter(ai.RouterConfig{
		OpenAIAPIKey:        cfg.OpenAIAPIKey,
		OpenAIBaseURL:       cfg.OpenAIBaseURL,
		XAIAPIKey:           cfg.XAIAPIKey,
		XAIBaseURL:          cfg.XAIBaseURL,
		XAIFallbackToOpenAI: cfg.XAIFallbackToOpenAI,
		XAIFallbackModel:    cfg.XAIFallbackModel,
	})
	configured := map[models.ModelProvider]bool{}
	for _, p := range aiRouter.Providers() {
		configured[p] = true
	}
	for _, p := range []models.ModelProvider{models.ProviderOpenAI, models.ProviderXAI} {
		if !configured[p] {
			log.Warn("AI provider not configured", zap.String("provider", string(p)), zap.String("env", ai.EnvKeyName(p)))
		}
	}

	h := handlers.NewHandler(handlers.Services{
		Directory:    dir,
		Chats:        collab.NewService(gdb, debug),
		Debug:        debug,
		Gateway:      ai.NewGateway(aiRouter, debug, stats),
		Analytics:    stats,
		Integrations: integrations.NewService(dir),
		Stream:       hub,
		HealthCheck:  store.Health,
	})

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, 10*time.Minute)

	collector := metrics.NewDirectoryCollector(gdb, 30*time.Second)
	collector.Start(ctx)

	router := handlers.SetupRouter(h, handlers.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: limiter,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatal("failed to start server", zap.Error(err))
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	hub.Shutdown()
	collector.Stop()
	cancel()

	log.Info("graceful shutdown complete")
}

// newCacheStore connects to Redis when REDIS_URL is set and falls back to an
// in-process store otherwise
func newCacheStore(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) cache.Store {
	if cfg.RedisURL == "" {
		return cache.NewMemoryStore()
	}

	client, err := db.NewRedisClient(ctx, db.DefaultRedisConfig(cfg.RedisURL))
	if err != nil {
		log.Warn("redis unavailable, using in-memory agent cache", zap.Error(err))
		return cache.NewMemoryStore()
	}
	log.Info("agent cache backed by redis")
	return cache.NewRedisStore(client)
}
