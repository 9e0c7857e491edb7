package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"poststudio/internal/adapters/storage/localfs"
	"poststudio/internal/catalog"
	"poststudio/internal/compose"
	"poststudio/internal/config"
	"poststudio/internal/httpapi"
	"poststudio/internal/httpapi/handlers"
	"poststudio/internal/jobs"
	"poststudio/internal/pkg/logger"
	"poststudio/internal/pkg/shutdown"
	"poststudio/internal/renderer"
	"poststudio/internal/suggest"
	"poststudio/internal/titles"
)

func main() {
	log := logger.New(logger.DefaultConfig())

	cfg, err := config.Load()
	if err != nil {
		log.LogFatal("invalid configuration", err)
	}

	log.Info("starting poststudio",
		"version", "0.1.0",
		"public_base_url", cfg.PublicBaseURL,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Template catalog
	cat, err := catalog.Load(cfg.CatalogPath, cfg.DefaultTemplate)
	if err != nil {
		log.LogFatal("failed to load template catalog", err)
	}
	log.Info("template catalog loaded", "templates", cat.Len(), "default", cat.Default().Key)

	// Uploaded assets, served back to the renderer from /uploads
	assets, err := localfs.New(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.LogFatal("failed to initialize upload directory", err)
	}

	rend := renderer.NewHTTPClient(renderer.Options{
		BaseURL: cfg.RendererURL,
		Token:   cfg.RendererToken,
		Timeout: cfg.RendererTimeout,
		Log:     log,
	})

	// Job status store: Redis when configured, memory otherwise
	var (
		rdb   *redis.Client
		store jobs.StatusStore
	)
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		store = jobs.NewRedisStore(rdb, "", cfg.JobStatusTTL)
		log.Info("Redis connected")
	} else {
		store = jobs.NewMemoryStore(cfg.JobStatusTTL)
		log.Info("using in-memory job status store")
	}

	// Manual titles: PostgreSQL when configured, memory otherwise
	var (
		pool       *pgxpool.Pool
		titleStore titles.Store
	)
	if cfg.DatabaseURL != "" {
		log.Info("connecting to PostgreSQL")
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		shutdownMgr.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		pg := titles.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.LogFatal("failed to prepare titles schema", err)
		}
		titleStore = pg
		log.Info("PostgreSQL connected")
	} else {
		titleStore = titles.NewMemoryStore()
		log.Info("using in-memory titles store")
	}

	tracker := jobs.NewTracker(rend, store, jobs.TrackerOptions{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
		Log:         log,
	})
	shutdownMgr.Register("tracker", tracker.Close)

	suggester, err := suggest.New(ctx, suggest.Options{
		Provider: cfg.SuggestProvider,
		OpenAI: suggest.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Log:     log,
		},
		Gemini: suggest.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Log:    log,
		},
	})
	if err != nil {
		log.LogFatal("failed to initialize suggester", err)
	}
	log.Info("text suggester ready", "provider", cfg.SuggestProvider)

	router := httpapi.NewRouter(httpapi.Deps{
		Deps: handlers.Deps{
			Log:            log,
			Catalog:        cat,
			Builder:        compose.NewBuilder(cat, compose.WithLogger(log)),
			Renderer:       rend,
			Tracker:        tracker,
			Assets:         assets,
			Suggester:      suggester,
			Titles:         titleStore,
			Pool:           pool,
			RDB:            rdb,
			MaxUploadBytes: cfg.MaxUploadMB << 20,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.RendererTimeout + 30*time.Second,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Registered last so it stops first: in-flight requests finish before
	// the tracker and stores go away.
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
	if err := shutdownMgr.Err(); err != nil {
		log.LogError(ctx, "shutdown finished with errors", err)
		os.Exit(1)
	}
}
