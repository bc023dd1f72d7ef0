package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/config"
	"github.com/Aziraphal/smartportfolio/internal/handlers"
	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"github.com/Aziraphal/smartportfolio/internal/projectsync"
	"github.com/Aziraphal/smartportfolio/internal/seo"
	"github.com/Aziraphal/smartportfolio/internal/workers"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"
	"github.com/stripe/stripe-go/v79"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(defaultDeps()); err != nil {
		log.Fatal(err)
	}
}

type deps struct {
	getenv         func(string) string
	openDB         func(driverName, dataSourceName string) (*sql.DB, error)
	migrateUp      func(db *sql.DB, sourceURL string) error
	listenAndServe func(*http.Server) error
	stopCh         chan os.Signal
	notify         func(chan<- os.Signal, ...os.Signal)
}

func defaultDeps() deps {
	return deps{
		getenv:         os.Getenv,
		openDB:         sql.Open,
		migrateUp:      migrateUp,
		listenAndServe: func(s *http.Server) error { return s.ListenAndServe() },
		notify:         signal.Notify,
	}
}

func run(d deps) error {
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	cfg, err := config.Load(d.getenv)
	if err != nil {
		return err
	}
	if d.openDB == nil {
		return fmt.Errorf("openDB dependency is required")
	}

	// Root context for background workers and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := d.openDB("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("Failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("Failed to ping database: %w", err)
	}

	if d.migrateUp != nil {
		if err := d.migrateUp(db, cfg.MigrationsURL); err != nil {
			return err
		}
		log.Println("Database is up-to-date")
	}

	if cfg.StripeSecretKey != "" {
		stripe.Key = cfg.StripeSecretKey
	}

	h := newHandler(db, cfg, d.getenv)
	r := buildRouter(h)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Handler:      c.Handler(r),
		Addr:         listenAddr(cfg),
		WriteTimeout: 2 * time.Minute, // portfolio syncs can take a while
		ReadTimeout:  15 * time.Second,
	}

	// Handle graceful shutdown on SIGINT/SIGTERM
	stop := d.stopCh
	if stop == nil {
		stop = make(chan os.Signal, 1)
	}
	if d.notify != nil {
		d.notify(stop, os.Interrupt, syscall.SIGTERM)
	}

	if cfg.AutoSyncEnabled {
		startAutoSyncWorker(rootCtx, h, parseIntervalFromEnv(d.getenv, "AUTO_SYNC_INTERVAL_SECONDS", cfg.AutoSyncInterval))
	} else {
		log.Printf("[AutoSyncWorker] disabled via AUTO_SYNC_ENABLED")
	}

	go func() {
		<-stop
		log.Println("Shutting down server...")
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on %s", srv.Addr)
	if d.listenAndServe == nil {
		return fmt.Errorf("listenAndServe dependency is required")
	}
	if err := d.listenAndServe(srv); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Println("Server stopped")
	return nil
}

// newHandler wires the sync service, optimizer and credentials from cfg.
func newHandler(db *sql.DB, cfg config.Config, getenv func(string) string) *handlers.Handler {
	logger := log.Default()

	var optimizer *seo.Optimizer
	if cfg.AIEnabled() {
		pause := cfg.SEOChunkPause
		if pause <= 0 {
			// SEO_CHUNK_PAUSE_MS=0 turns the pause off.
			pause = seo.NoChunkPause
		}
		optimizer = &seo.Optimizer{
			Generator:  seo.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel),
			Logger:     logger,
			CacheTTL:   cfg.SEOCacheTTL,
			ChunkPause: pause,
		}
		optimizer.EnsureDefaults()
	} else {
		log.Printf("[SEO] OPENAI_API_KEY not set, using local rewrites only")
	}

	defaults := map[platforms.Platform]platforms.Credentials{}
	if cfg.GitHubToken != "" {
		defaults[platforms.GitHub] = platforms.Credentials{AppToken: cfg.GitHubToken}
	}
	if cfg.BehanceAPIKey != "" {
		defaults[platforms.Behance] = platforms.Credentials{APIKey: cfg.BehanceAPIKey}
	}
	if cfg.DribbbleAccessToken != "" {
		defaults[platforms.Dribbble] = platforms.Credentials{AppToken: cfg.DribbbleAccessToken}
	}

	svc := &projectsync.Service{
		Runner: &projectsync.Runner{
			Logger:      logger,
			Timeout:     cfg.SyncTimeout,
			Concurrency: cfg.SyncConcurrency,
			Getenv:      getenv,
		},
		Optimizer: optimizer,
		Logger:    logger,
		Defaults:  defaults,
	}
	return handlers.NewWithOptions(db, handlers.Options{
		Service:             svc,
		Optimizer:           optimizer,
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		InternalWSSecret:    cfg.InternalWSSecret,
		Logger:              logger,
	})
}

// listenAddr uses the loaded config so PORT is read and trimmed in one place.
func listenAddr(cfg config.Config) string {
	port := cfg.Port
	if port == "" {
		port = "18911"
	}
	return ":" + port
}

func parseIntervalFromEnv(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func buildRouter(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(h, r)
	return r
}

func startAutoSyncWorker(ctx context.Context, h *handlers.Handler, interval time.Duration) {
	if h == nil {
		return
	}
	w := &workers.AutoSyncWorker{
		Store:    h.Store(),
		Sync:     h.Service(),
		Interval: interval,
	}
	go w.Start(ctx)
}

func migrateUp(db *sql.DB, sourceURL string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if sourceURL == "" {
		sourceURL = "file://db/migrations"
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("Failed to init migration driver: %w", err)
	}
	migrator, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("Failed to create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("Database migration failed: %w", err)
	}
	return nil
}
