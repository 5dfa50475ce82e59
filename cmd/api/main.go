package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohamedzameer33/blogapp/internal/app"
	"github.com/mohamedzameer33/blogapp/internal/auth"
	"github.com/mohamedzameer33/blogapp/internal/config"
	"github.com/mohamedzameer33/blogapp/internal/identity"
	"github.com/mohamedzameer33/blogapp/internal/live"
	"github.com/mohamedzameer33/blogapp/internal/media"
	"github.com/mohamedzameer33/blogapp/internal/search"
	"github.com/mohamedzameer33/blogapp/internal/session"
	"github.com/mohamedzameer33/blogapp/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	// Redis backs both the session store and cross-process change
	// fan-out. Without it, sessions cannot be configured at all, so
	// only the notifier degrades to process-local.
	var notifier live.Notifier
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisNotifier, err := live.NewRedisNotifier(cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisNotifier.Close()
		notifier = redisNotifier
	} else {
		logger.Warn("REDIS_URL unset, live updates are process-local")
		notifier = live.NewLocalNotifier()
	}

	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("session store failed: %v", err)
	}
	defer sessions.Close()

	watched := live.NewWatchedStore(dataStore, notifier)
	watcher := live.NewWatcher(watched, logger)

	var uploader media.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioUploader, err := media.NewMinioUploader(ctx, media.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Fatalf("object store failed: %v", err)
		}
		uploader = minioUploader
	} else {
		logger.Warn("MINIO_ENDPOINT unset, posts will use the placeholder image")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewPgSearch(db))

	service := app.New(app.Deps{
		Config:   cfg,
		Store:    watched,
		Watcher:  watcher,
		Resolver: identity.NewResolver(watched),
		Creds:    auth.NewCredentials(watched),
		Sessions: sessions,
		Uploader: uploader,
		Search:   searchService,
		Pinger:   dataStore,
		Logger:   logger,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("blog API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
