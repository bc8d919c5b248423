package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"movielist/internal/app"
	"movielist/internal/cache"
	"movielist/internal/config"
	"movielist/internal/server"
	"movielist/internal/storage"
	"movielist/internal/tmdb"
	"movielist/internal/util"
)

const defaultTMDBBaseURL = "https://api.themoviedb.org/3"

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	baseURL := cfg.TMDBBaseURL
	if baseURL == "" {
		baseURL = defaultTMDBBaseURL
	}
	searchClient := tmdb.NewClient(baseURL, cfg.TMDBAPIKey)

	views := cache.NewViewCache(cfg.RedisAddr, cfg.RedisPassword,
		time.Duration(cfg.ViewCacheTTLSeconds)*time.Second)

	var mirror storage.ObjectStore
	if cfg.PosterMirror.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(
			cfg.PosterMirror.Endpoint,
			cfg.PosterMirror.AccessKey,
			cfg.PosterMirror.SecretKey,
			cfg.PosterMirror.Bucket,
			cfg.PosterMirror.UseSSL,
		)
		if err != nil {
			log.Fatalf("failed to init poster mirror: %v", err)
		}
		mirror = minioStore
		slog.Info("poster mirror enabled", "endpoint", cfg.PosterMirror.Endpoint, "bucket", cfg.PosterMirror.Bucket)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		SessionTTL:    sessionTTL,
		JWTSecret:     cfg.JWTSecret,
		PosterQuality: cfg.PosterQuality,
		Search:        searchClient,
		Views:         views,
		Mirror:        mirror,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Views:                    views,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SearchRateLimitPerMinute: cfg.SearchRateLimitPerMinute,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
