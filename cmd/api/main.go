package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"threadview/api/internal/app"
	"threadview/api/internal/attachments"
	"threadview/api/internal/config"
	"threadview/api/internal/membership"
	"threadview/api/internal/search"
	"threadview/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	pgfts := search.NewPgFTS(db, cfg.NoiseAuthorID)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	defer searchService.Close()
	go searchService.ReindexAllFromPG(ctx)

	// Without a bot token every viewer is unknown and private content stays hidden.
	var oracle membership.Oracle
	if strings.TrimSpace(cfg.DiscordBotToken) != "" {
		oracle = membership.NewDiscordOracle(cfg.DiscordAPIURL, cfg.DiscordBotToken, cfg.DiscordRatePerSec)
		if strings.TrimSpace(cfg.RedisURL) != "" {
			log.Printf("Using Redis for membership caching")
			cache, err := membership.NewRedisCache(cfg.RedisURL, oracle, cfg.MembershipTTL)
			if err != nil {
				log.Fatalf("redis connection failed: %v", err)
			}
			defer cache.Close()
			oracle = cache
		}
	} else {
		log.Printf("DISCORD_BOT_TOKEN not set, membership lookups disabled")
	}

	presigner, err := attachments.NewPresigner(attachments.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		TTL:       cfg.AttachmentTTL,
	})
	if err != nil {
		log.Fatalf("object storage setup failed: %v", err)
	}

	service := app.New(cfg, dataStore, oracle, searchService, presigner)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Threadview API listening on %s", cfg.Addr)
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
		log.Printf("shutdown error: %v", err)
	}
}
