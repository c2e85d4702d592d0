package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/adpilot/internal/api"
	"github.com/ignite/adpilot/internal/config"
	"github.com/ignite/adpilot/internal/export"
	"github.com/ignite/adpilot/internal/pipeline"
	"github.com/ignite/adpilot/internal/pkg/distlock"
	"github.com/ignite/adpilot/internal/pkg/logger"
	"github.com/ignite/adpilot/internal/repository/postgres"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required: the pipeline reads the metrics store from PostgreSQL")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open metrics store: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach metrics store: %v", err)
	}
	repo := postgres.NewMetricsRepo(db)

	// Result cache: shared Redis when configured, in-process otherwise.
	var cache pipeline.Cache = pipeline.NewMemoryCache()
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to reach redis at %s: %v", cfg.Redis.Addr, err)
		}
		cache = pipeline.NewRedisCache(redisClient)
		logger.Info("result cache backed by redis", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("result cache in-process (no redis configured)")
	}

	orchestrator := pipeline.New(repo, cache, pipeline.Config{
		CacheTTL:        time.Duration(cfg.Pipeline.CacheTTLSeconds) * time.Second,
		RiskBudget:      time.Duration(cfg.Pipeline.RiskBudgetMS) * time.Millisecond,
		RecommendBudget: time.Duration(cfg.Pipeline.RecommendBudgetMS) * time.Millisecond,
	})

	// Run locks keep replicas from recomputing the same cold window.
	orchestrator.SetLockProvider(distlock.NewProvider(redisClient, db))

	if cfg.Export.Enabled {
		archiver, err := export.NewS3Archiver(context.Background(),
			cfg.Export.S3Bucket, cfg.Export.S3Region, cfg.Export.AWSProfile)
		if err != nil {
			log.Fatalf("Failed to initialize S3 archiver: %v", err)
		}
		orchestrator.SetArchiver(archiver)
		logger.Info("run archival enabled", "bucket", cfg.Export.S3Bucket)
	}

	server := api.NewServer(orchestrator)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		errCh <- server.ListenAndServe(cfg.Server.Addr())
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Shutdown failed: %v", err)
		}
	}
}
