package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/files"
	"github.com/learnhub/chathub/internal/observability"
	"github.com/learnhub/chathub/internal/queue"
	"github.com/learnhub/chathub/internal/queue/redisclient"
	"github.com/learnhub/chathub/internal/queue/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.RedisAddr == "" {
		log.Error("REDIS_ADDR is required for the cleanup worker")
		os.Exit(1)
	}

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	pctx, pcancel := config.WithTimeout(5 * time.Second)
	if err := rdb.Ping(pctx); err != nil {
		pcancel()
		log.Error("redis unreachable", "err", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	pcancel()

	fileStore, err := files.New(cfg.UploadDir)
	if err != nil {
		log.Error("upload dir unavailable", "err", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	w := worker.New(worker.Config{PollWait: 5 * time.Second}, queue.New(rdb.Raw()), fileStore, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("cleanup worker starting", "redis", cfg.RedisAddr)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
		os.Exit(1)
	}
}
