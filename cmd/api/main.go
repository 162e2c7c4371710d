package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/files"
	"github.com/learnhub/chathub/internal/gateway"
	httpx "github.com/learnhub/chathub/internal/http"
	"github.com/learnhub/chathub/internal/http/handlers"
	"github.com/learnhub/chathub/internal/jobs"
	"github.com/learnhub/chathub/internal/observability"
	"github.com/learnhub/chathub/internal/queue"
	"github.com/learnhub/chathub/internal/queue/redisclient"
	"github.com/learnhub/chathub/internal/store/mongo"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, "chathub-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				sctx, scancel := config.WithTimeout(5 * time.Second)
				defer scancel()
				_ = shutdown(sctx)
			}()
		}
	}

	store, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		cctx, ccancel := config.WithTimeout(5 * time.Second)
		defer ccancel()
		_ = store.Close(cctx)
	}()

	if err := store.CreateIndexes(ctx); err != nil {
		log.Error("index creation failed", "err", err)
		os.Exit(1)
	}

	usersRepo := mongo.NewUsersRepo(store.UsersCollection())
	if err := mongo.EnsureAdminUser(ctx, usersRepo, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	fileStore, err := files.New(cfg.UploadDir)
	if err != nil {
		log.Error("upload dir unavailable", "err", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	cleanup := newCleanup(cfg, fileStore, log)

	completer := gateway.NewOpenAIClient(cfg.CompletionBaseURL, cfg.CompletionModel, cfg.CompletionTimeout())

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	router := httpx.NewRouter(httpx.Deps{
		Log:       log,
		Cfg:       cfg,
		Store:     store,
		Prom:      prom,
		JWT:       newJWT(cfg),
		Completer: completer,
		Files:     fileStore,
		Cleanup:   cleanup,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, scancel := config.WithTimeout(10 * time.Second)
		defer scancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newCleanup decides how superseded uploads get removed. With Redis
// configured the work goes through the cleanup queue so a worker can
// retry; without it the file is dropped inline on a best-effort basis.
func newCleanup(cfg config.Config, fileStore *files.Store, log *slog.Logger) handlers.Cleanup {
	if cfg.RedisAddr == "" {
		return func(ref string) {
			go func() {
				if err := fileStore.Delete(ref); err != nil {
					log.Warn("file cleanup failed", "ref", ref, "err", err)
				}
			}()
		}
	}

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	q := queue.New(rdb.Raw())

	return func(ref string) {
		payload, err := jobs.EncodePayload(jobs.JobFileDelete, jobs.FileDeletePayload{Ref: ref})
		if err != nil {
			log.Warn("file cleanup enqueue failed", "ref", ref, "err", err)
			return
		}

		j, err := jobs.NewJob(jobs.JobFileDelete, payload)
		if err != nil {
			log.Warn("file cleanup enqueue failed", "ref", ref, "err", err)
			return
		}

		qctx, qcancel := config.WithTimeout(2 * time.Second)
		defer qcancel()

		if err := q.Enqueue(qctx, j); err != nil {
			log.Warn("file cleanup enqueue failed", "ref", ref, "err", err)
		}
	}
}

func newJWT(cfg config.Config) *auth.Manager {
	return auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
}
