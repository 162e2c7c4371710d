package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/chathub/internal/auth"
	"github.com/learnhub/chathub/internal/config"
	"github.com/learnhub/chathub/internal/files"
	"github.com/learnhub/chathub/internal/gateway"
	"github.com/learnhub/chathub/internal/http/handlers"
	"github.com/learnhub/chathub/internal/http/middlewares"
	"github.com/learnhub/chathub/internal/observability"
	"github.com/learnhub/chathub/internal/store/mongo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router needs; main builds it once.
type Deps struct {
	Log       *slog.Logger
	Cfg       config.Config
	Store     *mongo.Client
	Prom      *observability.Prom
	JWT       *auth.Manager
	Completer gateway.Completer
	Files     *files.Store
	Cleanup   handlers.Cleanup
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	if d.Cfg.MaxUploadBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxUploadBytes))
	}
	r.Use(otelgin.Middleware("chathub"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if d.Cfg.RateLimitPerMinute > 0 {
		limiter := middlewares.NewRateLimiter(d.Cfg.RateLimitPerMinute, time.Minute)
		r.Use(limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	}

	// health
	ping := func() error {
		if d.Store == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Store.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// uploaded files are served straight off disk
	if d.Files != nil {
		r.Static(files.URLPrefix, d.Files.Dir())
	}

	// wire up repositories
	usersRepo := mongo.NewUsersRepo(d.Store.UsersCollection())
	conversationsRepo := mongo.NewConversationsRepo(d.Store.ConversationsCollection())
	if d.Prom != nil {
		usersRepo.Observe = d.Prom.ObserveStore
		conversationsRepo.Observe = d.Prom.ObserveStore
	}

	completer := d.Completer
	if d.Prom != nil {
		completer = timedCompleter{inner: completer, prom: d.Prom}
	}

	authHandler := handlers.NewAuthHandler(usersRepo, d.JWT, d.Files, d.Cleanup)
	chatHandler := handlers.NewChatHandler(conversationsRepo, completer, d.Files, d.Cleanup)
	adminHandler := handlers.NewAdminHandler(usersRepo, conversationsRepo, authHandler)
	exportHandler := handlers.NewExportHandler(conversationsRepo)

	authMw := middlewares.NewAuthMiddleware(d.JWT)

	api := r.Group("/api")

	api.POST("/auth/signup", middlewares.RequireJSON(), authHandler.SignUp)
	api.POST("/auth/signin", middlewares.RequireJSON(), authHandler.SignIn)

	authed := api.Group("", authMw.RequireAuth())
	authed.GET("/auth/me", authHandler.Me)
	authed.PUT("/auth/update", authHandler.UpdateSelf)
	authed.POST("/chat", chatHandler.Append)
	authed.GET("/chat", chatHandler.List)
	authed.GET("/chat/:subject", chatHandler.GetBySubject)
	authed.POST("/deletechat", middlewares.RequireJSON(), chatHandler.Delete)
	authed.GET("/download-docx/:entryId", exportHandler.Download)
	// profile lookup needs a token but not the admin role; the client's
	// dashboard fetches profiles for regular users through it too
	authed.GET("/admin/user", adminHandler.GetUser)

	admin := api.Group("/admin", authMw.RequireAuth(), authMw.RequireAdmin())
	admin.GET("/users-chats", adminHandler.ListUsersWithChats)
	admin.PUT("/user", adminHandler.UpdateUser)
	admin.POST("/toggle-status", middlewares.RequireJSON(), adminHandler.ToggleStatus)
	admin.GET("/summary", adminHandler.Summary)

	return r
}

// timedCompleter records gateway latency and outcome.
type timedCompleter struct {
	inner gateway.Completer
	prom  *observability.Prom
}

func (t timedCompleter) Complete(ctx context.Context, req gateway.Request) (string, error) {
	var answer string

	err := t.prom.ObserveCompletion(func() error {
		var innerErr error
		answer, innerErr = t.inner.Complete(ctx, req)
		return innerErr
	})

	return answer, err
}
