package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/signet-id/signet/internal/handler"
	"github.com/signet-id/signet/internal/middleware"
	"github.com/signet-id/signet/internal/repository"
	"github.com/signet-id/signet/internal/service"
	"github.com/signet-id/signet/internal/token"
	"github.com/signet-id/signet/pkg/cache"
	"github.com/signet-id/signet/pkg/config"
	"github.com/signet-id/signet/pkg/database"
	"github.com/signet-id/signet/pkg/logger"
	corsmiddleware "github.com/signet-id/signet/pkg/middleware/cors"
	reqidmiddleware "github.com/signet-id/signet/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Token.Secret == "" {
		log.Fatal("TOKEN_SECRET must be set")
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	var identities repository.IdentityStore
	switch cfg.IdP.IdentityBackend {
	case config.BackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
		}
		defer db.Close()
		identities = repository.NewPostgresIdentityStore(db)
	default:
		identities = repository.NewMemoryIdentityStore()
	}

	var revocations repository.RevocationStore
	switch cfg.IdP.RevocationStore {
	case config.BackendRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer client.Close()
		revocations = repository.NewRedisRevocationStore(client)
	default:
		revocations = repository.NewMemoryRevocationStore()
	}

	metrics := service.NewMetrics()

	notifier := service.NewNotifier(cfg.Webhook.Endpoints, logr, metrics, service.NotifierConfig{
		Timeout:      cfg.Webhook.Timeout,
		MaxRetries:   cfg.Webhook.MaxRetries,
		RetryBackoff: cfg.Webhook.RetryBackoff,
		Buffer:       cfg.Webhook.DeliveryBuffer,
	})
	defer notifier.Close()

	codec := token.NewCodec(cfg.Token.Secret, cfg.Token.Issuer)
	authority := service.NewAuthority(identities, revocations, codec, notifier, validator.New(), logr, metrics, service.AuthorityConfig{
		TokenTTL:  cfg.Token.TTL,
		Stateless: cfg.Token.Stateless,
	})

	cookieSecure := cfg.Env == config.EnvProduction
	authHandler := handler.NewAuthHandler(authority, logr, cookieSecure)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/login", authHandler.LoginForm)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.POST("/verify", authHandler.Verify)
	r.POST("/register", authHandler.Register)
	r.POST("/hooks", authHandler.Subscribe)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	addr := fmt.Sprintf(":%d", cfg.IdP.Port)
	logr.Sugar().Infow("identity provider starting", "addr", addr, "env", cfg.Env, "stateless", cfg.Token.Stateless)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
