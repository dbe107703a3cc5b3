package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signet-id/signet/internal/handler"
	"github.com/signet-id/signet/internal/middleware"
	"github.com/signet-id/signet/internal/models"
	"github.com/signet-id/signet/internal/service"
	"github.com/signet-id/signet/internal/verifier"
	"github.com/signet-id/signet/pkg/cache"
	"github.com/signet-id/signet/pkg/config"
	"github.com/signet-id/signet/pkg/logger"
	corsmiddleware "github.com/signet-id/signet/pkg/middleware/cors"
	reqidmiddleware "github.com/signet-id/signet/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	metrics := service.NewMetrics()

	var tokenCache verifier.Cache
	switch cfg.RelyingParty.CacheBackend {
	case config.BackendRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer client.Close()
		tokenCache = verifier.NewRedisCache(client, logr)
	default:
		tokenCache = verifier.NewMemoryCache()
	}

	authorityClient := verifier.NewClient(cfg.RelyingParty.AuthorityBaseURL, cfg.RelyingParty.VerifyTimeout)
	v := verifier.NewVerifier(tokenCache, authorityClient, cfg.RelyingParty.FreshnessWindow, logr, metrics)

	profiles := handler.NewProfileStore(map[string]models.Profile{
		"user1": {Email: "user1@example.com", Name: "User 1"},
		"user2": {Email: "user2@example.com", Name: "User 2"},
	})

	cookieSecure := cfg.Env == config.EnvProduction
	siteHandler := handler.NewSiteHandler(cfg.RelyingParty.Name, cfg.RelyingParty.PublicURL, v, authorityClient, profiles, logr, cookieSecure)

	// Best effort: register our revocation webhook with the IdP so local
	// cache entries are purged ahead of the freshness window.
	webhookURL := strings.TrimRight(cfg.RelyingParty.PublicURL, "/") + "/logout-webhook"
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := authorityClient.Subscribe(ctx, webhookURL); err != nil {
			logr.Sugar().Warnw("webhook subscription failed", "url", webhookURL, "error", err)
		}
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	requireSession := middleware.RequireSession(v, authorityClient.LoginURL, cfg.RelyingParty.PublicURL)
	r.GET("/", requireSession, siteHandler.Home)
	r.GET("/profile", requireSession, siteHandler.Profile)
	r.POST("/change-password", requireSession, siteHandler.ChangePassword)
	r.GET("/logout", siteHandler.Logout)
	r.POST("/logout-webhook", siteHandler.LogoutWebhook)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	addr := fmt.Sprintf(":%d", cfg.RelyingParty.Port)
	logr.Sugar().Infow("relying party starting", "addr", addr, "name", cfg.RelyingParty.Name, "authority", cfg.RelyingParty.AuthorityBaseURL)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
