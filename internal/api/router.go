package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/app"
	"github.com/clubworks/atrium/internal/handlers"
	"github.com/clubworks/atrium/internal/middleware"
	"github.com/clubworks/atrium/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	api := r.Group("/api")

	// Health endpoint (public)
	if cfg.Monitoring.Health.Enabled {
		api.GET("/health", handlers.Health())
	}

	if err := registerMemberRoutes(api, db, cfg); err != nil {
		return nil, err
	}
	if err := registerTagRoutes(api, db); err != nil {
		return nil, err
	}
	if err := registerIntroductionRoutes(api, db); err != nil {
		return nil, err
	}
	if err := registerWebhookRoutes(api, db); err != nil {
		return nil, err
	}

	// Prometheus scrape endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMemberRoutes(api *gin.RouterGroup, db *gorm.DB, cfg *app.Config) error {
	memberHandler, err := handlers.NewMemberHandler(db)
	if err != nil {
		return err
	}

	var matchOpts []services.MatchServiceOption
	if cfg.Matching.TopN > 0 {
		matchOpts = append(matchOpts, services.WithTopN(cfg.Matching.TopN))
	}
	matchHandler, err := handlers.NewMatchHandler(db, matchOpts...)
	if err != nil {
		return err
	}

	members := api.Group("/members")
	{
		members.GET("", memberHandler.List)
		members.GET("/:id", memberHandler.Get)
		members.GET("/:id/quota", memberHandler.Quota)
		members.POST("/:id/matches", matchHandler.Suggest)
	}
	return nil
}

func registerTagRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	tagHandler, err := handlers.NewTagHandler(db)
	if err != nil {
		return err
	}

	api.GET("/tags", tagHandler.List)

	members := api.Group("/members/:id/tags")
	{
		members.GET("", tagHandler.ListForMember)
		members.POST("", tagHandler.Assign)
		members.DELETE("/:tagId", tagHandler.Remove)
	}
	return nil
}

func registerIntroductionRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	introHandler, err := handlers.NewIntroductionHandler(db)
	if err != nil {
		return err
	}

	intros := api.Group("/introductions")
	{
		intros.POST("", introHandler.Create)
		intros.GET("", introHandler.List)
		intros.GET("/:id", introHandler.Get)
		intros.POST("/:id/approve", introHandler.Approve)
		intros.POST("/:id/send", introHandler.MarkSent)
		intros.POST("/:id/accept", introHandler.Accept)
		intros.POST("/:id/decline", introHandler.Decline)
		intros.POST("/:id/complete", introHandler.Complete)
		intros.PATCH("/:id/outcome", introHandler.UpdateOutcome)
	}

	api.GET("/members/:id/introductions", introHandler.ListForMember)
	return nil
}

func registerWebhookRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	webhookHandler, err := handlers.NewWebhookHandler(db)
	if err != nil {
		return err
	}

	api.POST("/webhooks/payments", webhookHandler.PaymentCompleted)
	return nil
}
