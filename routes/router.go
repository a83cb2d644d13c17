package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/controllers"
	"github.com/cppla/clipbot/middleware"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/utils"
)

// Bot is what the HTTP layer needs from the Telegram bot.
type Bot interface {
	controllers.UpdateHandler
	controllers.BotOps
}

// Deps carries the services the routes are served from.
type Deps struct {
	Catalog       *services.Catalog
	Shares        *services.ShareIssuer
	Reporter      *services.Reporter
	Bot           Bot
	WebhookSecret string
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg, cfg.GinPath)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestCounter())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", utils.Stats.Handler())

	webhookController := controllers.NewWebhookController(deps.Bot, deps.WebhookSecret)
	catalogController := controllers.NewCatalogController(deps.Catalog)
	shareController := controllers.NewShareController(deps.Shares, deps.Catalog)
	adminController := controllers.NewAdminController(deps.Reporter, deps.Bot)

	r.POST("/telegram/webhook/:secret", webhookController.Receive)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	api.GET("/catalog", catalogController.List)
	api.GET("/catalog/:id", catalogController.Get)
	api.GET("/share/:token", shareController.Redeem)

	adminGroup := api.Group("/admin")
	adminGroup.POST("/login", adminController.Login)

	protected := adminGroup.Group("")
	protected.Use(middleware.AdminRequired())
	protected.POST("/logout", adminController.Logout)
	protected.GET("/stats", adminController.Stats)
	protected.POST("/sweep", adminController.Sweep)
	protected.POST("/broadcast", adminController.Broadcast)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
