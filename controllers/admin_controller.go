package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/middleware"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
	"github.com/cppla/clipbot/wizard"
)

const adminTokenTTL = 12 * time.Hour

// BotOps is the part of the bot the admin API drives.
type BotOps interface {
	Announce(ctx context.Context, text string) (int, error)
	SweepShares(ctx context.Context) (int64, error)
}

// AdminController serves the JWT protected admin API.
type AdminController struct {
	reporter *services.Reporter
	bot      BotOps
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(reporter *services.Reporter, bot BotOps) *AdminController {
	return &AdminController{reporter: reporter, bot: bot}
}

// Login exchanges the admin password for a bearer token.
func (a *AdminController) Login(ctx *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	cfg := config.Get()
	if cfg.AdminPasswordHash == "" || cfg.JWTSecret == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, 50330, "admin login disabled")
		return
	}
	if !utils.CheckPassword(cfg.AdminPasswordHash, req.Password) {
		utils.Logger.Warn("admin login rejected", zap.String("ip", ctx.ClientIP()))
		utils.Error(ctx, http.StatusUnauthorized, 40130, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken("admin", utils.RoleAdmin, adminTokenTTL)
	if err != nil {
		utils.Logger.Error("issue admin token failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_in": int(adminTokenTTL.Seconds()),
	})
}

// Logout revokes the token the request was authenticated with.
func (a *AdminController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := ctx.GetTime(middleware.ContextTokenExpiryKey)
	if token == "" || expiresAt.IsZero() {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.RevokeToken(ctx.Request.Context(), token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Stats returns the global usage overview.
func (a *AdminController) Stats(ctx *gin.Context) {
	stats, err := a.reporter.Stats(ctx.Request.Context())
	if err != nil {
		utils.Logger.Error("admin stats failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to compute stats")
		return
	}
	utils.Success(ctx, stats)
}

// Sweep removes expired share tokens now.
func (a *AdminController) Sweep(ctx *gin.Context) {
	n, err := a.bot.SweepShares(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "sweep failed")
		return
	}
	utils.Success(ctx, gin.H{"deleted": n})
}

// Broadcast queues a text announcement to every known user and answers 202 right away.
func (a *AdminController) Broadcast(ctx *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "text is required")
		return
	}

	recipients, err := a.bot.Announce(ctx.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, wizard.ErrInvalidInput) {
			utils.Error(ctx, http.StatusBadRequest, 40032, "text is empty after sanitizing")
			return
		}
		if errors.Is(err, telegram.ErrTextTooLong) {
			utils.Error(ctx, http.StatusBadRequest, 40033, "text exceeds the telegram message limit")
			return
		}
		utils.Logger.Error("admin broadcast failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to start broadcast")
		return
	}
	utils.Accepted(ctx, "broadcast queued", gin.H{"recipients": recipients})
}
