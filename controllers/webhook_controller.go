package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/utils"
)

// UpdateHandler consumes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// WebhookController receives updates pushed by Telegram.
type WebhookController struct {
	handler UpdateHandler
	secret  string
}

// NewWebhookController creates a controller that only accepts requests carrying secret in the path.
func NewWebhookController(handler UpdateHandler, secret string) *WebhookController {
	return &WebhookController{handler: handler, secret: secret}
}

// Receive decodes the update and dispatches it before answering, so Telegram retries on a crash.
func (w *WebhookController) Receive(ctx *gin.Context) {
	got := ctx.Param("secret")
	if w.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
		return
	}

	var upd tgbotapi.Update
	if err := ctx.ShouldBindJSON(&upd); err != nil {
		utils.Logger.Warn("undecodable webhook payload", zap.Error(err))
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid update payload")
		return
	}

	w.handler.HandleUpdate(ctx.Request.Context(), upd)
	ctx.Status(http.StatusOK)
}
