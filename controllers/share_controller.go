package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/utils"
)

// ShareController redeems share tokens over HTTP.
type ShareController struct {
	shares  *services.ShareIssuer
	catalog *services.Catalog
}

func NewShareController(shares *services.ShareIssuer, catalog *services.Catalog) *ShareController {
	return &ShareController{shares: shares, catalog: catalog}
}

// Redeem resolves a token to its content. Unknown tokens are 404, expired ones 410.
func (s *ShareController) Redeem(ctx *gin.Context) {
	contentID, err := s.shares.Redeem(ctx.Request.Context(), ctx.Param("token"))
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		utils.Stats.ShareLinks.WithLabelValues("redeem", "not_found").Inc()
		utils.Error(ctx, http.StatusNotFound, 40420, "share link not found")
		return
	case errors.Is(err, services.ErrTokenExpired):
		utils.Stats.ShareLinks.WithLabelValues("redeem", "expired").Inc()
		utils.Error(ctx, http.StatusGone, 41020, "share link expired")
		return
	case err != nil:
		utils.Logger.Error("share redeem failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to redeem share link")
		return
	}

	item, err := s.catalog.Get(ctx.Request.Context(), contentID)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			utils.Stats.ShareLinks.WithLabelValues("redeem", "not_found").Inc()
			utils.Error(ctx, http.StatusNotFound, 40421, "shared content no longer exists")
			return
		}
		utils.Logger.Error("shared content load failed", zap.String("content_id", contentID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load content")
		return
	}
	utils.Stats.ShareLinks.WithLabelValues("redeem", "ok").Inc()
	utils.Success(ctx, gin.H{"content": item})
}
