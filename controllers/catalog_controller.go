package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/utils"
)

const catalogCacheTTL = 5 * time.Minute

var contentTypes = []string{models.ContentVideo, models.ContentFile, models.ContentMovie, models.ContentSeries}

// CatalogController exposes the content catalog read-only.
type CatalogController struct {
	catalog *services.Catalog
}

// NewCatalogController creates a new CatalogController instance.
func NewCatalogController(catalog *services.Catalog) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// List returns a page of content filtered by type, category and trending flag.
func (c *CatalogController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	contentType := strings.TrimSpace(ctx.Query("type"))
	category := strings.TrimSpace(ctx.Query("category"))
	trendingRaw := strings.TrimSpace(ctx.Query("trending"))

	if contentType != "" && !lo.Contains(contentTypes, contentType) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid content type")
		return
	}
	var trending *bool
	if trendingRaw != "" {
		v, err := strconv.ParseBool(trendingRaw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40011, "trending must be a boolean")
			return
		}
		trending = &v
		trendingRaw = strconv.FormatBool(v)
	}

	cacheKey := utils.CatalogCacheKey("list",
		"type", contentType, "cat", category, "trending", trendingRaw, "page", page, "size", pageSize)
	if b, ok := utils.CachedResponse(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	items, total, err := c.catalog.List(ctx.Request.Context(), services.ListFilter{
		Type:     contentType,
		Category: category,
		Trending: trending,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		utils.Logger.Error("catalog list failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to list catalog")
		return
	}

	payload := gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheResponse(ctx.Request.Context(), cacheKey, payload, catalogCacheTTL)
	utils.Success(ctx, payload)
}

// Get returns one content record.
func (c *CatalogController) Get(ctx *gin.Context) {
	item, err := c.catalog.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "content not found")
			return
		}
		utils.Logger.Error("catalog get failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to load content")
		return
	}
	utils.Success(ctx, gin.H{"content": item})
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}
