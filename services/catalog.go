package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/utils"
	"github.com/cppla/clipbot/wizard"
)

// Upload is a video or document a user sent to the bot.
type Upload struct {
	Type         string // models.ContentVideo or models.ContentFile
	FileID       string
	FileUniqueID string
	FileName     string
	FileSize     int64
	MimeType     string
	UploaderID   int64
}

// CategoryCount is one row of the browse menu.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ListFilter narrows List.
type ListFilter struct {
	Type     string
	Category string
	Trending *bool
	Page     int
	PageSize int
}

// Catalog stores deliverable content.
type Catalog struct {
	db           *gorm.DB
	maxFileBytes int64
}

// NewCatalog creates a catalog. maxFileBytes <= 0 disables the document size check.
func NewCatalog(db *gorm.DB, maxFileBytes int64) *Catalog {
	return &Catalog{db: db, maxFileBytes: maxFileBytes}
}

// AddUpload stores a user upload once per Telegram file_unique_id and credits the uploader.
func (c *Catalog) AddUpload(ctx context.Context, up Upload) (*models.Content, error) {
	if up.Type == models.ContentFile && c.maxFileBytes > 0 && up.FileSize > c.maxFileBytes {
		return nil, ErrFileTooLarge
	}
	item := c.contentFromUpload(up)

	counter := "uploaded_videos"
	if up.Type == models.ContentFile {
		counter = "uploaded_files"
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_unique_id"}},
			DoNothing: true,
		}).Create(&item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateContent
		}
		return tx.Model(&models.User{}).Where("user_id = ?", up.UploaderID).
			UpdateColumn(counter, gorm.Expr(counter+" + 1")).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			return nil, err
		}
		return nil, fmt.Errorf("add upload: %w", err)
	}
	c.invalidate(ctx)
	return &item, nil
}

// MarkTrending inserts or updates the item and sets its trending flag.
// For files the flag reads as "popular" in the bot.
func (c *Catalog) MarkTrending(ctx context.Context, up Upload) (*models.Content, error) {
	item := c.contentFromUpload(up)
	item.Trending = true
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_unique_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"trending", "file_id", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("mark trending: %w", err)
	}
	c.invalidate(ctx)

	var stored models.Content
	if err := c.db.WithContext(ctx).First(&stored, "file_unique_id = ?", up.FileUniqueID).Error; err != nil {
		return nil, fmt.Errorf("reload trending item: %w", err)
	}
	return &stored, nil
}

// ClearTrending unsets the flag on every item of contentType and returns how many changed.
func (c *Catalog) ClearTrending(ctx context.Context, contentType string) (int64, error) {
	res := c.db.WithContext(ctx).Model(&models.Content{}).
		Where("type = ? AND trending = ?", contentType, true).
		Update("trending", false)
	if res.Error != nil {
		return 0, fmt.Errorf("clear trending %s: %w", contentType, res.Error)
	}
	c.invalidate(ctx)
	return res.RowsAffected, nil
}

// Random picks one item of contentType uniformly.
func (c *Catalog) Random(ctx context.Context, contentType string) (*models.Content, error) {
	q := c.db.WithContext(ctx).Model(&models.Content{}).Where("type = ?", contentType)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", contentType, err)
	}
	if total == 0 {
		return nil, ErrCatalogEmpty
	}
	var item models.Content
	err := c.db.WithContext(ctx).Where("type = ?", contentType).
		Order("created_at, id").Offset(int(rand.Int64N(total))).Limit(1).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// a row vanished between count and fetch
		return nil, ErrCatalogEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("pick random %s: %w", contentType, err)
	}
	return &item, nil
}

// Trending returns up to limit flagged items of contentType, oldest first.
func (c *Catalog) Trending(ctx context.Context, contentType string, limit int) ([]models.Content, error) {
	var items []models.Content
	err := c.db.WithContext(ctx).Where("type = ? AND trending = ?", contentType, true).
		Order("created_at, id").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list trending %s: %w", contentType, err)
	}
	return items, nil
}

// Categories counts files per category.
func (c *Catalog) Categories(ctx context.Context) ([]CategoryCount, error) {
	return countCategories(c.db.WithContext(ctx))
}

func countCategories(db *gorm.DB) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := db.Model(&models.Content{}).
		Select("category, COUNT(*) AS count").
		Where("type = ? AND category <> ''", models.ContentFile).
		Group("category").Order("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	return rows, nil
}

// ByCategory returns up to limit files in category.
func (c *Catalog) ByCategory(ctx context.Context, category string, limit int) ([]models.Content, error) {
	var items []models.Content
	err := c.db.WithContext(ctx).Where("type = ? AND category = ?", models.ContentFile, category).
		Order("created_at, id").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list category %s: %w", category, err)
	}
	return items, nil
}

// CreateTitle persists a finished wizard title as one content item.
func (c *Catalog) CreateTitle(ctx context.Context, title wizard.Title, adminID int64) (*models.Content, error) {
	meta := models.TitleMetadata{
		ThumbnailID: title.ThumbnailID,
		URL:         title.URL,
		Seasons: lo.Map(title.Seasons, func(s wizard.Season, _ int) models.Season {
			return models.Season{
				Name: s.Name,
				Episodes: lo.Map(s.Episodes, func(e wizard.Episode, _ int) models.Episode {
					return models.Episode{Name: e.Name, URL: e.URL}
				}),
			}
		}),
	}
	if len(meta.Seasons) == 0 {
		meta.Seasons = nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode title metadata: %w", err)
	}
	item := models.Content{
		Type:       string(title.Type),
		Name:       title.Name,
		FileID:     title.ThumbnailID,
		Metadata:   string(raw),
		UploadedBy: adminID,
	}
	if err := c.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create title: %w", err)
	}
	c.invalidate(ctx)
	return &item, nil
}

// Get loads one item.
func (c *Catalog) Get(ctx context.Context, id string) (*models.Content, error) {
	var item models.Content
	if err := c.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("get content %s: %w", id, err)
	}
	return &item, nil
}

// List returns one page of items matching f, newest first, and the total match count.
func (c *Catalog) List(ctx context.Context, f ListFilter) ([]models.Content, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	q := c.db.WithContext(ctx).Model(&models.Content{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Trending != nil {
		q = q.Where("trending = ?", *f.Trending)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count catalog: %w", err)
	}
	var items []models.Content
	if err := q.Order("created_at DESC, id").Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list catalog: %w", err)
	}
	return items, total, nil
}

func (c *Catalog) contentFromUpload(up Upload) models.Content {
	item := models.Content{
		Type:         up.Type,
		FileID:       up.FileID,
		FileUniqueID: up.FileUniqueID,
		Name:         up.FileName,
		FileSize:     up.FileSize,
		MimeType:     up.MimeType,
		UploadedBy:   up.UploaderID,
	}
	if up.Type == models.ContentFile {
		item.Category = CategoryFor(up.FileName)
	}
	if item.FileUniqueID == "" {
		item.FileUniqueID = up.FileID
	}
	return item
}

func (c *Catalog) invalidate(ctx context.Context) {
	utils.InvalidateCatalogCache(ctx)
}
