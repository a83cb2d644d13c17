package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/clipbot/models"
)

// Delivery kinds recorded in DeliveryStat.
const (
	DeliveryVideo     = "video"
	DeliveryFile      = "file"
	DeliveryShare     = "share"
	DeliveryBroadcast = "broadcast"
)

// Stats is the admin overview.
type Stats struct {
	TotalUsers      int64            `json:"total_users"`
	ActiveToday     int64            `json:"active_today"`
	Videos          int64            `json:"videos"`
	Files           int64            `json:"files"`
	Titles          int64            `json:"titles"`
	TrendingVideos  int64            `json:"trending_videos"`
	PopularFiles    int64            `json:"popular_files"`
	ShareTokens     int64            `json:"share_tokens"`
	Categories      []CategoryCount  `json:"categories"`
	DeliveriesToday map[string]int64 `json:"deliveries_today"`
}

// Reporter aggregates usage counters.
type Reporter struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReporter creates a Reporter using the local wall clock.
func NewReporter(db *gorm.DB) *Reporter {
	return &Reporter{db: db, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// RecordDelivery bumps today's counter for kind with an atomic upsert.
func (r *Reporter) RecordDelivery(ctx context.Context, kind string, n int64) error {
	if n <= 0 {
		return nil
	}
	today := r.now().Format(dateLayout)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + ?", n), "updated_at": r.now()}),
	}).Create(&models.DeliveryStat{Date: today, Kind: kind, Count: n}).Error
}

// Audience returns every known user id, the broadcast recipient list.
func (r *Reporter) Audience(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load audience: %w", err)
	}
	return ids, nil
}

// Stats computes the admin overview. "Active today" means the user drew at least one item today.
func (r *Reporter) Stats(ctx context.Context) (*Stats, error) {
	db := r.db.WithContext(ctx)
	today := r.now().Format(dateLayout)
	s := &Stats{DeliveriesToday: map[string]int64{}}

	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&s.TotalUsers, &models.User{}, "", nil},
		{&s.ActiveToday, &models.User{}, "last_reset = ? AND (daily_count > 0 OR file_daily_count > 0)", []interface{}{today}},
		{&s.Videos, &models.Content{}, "type = ?", []interface{}{models.ContentVideo}},
		{&s.Files, &models.Content{}, "type = ?", []interface{}{models.ContentFile}},
		{&s.Titles, &models.Content{}, "type IN ?", []interface{}{[]string{models.ContentMovie, models.ContentSeries}}},
		{&s.TrendingVideos, &models.Content{}, "type = ? AND trending = ?", []interface{}{models.ContentVideo, true}},
		{&s.PopularFiles, &models.Content{}, "type = ? AND trending = ?", []interface{}{models.ContentFile, true}},
		{&s.ShareTokens, &models.ShareToken{}, "expires_at >= ?", []interface{}{r.now()}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("stats count: %w", err)
		}
	}

	cats, err := countCategories(db)
	if err != nil {
		return nil, err
	}
	s.Categories = cats

	var rows []models.DeliveryStat
	if err := db.Where("date = ?", today).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("stats deliveries: %w", err)
	}
	for _, row := range rows {
		s.DeliveriesToday[row.Kind] = row.Count
	}
	return s, nil
}
