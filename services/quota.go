package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/clipbot/models"
)

// DefaultDailyLimit applies when a caller passes a non-positive limit.
const DefaultDailyLimit = 5

const dateLayout = "2006-01-02"

// QuotaKind selects which daily counter a request draws from.
type QuotaKind string

const (
	QuotaVideo QuotaKind = "video"
	QuotaFile  QuotaKind = "file"
)

func (k QuotaKind) column() string {
	if k == QuotaFile {
		return "file_daily_count"
	}
	return "daily_count"
}

func (k QuotaKind) used(u *models.User) int {
	if k == QuotaFile {
		return u.FileDailyCount
	}
	return u.DailyCount
}

// Allowance is the outcome of a quota check.
type Allowance struct {
	Allowed   bool
	Used      int
	Remaining int
	Limit     int
}

func allowanceFor(used, limit int) Allowance {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Allowance{Allowed: used < limit, Used: used, Remaining: remaining, Limit: limit}
}

// Profile is the Telegram identity refreshed on every interaction.
type Profile struct {
	UserID       int64
	Username     string
	FirstName    string
	LanguageCode string
}

// QuotaLedger tracks per-user daily counters that reset on the first access of a new calendar day.
type QuotaLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewQuotaLedger creates a ledger on db using the local wall clock.
func NewQuotaLedger(db *gorm.DB) *QuotaLedger {
	return &QuotaLedger{db: db, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (q *QuotaLedger) WithClock(now func() time.Time) *QuotaLedger {
	q.now = now
	return q
}

// Today returns the ledger's current date key.
func (q *QuotaLedger) Today() string {
	return q.now().Format(dateLayout)
}

// Touch creates the user on first contact and refreshes profile fields afterwards.
func (q *QuotaLedger) Touch(ctx context.Context, p Profile) (*models.User, error) {
	today := q.Today()
	user := models.User{
		UserID:       p.UserID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LanguageCode: p.LanguageCode,
		LastReset:    today,
	}
	err := q.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "language_code", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("touch user %d: %w", p.UserID, err)
	}
	if err := q.resetIfStale(ctx, p.UserID, today); err != nil {
		return nil, err
	}
	return q.load(ctx, p.UserID)
}

// Check reports whether userID may receive one more item of kind today.
func (q *QuotaLedger) Check(ctx context.Context, userID int64, kind QuotaKind, limit int) (Allowance, error) {
	limit = normalizeLimit(limit)
	user, err := q.prepare(ctx, userID, q.Today())
	if err != nil {
		return Allowance{Limit: limit}, err
	}
	return allowanceFor(kind.used(user), limit), nil
}

// Consume increments the counter if and only if it is still below limit.
// The check and the increment are one conditional UPDATE, so concurrent callers cannot overshoot.
func (q *QuotaLedger) Consume(ctx context.Context, userID int64, kind QuotaKind, limit int) (Allowance, error) {
	limit = normalizeLimit(limit)
	today := q.Today()
	if _, err := q.prepare(ctx, userID, today); err != nil {
		return Allowance{Limit: limit}, err
	}

	col := kind.column()
	res := q.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND last_reset = ? AND "+col+" < ?", userID, today, limit).
		UpdateColumn(col, gorm.Expr(col+" + 1"))
	if res.Error != nil {
		return Allowance{Limit: limit}, fmt.Errorf("consume %s quota for %d: %w", kind, userID, res.Error)
	}

	user, err := q.load(ctx, userID)
	if err != nil {
		return Allowance{Limit: limit}, err
	}
	a := allowanceFor(kind.used(user), limit)
	a.Allowed = res.RowsAffected == 1
	return a, nil
}

// CheckAndConsume reserves one unit of quota, runs deliver, and refunds the unit when deliver fails.
// Requests that lose the reservation never reach deliver. A failed delivery returns ErrDeliveryFailed.
func (q *QuotaLedger) CheckAndConsume(ctx context.Context, userID int64, kind QuotaKind, limit int, deliver func(context.Context) error) (Allowance, error) {
	a, err := q.Consume(ctx, userID, kind, limit)
	if err != nil || !a.Allowed {
		return a, err
	}
	if err := deliver(ctx); err != nil {
		if rerr := q.refund(ctx, userID, kind); rerr != nil {
			return a, fmt.Errorf("%w: %w (refund: %v)", ErrDeliveryFailed, err, rerr)
		}
		return a, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return a, nil
}

// refund undoes one reservation made today. A reset since the reservation leaves the new day alone.
func (q *QuotaLedger) refund(ctx context.Context, userID int64, kind QuotaKind) error {
	col := kind.column()
	err := q.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND last_reset = ? AND "+col+" > 0", userID, q.Today()).
		UpdateColumn(col, gorm.Expr(col+" - 1")).Error
	if err != nil {
		return fmt.Errorf("refund %s quota for %d: %w", kind, userID, err)
	}
	return nil
}

// Usage is a user's view of both counters.
type Usage struct {
	User  models.User
	Video Allowance
	File  Allowance
}

// Usage returns both allowances and the upload counters for userID.
func (q *QuotaLedger) Usage(ctx context.Context, userID int64, videoLimit, fileLimit int) (Usage, error) {
	user, err := q.prepare(ctx, userID, q.Today())
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		User:  *user,
		Video: allowanceFor(user.DailyCount, normalizeLimit(videoLimit)),
		File:  allowanceFor(user.FileDailyCount, normalizeLimit(fileLimit)),
	}, nil
}

// prepare loads or creates the user and applies the daily reset.
func (q *QuotaLedger) prepare(ctx context.Context, userID int64, today string) (*models.User, error) {
	err := q.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.User{UserID: userID, LastReset: today}).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user %d: %w", userID, err)
	}
	if err := q.resetIfStale(ctx, userID, today); err != nil {
		return nil, err
	}
	return q.load(ctx, userID)
}

// resetIfStale zeroes both counters when last_reset is an earlier day. Dates only move forward.
func (q *QuotaLedger) resetIfStale(ctx context.Context, userID int64, today string) error {
	err := q.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND last_reset < ?", userID, today).
		UpdateColumns(map[string]interface{}{
			"daily_count":      0,
			"file_daily_count": 0,
			"last_reset":       today,
		}).Error
	if err != nil {
		return fmt.Errorf("reset quota for %d: %w", userID, err)
	}
	return nil
}

func (q *QuotaLedger) load(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	if err := q.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d vanished: %w", userID, err)
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &user, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultDailyLimit
	}
	return limit
}
