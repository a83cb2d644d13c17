package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/clipbot/models"
)

func TestCheckAndConsumeUpToLimit(t *testing.T) {
	ctx := context.Background()
	for _, limit := range []int{1, 3, 5} {
		db := newTestDB(t)
		clk := newClock("2026-10-15T09:00:00Z")
		ledger := NewQuotaLedger(db).WithClock(clk.Now)

		deliveries := 0
		deliver := func(context.Context) error { deliveries++; return nil }

		for i := 1; i <= limit; i++ {
			a, err := ledger.CheckAndConsume(ctx, 42, QuotaVideo, limit, deliver)
			require.NoError(t, err)
			assert.True(t, a.Allowed, "call %d of %d", i, limit)
			assert.Equal(t, limit-i, a.Remaining)
		}
		a, err := ledger.CheckAndConsume(ctx, 42, QuotaVideo, limit, deliver)
		require.NoError(t, err)
		assert.False(t, a.Allowed)
		assert.Equal(t, 0, a.Remaining)
		assert.Equal(t, limit, deliveries, "exhausted quota must not deliver")
	}
}

func TestNewDayResetsBeforeEvaluating(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.User{UserID: 7, DailyCount: 5, FileDailyCount: 3, LastReset: "2026-10-14"}).Error)

	ledger := NewQuotaLedger(db).WithClock(newClock("2026-10-15T00:00:01Z").Now)
	a, err := ledger.Check(ctx, 7, QuotaVideo, 5)
	require.NoError(t, err)
	assert.True(t, a.Allowed)
	assert.Equal(t, 0, a.Used)

	var u models.User
	require.NoError(t, db.First(&u, "user_id = ?", 7).Error)
	assert.Equal(t, "2026-10-15", u.LastReset)
	assert.Zero(t, u.DailyCount)
	assert.Zero(t, u.FileDailyCount)
}

func TestResetNeverRunsBackwards(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.User{UserID: 7, DailyCount: 4, LastReset: "2026-10-16"}).Error)

	ledger := NewQuotaLedger(db).WithClock(newClock("2026-10-15T12:00:00Z").Now)
	_, err := ledger.Check(ctx, 7, QuotaVideo, 5)
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.First(&u, "user_id = ?", 7).Error)
	assert.Equal(t, 4, u.DailyCount)
	assert.Equal(t, "2026-10-16", u.LastReset)
}

func TestFailedDeliveryDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	ledger := NewQuotaLedger(newTestDB(t)).WithClock(newClock("2026-10-15T09:00:00Z").Now)

	_, err := ledger.CheckAndConsume(ctx, 1, QuotaFile, 3, func(context.Context) error {
		return errors.New("chat not found")
	})
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	a, err := ledger.Check(ctx, 1, QuotaFile, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Used)
	assert.Equal(t, 3, a.Remaining)
}

func TestKindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	ledger := NewQuotaLedger(newTestDB(t)).WithClock(newClock("2026-10-15T09:00:00Z").Now)

	for i := 0; i < 3; i++ {
		_, err := ledger.Consume(ctx, 1, QuotaFile, 3)
		require.NoError(t, err)
	}
	file, err := ledger.Check(ctx, 1, QuotaFile, 3)
	require.NoError(t, err)
	assert.False(t, file.Allowed)

	video, err := ledger.Check(ctx, 1, QuotaVideo, 5)
	require.NoError(t, err)
	assert.True(t, video.Allowed)
	assert.Equal(t, 5, video.Remaining)
}

func TestConsumeLostRaceReportsNotAllowed(t *testing.T) {
	ctx := context.Background()
	ledger := NewQuotaLedger(newTestDB(t)).WithClock(newClock("2026-10-15T09:00:00Z").Now)

	// both requests passed Check at used=0 with limit 1; only one may win the increment
	first, err := ledger.Consume(ctx, 9, QuotaVideo, 1)
	require.NoError(t, err)
	second, err := ledger.Consume(ctx, 9, QuotaVideo, 1)
	require.NoError(t, err)

	assert.True(t, first.Allowed)
	assert.False(t, second.Allowed)
	assert.Equal(t, 1, second.Used)
}

func TestConcurrentCheckAndConsumeNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ledger := NewQuotaLedger(db).WithClock(newClock("2026-10-15T09:00:00Z").Now)
	_, err := ledger.Touch(ctx, Profile{UserID: 42})
	require.NoError(t, err)

	const limit, callers = 2, 8
	var (
		delivered atomic.Int32
		allowed   atomic.Int32
		start     = make(chan struct{})
		wg        sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			a, err := ledger.CheckAndConsume(ctx, 42, QuotaVideo, limit, func(context.Context) error {
				delivered.Add(1)
				return nil
			})
			if assert.NoError(t, err) && a.Allowed {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, limit, delivered.Load())
	assert.EqualValues(t, limit, allowed.Load())
	var u models.User
	require.NoError(t, db.First(&u, "user_id = ?", 42).Error)
	assert.Equal(t, limit, u.DailyCount)
}

func TestFailedDeliveryReleasesReservedSlot(t *testing.T) {
	ctx := context.Background()
	ledger := NewQuotaLedger(newTestDB(t)).WithClock(newClock("2026-10-15T09:00:00Z").Now)

	_, err := ledger.CheckAndConsume(ctx, 8, QuotaVideo, 1, func(context.Context) error {
		return errors.New("message to forward not found")
	})
	require.ErrorIs(t, err, ErrDeliveryFailed)

	// the single slot is free again for the next attempt
	a, err := ledger.CheckAndConsume(ctx, 8, QuotaVideo, 1, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, a.Allowed)
	assert.Equal(t, 1, a.Used)
	assert.Equal(t, 0, a.Remaining)
}

func TestNonPositiveLimitUsesDefault(t *testing.T) {
	ledger := NewQuotaLedger(newTestDB(t)).WithClock(newClock("2026-10-15T09:00:00Z").Now)
	a, err := ledger.Check(context.Background(), 3, QuotaVideo, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyLimit, a.Limit)
}

func TestTouchRefreshesProfileAndKeepsCounters(t *testing.T) {
	ctx := context.Background()
	clk := newClock("2026-10-15T09:00:00Z")
	ledger := NewQuotaLedger(newTestDB(t)).WithClock(clk.Now)

	u, err := ledger.Touch(ctx, Profile{UserID: 5, Username: "old"})
	require.NoError(t, err)
	assert.Equal(t, "old", u.Username)

	_, err = ledger.Consume(ctx, 5, QuotaVideo, 5)
	require.NoError(t, err)

	u, err = ledger.Touch(ctx, Profile{UserID: 5, Username: "new", FirstName: "Neo"})
	require.NoError(t, err)
	assert.Equal(t, "new", u.Username)
	assert.Equal(t, 1, u.DailyCount)

	clk.Advance(24 * time.Hour)
	u, err = ledger.Touch(ctx, Profile{UserID: 5, Username: "new"})
	require.NoError(t, err)
	assert.Zero(t, u.DailyCount)
}

func TestPersistenceErrorNeverGrants(t *testing.T) {
	db := newTestDB(t)
	ledger := NewQuotaLedger(db).WithClock(newClock("2026-10-15T09:00:00Z").Now)
	require.NoError(t, db.Migrator().DropTable(&models.User{}))

	called := false
	a, err := ledger.CheckAndConsume(context.Background(), 1, QuotaVideo, 5, func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, a.Allowed)
	assert.False(t, called)
}
