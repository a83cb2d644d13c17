package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/telegram"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.OpenDatabase(sqlite.Open(dsn), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, models.All()...))
	return db
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(s string) *clock {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &clock{now: ts.UTC()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	ChatID int64
	Msg    telegram.Outgoing
}

// fakeSender records sends and fails for chat ids listed in fail.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]bool
	hook func(chatID int64)
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, msg telegram.Outgoing) (int, error) {
	if f.hook != nil {
		f.hook(chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return 0, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Msg: msg})
	return len(f.sent), nil
}

func (f *fakeSender) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.sent))
	for _, s := range f.sent {
		ids = append(ids, s.ChatID)
	}
	return ids
}
