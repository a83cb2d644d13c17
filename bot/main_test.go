package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/i18n"
	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
)

const adminID int64 = 100

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

type sentMessage struct {
	ChatID int64
	ID     int
	Msg    telegram.Outgoing
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  telegram.Keyboard
}

// fakeMessenger records everything the bot does. Sends to chats in failChats fail,
// and with failMedia every non-text send fails.
type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	edits     []editedMessage
	deleted   []MessageKey
	answered  []string
	failChats map[int64]bool
	failMedia bool
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, msg telegram.Outgoing) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[chatID] {
		return 0, errors.New("Forbidden: bot was blocked by the user")
	}
	if f.failMedia && msg.Kind != telegram.KindText {
		return 0, errors.New("Bad Request: wrong file identifier")
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ID: f.nextID, Msg: msg})
	return f.nextID, nil
}

func (f *fakeMessenger) EditText(_ context.Context, chatID int64, messageID int, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

func (f *fakeMessenger) Delete(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, MessageKey{ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeMessenger) Username() string { return "clipbot_test" }

// texts returns every text sent to chatID followed by every edit made in it.
func (f *fakeMessenger) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.ChatID == chatID && s.Msg.Kind == telegram.KindText {
			out = append(out, s.Msg.Text)
		}
	}
	for _, e := range f.edits {
		if e.ChatID == chatID {
			out = append(out, e.Text)
		}
	}
	return out
}

func (f *fakeMessenger) last(chatID int64) sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].ChatID == chatID {
			return f.sent[i]
		}
	}
	return sentMessage{}
}

func (f *fakeMessenger) media(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, s := range f.sent {
		if s.ChatID == chatID && s.Msg.Kind != telegram.KindText {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeMessenger) lastEdit() editedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return editedMessage{}
	}
	return f.edits[len(f.edits)-1]
}

type harness struct {
	t   *testing.T
	bot *Bot
	tg  *fakeMessenger
	db  *gorm.DB
	svc Services
	cfg config.AppConfig
}

func newHarness(t *testing.T, tweak ...func(*config.AppConfig)) *harness {
	t.Helper()
	utils.SetRedis(nil)
	cfg := config.AppConfig{
		AdminIDs:         []int64{adminID},
		DailyLimit:       2,
		FileDailyLimit:   1,
		MaxFileSizeMB:    1,
		TrendingLimit:    3,
		CategoryPageSize: 5,
		ShareTTLDays:     7,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}
	db := newTestDB(t)
	svc := Services{
		Quota:    services.NewQuotaLedger(db),
		Catalog:  services.NewCatalog(db, cfg.MaxFileSizeBytes()),
		Shares:   services.NewShareIssuer(db, cfg.ShareTTL()),
		Reporter: services.NewReporter(db),
	}
	sched := NewScheduler()
	t.Cleanup(func() { sched.Stop(context.Background()) })
	tg := &fakeMessenger{}
	b := New(cfg, tg, svc, NewSessionStore(nil), sched, i18n.NewLocalizer()).
		WithAsync(func(fn func()) { fn() })
	return &harness{t: t, bot: b, tg: tg, db: db, svc: svc, cfg: cfg}
}

func (h *harness) handle(upd tgbotapi.Update) {
	h.bot.HandleUpdate(context.Background(), upd)
}

func newMessage(from int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Ann", LanguageCode: "en"},
		Chat:      &tgbotapi.Chat{ID: from},
	}
}

func textUpdate(from int64, text string) tgbotapi.Update {
	m := newMessage(from)
	m.Text = text
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: m}
}

func photoUpdate(from int64, fileID string) tgbotapi.Update {
	m := newMessage(from)
	m.Photo = []tgbotapi.PhotoSize{
		{FileID: fileID + "-small", FileUniqueID: fileID + "-s"},
		{FileID: fileID, FileUniqueID: fileID + "-u"},
	}
	return tgbotapi.Update{UpdateID: 2, Message: m}
}

func videoUpdate(from int64, fileID string) tgbotapi.Update {
	m := newMessage(from)
	m.Video = &tgbotapi.Video{FileID: fileID, FileUniqueID: "u-" + fileID}
	return tgbotapi.Update{UpdateID: 3, Message: m}
}

func documentUpdate(from int64, fileID, name string, size int) tgbotapi.Update {
	m := newMessage(from)
	m.Document = &tgbotapi.Document{FileID: fileID, FileUniqueID: "u-" + fileID, FileName: name, FileSize: size}
	return tgbotapi.Update{UpdateID: 4, Message: m}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 5, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: from, FirstName: "Ann"},
		Message: &tgbotapi.Message{MessageID: 99, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func callbackData(kb telegram.Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}
