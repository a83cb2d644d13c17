package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
	"github.com/cppla/clipbot/wizard"
)

const (
	testSecret   = "s3cret"
	testPassword = "hunter2-correct"
)

type fakeBot struct {
	mu         sync.Mutex
	updates    []tgbotapi.Update
	announced  []string
	recipients int
	swept      int
}

func (f *fakeBot) HandleUpdate(_ context.Context, upd tgbotapi.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
}

func (f *fakeBot) Announce(_ context.Context, text string) (int, error) {
	if strings.TrimSpace(utils.SanitizeTelegramHTML(text)) == "" {
		return 0, wizard.ErrInvalidInput
	}
	if utils.VisibleLen(text) > telegram.MaxTextLen {
		return 0, telegram.ErrTextTooLong
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, text)
	return f.recipients, nil
}

func (f *fakeBot) SweepShares(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept++
	return 3, nil
}

type apiHarness struct {
	t      *testing.T
	router http.Handler
	db     *gorm.DB
	deps   Deps
	bot    *fakeBot
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	utils.SetRedis(nil)

	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)
	cfg := config.AppConfig{
		GinMode:            "test",
		RateLimitPerMinute: 10000,
		AllowedOrigins:     []string{"*"},
		JWTSecret:          "test-jwt-secret",
		AdminPasswordHash:  hash,
	}
	config.Set(cfg)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.OpenDatabase(sqlite.Open(dsn), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, models.All()...))

	fb := &fakeBot{recipients: 4}
	deps := Deps{
		Catalog:       services.NewCatalog(db, 0),
		Shares:        services.NewShareIssuer(db, 24*time.Hour),
		Reporter:      services.NewReporter(db),
		Bot:           fb,
		WebhookSecret: testSecret,
	}
	return &apiHarness{t: t, router: SetupRouter(cfg, deps), db: db, deps: deps, bot: fb}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *apiHarness) do(method, path, token string, body interface{}) (int, envelope) {
	h.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (h *apiHarness) login() string {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/v1/admin/login", "", map[string]string{"password": testPassword})
	require.Equal(h.t, http.StatusOK, status)
	var data struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(h.t, data.Token)
	assert.Equal(h.t, 12*3600, data.ExpiresIn)
	return data.Token
}

func (h *apiHarness) addUpload(kind, id, name string) *models.Content {
	h.t.Helper()
	item, err := h.deps.Catalog.AddUpload(context.Background(), services.Upload{
		Type:         kind,
		FileID:       id,
		FileUniqueID: "u-" + id,
		FileName:     name,
		FileSize:     1024,
		UploaderID:   7,
	})
	require.NoError(h.t, err)
	return item
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)
	status, env := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

func TestWebhook(t *testing.T) {
	h := newAPIHarness(t)
	update := `{"update_id": 42, "message": {"message_id": 1, "date": 0, "chat": {"id": 5, "type": "private"}, "text": "hi"}}`

	status, _ := h.do(http.MethodPost, "/telegram/webhook/wrong", "", update)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, h.bot.updates)

	status, _ = h.do(http.MethodPost, "/telegram/webhook/"+testSecret, "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/telegram/webhook/"+testSecret, "", update)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, h.bot.updates, 1)
	assert.Equal(t, 42, h.bot.updates[0].UpdateID)
	assert.Equal(t, "hi", h.bot.updates[0].Message.Text)
}

func TestCatalogList(t *testing.T) {
	h := newAPIHarness(t)
	h.addUpload(models.ContentVideo, "v1", "")
	h.addUpload(models.ContentVideo, "v2", "")
	h.addUpload(models.ContentFile, "f1", "notes.pdf")

	status, env := h.do(http.MethodGet, "/api/v1/catalog?type=video", "", nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Items      []models.Content `json:"items"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 2, page.Pagination.Total)

	status, env = h.do(http.MethodGet, "/api/v1/catalog?category=Documents", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "notes.pdf", page.Items[0].Name)

	status, env = h.do(http.MethodGet, "/api/v1/catalog?trending=true", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Items)

	status, _ = h.do(http.MethodGet, "/api/v1/catalog?trending=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do(http.MethodGet, "/api/v1/catalog?type=podcast", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCatalogGet(t *testing.T) {
	h := newAPIHarness(t)
	item := h.addUpload(models.ContentVideo, "v1", "")

	status, env := h.do(http.MethodGet, "/api/v1/catalog/"+item.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Content models.Content `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, item.ID, data.Content.ID)

	status, env = h.do(http.MethodGet, "/api/v1/catalog/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40410, env.Code)
}

func TestShareRedeem(t *testing.T) {
	h := newAPIHarness(t)
	ctx := context.Background()
	item := h.addUpload(models.ContentVideo, "v1", "")

	st, err := h.deps.Shares.Issue(ctx, item.ID, 7, 0)
	require.NoError(t, err)
	status, env := h.do(http.MethodGet, "/api/v1/share/"+st.Token, "", nil)
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Content models.Content `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, item.ID, data.Content.ID)

	var stored models.ShareToken
	require.NoError(t, h.db.First(&stored, "token = ?", st.Token).Error)
	assert.EqualValues(t, 1, stored.AccessCount)

	status, _ = h.do(http.MethodGet, "/api/v1/share/"+strings.Repeat("ab", 16), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(http.MethodGet, "/api/v1/share/short", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestShareRedeemExpired(t *testing.T) {
	h := newAPIHarness(t)
	item := h.addUpload(models.ContentVideo, "v1", "")

	past := services.NewShareIssuer(h.db, time.Hour).WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	st, err := past.Issue(context.Background(), item.ID, 7, 0)
	require.NoError(t, err)

	status, env := h.do(http.MethodGet, "/api/v1/share/"+st.Token, "", nil)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, 41020, env.Code)

	// expired tokens are dropped once seen
	status, _ = h.do(http.MethodGet, "/api/v1/share/"+st.Token, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminLogin(t *testing.T) {
	h := newAPIHarness(t)

	status, env := h.do(http.MethodPost, "/api/v1/admin/login", "", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40130, env.Code)

	status, _ = h.do(http.MethodPost, "/api/v1/admin/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	token := h.login()
	claims, err := utils.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, utils.RoleAdmin, claims.Role)
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	h := newAPIHarness(t)

	status, env := h.do(http.MethodGet, "/api/v1/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40101, env.Code)

	status, env = h.do(http.MethodGet, "/api/v1/admin/stats", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40105, env.Code)

	other, err := utils.GenerateToken("someone", "viewer", time.Hour)
	require.NoError(t, err)
	status, _ = h.do(http.MethodPost, "/api/v1/admin/sweep", other, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Zero(t, h.bot.swept)
}

func TestAdminStatsSweepBroadcast(t *testing.T) {
	h := newAPIHarness(t)
	h.addUpload(models.ContentVideo, "v1", "")
	token := h.login()

	status, env := h.do(http.MethodGet, "/api/v1/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	var stats services.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.Videos)

	status, env = h.do(http.MethodPost, "/api/v1/admin/sweep", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deleted":3}`, string(env.Data))
	assert.Equal(t, 1, h.bot.swept)

	status, env = h.do(http.MethodPost, "/api/v1/admin/broadcast", token, map[string]string{"text": "<b>Hello</b> all"})
	require.Equal(t, http.StatusAccepted, status)
	assert.JSONEq(t, `{"recipients":4}`, string(env.Data))
	assert.Equal(t, []string{"<b>Hello</b> all"}, h.bot.announced)

	status, _ = h.do(http.MethodPost, "/api/v1/admin/broadcast", token, map[string]string{"text": "<script></script>"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do(http.MethodPost, "/api/v1/admin/broadcast", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	status, env = h.do(http.MethodPost, "/api/v1/admin/broadcast", token, map[string]string{"text": strings.Repeat("a", telegram.MaxTextLen+1)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40033, env.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newAPIHarness(t)
	status, env := h.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)
}

func TestAdminLogoutRevokesToken(t *testing.T) {
	h := newAPIHarness(t)
	token := h.login()

	status, _ := h.do(http.MethodPost, "/api/v1/admin/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env := h.do(http.MethodGet, "/api/v1/admin/stats", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, env.Code)
}
