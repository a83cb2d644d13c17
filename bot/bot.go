// Package bot turns Telegram updates into catalog, quota, share and wizard operations.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/config"
	"github.com/cppla/clipbot/i18n"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
)

// Messenger is the subset of the Bot API the handlers use.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg telegram.Outgoing) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb telegram.Keyboard) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	Username() string
}

// Services bundles the storage-backed collaborators.
type Services struct {
	Quota    *services.QuotaLedger
	Catalog  *services.Catalog
	Shares   *services.ShareIssuer
	Reporter *services.Reporter
}

type Bot struct {
	cfg         config.AppConfig
	tg          Messenger
	quota       *services.QuotaLedger
	catalog     *services.Catalog
	shares      *services.ShareIssuer
	reporter    *services.Reporter
	broadcaster *services.Broadcaster
	sessions    SessionStore
	scheduler   *Scheduler
	lang        *i18n.Localizer

	// async runs broadcast fan-outs off the update path.
	async func(func())
}

func New(cfg config.AppConfig, tg Messenger, svc Services, sessions SessionStore, scheduler *Scheduler, lang *i18n.Localizer) *Bot {
	return &Bot{
		cfg:         cfg,
		tg:          tg,
		quota:       svc.Quota,
		catalog:     svc.Catalog,
		shares:      svc.Shares,
		reporter:    svc.Reporter,
		broadcaster: services.NewBroadcaster(tg, cfg.BroadcastInterval()),
		sessions:    sessions,
		scheduler:   scheduler,
		lang:        lang,
		async:       func(fn func()) { go fn() },
	}
}

// WithAsync replaces how background broadcasts are started. Tests pass a synchronous runner.
func (b *Bot) WithAsync(run func(func())) *Bot {
	b.async = run
	return b
}

// request is the per-update context handlers share.
type request struct {
	chatID    int64
	userID    int64
	name      string
	lang      string
	messageID int // set for callbacks: the message carrying the pressed button
}

// HandleUpdate processes one update. Errors never escape: they are logged and the user gets a generic apology.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	var (
		kind = "other"
		req  *request
		err  error
	)
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Error("panic while handling update",
				zap.Int("update_id", upd.UpdateID), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
		utils.Stats.Updates.WithLabelValues(kind).Inc()
		if err == nil {
			return
		}
		utils.Logger.Error("update failed", zap.Int("update_id", upd.UpdateID), zap.String("kind", kind), zap.Error(err))
		if req != nil {
			b.reply(context.WithoutCancel(ctx), req, b.t(req, i18n.ERROR_GENERIC), nil)
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.From != nil:
		kind = "message"
		req = b.newRequest(upd.Message.Chat.ID, upd.Message.From, 0)
		err = b.handleMessage(ctx, req, upd.Message)
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		kind = "callback"
		q := upd.CallbackQuery
		if aerr := b.tg.AnswerCallback(ctx, q.ID, ""); aerr != nil {
			utils.Logger.Debug("answer callback failed", zap.String("callback_id", q.ID), zap.Error(aerr))
		}
		req = b.newRequest(q.Message.Chat.ID, q.From, q.Message.MessageID)
		err = b.handleCallback(ctx, req, q.Data)
	}
}

func (b *Bot) newRequest(chatID int64, from *tgbotapi.User, messageID int) *request {
	r := &request{chatID: chatID, messageID: messageID, lang: b.lang.Match("")}
	if from != nil {
		r.userID = from.ID
		r.name = strings.TrimSpace(from.FirstName)
		if r.name == "" {
			r.name = from.UserName
		}
		r.lang = b.lang.Match(from.LanguageCode)
	}
	return r
}

func (b *Bot) touch(ctx context.Context, from *tgbotapi.User) error {
	if from == nil {
		return nil
	}
	_, err := b.quota.Touch(ctx, services.Profile{
		UserID:       from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LanguageCode: from.LanguageCode,
	})
	return err
}

func (b *Bot) handleMessage(ctx context.Context, r *request, m *tgbotapi.Message) error {
	if err := b.touch(ctx, m.From); err != nil {
		return err
	}
	if m.IsCommand() {
		switch m.Command() {
		case "start":
			return b.onStart(ctx, r, strings.TrimSpace(m.CommandArguments()))
		case "stats":
			return b.onStats(ctx, r)
		case "cancel":
			return b.onCancel(ctx, r)
		}
	}
	if b.isAdmin(r) {
		handled, err := b.continueSession(ctx, r, inputFromMessage(m))
		if handled || err != nil {
			return err
		}
	}
	switch {
	case m.Video != nil:
		return b.onVideoUpload(ctx, r, m.Video)
	case m.Document != nil:
		return b.onDocumentUpload(ctx, r, m.Document)
	case len(m.Photo) > 0:
		return b.reply(ctx, r, b.t(r, i18n.PHOTO_THANKS), nil)
	}
	return b.reply(ctx, r, b.t(r, i18n.TEXT_UNKNOWN), mainMenu(b, r))
}

// callback data values
const (
	cbRandomVideo      = "random_video"
	cbRandomFile       = "random_file"
	cbUploadVideo      = "upload_video"
	cbUploadFile       = "upload_file"
	cbTrending         = "trending"
	cbPopular          = "popular"
	cbBrowseCategories = "browse_categories"
	cbCategory         = "category"
	cbShare            = "share"
	cbBackToMain       = "back_to_main"
	cbAdminPanel       = "admin_panel"
	cbBroadcastMenu    = "broadcast_menu"
	cbBroadcast        = "broadcast"
	cbAdminStats       = "admin_stats"
	cbManageTrending   = "manage_trending"
	cbAddTrending      = "add_trending_video"
	cbClearTrending    = "clear_trending_videos"
	cbManageFiles      = "manage_files"
	cbAddPopular       = "add_popular_file"
	cbClearPopular     = "clear_popular_files"
	cbFileStats        = "file_stats"
	cbAddMovie         = "add_movie"
	cbAddSeries        = "add_series"
	cbWizard           = "wizard"
)

func (b *Bot) handleCallback(ctx context.Context, r *request, data string) error {
	name, arg, _ := strings.Cut(data, ":")
	switch name {
	case cbRandomVideo:
		return b.sendRandom(ctx, r, services.QuotaVideo)
	case cbRandomFile:
		return b.sendRandom(ctx, r, services.QuotaFile)
	case cbUploadVideo:
		return b.showUploadHelp(ctx, r, services.QuotaVideo)
	case cbUploadFile:
		return b.showUploadHelp(ctx, r, services.QuotaFile)
	case cbTrending:
		return b.sendFlagged(ctx, r, videoKind)
	case cbPopular:
		return b.sendFlagged(ctx, r, fileKind)
	case cbBrowseCategories:
		return b.showCategories(ctx, r)
	case cbCategory:
		return b.showCategory(ctx, r, arg)
	case cbShare:
		return b.issueShare(ctx, r, arg)
	case cbBackToMain:
		return b.showMain(ctx, r)
	}

	if !b.isAdmin(r) {
		return b.reply(ctx, r, b.t(r, i18n.ERROR_ACCESS_DENIED), nil)
	}
	switch name {
	case cbAdminPanel:
		return b.show(ctx, r, b.t(r, i18n.ADMIN_PANEL), adminMenu(b, r))
	case cbBroadcastMenu:
		return b.show(ctx, r, b.t(r, i18n.BROADCAST_MENU), broadcastMenu(b, r))
	case cbBroadcast:
		return b.startBroadcast(ctx, r, arg)
	case cbAdminStats:
		return b.sendAdminStats(ctx, r)
	case cbManageTrending:
		return b.showFlagMenu(ctx, r, videoKind)
	case cbManageFiles:
		return b.showFlagMenu(ctx, r, fileKind)
	case cbAddTrending:
		return b.startFlag(ctx, r, videoKind)
	case cbAddPopular:
		return b.startFlag(ctx, r, fileKind)
	case cbClearTrending:
		return b.clearFlag(ctx, r, videoKind)
	case cbClearPopular:
		return b.clearFlag(ctx, r, fileKind)
	case cbFileStats:
		return b.sendFileStats(ctx, r)
	case cbAddMovie, cbAddSeries:
		return b.startTitle(ctx, r, name == cbAddSeries)
	case cbWizard:
		return b.onWizardChoice(ctx, r, arg)
	}
	utils.Logger.Debug("unknown callback", zap.String("data", data), zap.Int64("user_id", r.userID))
	return nil
}

func (b *Bot) isAdmin(r *request) bool {
	return b.cfg.IsAdmin(r.userID)
}

func (b *Bot) t(r *request, id string) string {
	return b.lang.Get(r.lang, id)
}

func (b *Bot) tf(r *request, id string, data map[string]interface{}) string {
	return b.lang.GetWithData(r.lang, id, data)
}

// reply sends a new text message to the requesting chat.
func (b *Bot) reply(ctx context.Context, r *request, text string, kb telegram.Keyboard) error {
	_, err := b.tg.Send(ctx, r.chatID, telegram.Text(text).WithKeyboard(kb))
	return err
}

// show edits the message whose button was pressed, or sends a new one for commands.
func (b *Bot) show(ctx context.Context, r *request, text string, kb telegram.Keyboard) error {
	if r.messageID != 0 {
		err := b.tg.EditText(ctx, r.chatID, r.messageID, text, kb)
		if err == nil {
			return nil
		}
		// media messages cannot be edited into text
		utils.Logger.Debug("edit failed, sending instead", zap.Int64("chat_id", r.chatID), zap.Error(err))
	}
	return b.reply(ctx, r, text, kb)
}
