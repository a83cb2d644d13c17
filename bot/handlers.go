package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/i18n"
	"github.com/cppla/clipbot/models"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
	"github.com/cppla/clipbot/wizard"
)

// sharePayloadPrefix marks a /start deep-link payload carrying a share token.
const sharePayloadPrefix = "s_"

// flagKind describes the trending (videos) and popular (files) lists.
type flagKind struct {
	contentType string
	flow        wizard.Flow
	delivery    string
	header      string
	empty       string
	menu        string
	prompt      string
	added       string
	cleared     string
	addButton   string
	clearButton string
	addData     string
	clearData   string
}

var (
	videoKind = flagKind{
		contentType: models.ContentVideo,
		flow:        wizard.FlowTrending,
		delivery:    services.DeliveryVideo,
		header:      i18n.TRENDING_HEADER,
		empty:       i18n.TRENDING_EMPTY,
		menu:        i18n.ADMIN_MANAGE_TRENDING,
		prompt:      i18n.TRENDING_PROMPT,
		added:       i18n.TRENDING_ADDED,
		cleared:     i18n.TRENDING_CLEARED,
		addButton:   i18n.BTN_ADD_TRENDING,
		clearButton: i18n.BTN_CLEAR_TRENDING,
		addData:     cbAddTrending,
		clearData:   cbClearTrending,
	}
	fileKind = flagKind{
		contentType: models.ContentFile,
		flow:        wizard.FlowPopular,
		delivery:    services.DeliveryFile,
		header:      i18n.POPULAR_HEADER,
		empty:       i18n.POPULAR_EMPTY,
		menu:        i18n.ADMIN_MANAGE_FILES,
		prompt:      i18n.POPULAR_PROMPT,
		added:       i18n.POPULAR_ADDED,
		cleared:     i18n.POPULAR_CLEARED,
		addButton:   i18n.BTN_ADD_POPULAR,
		clearButton: i18n.BTN_CLEAR_POPULAR,
		addData:     cbAddPopular,
		clearData:   cbClearPopular,
	}
)

func flagKindFor(flow wizard.Flow) flagKind {
	if flow == wizard.FlowPopular {
		return fileKind
	}
	return videoKind
}

func (b *Bot) welcome(r *request) string {
	return b.tf(r, i18n.WELCOME, map[string]interface{}{
		"Name":       html.EscapeString(r.name),
		"VideoLimit": b.cfg.DailyLimit,
		"FileLimit":  b.cfg.FileDailyLimit,
	})
}

func (b *Bot) onStart(ctx context.Context, r *request, payload string) error {
	if token, ok := strings.CutPrefix(payload, sharePayloadPrefix); ok {
		return b.redeemShare(ctx, r, token)
	}
	return b.reply(ctx, r, b.welcome(r), mainMenu(b, r))
}

func (b *Bot) showMain(ctx context.Context, r *request) error {
	return b.show(ctx, r, b.welcome(r), mainMenu(b, r))
}

func (b *Bot) sendRandom(ctx context.Context, r *request, kind services.QuotaKind) error {
	contentType, limit, label, delivery := models.ContentVideo, b.cfg.DailyLimit, i18n.KIND_VIDEO, services.DeliveryVideo
	if kind == services.QuotaFile {
		contentType, limit, label, delivery = models.ContentFile, b.cfg.FileDailyLimit, i18n.KIND_FILE, services.DeliveryFile
	}

	allowance, err := b.quota.CheckAndConsume(ctx, r.userID, kind, limit, func(ctx context.Context) error {
		item, err := b.catalog.Random(ctx, contentType)
		if err != nil {
			return err
		}
		return b.deliver(ctx, r, item)
	})
	switch {
	case errors.Is(err, services.ErrCatalogEmpty):
		return b.show(ctx, r, b.t(r, i18n.CATALOG_EMPTY), telegram.Keyboard{backTo(b, r, cbBackToMain)})
	case errors.Is(err, services.ErrDeliveryFailed):
		utils.Logger.Warn("random delivery failed", zap.Int64("user_id", r.userID), zap.String("kind", string(kind)), zap.Error(err))
		return b.reply(ctx, r, b.t(r, i18n.DELIVERY_FAILED), nil)
	case err != nil:
		return err
	}

	data := map[string]interface{}{
		"Kind":      b.t(r, label),
		"Limit":     allowance.Limit,
		"Remaining": allowance.Remaining,
	}
	if !allowance.Allowed {
		utils.Stats.QuotaDenied.WithLabelValues(string(kind)).Inc()
		return b.show(ctx, r, b.tf(r, i18n.QUOTA_EXHAUSTED, data), telegram.Keyboard{backTo(b, r, cbBackToMain)})
	}
	b.recordDelivery(ctx, delivery, 1)

	status := i18n.QUOTA_REMAINING
	if allowance.Remaining == 0 {
		status = i18n.QUOTA_LAST
	}
	return b.reply(ctx, r, withNote(b.tf(r, status, data), b.deleteNote(r)), mainMenu(b, r))
}

// sendFlagged delivers the first trending videos or popular files. These do not draw on the quota.
func (b *Bot) sendFlagged(ctx context.Context, r *request, k flagKind) error {
	items, err := b.catalog.Trending(ctx, k.contentType, b.cfg.TrendingLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return b.show(ctx, r, b.t(r, k.empty), telegram.Keyboard{backTo(b, r, cbBackToMain)})
	}
	if err := b.show(ctx, r, b.t(r, k.header), nil); err != nil {
		return err
	}
	return b.deliverAll(ctx, r, items, k.delivery)
}

func (b *Bot) showCategories(ctx context.Context, r *request) error {
	cats, err := b.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return b.show(ctx, r, b.t(r, i18n.CATEGORIES_EMPTY), telegram.Keyboard{backTo(b, r, cbBackToMain)})
	}
	return b.show(ctx, r, b.t(r, i18n.CATEGORIES_TITLE), categoryMenu(b, r, cats))
}

func (b *Bot) showCategory(ctx context.Context, r *request, category string) error {
	items, err := b.catalog.ByCategory(ctx, category, b.cfg.CategoryPageSize)
	if err != nil {
		return err
	}
	back := telegram.Keyboard{backTo(b, r, cbBrowseCategories)}
	if len(items) == 0 {
		return b.show(ctx, r, b.t(r, i18n.CATEGORY_EMPTY), back)
	}
	header := b.tf(r, i18n.CATEGORY_HEADER, map[string]interface{}{"Category": html.EscapeString(category)})
	if err := b.show(ctx, r, header, back); err != nil {
		return err
	}
	return b.deliverAll(ctx, r, items, services.DeliveryFile)
}

func (b *Bot) deliverAll(ctx context.Context, r *request, items []models.Content, delivery string) error {
	sent := 0
	for i := range items {
		if err := b.deliver(ctx, r, &items[i]); err != nil {
			utils.Logger.Warn("delivery failed", zap.Int64("chat_id", r.chatID), zap.String("content_id", items[i].ID), zap.Error(err))
			continue
		}
		sent++
	}
	b.recordDelivery(ctx, delivery, sent)
	if sent == 0 {
		return b.reply(ctx, r, b.t(r, i18n.DELIVERY_FAILED), nil)
	}
	if note := b.deleteNote(r); note != "" {
		return b.reply(ctx, r, note, nil)
	}
	return nil
}

func (b *Bot) issueShare(ctx context.Context, r *request, contentID string) error {
	tok, err := b.shares.Issue(ctx, contentID, r.userID, b.cfg.ShareTTL())
	if errors.Is(err, services.ErrContentNotFound) {
		utils.Stats.ShareLinks.WithLabelValues("issue", "not_found").Inc()
		return b.reply(ctx, r, b.t(r, i18n.SHARE_NOT_FOUND), nil)
	}
	if err != nil {
		utils.Stats.ShareLinks.WithLabelValues("issue", "error").Inc()
		return err
	}
	utils.Stats.ShareLinks.WithLabelValues("issue", "ok").Inc()
	return b.reply(ctx, r, b.tf(r, i18n.SHARE_LINK, map[string]interface{}{
		"URL":     ShareLink(b.tg.Username(), tok.Token),
		"Expires": tok.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	}), nil)
}

// ShareLink is the deep link that opens the bot with the token as /start payload.
func ShareLink(botUsername, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", botUsername, sharePayloadPrefix, token)
}

// redeemShare delivers a shared item. Shared deliveries are not charged to the quota.
func (b *Bot) redeemShare(ctx context.Context, r *request, token string) error {
	contentID, err := b.shares.Redeem(ctx, token)
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		utils.Stats.ShareLinks.WithLabelValues("redeem", "not_found").Inc()
		return b.reply(ctx, r, b.t(r, i18n.SHARE_NOT_FOUND), mainMenu(b, r))
	case errors.Is(err, services.ErrTokenExpired):
		utils.Stats.ShareLinks.WithLabelValues("redeem", "expired").Inc()
		return b.reply(ctx, r, b.t(r, i18n.SHARE_EXPIRED), mainMenu(b, r))
	case err != nil:
		return err
	}
	item, err := b.catalog.Get(ctx, contentID)
	if errors.Is(err, services.ErrContentNotFound) {
		return b.reply(ctx, r, b.t(r, i18n.SHARE_NOT_FOUND), mainMenu(b, r))
	}
	if err != nil {
		return err
	}
	utils.Stats.ShareLinks.WithLabelValues("redeem", "ok").Inc()
	if err := b.reply(ctx, r, b.t(r, i18n.SHARE_HEADER), nil); err != nil {
		return err
	}
	if err := b.deliver(ctx, r, item); err != nil {
		utils.Logger.Warn("shared delivery failed", zap.Int64("chat_id", r.chatID), zap.String("content_id", item.ID), zap.Error(err))
		return b.reply(ctx, r, b.t(r, i18n.DELIVERY_FAILED), nil)
	}
	b.recordDelivery(ctx, services.DeliveryShare, 1)
	return nil
}

func (b *Bot) onStats(ctx context.Context, r *request) error {
	usage, err := b.quota.Usage(ctx, r.userID, b.cfg.DailyLimit, b.cfg.FileDailyLimit)
	if err != nil {
		return err
	}
	text := b.tf(r, i18n.STATS_USER, map[string]interface{}{
		"VideosUsed": usage.Video.Used,
		"VideoLimit": usage.Video.Limit,
		"FilesUsed":  usage.File.Used,
		"FileLimit":  usage.File.Limit,
		"Uploads":    usage.User.UploadedCount(),
	})
	if b.isAdmin(r) {
		global, err := b.adminStats(ctx, r)
		if err != nil {
			return err
		}
		text += "\n\n" + global
	}
	return b.reply(ctx, r, text, nil)
}

func (b *Bot) adminStats(ctx context.Context, r *request) (string, error) {
	s, err := b.reporter.Stats(ctx)
	if err != nil {
		return "", err
	}
	return b.tf(r, i18n.STATS_ADMIN, map[string]interface{}{
		"Users":      s.TotalUsers,
		"Active":     s.ActiveToday,
		"Videos":     s.Videos,
		"Trending":   s.TrendingVideos,
		"Files":      s.Files,
		"Popular":    s.PopularFiles,
		"Titles":     s.Titles,
		"Shares":     s.ShareTokens,
		"Deliveries": lo.Sum(lo.Values(s.DeliveriesToday)),
	}), nil
}

func (b *Bot) onVideoUpload(ctx context.Context, r *request, v *tgbotapi.Video) error {
	_, err := b.catalog.AddUpload(ctx, services.Upload{
		Type:         models.ContentVideo,
		FileID:       v.FileID,
		FileUniqueID: v.FileUniqueID,
		FileName:     v.FileName,
		FileSize:     int64(v.FileSize),
		MimeType:     v.MimeType,
		UploaderID:   r.userID,
	})
	if errors.Is(err, services.ErrDuplicateContent) {
		return b.reply(ctx, r, b.t(r, i18n.UPLOAD_DUPLICATE), nil)
	}
	if err != nil {
		return err
	}
	utils.Logger.Info("video uploaded", zap.Int64("user_id", r.userID), zap.String("file_unique_id", v.FileUniqueID))
	return b.reply(ctx, r, b.t(r, i18n.UPLOAD_VIDEO_OK), nil)
}

func (b *Bot) onDocumentUpload(ctx context.Context, r *request, d *tgbotapi.Document) error {
	item, err := b.catalog.AddUpload(ctx, services.Upload{
		Type:         models.ContentFile,
		FileID:       d.FileID,
		FileUniqueID: d.FileUniqueID,
		FileName:     d.FileName,
		FileSize:     int64(d.FileSize),
		MimeType:     d.MimeType,
		UploaderID:   r.userID,
	})
	switch {
	case errors.Is(err, services.ErrDuplicateContent):
		return b.reply(ctx, r, b.t(r, i18n.UPLOAD_DUPLICATE), nil)
	case errors.Is(err, services.ErrFileTooLarge):
		return b.reply(ctx, r, b.tf(r, i18n.UPLOAD_TOO_LARGE, map[string]interface{}{
			"Max": humanize.Bytes(uint64(b.cfg.MaxFileSizeBytes())),
		}), nil)
	case err != nil:
		return err
	}
	utils.Logger.Info("file uploaded", zap.Int64("user_id", r.userID), zap.String("category", item.Category), zap.String("name", item.Name))
	return b.reply(ctx, r, b.tf(r, i18n.UPLOAD_FILE_OK, map[string]interface{}{"Category": item.Category}), nil)
}

// showUploadHelp explains how to add a video or a file. Uploads are plain messages, no session involved.
func (b *Bot) showUploadHelp(ctx context.Context, r *request, kind services.QuotaKind) error {
	text := b.t(r, i18n.UPLOAD_HOW_VIDEO)
	if kind == services.QuotaFile {
		text = b.tf(r, i18n.UPLOAD_HOW_FILE, map[string]interface{}{
			"Max":       humanize.Bytes(uint64(b.cfg.MaxFileSizeBytes())),
			"FileLimit": b.cfg.FileDailyLimit,
		})
	}
	return b.show(ctx, r, text, telegram.Keyboard{backTo(b, r, cbBackToMain)})
}

// deliver sends one catalog item protected from forwarding, with a share button, and schedules its deletion.
// Episode lists too long for a photo caption follow as separate text messages.
func (b *Bot) deliver(ctx context.Context, r *request, item *models.Content) error {
	msg, more := b.contentMessage(r, item)
	msgID, err := b.tg.Send(ctx, r.chatID, msg)
	if err != nil {
		utils.Stats.Deliveries.WithLabelValues(item.Type, "failed").Inc()
		return fmt.Errorf("send %s %s: %w", item.Type, item.ID, err)
	}
	utils.Stats.Deliveries.WithLabelValues(item.Type, "ok").Inc()
	b.autoDelete(r.chatID, msgID)
	for _, text := range more {
		follow := telegram.Text(text)
		follow.Protect = true
		id, err := b.tg.Send(ctx, r.chatID, follow)
		if err != nil {
			utils.Logger.Warn("episode list send failed", zap.Int64("chat_id", r.chatID), zap.String("content_id", item.ID), zap.Error(err))
			break
		}
		b.autoDelete(r.chatID, id)
	}
	return nil
}

func (b *Bot) contentMessage(r *request, item *models.Content) (telegram.Outgoing, []string) {
	msg := telegram.Outgoing{
		Kind:     telegram.KindVideo,
		FileID:   item.FileID,
		Keyboard: shareKeyboard(b, r, item.ID),
		Protect:  true,
	}
	var more []string
	switch item.Type {
	case models.ContentFile:
		msg.Kind = telegram.KindDocument
		msg.Text = b.fileCaption(r, item)
	case models.ContentMovie, models.ContentSeries:
		msg.Kind = telegram.KindPhoto
		msg.Text, more = titleCaption(item)
	}
	return msg, more
}

func (b *Bot) fileCaption(r *request, item *models.Content) string {
	name := item.Name
	if name == "" {
		name = "File"
	}
	category := item.Category
	if category == "" {
		category = services.CategoryOther
	}
	return b.tf(r, i18n.FILE_CAPTION, map[string]interface{}{
		"Name":     html.EscapeString(name),
		"Size":     humanize.Bytes(uint64(item.FileSize)),
		"Category": category,
	})
}

// titleCaption renders a movie or series. When the whole listing does not fit a caption,
// the caption keeps the name and link and the seasons are packed into text messages.
func titleCaption(item *models.Content) (string, []string) {
	header := "🎞 <b>" + html.EscapeString(item.Name) + "</b>"
	var meta models.TitleMetadata
	if err := json.Unmarshal([]byte(item.Metadata), &meta); err != nil {
		return header, nil
	}
	if meta.URL != "" {
		header += "\n" + link(meta.URL, "▶️ Watch")
	}

	var lines []string
	for _, season := range meta.Seasons {
		lines = append(lines, "\n📂 <b>"+html.EscapeString(season.Name)+"</b>")
		for _, ep := range season.Episodes {
			lines = append(lines, "• "+link(ep.URL, ep.Name))
		}
	}
	if len(lines) == 0 {
		return header, nil
	}
	if full := header + "\n" + strings.Join(lines, "\n"); utils.VisibleLen(full) <= telegram.MaxCaptionLen {
		return full, nil
	}
	return header, packLines(lines, telegram.MaxTextLen)
}

// packLines joins lines into as few messages as fit within limit visible characters.
func packLines(lines []string, limit int) []string {
	var (
		out []string
		cur []string
	)
	for _, line := range lines {
		if len(cur) > 0 && utils.VisibleLen(strings.Join(append(cur, line), "\n")) > limit {
			out = append(out, strings.TrimSpace(strings.Join(cur, "\n")))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		out = append(out, strings.TrimSpace(strings.Join(cur, "\n")))
	}
	return out
}

func link(url, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}

func (b *Bot) autoDelete(chatID int64, messageID int) {
	d := b.cfg.AutoDeleteAfter()
	if d <= 0 {
		return
	}
	b.scheduler.After(MessageKey{ChatID: chatID, MessageID: messageID}, d, func(ctx context.Context) {
		if err := b.tg.Delete(ctx, chatID, messageID); err != nil {
			utils.Logger.Warn("auto-delete failed", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
			return
		}
		utils.Logger.Debug("auto-deleted message", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID))
	})
}

func (b *Bot) deleteNote(r *request) string {
	d := b.cfg.AutoDeleteAfter()
	if d <= 0 {
		return ""
	}
	now := time.Now()
	return b.tf(r, i18n.AUTO_DELETE_NOTE, map[string]interface{}{
		"Duration": strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", "")),
	})
}

func withNote(text, note string) string {
	if note == "" {
		return text
	}
	return text + "\n" + note
}

func (b *Bot) recordDelivery(ctx context.Context, kind string, n int) {
	if err := b.reporter.RecordDelivery(ctx, kind, int64(n)); err != nil {
		utils.Logger.Warn("record delivery failed", zap.String("kind", kind), zap.Error(err))
	}
}
