package bot

import (
	"context"
	"errors"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cppla/clipbot/i18n"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/utils"
	"github.com/cppla/clipbot/wizard"
)

var broadcastPrompts = map[wizard.BroadcastKind]string{
	wizard.BroadcastText:  i18n.BROADCAST_PROMPT_TEXT,
	wizard.BroadcastImage: i18n.BROADCAST_PROMPT_IMAGE,
	wizard.BroadcastVideo: i18n.BROADCAST_PROMPT_VIDEO,
	wizard.BroadcastFile:  i18n.BROADCAST_PROMPT_FILE,
}

var broadcastKinds = map[wizard.BroadcastKind]telegram.Kind{
	wizard.BroadcastText:  telegram.KindText,
	wizard.BroadcastImage: telegram.KindPhoto,
	wizard.BroadcastVideo: telegram.KindVideo,
	wizard.BroadcastFile:  telegram.KindDocument,
}

var titlePrompts = map[wizard.State]string{
	wizard.StateAwaitingName:        i18n.WIZARD_PROMPT_NAME,
	wizard.StateAwaitingThumbnail:   i18n.WIZARD_PROMPT_THUMBNAIL,
	wizard.StateAwaitingURL:         i18n.WIZARD_PROMPT_URL,
	wizard.StateAwaitingSeasonName:  i18n.WIZARD_PROMPT_SEASON,
	wizard.StateAwaitingEpisodeName: i18n.WIZARD_PROMPT_EPISODE,
	wizard.StateAwaitingEpisodeURL:  i18n.WIZARD_PROMPT_EPISODE_URL,
	wizard.StateAwaitingAction:      i18n.WIZARD_PROMPT_ACTION,
}

func (b *Bot) startTitle(ctx context.Context, r *request, series bool) error {
	var s wizard.Session = wizard.NewMovie()
	if series {
		s = wizard.NewSeries()
	}
	return b.startSession(ctx, r, s)
}

func (b *Bot) startBroadcast(ctx context.Context, r *request, kind string) error {
	s, err := wizard.NewBroadcast(wizard.BroadcastKind(kind))
	if err != nil {
		utils.Logger.Debug("bad broadcast kind", zap.String("kind", kind), zap.Error(err))
		return b.reply(ctx, r, b.t(r, i18n.WIZARD_INVALID), broadcastMenu(b, r))
	}
	return b.startSession(ctx, r, s)
}

func (b *Bot) startFlag(ctx context.Context, r *request, k flagKind) error {
	var s wizard.Session = wizard.NewTrending()
	if k.flow == wizard.FlowPopular {
		s = wizard.NewPopular()
	}
	return b.startSession(ctx, r, s)
}

// startSession replaces whatever session the admin had with a fresh one.
func (b *Bot) startSession(ctx context.Context, r *request, s wizard.Session) error {
	if err := b.sessions.Put(ctx, r.userID, s); err != nil {
		return err
	}
	utils.Logger.Info("admin session started", zap.Int64("admin_id", r.userID), zap.String("flow", string(s.Flow())))
	return b.prompt(ctx, r, s)
}

func (b *Bot) prompt(ctx context.Context, r *request, s wizard.Session) error {
	var (
		id string
		kb telegram.Keyboard
	)
	switch st := s.(type) {
	case *wizard.BroadcastSession:
		id = broadcastPrompts[st.Kind]
	case *wizard.FlagSession:
		id = flagKindFor(st.Kind).prompt
	default:
		id = titlePrompts[s.State()]
		if s.State() == wizard.StateAwaitingAction {
			kb = actionMenu(b, r)
		}
	}
	return b.reply(ctx, r, b.t(r, id), kb)
}

// onCancel drops the admin's session without persisting anything it collected.
func (b *Bot) onCancel(ctx context.Context, r *request) error {
	if !b.isAdmin(r) {
		return b.reply(ctx, r, b.t(r, i18n.ERROR_ACCESS_DENIED), nil)
	}
	removed, err := b.sessions.Delete(ctx, r.userID)
	if err != nil {
		return err
	}
	if !removed {
		return b.reply(ctx, r, b.t(r, i18n.CANCEL_NOTHING), nil)
	}
	utils.Logger.Info("admin session cancelled", zap.Int64("admin_id", r.userID))
	return b.reply(ctx, r, b.t(r, i18n.CANCEL_DONE), adminMenu(b, r))
}

func (b *Bot) onWizardChoice(ctx context.Context, r *request, choice string) error {
	handled, err := b.continueSession(ctx, r, wizard.Input{Kind: wizard.InputChoice, Choice: wizard.Choice(choice)})
	if err != nil || handled {
		return err
	}
	return b.reply(ctx, r, b.t(r, i18n.CANCEL_NOTHING), nil)
}

// continueSession feeds in to the admin's active session. It reports false when there is none.
func (b *Bot) continueSession(ctx context.Context, r *request, in wizard.Input) (bool, error) {
	s, ok, err := b.sessions.Get(ctx, r.userID)
	if err != nil || !ok {
		return err != nil, err
	}
	step, err := s.Advance(sanitizeInput(s.Flow(), in))
	if errors.Is(err, wizard.ErrInvalidInput) {
		msg := i18n.WIZARD_INVALID
		if s.Flow() == wizard.FlowBroadcast {
			msg = i18n.BROADCAST_WRONG_CONTENT
		}
		if err := b.reply(ctx, r, b.t(r, msg), nil); err != nil {
			return true, err
		}
		return true, b.prompt(ctx, r, s)
	}
	if err != nil {
		return true, err
	}
	if !step.Done {
		if err := b.sessions.Put(ctx, r.userID, s); err != nil {
			return true, err
		}
		return true, b.prompt(ctx, r, s)
	}
	return true, b.finish(ctx, r, step)
}

// finish acts on a completed session. The stored session is only dropped once the result is persisted,
// so a failed write can be retried by resending the last answer.
func (b *Bot) finish(ctx context.Context, r *request, step wizard.Step) error {
	switch {
	case step.Title != nil:
		item, err := b.catalog.CreateTitle(ctx, *step.Title, r.userID)
		if err != nil {
			return err
		}
		b.dropSession(ctx, r)
		utils.Logger.Info("title saved", zap.String("content_id", item.ID), zap.String("type", item.Type))
		return b.reply(ctx, r, b.tf(r, i18n.WIZARD_SAVED, map[string]interface{}{"Name": html.EscapeString(item.Name)}), adminMenu(b, r))

	case step.Flag != nil:
		k := flagKindFor(step.Flag.Flow)
		m := step.Flag.Media
		if _, err := b.catalog.MarkTrending(ctx, services.Upload{
			Type:         k.contentType,
			FileID:       m.FileID,
			FileUniqueID: m.FileUniqueID,
			FileName:     m.FileName,
			FileSize:     m.FileSize,
			MimeType:     m.MimeType,
			UploaderID:   r.userID,
		}); err != nil {
			return err
		}
		b.dropSession(ctx, r)
		return b.reply(ctx, r, b.t(r, k.added), flagMenu(b, r, k))

	case step.Broadcast != nil:
		if room := b.broadcastRoom(r, step.Broadcast.Kind); utils.VisibleLen(step.Broadcast.Text) > room {
			// the stored session still awaits content, so a shorter resend goes through
			return b.reply(ctx, r, b.tf(r, i18n.BROADCAST_TOO_LONG, map[string]interface{}{"Limit": room}), nil)
		}
		b.dropSession(ctx, r)
		return b.runBroadcast(ctx, r, *step.Broadcast)
	}
	return nil
}

func (b *Bot) dropSession(ctx context.Context, r *request) {
	if _, err := b.sessions.Delete(ctx, r.userID); err != nil {
		utils.Logger.Warn("drop admin session failed", zap.Int64("admin_id", r.userID), zap.Error(err))
	}
}

// sanitizeInput strips markup from wizard text. Broadcasts keep the tags Telegram renders.
func sanitizeInput(flow wizard.Flow, in wizard.Input) wizard.Input {
	if in.Text == "" {
		return in
	}
	if flow == wizard.FlowBroadcast {
		in.Text = utils.SanitizeTelegramHTML(in.Text)
	} else {
		in.Text = utils.SanitizePlain(in.Text)
	}
	return in
}

func inputFromMessage(m *tgbotapi.Message) wizard.Input {
	switch {
	case len(m.Photo) > 0:
		p := m.Photo[len(m.Photo)-1] // largest size
		return wizard.Input{Kind: wizard.InputPhoto, Text: m.Caption, Media: wizard.Media{
			FileID: p.FileID, FileUniqueID: p.FileUniqueID, FileSize: int64(p.FileSize),
		}}
	case m.Video != nil:
		v := m.Video
		return wizard.Input{Kind: wizard.InputVideo, Text: m.Caption, Media: wizard.Media{
			FileID: v.FileID, FileUniqueID: v.FileUniqueID, FileName: v.FileName, MimeType: v.MimeType, FileSize: int64(v.FileSize),
		}}
	case m.Document != nil:
		d := m.Document
		return wizard.Input{Kind: wizard.InputDocument, Text: m.Caption, Media: wizard.Media{
			FileID: d.FileID, FileUniqueID: d.FileUniqueID, FileName: d.FileName, MimeType: d.MimeType, FileSize: int64(d.FileSize),
		}}
	}
	return wizard.Input{Kind: wizard.InputText, Text: m.Text}
}

func (b *Bot) broadcastMessage(r *request, req wizard.BroadcastRequest) telegram.Outgoing {
	text := b.t(r, i18n.BROADCAST_PREFIX)
	if req.Text != "" {
		text += "\n\n" + req.Text
	}
	return telegram.Outgoing{Kind: broadcastKinds[req.Kind], Text: text, FileID: req.FileID}
}

// broadcastRoom is how many visible characters the admin's text may have next to the announcement prefix.
func (b *Bot) broadcastRoom(r *request, kind wizard.BroadcastKind) int {
	bare := b.broadcastMessage(r, wizard.BroadcastRequest{Kind: kind})
	return bare.TextLimit() - utils.VisibleLen(bare.Text) - 2
}

// runBroadcast reports the audience size, fans the message out in the background and
// edits the progress message with the final tally.
func (b *Bot) runBroadcast(ctx context.Context, r *request, req wizard.BroadcastRequest) error {
	audience, err := b.reporter.Audience(ctx)
	if err != nil {
		return err
	}
	progressID, err := b.tg.Send(ctx, r.chatID, telegram.Text(b.tf(r, i18n.BROADCAST_STARTED, map[string]interface{}{"Total": len(audience)})))
	if err != nil {
		utils.Logger.Warn("broadcast progress message failed", zap.Int64("admin_id", r.userID), zap.Error(err))
	}
	b.fanOut(b.broadcastMessage(r, req), audience, func(ctx context.Context, res services.BroadcastResult) {
		text := b.tf(r, i18n.BROADCAST_DONE, map[string]interface{}{
			"Success": res.Success,
			"Failure": res.Failure,
			"Total":   res.Total,
		})
		if progressID != 0 && b.tg.EditText(ctx, r.chatID, progressID, text, nil) == nil {
			return
		}
		if _, err := b.tg.Send(ctx, r.chatID, telegram.Text(text).WithKeyboard(adminMenu(b, r))); err != nil {
			utils.Logger.Warn("broadcast summary failed", zap.Int64("admin_id", r.userID), zap.Error(err))
		}
	})
	return nil
}

// Announce broadcasts a text announcement to every known user in the background and
// returns the audience size.
func (b *Bot) Announce(ctx context.Context, text string) (int, error) {
	text = utils.SanitizeTelegramHTML(text)
	if text == "" {
		return 0, wizard.ErrInvalidInput
	}
	r := &request{lang: b.lang.Match("")}
	if utils.VisibleLen(text) > b.broadcastRoom(r, wizard.BroadcastText) {
		return 0, telegram.ErrTextTooLong
	}
	audience, err := b.reporter.Audience(ctx)
	if err != nil {
		return 0, err
	}
	b.fanOut(b.broadcastMessage(r, wizard.BroadcastRequest{Kind: wizard.BroadcastText, Text: text}), audience, nil)
	return len(audience), nil
}

// fanOut runs the broadcast on the scheduler's context so shutdown stops it between sends.
func (b *Bot) fanOut(msg telegram.Outgoing, audience []int64, done func(context.Context, services.BroadcastResult)) {
	ctx := b.scheduler.ctx
	b.async(func() {
		res, err := b.broadcaster.Broadcast(ctx, msg, audience)
		utils.Logger.Info("broadcast finished",
			zap.Int("total", res.Total), zap.Int("success", res.Success), zap.Int("failure", res.Failure), zap.Error(err))
		b.recordDelivery(ctx, services.DeliveryBroadcast, res.Success)
		if done != nil {
			done(ctx, res)
		}
	})
}

func (b *Bot) sendAdminStats(ctx context.Context, r *request) error {
	text, err := b.adminStats(ctx, r)
	if err != nil {
		return err
	}
	return b.show(ctx, r, text, telegram.Keyboard{backTo(b, r, cbAdminPanel)})
}

func (b *Bot) showFlagMenu(ctx context.Context, r *request, k flagKind) error {
	_, total, err := b.catalog.List(ctx, services.ListFilter{Type: k.contentType, Trending: lo.ToPtr(true), PageSize: 1})
	if err != nil {
		return err
	}
	return b.show(ctx, r, b.tf(r, k.menu, map[string]interface{}{"Count": total}), flagMenu(b, r, k))
}

func (b *Bot) clearFlag(ctx context.Context, r *request, k flagKind) error {
	n, err := b.catalog.ClearTrending(ctx, k.contentType)
	if err != nil {
		return err
	}
	utils.Logger.Info("flags cleared", zap.String("type", k.contentType), zap.Int64("count", n))
	return b.show(ctx, r, b.tf(r, k.cleared, map[string]interface{}{"Count": n}), flagMenu(b, r, k))
}

func (b *Bot) sendFileStats(ctx context.Context, r *request) error {
	cats, err := b.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	lines := []string{b.t(r, i18n.ADMIN_FILE_STATS)}
	if len(cats) == 0 {
		lines = append(lines, b.t(r, i18n.ADMIN_FILE_STATS_EMPTY))
	}
	for _, c := range cats {
		lines = append(lines, b.tf(r, i18n.ADMIN_FILE_STATS_LINE, map[string]interface{}{"Category": c.Category, "Count": c.Count}))
	}
	return b.show(ctx, r, strings.Join(lines, "\n"), telegram.Keyboard{backTo(b, r, cbManageFiles)})
}
