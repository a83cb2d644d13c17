package bot

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/cppla/clipbot/i18n"
	"github.com/cppla/clipbot/services"
	"github.com/cppla/clipbot/telegram"
	"github.com/cppla/clipbot/wizard"
)

func (b *Bot) button(r *request, id, data string) telegram.Button {
	return telegram.DataButton(b.t(r, id), data)
}

func mainMenu(b *Bot, r *request) telegram.Keyboard {
	kb := telegram.Keyboard{
		telegram.Row(b.button(r, i18n.BTN_RANDOM_VIDEO, cbRandomVideo), b.button(r, i18n.BTN_RANDOM_FILE, cbRandomFile)),
		telegram.Row(b.button(r, i18n.BTN_UPLOAD_VIDEO, cbUploadVideo), b.button(r, i18n.BTN_UPLOAD_FILE, cbUploadFile)),
		telegram.Row(b.button(r, i18n.BTN_TRENDING, cbTrending), b.button(r, i18n.BTN_POPULAR, cbPopular)),
		telegram.Row(b.button(r, i18n.BTN_CATEGORIES, cbBrowseCategories)),
	}
	if b.isAdmin(r) {
		kb = append(kb, telegram.Row(b.button(r, i18n.BTN_ADMIN, cbAdminPanel)))
	}
	return kb
}

func backTo(b *Bot, r *request, data string) []telegram.Button {
	return telegram.Row(b.button(r, i18n.BTN_BACK, data))
}

func adminMenu(b *Bot, r *request) telegram.Keyboard {
	return telegram.Keyboard{
		telegram.Row(b.button(r, i18n.BTN_BROADCAST, cbBroadcastMenu), b.button(r, i18n.BTN_STATS, cbAdminStats)),
		telegram.Row(b.button(r, i18n.BTN_MANAGE_TRENDING, cbManageTrending), b.button(r, i18n.BTN_MANAGE_FILES, cbManageFiles)),
		telegram.Row(b.button(r, i18n.BTN_ADD_MOVIE, cbAddMovie), b.button(r, i18n.BTN_ADD_SERIES, cbAddSeries)),
		backTo(b, r, cbBackToMain),
	}
}

func broadcastMenu(b *Bot, r *request) telegram.Keyboard {
	kind := func(id string, k wizard.BroadcastKind) telegram.Button {
		return b.button(r, id, cbBroadcast+":"+string(k))
	}
	return telegram.Keyboard{
		telegram.Row(kind(i18n.BTN_BROADCAST_TEXT, wizard.BroadcastText), kind(i18n.BTN_BROADCAST_IMAGE, wizard.BroadcastImage)),
		telegram.Row(kind(i18n.BTN_BROADCAST_VIDEO, wizard.BroadcastVideo), kind(i18n.BTN_BROADCAST_FILE, wizard.BroadcastFile)),
		backTo(b, r, cbAdminPanel),
	}
}

func flagMenu(b *Bot, r *request, k flagKind) telegram.Keyboard {
	kb := telegram.Keyboard{
		telegram.Row(b.button(r, k.addButton, k.addData), b.button(r, k.clearButton, k.clearData)),
	}
	if k.contentType == fileKind.contentType {
		kb = append(kb, telegram.Row(b.button(r, i18n.BTN_FILE_STATS, cbFileStats)))
	}
	return append(kb, backTo(b, r, cbAdminPanel))
}

// categoryMenu lays categories out two per row.
func categoryMenu(b *Bot, r *request, cats []services.CategoryCount) telegram.Keyboard {
	buttons := lo.Map(cats, func(c services.CategoryCount, _ int) telegram.Button {
		return telegram.DataButton(fmt.Sprintf("📂 %s (%d)", c.Category, c.Count), cbCategory+":"+c.Category)
	})
	kb := telegram.Keyboard(lo.Chunk(buttons, 2))
	return append(kb, backTo(b, r, cbBackToMain))
}

func actionMenu(b *Bot, r *request) telegram.Keyboard {
	labels := map[wizard.Choice]string{
		wizard.ChoiceAddEpisode: i18n.BTN_WIZARD_ADD_EPISODE,
		wizard.ChoiceAddSeason:  i18n.BTN_WIZARD_ADD_SEASON,
		wizard.ChoiceFinish:     i18n.BTN_WIZARD_FINISH,
	}
	row := lo.Map(wizard.Choices, func(c wizard.Choice, _ int) telegram.Button {
		return b.button(r, labels[c], cbWizard+":"+string(c))
	})
	return telegram.Keyboard{row}
}

func shareKeyboard(b *Bot, r *request, contentID string) telegram.Keyboard {
	return telegram.Keyboard{telegram.Row(b.button(r, i18n.BTN_SHARE, cbShare+":"+contentID))}
}
