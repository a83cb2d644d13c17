package telegram

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is a thin context-aware wrapper around the Bot API.
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient authenticates with token and fetches the bot identity.
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	api.Debug = false
	return &Client{api: api}, nil
}

// Username is the bot's @handle without the @.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Send delivers msg and returns the new message id.
func (c *Client) Send(ctx context.Context, chatID int64, msg Outgoing) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	method, params, err := buildSendParams(chatID, msg)
	if err != nil {
		return 0, err
	}
	resp, err := c.api.MakeRequest(method, params)
	if err != nil {
		return 0, err
	}
	var sent tgbotapi.Message
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return 0, fmt.Errorf("decode %s result: %w", method, err)
	}
	return sent.MessageID, nil
}

// EditText replaces the text and keyboard of a message the bot sent earlier.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if len(kb) > 0 {
		markup := inlineMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	_, err := c.api.Request(edit)
	return err
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// AnswerCallback stops the loading spinner on an inline button, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// SetWebhook registers url as the update endpoint.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// RemoveWebhook switches the bot back to getUpdates.
func (c *Client) RemoveWebhook() error {
	_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{})
	return err
}

// Poll long-polls for updates and calls handle for each one until ctx ends.
func (c *Client) Poll(ctx context.Context, handle func(context.Context, tgbotapi.Update)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			handle(ctx, upd)
		}
	}
}

// buildSendParams maps msg onto a send* method. Media is always referenced by file_id.
// protect_content is newer than the library's typed configs, hence raw params.
func buildSendParams(chatID int64, msg Outgoing) (string, tgbotapi.Params, error) {
	var method, field string
	switch msg.Kind {
	case KindText, "":
		method, field = "sendMessage", "text"
	case KindPhoto:
		method, field = "sendPhoto", "photo"
	case KindVideo:
		method, field = "sendVideo", "video"
	case KindDocument:
		method, field = "sendDocument", "document"
	default:
		return "", nil, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}

	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	params.AddBool("protect_content", msg.Protect)
	if field == "text" {
		params["text"] = msg.Text
		params.AddBool("disable_web_page_preview", true)
	} else {
		if msg.FileID == "" {
			return "", nil, fmt.Errorf("%s needs a file id", method)
		}
		params[field] = msg.FileID
		params.AddNonEmpty("caption", msg.Text)
	}
	if len(msg.Keyboard) > 0 {
		if err := params.AddInterface("reply_markup", inlineMarkup(msg.Keyboard)); err != nil {
			return "", nil, fmt.Errorf("encode keyboard: %w", err)
		}
	}
	return method, params, nil
}

func inlineMarkup(kb Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
