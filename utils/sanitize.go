package utils

import (
	"html"
	"strings"
	"unicode/utf16"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	// tags Telegram's HTML parse mode understands
	telegramPolicy = func() *bluemonday.Policy {
		p := bluemonday.NewPolicy()
		p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "tg-spoiler")
		p.AllowAttrs("href").OnElements("a")
		p.AllowURLSchemes("http", "https", "tg")
		p.RequireNoFollowOnLinks(false)
		return p
	}()
)

// SanitizePlain strips every tag and returns trimmed plain text, used for titles and names.
func SanitizePlain(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// SanitizeTelegramHTML keeps the subset of markup Telegram renders in HTML mode.
func SanitizeTelegramHTML(input string) string {
	return strings.TrimSpace(telegramPolicy.Sanitize(input))
}

// VisibleLen counts what Telegram counts against its length limits: the rendered text
// of an HTML message in UTF-16 units.
func VisibleLen(htmlText string) int {
	return len(utf16.Encode([]rune(SanitizePlain(htmlText))))
}
