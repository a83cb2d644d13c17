package telegram

import "errors"

// Bot API length limits, counted in UTF-16 units of the text after entity parsing.
const (
	MaxTextLen    = 4096
	MaxCaptionLen = 1024
)

// ErrTextTooLong reports a message or caption Telegram would reject for its length.
var ErrTextTooLong = errors.New("telegram: text too long")

// Kind selects which Bot API method an Outgoing message maps to.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Button is an inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Outgoing describes one message independent of the Bot API structs.
// Text is the caption for media kinds and is rendered in HTML parse mode.
type Outgoing struct {
	Kind     Kind
	Text     string
	FileID   string
	Keyboard Keyboard
	Protect  bool
}

// Text builds a plain HTML text message.
func Text(text string) Outgoing {
	return Outgoing{Kind: KindText, Text: text}
}

// TextLimit is the longest Text this message kind accepts.
func (o Outgoing) TextLimit() int {
	if o.Kind == KindText || o.Kind == "" {
		return MaxTextLen
	}
	return MaxCaptionLen
}

// WithKeyboard returns a copy with kb attached.
func (o Outgoing) WithKeyboard(kb Keyboard) Outgoing {
	o.Keyboard = kb
	return o
}

// Row is shorthand for one keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// DataButton creates a callback button.
func DataButton(text, data string) Button {
	return Button{Text: text, Data: data}
}

// URLButton creates a link button.
func URLButton(text, url string) Button {
	return Button{Text: text, URL: url}
}
