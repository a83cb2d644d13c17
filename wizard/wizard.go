// Package wizard holds the admin conversation state machines. Sessions are pure values:
// they never touch storage or the network, the bot persists what a finished Step carries.
package wizard

import (
	"errors"
	"net/url"
	"strings"
)

// Flow identifies the kind of session.
type Flow string

const (
	FlowMovie     Flow = "movie"
	FlowSeries    Flow = "series"
	FlowBroadcast Flow = "broadcast"
	FlowTrending  Flow = "trending"
	FlowPopular   Flow = "popular"
)

// State is the step a session waits on.
type State string

const (
	StateAwaitingName        State = "awaiting_name"
	StateAwaitingThumbnail   State = "awaiting_thumbnail"
	StateAwaitingURL         State = "awaiting_url"
	StateAwaitingSeasonName  State = "awaiting_season_name"
	StateAwaitingEpisodeName State = "awaiting_episode_name"
	StateAwaitingEpisodeURL  State = "awaiting_episode_url"
	StateAwaitingAction      State = "awaiting_action"
	StateAwaitingBroadcast   State = "awaiting_broadcast"
	StateAwaitingVideo       State = "awaiting_video"
	StateAwaitingDocument    State = "awaiting_document"
	StateCompleted           State = "completed"
)

// InputKind is what the admin sent.
type InputKind string

const (
	InputText     InputKind = "text"
	InputPhoto    InputKind = "photo"
	InputVideo    InputKind = "video"
	InputDocument InputKind = "document"
	InputChoice   InputKind = "choice"
)

// Choice is a discrete menu option offered in awaiting_action.
type Choice string

const (
	ChoiceAddEpisode Choice = "add_episode"
	ChoiceAddSeason  Choice = "add_season"
	ChoiceFinish     Choice = "finish"
)

// Choices lists the awaiting_action options in display order.
var Choices = []Choice{ChoiceAddEpisode, ChoiceAddSeason, ChoiceFinish}

// Media references a Telegram file.
type Media struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Input is one admin message or button press.
type Input struct {
	Kind   InputKind
	Text   string // message text or media caption
	Media  Media
	Choice Choice
}

// Step is the outcome of Advance. When Done is set exactly one of the result fields is non-nil.
type Step struct {
	State     State
	Done      bool
	Title     *Title
	Broadcast *BroadcastRequest
	Flag      *FlagRequest
}

// Session is one admin conversation.
type Session interface {
	Flow() Flow
	State() State
	// Advance consumes one input. ErrInvalidInput leaves the session unchanged.
	Advance(in Input) (Step, error)
}

// ErrInvalidInput reports input that does not fit the current state.
var ErrInvalidInput = errors.New("invalid input for current step")

// ErrUnknownFlow is returned when decoding or starting an unsupported flow.
var ErrUnknownFlow = errors.New("unknown wizard flow")

func requireText(in Input) (string, error) {
	if in.Kind != InputText {
		return "", ErrInvalidInput
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", ErrInvalidInput
	}
	return text, nil
}

func requireURL(in Input) (string, error) {
	text, err := requireText(in)
	if err != nil {
		return "", err
	}
	u, err := url.ParseRequestURI(text)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidInput
	}
	return text, nil
}

func requireMedia(in Input, kind InputKind) (Media, error) {
	if in.Kind != kind || in.Media.FileID == "" {
		return Media{}, ErrInvalidInput
	}
	return in.Media, nil
}
