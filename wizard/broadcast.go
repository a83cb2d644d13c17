package wizard

import "fmt"

// BroadcastKind is the media type an admin broadcast carries.
type BroadcastKind string

const (
	BroadcastText  BroadcastKind = "text"
	BroadcastImage BroadcastKind = "image"
	BroadcastVideo BroadcastKind = "video"
	BroadcastFile  BroadcastKind = "file"
)

// BroadcastRequest is what a finished broadcast session yields.
type BroadcastRequest struct {
	Kind   BroadcastKind `json:"kind"`
	Text   string        `json:"text,omitempty"`
	FileID string        `json:"file_id,omitempty"`
}

// BroadcastSession waits for one message of the chosen kind.
type BroadcastSession struct {
	Kind    BroadcastKind `json:"kind"`
	Current State         `json:"state"`
}

// NewBroadcast starts a broadcast session for kind.
func NewBroadcast(kind BroadcastKind) (*BroadcastSession, error) {
	switch kind {
	case BroadcastText, BroadcastImage, BroadcastVideo, BroadcastFile:
		return &BroadcastSession{Kind: kind, Current: StateAwaitingBroadcast}, nil
	}
	return nil, fmt.Errorf("%w: broadcast %q", ErrUnknownFlow, kind)
}

func (s *BroadcastSession) Flow() Flow   { return FlowBroadcast }
func (s *BroadcastSession) State() State { return s.Current }

// Advance implements Session.
func (s *BroadcastSession) Advance(in Input) (Step, error) {
	if s.Current != StateAwaitingBroadcast {
		return Step{State: s.Current}, ErrInvalidInput
	}
	req := BroadcastRequest{Kind: s.Kind}
	switch s.Kind {
	case BroadcastText:
		text, err := requireText(in)
		if err != nil {
			return Step{State: s.Current}, err
		}
		req.Text = text
	default:
		want := map[BroadcastKind]InputKind{
			BroadcastImage: InputPhoto,
			BroadcastVideo: InputVideo,
			BroadcastFile:  InputDocument,
		}[s.Kind]
		media, err := requireMedia(in, want)
		if err != nil {
			return Step{State: s.Current}, err
		}
		req.FileID = media.FileID
		req.Text = in.Text
	}
	s.Current = StateCompleted
	return Step{State: StateCompleted, Done: true, Broadcast: &req}, nil
}
