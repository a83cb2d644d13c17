package wizard

// FlagRequest asks the catalog to mark Media as trending (videos) or popular (files).
type FlagRequest struct {
	Flow  Flow  `json:"flow"`
	Media Media `json:"media"`
}

// FlagSession waits for the video or document to flag.
type FlagSession struct {
	Kind    Flow  `json:"kind"`
	Current State `json:"state"`
}

// NewTrending starts a session that flags the next video as trending.
func NewTrending() *FlagSession {
	return &FlagSession{Kind: FlowTrending, Current: StateAwaitingVideo}
}

// NewPopular starts a session that flags the next document as popular.
func NewPopular() *FlagSession {
	return &FlagSession{Kind: FlowPopular, Current: StateAwaitingDocument}
}

func (s *FlagSession) Flow() Flow   { return s.Kind }
func (s *FlagSession) State() State { return s.Current }

// Advance implements Session.
func (s *FlagSession) Advance(in Input) (Step, error) {
	var want InputKind
	switch s.Current {
	case StateAwaitingVideo:
		want = InputVideo
	case StateAwaitingDocument:
		want = InputDocument
	default:
		return Step{State: s.Current}, ErrInvalidInput
	}
	media, err := requireMedia(in, want)
	if err != nil {
		return Step{State: s.Current}, err
	}
	s.Current = StateCompleted
	return Step{State: StateCompleted, Done: true, Flag: &FlagRequest{Flow: s.Kind, Media: media}}, nil
}
