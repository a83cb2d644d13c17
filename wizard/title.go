package wizard

// Episode is one entry of a season.
type Episode struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Season groups episodes.
type Season struct {
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

// Title is the record a finished movie or series session yields.
type Title struct {
	Type        Flow     `json:"type"`
	Name        string   `json:"name"`
	ThumbnailID string   `json:"thumbnail_id"`
	URL         string   `json:"url,omitempty"`
	Seasons     []Season `json:"seasons,omitempty"`
}

// TitleSession collects a movie or a series.
//
// movie:  name -> thumbnail -> url -> completed
// series: name -> thumbnail -> season name -> episode name -> episode url -> action
// where action loops back to episode name or season name, or completes.
type TitleSession struct {
	Kind    Flow  `json:"kind"`
	Current State `json:"state"`
	Draft   Title `json:"draft"`
}

// NewMovie starts a movie session.
func NewMovie() *TitleSession {
	return &TitleSession{Kind: FlowMovie, Current: StateAwaitingName, Draft: Title{Type: FlowMovie}}
}

// NewSeries starts a series session.
func NewSeries() *TitleSession {
	return &TitleSession{Kind: FlowSeries, Current: StateAwaitingName, Draft: Title{Type: FlowSeries}}
}

func (s *TitleSession) Flow() Flow   { return s.Kind }
func (s *TitleSession) State() State { return s.Current }

// Advance implements Session.
func (s *TitleSession) Advance(in Input) (Step, error) {
	switch s.Current {
	case StateAwaitingName:
		name, err := requireText(in)
		if err != nil {
			return s.step(), err
		}
		s.Draft.Name = name
		return s.moveTo(StateAwaitingThumbnail), nil

	case StateAwaitingThumbnail:
		media, err := requireMedia(in, InputPhoto)
		if err != nil {
			return s.step(), err
		}
		s.Draft.ThumbnailID = media.FileID
		if s.Kind == FlowMovie {
			return s.moveTo(StateAwaitingURL), nil
		}
		return s.moveTo(StateAwaitingSeasonName), nil

	case StateAwaitingURL:
		link, err := requireURL(in)
		if err != nil {
			return s.step(), err
		}
		s.Draft.URL = link
		return s.complete(), nil

	case StateAwaitingSeasonName:
		name, err := requireText(in)
		if err != nil {
			return s.step(), err
		}
		s.Draft.Seasons = append(s.Draft.Seasons, Season{Name: name})
		return s.moveTo(StateAwaitingEpisodeName), nil

	case StateAwaitingEpisodeName:
		name, err := requireText(in)
		if err != nil {
			return s.step(), err
		}
		last := &s.Draft.Seasons[len(s.Draft.Seasons)-1]
		last.Episodes = append(last.Episodes, Episode{Name: name})
		return s.moveTo(StateAwaitingEpisodeURL), nil

	case StateAwaitingEpisodeURL:
		link, err := requireURL(in)
		if err != nil {
			return s.step(), err
		}
		last := &s.Draft.Seasons[len(s.Draft.Seasons)-1]
		last.Episodes[len(last.Episodes)-1].URL = link
		return s.moveTo(StateAwaitingAction), nil

	case StateAwaitingAction:
		if in.Kind != InputChoice {
			return s.step(), ErrInvalidInput
		}
		switch in.Choice {
		case ChoiceAddEpisode:
			return s.moveTo(StateAwaitingEpisodeName), nil
		case ChoiceAddSeason:
			return s.moveTo(StateAwaitingSeasonName), nil
		case ChoiceFinish:
			return s.complete(), nil
		}
		return s.step(), ErrInvalidInput
	}
	return s.step(), ErrInvalidInput
}

func (s *TitleSession) step() Step {
	return Step{State: s.Current}
}

func (s *TitleSession) moveTo(next State) Step {
	s.Current = next
	return s.step()
}

func (s *TitleSession) complete() Step {
	s.Current = StateCompleted
	title := s.Draft
	title.Seasons = make([]Season, len(s.Draft.Seasons))
	for i, season := range s.Draft.Seasons {
		title.Seasons[i] = Season{Name: season.Name, Episodes: append([]Episode(nil), season.Episodes...)}
	}
	if len(title.Seasons) == 0 {
		title.Seasons = nil
	}
	return Step{State: StateCompleted, Done: true, Title: &title}
}
