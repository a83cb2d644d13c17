package wizard

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Flow Flow            `json:"flow"`
	Data json.RawMessage `json:"data"`
}

// Marshal encodes a session with its flow tag so Unmarshal can restore the concrete type.
func Marshal(s Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Flow: s.Flow(), Data: data})
}

// Unmarshal decodes what Marshal produced.
func Unmarshal(b []byte) (Session, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode session envelope: %w", err)
	}
	var s Session
	switch env.Flow {
	case FlowMovie, FlowSeries:
		s = &TitleSession{}
	case FlowBroadcast:
		s = &BroadcastSession{}
	case FlowTrending, FlowPopular:
		s = &FlagSession{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, env.Flow)
	}
	if err := json.Unmarshal(env.Data, s); err != nil {
		return nil, fmt.Errorf("decode %s session: %w", env.Flow, err)
	}
	if s.Flow() != env.Flow {
		return nil, fmt.Errorf("%w: tag %q does not match payload %q", ErrUnknownFlow, env.Flow, s.Flow())
	}
	return s, nil
}
