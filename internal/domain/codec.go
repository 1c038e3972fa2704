package domain

import (
	"encoding/json"
	"fmt"
)

// EncodeState serializes a QuizState for persistence under a single key.
func EncodeState(state QuizState) ([]byte, error) {
	return json.Marshal(state)
}

// DecodeState parses a persisted record. Anything that does not decode into a
// well-formed state is reported as ErrCorruptState so stores can substitute
// the default lobby value.
func DecodeState(data []byte) (QuizState, error) {
	var state QuizState
	if err := json.Unmarshal(data, &state); err != nil {
		return QuizState{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	switch state.Phase {
	case PhaseLobby, PhaseInProgress, PhaseOver:
	default:
		return QuizState{}, fmt.Errorf("%w: unknown phase %q", ErrCorruptState, state.Phase)
	}
	if state.Players == nil {
		state.Players = make(map[string]PlayerRecord)
	}
	return state, nil
}
