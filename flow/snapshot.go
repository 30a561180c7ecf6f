package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// SnapshotVersion is the current checkpoint envelope version.
const SnapshotVersion = 1

// ErrUnsupportedSnapshot is returned for envelopes this build cannot read.
var ErrUnsupportedSnapshot = errors.New("unsupported snapshot")

type snapshotEnvelope struct {
	Version int        `json:"version"`
	SavedAt time.Time  `json:"saved_at"`
	State   *TurnState `json:"state"`
}

// EncodeState serializes a TurnState into a versioned checkpoint snapshot.
func EncodeState(s *TurnState) ([]byte, error) {
	b, err := json.Marshal(snapshotEnvelope{Version: SnapshotVersion, SavedAt: time.Now().UTC(), State: s})
	if err != nil {
		return nil, fmt.Errorf("encode turn state: %w", err)
	}
	return b, nil
}

// DecodeState restores a TurnState from a snapshot written by EncodeState.
func DecodeState(b []byte) (*TurnState, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode turn state: %w", err)
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedSnapshot, env.Version)
	}
	if env.State == nil {
		return nil, fmt.Errorf("%w: missing state", ErrUnsupportedSnapshot)
	}
	if env.State.Metadata == nil {
		env.State.Metadata = map[string]string{}
	}
	return env.State, nil
}
