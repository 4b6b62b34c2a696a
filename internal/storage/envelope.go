package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is written into every envelope.
const SchemaVersion = 1

// Envelope wraps a persisted snapshot with its schema version.
type Envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// Migration upgrades a payload written at an older version to SchemaVersion.
type Migration func(from int, payload json.RawMessage) (json.RawMessage, error)

// legacyEnvelope matches the browser persist layout: {"state": {...}, "version": 0}.
type legacyEnvelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
	State   json.RawMessage `json:"state"`
}

func encodeEnvelope(v any, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return json.Marshal(Envelope{Version: SchemaVersion, SavedAt: now.UTC(), Payload: payload})
}

func decodeEnvelope(raw []byte, out any, migrate Migration) error {
	var env legacyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	payload := env.Payload
	if len(payload) == 0 && len(env.State) > 0 {
		payload = env.State
	}
	if len(payload) == 0 {
		return fmt.Errorf("decode envelope: missing payload")
	}
	if env.Version > SchemaVersion {
		return fmt.Errorf("decode envelope: unsupported version %d", env.Version)
	}
	if env.Version < SchemaVersion && migrate != nil {
		upgraded, err := migrate(env.Version, payload)
		if err != nil {
			return fmt.Errorf("migrate from version %d: %w", env.Version, err)
		}
		payload = upgraded
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
