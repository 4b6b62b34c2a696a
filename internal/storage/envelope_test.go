package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartPayload struct {
	Items []string `json:"items"`
}

func TestEnvelopeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := encodeEnvelope(cartPayload{Items: []string{"p1"}}, now)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, SchemaVersion, env.Version)
	assert.True(t, env.SavedAt.Equal(now))

	var out cartPayload
	require.NoError(t, decodeEnvelope(raw, &out, nil))
	assert.Equal(t, []string{"p1"}, out.Items)
}

func TestEnvelopeLegacyStateIsMigrated(t *testing.T) {
	legacy := []byte(`{"state":{"products":["p1","p2"]},"version":0}`)
	var sawVersion int
	migrate := func(from int, payload json.RawMessage) (json.RawMessage, error) {
		sawVersion = from
		var old struct {
			Products []string `json:"products"`
		}
		if err := json.Unmarshal(payload, &old); err != nil {
			return nil, err
		}
		return json.Marshal(cartPayload{Items: old.Products})
	}

	var out cartPayload
	require.NoError(t, decodeEnvelope(legacy, &out, migrate))
	assert.Equal(t, 0, sawVersion)
	assert.Equal(t, []string{"p1", "p2"}, out.Items)
}

func TestEnvelopeRejectsFutureAndCorrupt(t *testing.T) {
	var out cartPayload
	assert.Error(t, decodeEnvelope([]byte(`{"version":99,"payload":{}}`), &out, nil))
	assert.Error(t, decodeEnvelope([]byte(`not json`), &out, nil))
	assert.Error(t, decodeEnvelope([]byte(`{"version":1}`), &out, nil))
}
