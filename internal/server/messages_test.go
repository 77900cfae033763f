package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerEvent(t *testing.T) {
	event := NewServerEvent(EventConnected, "payload")

	assert.Equal(t, EventConnected, event.Event)
	assert.Equal(t, "payload", event.Data)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestServerEventJSON(t *testing.T) {
	raw, err := json.Marshal(&ServerEvent{Event: EventTyping, Data: "chat1"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"event":"typing","data":"chat1","timestamp":"0001-01-01T00:00:00Z"}`, string(raw))
}

func TestClientEventEnvelope(t *testing.T) {
	var event ClientEvent
	require.NoError(t, json.Unmarshal([]byte(`{"event":"setup","data":{"id":"u1"}}`), &event))

	assert.Equal(t, EventSetup, event.Event)

	var setup SetupPayload
	require.NoError(t, json.Unmarshal(event.Data, &setup))
	assert.Equal(t, "u1", setup.Id)
}
