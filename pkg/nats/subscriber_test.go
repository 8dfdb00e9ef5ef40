package nats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	body := []byte(`{"type":"CART_ITEM_ADDED","occurred_at":"2026-01-02T03:04:05Z","data":{"product_id":"p1"}}`)

	event, err := Decode("events.CART_ITEM_ADDED", body)

	require.NoError(t, err)
	assert.Equal(t, "CART_ITEM_ADDED", event.EventType())
	assert.Equal(t, "p1", event.Payload()["product_id"])
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), event.Timestamp())
}

func TestDecodeBarePayload(t *testing.T) {
	event, err := Decode("events.LLM_USAGE", []byte(`{"model":"mistral-small-latest"}`))

	require.NoError(t, err)
	assert.Equal(t, "LLM_USAGE", event.EventType())
	assert.Equal(t, "mistral-small-latest", event.Payload()["model"])
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("events.X", []byte(`not json`))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.FEEDBACK_SUBMITTED", Subject("FEEDBACK_SUBMITTED"))
}
