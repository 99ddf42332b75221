package rabbitmq

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventPayload is the envelope of every message this service publishes.
type EventPayload struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
