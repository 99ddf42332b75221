package channel

import (
	"time"

	"github.com/google/uuid"
)

// Type is the delivery medium of a notification channel.
type Type string

const (
	TypeEmail Type = "email"
	TypeSMS   Type = "sms"
	TypeCall  Type = "call"
	TypeSlack Type = "slack"
)

func (t Type) Valid() bool {
	switch t {
	case TypeEmail, TypeSMS, TypeCall, TypeSlack:
		return true
	default:
		return false
	}
}

type Channel struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Type        Type      `json:"type"`
	Destination string    `json:"destination"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateChannelCmd struct {
	UserID      uuid.UUID
	Type        Type
	Destination string
	Enabled     bool
}

// UpdateChannelCmd carries a partial update, nil fields are left unchanged.
type UpdateChannelCmd struct {
	Destination *string
	Enabled     *bool
}
