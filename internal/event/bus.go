package event

import (
	"time"

	"github.com/pborman/uuid"
)

type (
	// Event is anything the bus can route. Key selects the shard, so events
	// sharing a key are handled in publish order.
	Event interface {
		ID() string
		Type() string
		Key() int64
		Expired(now time.Time) bool
	}

	Base struct {
		id        string
		eventType string
		key       int64
		expireAt  time.Time
	}
)

// CreateBase stamps a new event with a random id. A zero expiresAt never expires.
func CreateBase(eventType string, key int64, expiresAt time.Time) *Base {
	return &Base{
		id:        uuid.New(),
		eventType: eventType,
		key:       key,
		expireAt:  expiresAt,
	}
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Type() string {
	return b.eventType
}

func (b *Base) Key() int64 {
	return b.key
}

func (b *Base) Expired(now time.Time) bool {
	return !b.expireAt.IsZero() && now.After(b.expireAt)
}
