// Package notify is the publish side of the real-time bridge. Events are
// best-effort and at-most-once: a publish failure is logged, never
// surfaced to the caller, and never rolls back the persistence change
// that triggered it. The durable source of truth stays in the database.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/campusmatch/campusmatch/internal/cache"
)

type EventType string

const (
	EventNewMatch    EventType = "new_match"
	EventNewMessage  EventType = "new_message"
	EventTyping      EventType = "typing"
	EventReadReceipt EventType = "read_receipt"
)

// Event is the JSON payload fanned out to a single user's channel.
type Event struct {
	Type          EventType       `json:"type"`
	MatchID       uint64          `json:"match_id,omitempty"`
	FromProfileID uint64          `json:"from_profile_id,omitempty"`
	Message       *MessagePayload `json:"message,omitempty"`
	ReadCount     int64           `json:"read_count,omitempty"`
	At            time.Time       `json:"at"`
}

// MessagePayload mirrors the persisted message for new_message events.
type MessagePayload struct {
	ID       uint64    `json:"id"`
	MatchID  uint64    `json:"match_id"`
	SenderID uint64    `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

// Notifier fans events out to a user's real-time channel.
type Notifier interface {
	Publish(ctx context.Context, profileID uint64, ev Event)
}

// RedisNotifier publishes events on the per-user Redis pub/sub channel
// that the websocket layer subscribes to.
type RedisNotifier struct {
	cache *cache.RedisCache
	log   *slog.Logger
}

func NewRedisNotifier(c *cache.RedisCache, log *slog.Logger) *RedisNotifier {
	return &RedisNotifier{cache: c, log: log}
}

func (n *RedisNotifier) Publish(ctx context.Context, profileID uint64, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error("failed to marshal event", "type", ev.Type, "err", err)
		return
	}
	channel := n.cache.ChannelForUser(profileID)
	if err := n.cache.Publish(ctx, channel, payload); err != nil {
		n.log.Warn("event publish failed", "channel", channel, "type", ev.Type, "err", err)
	}
}

// Nop discards every event. Used where no real-time transport is wired.
type Nop struct{}

func (Nop) Publish(context.Context, uint64, Event) {}
