package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/utils/pagination"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists a new message. SentAt and IsRead take their defaults.
func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListByMatch returns one page of a match's messages.
//
// Behavior:
//   - newestFirst orders by (sent_at DESC, id DESC); otherwise ascending.
//   - Cursor pagination: the token carries the last row's (id, sent_at).
//   - Fetches limit+1 rows to decide whether a next page exists.
func (r *MessageRepository) ListByMatch(
	ctx context.Context,
	matchID uint64,
	paginationToken string,
	limit int,
	newestFirst bool,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(paginationToken)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Limit(limit + 1)

	if newestFirst {
		query = query.Order("sent_at DESC, id DESC")
		if cursor.ID > 0 && cursor.Unix > 0 {
			ts := time.UnixMilli(cursor.Unix)
			query = query.Where("(sent_at < ? OR (sent_at = ? AND id < ?))", ts, ts, cursor.ID)
		}
	} else {
		query = query.Order("sent_at ASC, id ASC")
		if cursor.ID > 0 && cursor.Unix > 0 {
			ts := time.UnixMilli(cursor.Unix)
			query = query.Where("(sent_at > ? OR (sent_at = ? AND id > ?))", ts, ts, cursor.ID)
		}
	}

	var messages []db.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:   last.ID,
			Unix: last.SentAt.UnixMilli(),
		})
		nextToken = &token
		messages = messages[:limit]
	}

	return messages, nextToken, nil
}

// MarkDelivered stamps delivered_at on the recipient's undelivered inbound
// messages. Called when the recipient fetches the conversation.
func (r *MessageRepository) MarkDelivered(ctx context.Context, matchID, recipientID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND delivered_at IS NULL", matchID, recipientID).
		Update("delivered_at", time.Now().UTC()).Error
}

// MarkRead flags every unread message in the match not sent by reader and
// returns how many rows changed. Idempotent: a second call with no new
// messages in between updates zero rows.
func (r *MessageRepository) MarkRead(ctx context.Context, matchID, readerID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = false", matchID, readerID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CountUnread returns the number of unread messages addressed to readerID.
func (r *MessageRepository) CountUnread(ctx context.Context, matchID, readerID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = false", matchID, readerID).
		Count(&count).Error
	return count, err
}

// Latest returns the newest message in the match, nil if the conversation
// is empty.
func (r *MessageRepository) Latest(ctx context.Context, matchID uint64) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("sent_at DESC, id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
