package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/notify"
	"github.com/campusmatch/campusmatch/internal/repository"
)

// MaxContentLen bounds message content length in characters.
const MaxContentLen = 2000

const defaultPageSize = 50
const maxPageSize = 100

// Service implements the chat channel over matches.
//
// A match's conversation is writable while the match is active and
// read-only once deactivated: sends are rejected, history and read
// receipts keep working.
type Service struct {
	appCtx      *app.AppContext
	matchRepo   *repository.MatchRepository
	messageRepo *repository.MessageRepository
	profileRepo *repository.ProfileRepository
}

// NewService creates the chat service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

// participantMatch loads the match and enforces that caller is one of its
// two profiles. Nonexistent conversations and foreign ones map straight
// to the error taxonomy.
func (s *Service) participantMatch(ctx context.Context, matchID, callerID uint64) (*db.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("conversation unavailable")
		}
		return nil, err
	}
	if !match.HasParticipant(callerID) {
		return nil, apperr.Authorization("not a participant of this conversation")
	}
	return match, nil
}

// SendMessage validates, persists and fans out a new message.
func (s *Service) SendMessage(ctx context.Context, matchID, senderID uint64, content string) (*db.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("message content is empty")
	}
	if len([]rune(content)) > MaxContentLen {
		return nil, apperr.Validation("message content too long")
	}

	match, err := s.participantMatch(ctx, matchID, senderID)
	if err != nil {
		return nil, err
	}
	if !match.IsActive {
		return nil, apperr.Conflict("conversation unavailable")
	}

	msg := &db.Message{
		MatchID:  matchID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Debug("message sent", "match", matchID, "sender", senderID, "id", msg.ID)

	s.appCtx.Notifier.Publish(ctx, match.OtherParticipant(senderID), notify.Event{
		Type:          notify.EventNewMessage,
		MatchID:       matchID,
		FromProfileID: senderID,
		Message: &notify.MessagePayload{
			ID:       msg.ID,
			MatchID:  msg.MatchID,
			SenderID: msg.SenderID,
			Content:  msg.Content,
			SentAt:   msg.SentAt,
		},
	})

	return msg, nil
}

// FetchMessages returns one page of the conversation, newest-first by
// default. Works on inactive matches; history stays readable after an
// unmatch. Inbound messages not yet delivered get their delivery stamp.
func (s *Service) FetchMessages(
	ctx context.Context,
	matchID, callerID uint64,
	paginationToken string,
	limit int,
	newestFirst bool,
) ([]db.Message, *string, error) {
	if _, err := s.participantMatch(ctx, matchID, callerID); err != nil {
		return nil, nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	messages, nextToken, err := s.messageRepo.ListByMatch(ctx, matchID, paginationToken, limit, newestFirst)
	if err != nil {
		return nil, nil, err
	}

	if err := s.messageRepo.MarkDelivered(ctx, matchID, callerID); err != nil {
		s.appCtx.Logger.Warn("mark delivered failed", "match", matchID, "err", err)
	}

	return messages, nextToken, nil
}

// MarkRead flags the caller's unread inbound messages and publishes a
// read receipt when anything changed. Idempotent.
func (s *Service) MarkRead(ctx context.Context, matchID, readerID uint64) (int64, error) {
	match, err := s.participantMatch(ctx, matchID, readerID)
	if err != nil {
		return 0, err
	}

	count, err := s.messageRepo.MarkRead(ctx, matchID, readerID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.appCtx.Notifier.Publish(ctx, match.OtherParticipant(readerID), notify.Event{
			Type:          notify.EventReadReceipt,
			MatchID:       matchID,
			FromProfileID: readerID,
			ReadCount:     count,
		})
	}
	return count, nil
}

// Typing relays a typing indicator to the other participant. Nothing is
// persisted; an inactive conversation relays nothing.
func (s *Service) Typing(ctx context.Context, matchID, actorID uint64) error {
	match, err := s.participantMatch(ctx, matchID, actorID)
	if err != nil {
		return err
	}
	if !match.IsActive {
		return apperr.Conflict("conversation unavailable")
	}
	s.appCtx.Notifier.Publish(ctx, match.OtherParticipant(actorID), notify.Event{
		Type:          notify.EventTyping,
		MatchID:       matchID,
		FromProfileID: actorID,
	})
	return nil
}

// Unmatch deactivates the match. The conversation flips to read-only.
func (s *Service) Unmatch(ctx context.Context, matchID, actorID uint64) error {
	match, err := s.participantMatch(ctx, matchID, actorID)
	if err != nil {
		return err
	}
	if !match.IsActive {
		return nil // already inactive, nothing to do
	}
	return s.matchRepo.Deactivate(ctx, nil, matchID)
}

// MatchView is one entry of the caller's conversation list.
type MatchView struct {
	MatchID        uint64     `json:"match_id"`
	OtherProfileID uint64     `json:"other_profile_id"`
	OtherName      string     `json:"other_name"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessage    *string    `json:"last_message,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	UnreadCount    int64      `json:"unread_count"`
}

// ListMatches returns the caller's matches with conversation summaries,
// most recent first. Inactive matches are listed so their history stays
// reachable.
func (s *Service) ListMatches(ctx context.Context, callerID uint64) ([]MatchView, error) {
	matches, err := s.matchRepo.ListForProfile(ctx, callerID)
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		other := m.OtherParticipant(callerID)
		view := MatchView{
			MatchID:        m.ID,
			OtherProfileID: other,
			IsActive:       m.IsActive,
			CreatedAt:      m.CreatedAt,
		}
		if p, err := s.profileRepo.GetByID(ctx, other); err == nil {
			view.OtherName = p.Name
		}
		if last, err := s.messageRepo.Latest(ctx, m.ID); err == nil && last != nil {
			view.LastMessage = &last.Content
			view.LastMessageAt = &last.SentAt
		}
		if unread, err := s.messageRepo.CountUnread(ctx, m.ID, callerID); err == nil {
			view.UnreadCount = unread
		}
		views = append(views, view)
	}
	return views, nil
}
