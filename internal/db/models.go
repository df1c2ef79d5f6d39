package db

import (
	"time"
)

// Profile table. Profiles are never hard-deleted; moderation flips
// Banned/Hidden instead.
type Profile struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Name            string `gorm:"size:64;not null"`
	Age             int    `gorm:"not null;index"`
	Bio             string `gorm:"size:500"`
	Major           string `gorm:"size:64;index"`
	Year            int    `gorm:"index"`
	University      string `gorm:"size:128"`
	Gender          string `gorm:"size:16;not null"`
	PreferredGender string `gorm:"size:16"`
	PasswordHash    string `gorm:"size:255;not null"`
	Premium         bool   `gorm:"default:false"`
	Banned          bool   `gorm:"default:false"`
	Hidden          bool   `gorm:"default:false"`
	LastActiveAt    time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`

	Photos        []Photo        `gorm:"constraint:OnDelete:CASCADE"`
	Interests     []Interest     `gorm:"constraint:OnDelete:CASCADE"`
	PromptAnswers []PromptAnswer `gorm:"constraint:OnDelete:CASCADE"`
}

// Photo is an ordered media reference owned by a Profile.
type Photo struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProfileID uint64 `gorm:"index;not null"`
	URL       string `gorm:"size:512;not null"`
	Position  int    `gorm:"not null"`
}

type Interest struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProfileID uint64 `gorm:"index;not null"`
	Tag       string `gorm:"size:64;not null"`
}

type PromptAnswer struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProfileID uint64 `gorm:"index;not null"`
	Prompt    string `gorm:"size:255;not null"`
	Answer    string `gorm:"size:500;not null"`
}

// SwipeDecision represents an actor's like/pass decision on a target.
//
// Composite PK: (ActorID, TargetID)
//   - Ensures a single row per ordered pair (overwrite guarantee).
//
// Indexes:
//   - idx_target_liked(target_id, liked) for O(1) reverse-like lookups.
//   - idx_actor_created(actor_id, created_at DESC) for rewind ("most
//     recent decision by actor") and liked-you listings.
type SwipeDecision struct {
	ActorID    uint64    `gorm:"primaryKey;index:idx_actor_created,priority:1"`
	TargetID   uint64    `gorm:"primaryKey;index:idx_target_liked,priority:1"`
	Liked      bool      `gorm:"not null;type:tinyint(1);index:idx_target_liked,priority:2"`
	SuperLiked bool      `gorm:"not null;type:tinyint(1);default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_actor_created,priority:2,sort:desc"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Match links two profiles after a mutual like.
//
// The pair is stored normalized (ProfileAID < ProfileBID) with a unique
// index on it, so a concurrent double-insert for the same pair collapses
// to one row. Unmatch flips IsActive rather than deleting.
type Match struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ProfileAID uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1;index"`
	ProfileBID uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	IsActive   bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// HasParticipant reports whether id is one of the two matched profiles.
func (m *Match) HasParticipant(id uint64) bool {
	return m.ProfileAID == id || m.ProfileBID == id
}

// OtherParticipant returns the counterpart of id in the pair.
func (m *Match) OtherParticipant(id uint64) uint64 {
	if m.ProfileAID == id {
		return m.ProfileBID
	}
	return m.ProfileAID
}

// NormalizePair orders two profile ids as (low, high) for Match storage.
func NormalizePair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Message belongs to exactly one Match; the sender must be a participant.
//
// Index idx_match_sent(match_id, sent_at DESC, id DESC) backs newest-first
// cursor pagination.
type Message struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement;index:idx_match_sent,priority:3,sort:desc"`
	MatchID     uint64     `gorm:"not null;index:idx_match_sent,priority:1"`
	SenderID    uint64     `gorm:"not null;index"`
	Content     string     `gorm:"size:2000;not null"`
	SentAt      time.Time  `gorm:"autoCreateTime;index:idx_match_sent,priority:2,sort:desc"`
	DeliveredAt *time.Time `gorm:""`
	ReadAt      *time.Time `gorm:""`
	IsRead      bool       `gorm:"not null;default:false;index"`
}

// BlockRelation is an ordered (blocker, blocked) pair. Either direction
// excludes the two profiles from each other's feed and from matching.
type BlockRelation struct {
	BlockerID uint64    `gorm:"primaryKey"`
	BlockedID uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
