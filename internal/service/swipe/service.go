package swipe

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/cache"
	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/notify"
	"github.com/campusmatch/campusmatch/internal/repository"
)

// Service implements the swipe recorder and the match detector.
//
// The two are deliberately one unit: a "liked" decision and the match it
// may produce commit in the same transaction, so no client ever observes
// the like without its match. Notification fan-out happens after commit
// and is best-effort.
type Service struct {
	appCtx      *app.AppContext
	swipeRepo   *repository.SwipeRepository
	matchRepo   *repository.MatchRepository
	profileRepo *repository.ProfileRepository
	blockRepo   *repository.BlockRepository
}

// NewService creates the swipe service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		swipeRepo:   repository.NewSwipeRepository(appCtx.DB),
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		blockRepo:   repository.NewBlockRepository(appCtx.DB),
	}
}

// MatchSummary is what the client needs to open the new conversation.
type MatchSummary struct {
	MatchID        uint64    `json:"match_id"`
	OtherProfileID uint64    `json:"other_profile_id"`
	OtherName      string    `json:"other_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// SwipeResult reports the outcome of a recorded decision.
// RemainingSwipes is -1 for premium (unlimited) actors.
type SwipeResult struct {
	IsMatch         bool          `json:"is_match"`
	Match           *MatchSummary `json:"match,omitempty"`
	RemainingSwipes int           `json:"remaining_swipes"`
}

// RewindResult reports the outcome of an undo attempt. Undone=false with
// a reason is the "nothing to undo" case; it is not an error.
type RewindResult struct {
	Undone   bool   `json:"undone"`
	Reason   string `json:"reason,omitempty"`
	TargetID uint64 `json:"target_id,omitempty"`
}

// RecordSwipe stores the actor's decision on target and synchronously
// runs match detection when the decision is a like.
//
// Constraints enforced, in order:
//   - actor != target
//   - target exists and is visible (not banned/hidden)
//   - no block in either direction
//   - daily allowance for non-premium actors, checked BEFORE any write;
//     repeat decisions on the same target do not burn allowance
//
// The decision upsert and any match creation commit in one transaction.
func (s *Service) RecordSwipe(
	ctx context.Context,
	actorID, targetID uint64,
	liked, superLiked bool,
) (*SwipeResult, error) {
	log := s.appCtx.Logger
	log.Debug("record swipe", "actor", actorID, "target", targetID, "liked", liked, "super", superLiked)

	if actorID == targetID {
		return nil, apperr.Validation("cannot swipe on yourself")
	}

	visible, err := s.profileRepo.ExistsVisible(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperr.NotFound("profile unavailable")
	}

	blocked, err := s.blockRepo.IsBlockedEither(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperr.NotFound("profile unavailable")
	}

	actor, err := s.profileRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authorization("unknown actor")
		}
		return nil, err
	}

	existing, err := s.swipeRepo.Get(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	// Fresh swipes reserve their allowance slot with an atomic INCR
	// before any write; two racing swipes at the limit cannot both pass.
	// The slot is given back if the reservation overshot or the
	// transaction fails.
	remaining := -1
	var quotaKey string
	freshReserved := false
	if !actor.Premium {
		limit := int64(s.appCtx.Cfg.Quota.DailySwipes)
		now := time.Now()
		quotaKey = s.appCtx.RedisCache.KeyForSwipeQuota(actorID, now)
		if existing == nil {
			n, err := s.appCtx.RedisCache.IncrDaily(ctx, quotaKey, now)
			if err != nil {
				return nil, err
			}
			if n > limit {
				_ = s.appCtx.RedisCache.DecrCounter(ctx, quotaKey)
				return nil, apperr.RateLimited("daily swipe allowance exhausted", 0, cache.EndOfDay(now))
			}
			freshReserved = true
			remaining = int(limit - n)
		} else {
			used, err := s.appCtx.RedisCache.GetCounter(ctx, quotaKey)
			if err != nil {
				return nil, err
			}
			remaining = int(limit - used)
			if remaining < 0 {
				remaining = 0
			}
		}
	}

	var (
		match   *db.Match
		matched bool
	)
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.swipeRepo.Upsert(ctx, tx, actorID, targetID, liked, superLiked); err != nil {
			return err
		}
		if !liked {
			return nil
		}
		reverse, err := s.swipeRepo.HasLiked(ctx, tx, targetID, actorID)
		if err != nil {
			return err
		}
		if !reverse {
			return nil
		}
		m, _, err := s.matchRepo.CreateOrReactivate(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		match = m
		matched = true
		return nil
	})
	if err != nil {
		if freshReserved {
			_ = s.appCtx.RedisCache.DecrCounter(ctx, quotaKey)
		}
		return nil, err
	}

	// Post-commit bookkeeping, all best-effort.
	s.bumpLikeCount(ctx, targetID, existing, liked)
	_ = s.profileRepo.TouchLastActive(ctx, actorID)

	result := &SwipeResult{IsMatch: matched, RemainingSwipes: remaining}
	if matched {
		result.Match = s.summarize(ctx, match, actorID)
		s.fanOutNewMatch(ctx, match)
	}
	return result, nil
}

// UndoLastSwipe deletes the actor's most recent decision and deactivates
// a match it produced. Nothing to undo reports Undone=false, not an
// error; an exhausted rewind allowance is a rate-limit rejection.
func (s *Service) UndoLastSwipe(ctx context.Context, actorID uint64) (*RewindResult, error) {
	latest, err := s.swipeRepo.LatestByActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return &RewindResult{Undone: false, Reason: "nothing to undo"}, nil
	}

	actor, err := s.profileRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	limit := int64(s.appCtx.Cfg.Quota.DailyRewinds)
	if actor.Premium {
		limit = int64(s.appCtx.Cfg.Quota.DailyRewindsPremium)
	}
	now := time.Now()
	key := s.appCtx.RedisCache.KeyForRewindQuota(actorID, now)
	n, err := s.appCtx.RedisCache.IncrDaily(ctx, key, now)
	if err != nil {
		return nil, err
	}
	if n > limit {
		_ = s.appCtx.RedisCache.DecrCounter(ctx, key)
		return nil, apperr.RateLimited("daily rewind allowance exhausted", 0, cache.EndOfDay(now))
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.swipeRepo.Delete(ctx, tx, latest.ActorID, latest.TargetID); err != nil {
			return err
		}
		if !latest.Liked {
			return nil
		}
		// Removing a like breaks the mutual pair, so any active match
		// for it must come down with the decision.
		match, err := s.matchRepo.GetByPair(ctx, latest.ActorID, latest.TargetID)
		if err != nil {
			return err
		}
		if match != nil && match.IsActive {
			return s.matchRepo.Deactivate(ctx, tx, match.ID)
		}
		return nil
	})
	if err != nil {
		_ = s.appCtx.RedisCache.DecrCounter(ctx, key)
		return nil, err
	}

	if latest.Liked {
		s.appCtx.RedisCache.BumpLikeCount(ctx, latest.TargetID, -1)
	}

	return &RewindResult{Undone: true, TargetID: latest.TargetID}, nil
}

func (s *Service) bumpLikeCount(ctx context.Context, targetID uint64, existing *db.SwipeDecision, liked bool) {
	switch {
	case existing == nil && liked:
		s.appCtx.RedisCache.BumpLikeCount(ctx, targetID, 1)
	case existing != nil && existing.Liked && !liked:
		s.appCtx.RedisCache.BumpLikeCount(ctx, targetID, -1)
	case existing != nil && !existing.Liked && liked:
		s.appCtx.RedisCache.BumpLikeCount(ctx, targetID, 1)
	}
}

func (s *Service) summarize(ctx context.Context, match *db.Match, viewerID uint64) *MatchSummary {
	other := match.OtherParticipant(viewerID)
	summary := &MatchSummary{
		MatchID:        match.ID,
		OtherProfileID: other,
		CreatedAt:      match.CreatedAt,
	}
	if p, err := s.profileRepo.GetByID(ctx, other); err == nil {
		summary.OtherName = p.Name
	}
	return summary
}

// fanOutNewMatch schedules one event per participant. Delivery failures
// are logged inside the notifier and never affect the committed match.
func (s *Service) fanOutNewMatch(ctx context.Context, match *db.Match) {
	for _, pid := range []uint64{match.ProfileAID, match.ProfileBID} {
		s.appCtx.Notifier.Publish(ctx, pid, notify.Event{
			Type:          notify.EventNewMatch,
			MatchID:       match.ID,
			FromProfileID: match.OtherParticipant(pid),
		})
	}
}
