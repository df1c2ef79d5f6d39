package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/utils/pagination"
)

// SwipeRepository provides data access methods for the SwipeDecision model.
// It encapsulates all queries related to likes/passes between profiles.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Upsert inserts or updates the decision actor -> target.
//
// Behavior:
//   - If the (actor_id, target_id) pair exists, the row is updated with
//     the new liked/super_liked values (overwrite, never duplicate).
//   - Otherwise a new row is inserted.
//
// Runs on the given tx when non-nil so the swipe write and match creation
// can commit atomically together.
func (r *SwipeRepository) Upsert(
	ctx context.Context,
	tx *gorm.DB,
	actorID, targetID uint64,
	liked, superLiked bool,
) error {
	if tx == nil {
		tx = r.db
	}
	decision := db.SwipeDecision{
		ActorID:    actorID,
		TargetID:   targetID,
		Liked:      liked,
		SuperLiked: superLiked,
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "super_liked", "updated_at"}),
		}).
		Create(&decision).Error
}

// Get returns the stored decision for the ordered pair, nil if none.
func (r *SwipeRepository) Get(ctx context.Context, actorID, targetID uint64) (*db.SwipeDecision, error) {
	var d db.SwipeDecision
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HasLiked checks whether actor has a stored like toward target.
// Used inside the mutual-like check on match detection.
func (r *SwipeRepository) HasLiked(ctx context.Context, tx *gorm.DB, actorID, targetID uint64) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&db.SwipeDecision{}).
		Where("actor_id = ? AND target_id = ? AND liked = true", actorID, targetID).
		Count(&count).Error
	return count > 0, err
}

// LatestByActor returns the actor's most recently created decision,
// nil if the actor has never swiped. Backs the rewind feature.
func (r *SwipeRepository) LatestByActor(ctx context.Context, actorID uint64) (*db.SwipeDecision, error) {
	var d db.SwipeDecision
	err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC, target_id DESC").
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes the decision for the ordered pair. Runs on tx when non-nil.
func (r *SwipeRepository) Delete(ctx context.Context, tx *gorm.DB, actorID, targetID uint64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		Delete(&db.SwipeDecision{}).Error
}

// GetLikers returns profiles who liked the given target.
//
// Behavior:
//   - Only decisions with liked = true toward target are returned.
//   - Excludes actors the target explicitly passed on.
//   - Ordered by updated_at DESC, actor_id DESC with cursor pagination.
func (r *SwipeRepository) GetLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken string,
	limit int,
) ([]db.SwipeDecision, *string, error) {
	var decisions []db.SwipeDecision

	cursor, err := pagination.Decode(paginationToken)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("swipe_decisions d").
		Where("d.target_id = ? AND d.liked = true", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipe_decisions d2
				WHERE d2.actor_id = ?
				  AND d2.target_id = d.actor_id
				  AND d2.liked = false
			)`, targetID).
		Order("d.updated_at DESC, d.actor_id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.Unix > 0 {
		ts := time.UnixMilli(cursor.Unix)
		query = query.Where(
			"(d.updated_at < ? OR (d.updated_at = ? AND d.actor_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:   last.ActorID,
			Unix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// CountLikers returns how many profiles liked the given target, with the
// same exclusions as GetLikers. The Redis cache fronts this query.
func (r *SwipeRepository) CountLikers(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipe_decisions d").
		Where("d.target_id = ? AND d.liked = true", targetID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipe_decisions d2
				WHERE d2.actor_id = ?
				  AND d2.target_id = d.actor_id
				  AND d2.liked = false
			)`, targetID).
		Count(&count).Error
	return count, err
}
