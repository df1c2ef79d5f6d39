package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusmatch/campusmatch/internal/db"
)

// BlockRepository provides data access methods for the BlockRelation model.
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new repository bound to the given DB connection.
func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create records blocker -> blocked. Re-blocking an already blocked
// profile is a no-op.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID uint64) error {
	rel := db.BlockRelation{BlockerID: blockerID, BlockedID: blockedID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rel).Error
}

// Delete removes the blocker -> blocked relation if present.
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID uint64) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&db.BlockRelation{}).Error
}

// IsBlockedEither reports whether a block exists between the two profiles
// in either direction. Consumed by Discovery and the match detector.
func (r *BlockRepository) IsBlockedEither(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.BlockRelation{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
