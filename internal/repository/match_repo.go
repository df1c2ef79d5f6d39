package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusmatch/campusmatch/internal/db"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// GetByID loads a match by primary key.
func (r *MatchRepository) GetByID(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByPair returns the match row for the unordered pair, nil if none.
func (r *MatchRepository) GetByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	low, high := db.NormalizePair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("profile_a_id = ? AND profile_b_id = ?", low, high).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateOrReactivate makes the match for the unordered pair exist and be
// active, idempotently.
//
// The insert uses ON CONFLICT DO NOTHING against the unique (low, high)
// index, so two near-simultaneous mutual likes collapse to one row: the
// second writer's insert affects zero rows and falls through to the
// re-read. An existing inactive row (pair re-liked after a rewind) is
// flipped back to active.
//
// Returns the row and whether this call created it. Runs on tx when
// non-nil so it can commit atomically with the triggering swipe write.
func (r *MatchRepository) CreateOrReactivate(
	ctx context.Context,
	tx *gorm.DB,
	a, b uint64,
) (*db.Match, bool, error) {
	if tx == nil {
		tx = r.db
	}
	low, high := db.NormalizePair(a, b)

	m := db.Match{ProfileAID: low, ProfileBID: high, IsActive: true}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &m, true, nil
	}

	// Lost the race or the pair matched before: fetch the existing row.
	// Under REPEATABLE READ a plain read could miss a row the winning
	// transaction committed after our snapshot; a locking read sees it.
	// SQLite has no row locks and needs none (single writer).
	query := tx.WithContext(ctx).
		Where("profile_a_id = ? AND profile_b_id = ?", low, high)
	if tx.Dialector.Name() == "mysql" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var existing db.Match
	if err := query.First(&existing).Error; err != nil {
		return nil, false, err
	}
	if !existing.IsActive {
		err := tx.WithContext(ctx).
			Model(&db.Match{}).
			Where("id = ?", existing.ID).
			Update("is_active", true).Error
		if err != nil {
			return nil, false, err
		}
		existing.IsActive = true
	}
	return &existing, false, nil
}

// Deactivate flips the match to inactive. Unmatch never deletes;
// message history stays readable.
func (r *MatchRepository) Deactivate(ctx context.Context, tx *gorm.DB, id uint64) error {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeactivateByPair deactivates the match for the unordered pair if one
// exists. Used when a block lands between two matched profiles.
func (r *MatchRepository) DeactivateByPair(ctx context.Context, a, b uint64) error {
	low, high := db.NormalizePair(a, b)
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("profile_a_id = ? AND profile_b_id = ?", low, high).
		Update("is_active", false).Error
}

// ListForProfile returns the profile's matches, most recent first.
// Inactive matches are included so conversation history stays reachable.
func (r *MatchRepository) ListForProfile(ctx context.Context, profileID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("profile_a_id = ? OR profile_b_id = ?", profileID, profileID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
