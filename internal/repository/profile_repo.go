package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/db"
)

// ProfileRepository provides data access methods for the Profile model and
// its owned children (photos, interests, prompt answers).
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// CandidateFilter is the Discovery Feed filter criteria. MinAge/MaxAge are
// mandatory; the categorical fields are optional (zero value = no filter).
type CandidateFilter struct {
	MinAge int
	MaxAge int
	Gender string
	Year   int
	Major  string
}

// GetByID loads a profile with its children.
func (r *ProfileRepository) GetByID(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).
		Preload("Photos", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Interests").
		Preload("PromptAnswers").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ExistsVisible reports whether the profile exists and is neither banned
// nor hidden.
func (r *ProfileRepository) ExistsVisible(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ? AND banned = ? AND hidden = ?", id, false, false).
		Count(&count).Error
	return count > 0, err
}

// FindCandidates returns up to limit discovery candidates for requester.
//
// Behavior:
//   - Excludes the requester, banned/hidden profiles, profiles the
//     requester has already swiped on, and profiles blocked in either
//     direction.
//   - Applies the age range and any supplied categorical filters.
//   - Order is randomized per request; there is no stable pagination.
func (r *ProfileRepository) FindCandidates(
	ctx context.Context,
	requesterID uint64,
	filter CandidateFilter,
	limit int,
) ([]db.Profile, error) {
	query := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id <> ?", requesterID).
		Where("banned = ? AND hidden = ?", false, false).
		Where("age BETWEEN ? AND ?", filter.MinAge, filter.MaxAge).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipe_decisions sd
				WHERE sd.actor_id = ?
				  AND sd.target_id = profiles.id
			)`, requesterID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM block_relations b
				WHERE (b.blocker_id = ? AND b.blocked_id = profiles.id)
				   OR (b.blocker_id = profiles.id AND b.blocked_id = ?)
			)`, requesterID, requesterID)

	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.Year > 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Major != "" {
		query = query.Where("major = ?", filter.Major)
	}

	// RAND() is MySQL, RANDOM() everywhere else we run (sqlite in tests).
	order := "RAND()"
	if r.db.Dialector.Name() != "mysql" {
		order = "RANDOM()"
	}

	var profiles []db.Profile
	err := query.
		Order(order).
		Limit(limit).
		Preload("Photos", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Interests").
		Find(&profiles).Error
	return profiles, err
}

// UpdateOwn replaces the profile's display attributes and child records in
// one transaction. Children are replaced wholesale; moderation flags and
// the premium flag are deliberately untouched here.
func (r *ProfileRepository) UpdateOwn(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&db.Profile{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"name":             p.Name,
				"age":              p.Age,
				"bio":              p.Bio,
				"major":            p.Major,
				"year":             p.Year,
				"university":       p.University,
				"gender":           p.Gender,
				"preferred_gender": p.PreferredGender,
			}).Error
		if err != nil {
			return err
		}

		for _, del := range []interface{}{&db.Photo{}, &db.Interest{}, &db.PromptAnswer{}} {
			if err := tx.Where("profile_id = ?", p.ID).Delete(del).Error; err != nil {
				return err
			}
		}
		if len(p.Photos) > 0 {
			for i := range p.Photos {
				p.Photos[i].ID = 0
				p.Photos[i].ProfileID = p.ID
			}
			if err := tx.Create(&p.Photos).Error; err != nil {
				return err
			}
		}
		if len(p.Interests) > 0 {
			for i := range p.Interests {
				p.Interests[i].ID = 0
				p.Interests[i].ProfileID = p.ID
			}
			if err := tx.Create(&p.Interests).Error; err != nil {
				return err
			}
		}
		if len(p.PromptAnswers) > 0 {
			for i := range p.PromptAnswers {
				p.PromptAnswers[i].ID = 0
				p.PromptAnswers[i].ProfileID = p.ID
			}
			if err := tx.Create(&p.PromptAnswers).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetModeration flips the banned/hidden flags. Profiles are soft-deactivated,
// never deleted.
func (r *ProfileRepository) SetModeration(ctx context.Context, id uint64, banned, hidden bool) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"banned": banned, "hidden": hidden})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLastActive records profile activity.
func (r *ProfileRepository) TouchLastActive(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", id).
		Update("last_active_at", time.Now().UTC()).Error
}
