package profile

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/repository"
)

// Service implements the profile store surface plus block management.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	matchRepo   *repository.MatchRepository
	blockRepo   *repository.BlockRepository
}

// NewService creates the profile service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		blockRepo:   repository.NewBlockRepository(appCtx.DB),
	}
}

// View is the externally visible projection of a profile. Moderation
// flags and credentials never leave the service.
type View struct {
	ProfileID       uint64   `json:"profile_id"`
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Bio             string   `json:"bio,omitempty"`
	Major           string   `json:"major,omitempty"`
	Year            int      `json:"year,omitempty"`
	University      string   `json:"university,omitempty"`
	Gender          string   `json:"gender"`
	PreferredGender string   `json:"preferred_gender,omitempty"`
	Photos          []string `json:"photos,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	Prompts         []Prompt `json:"prompts,omitempty"`
}

type Prompt struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// Get returns a profile view. Banned or hidden profiles are visible only
// to their owner; everyone else gets not-found. Blocked profiles are
// likewise invisible to each other.
func (s *Service) Get(ctx context.Context, viewerID, profileID uint64) (*View, error) {
	p, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("profile not found")
		}
		return nil, err
	}

	if viewerID != profileID {
		if p.Banned || p.Hidden {
			return nil, apperr.NotFound("profile not found")
		}
		blocked, err := s.blockRepo.IsBlockedEither(ctx, viewerID, profileID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperr.NotFound("profile not found")
		}
	}

	return toView(p), nil
}

// UpdateRequest carries the owner-mutable attributes.
type UpdateRequest struct {
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Bio             string   `json:"bio"`
	Major           string   `json:"major"`
	Year            int      `json:"year"`
	University      string   `json:"university"`
	Gender          string   `json:"gender"`
	PreferredGender string   `json:"preferred_gender"`
	Photos          []string `json:"photos"`
	Interests       []string `json:"interests"`
	Prompts         []Prompt `json:"prompts"`
}

// UpdateOwn replaces the caller's display attributes and child records.
func (s *Service) UpdateOwn(ctx context.Context, ownerID uint64, req UpdateRequest) (*View, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if req.Age < 18 || req.Age > 120 {
		return nil, apperr.Validation("age is out of range")
	}

	if _, err := s.profileRepo.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("profile not found")
		}
		return nil, err
	}

	p := &db.Profile{
		ID:              ownerID,
		Name:            req.Name,
		Age:             req.Age,
		Bio:             req.Bio,
		Major:           req.Major,
		Year:            req.Year,
		University:      req.University,
		Gender:          req.Gender,
		PreferredGender: req.PreferredGender,
	}
	for i, url := range req.Photos {
		p.Photos = append(p.Photos, db.Photo{URL: url, Position: i})
	}
	for _, tag := range req.Interests {
		p.Interests = append(p.Interests, db.Interest{Tag: tag})
	}
	for _, pr := range req.Prompts {
		p.PromptAnswers = append(p.PromptAnswers, db.PromptAnswer{Prompt: pr.Prompt, Answer: pr.Answer})
	}

	if err := s.profileRepo.UpdateOwn(ctx, p); err != nil {
		return nil, err
	}

	updated, err := s.profileRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toView(updated), nil
}

// Block records blocker -> blocked and deactivates any match between the
// two. A block in either direction keeps the pair out of each other's
// feed and prevents new matches.
func (s *Service) Block(ctx context.Context, blockerID, blockedID uint64) error {
	if blockerID == blockedID {
		return apperr.Validation("cannot block yourself")
	}
	if _, err := s.profileRepo.GetByID(ctx, blockedID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("profile not found")
		}
		return err
	}

	if err := s.blockRepo.Create(ctx, blockerID, blockedID); err != nil {
		return err
	}
	if err := s.matchRepo.DeactivateByPair(ctx, blockerID, blockedID); err != nil {
		s.appCtx.Logger.Warn("match deactivation on block failed", "blocker", blockerID, "blocked", blockedID, "err", err)
	}
	return nil
}

// SetHidden toggles the caller's feed visibility. A hidden profile drops
// out of discovery and reads as not-found to strangers; existing matches
// and conversations are untouched.
func (s *Service) SetHidden(ctx context.Context, ownerID uint64, hidden bool) error {
	p, err := s.profileRepo.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("profile not found")
		}
		return err
	}
	if p.Hidden == hidden {
		return nil
	}
	return s.profileRepo.SetModeration(ctx, ownerID, p.Banned, hidden)
}

// Unblock removes the caller's block. Removing a nonexistent block is a
// no-op. The deactivated match stays inactive.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID uint64) error {
	return s.blockRepo.Delete(ctx, blockerID, blockedID)
}

func toView(p *db.Profile) *View {
	v := &View{
		ProfileID:       p.ID,
		Name:            p.Name,
		Age:             p.Age,
		Bio:             p.Bio,
		Major:           p.Major,
		Year:            p.Year,
		University:      p.University,
		Gender:          p.Gender,
		PreferredGender: p.PreferredGender,
	}
	for _, photo := range p.Photos {
		v.Photos = append(v.Photos, photo.URL)
	}
	for _, interest := range p.Interests {
		v.Interests = append(v.Interests, interest.Tag)
	}
	for _, pa := range p.PromptAnswers {
		v.Prompts = append(v.Prompts, Prompt{Prompt: pa.Prompt, Answer: pa.Answer})
	}
	return v
}
