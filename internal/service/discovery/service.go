package discovery

import (
	"context"
	"strconv"
	"time"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/repository"
)

const defaultPageSize = 20
const maxPageSize = 50

// Service implements the discovery feed and the liked-you surfaces.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	swipeRepo   *repository.SwipeRepository
}

// NewService creates the discovery service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		swipeRepo:   repository.NewSwipeRepository(appCtx.DB),
	}
}

// Candidate is one discovery feed entry.
type Candidate struct {
	ProfileID uint64   `json:"profile_id"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Bio       string   `json:"bio,omitempty"`
	Major     string   `json:"major,omitempty"`
	Year      int      `json:"year,omitempty"`
	Photos    []string `json:"photos,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// Feed returns a randomized page of not-yet-swiped, not-blocked, visible
// candidates for the requester. An unknown requester gets an empty page,
// not an error. Repeated calls may reorder; there is no stable pagination.
func (s *Service) Feed(
	ctx context.Context,
	requesterID uint64,
	filter repository.CandidateFilter,
	limit int,
) ([]Candidate, error) {
	if filter.MinAge <= 0 || filter.MaxAge <= 0 || filter.MinAge > filter.MaxAge {
		return nil, apperr.Validation("age range is invalid")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	// The exclusion rules are all relative to the requester, so an unknown
	// requester would see everything. Empty page instead.
	known, err := s.profileRepo.ExistsVisible(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !known {
		return []Candidate{}, nil
	}

	profiles, err := s.profileRepo.FindCandidates(ctx, requesterID, filter, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(profiles))
	for _, p := range profiles {
		candidates = append(candidates, toCandidate(p))
	}
	return candidates, nil
}

// Liker is one liked-you entry. Super-likes are surfaced specially.
type Liker struct {
	ProfileID  uint64    `json:"profile_id"`
	SuperLiked bool      `json:"super_liked"`
	LikedAt    time.Time `json:"liked_at"`
}

// ListLikedYou returns profiles who liked the caller, excluding anyone
// the caller already passed on, with cursor pagination.
func (s *Service) ListLikedYou(ctx context.Context, callerID uint64, paginationToken string) ([]Liker, *string, error) {
	decisions, nextToken, err := s.swipeRepo.GetLikers(ctx, callerID, paginationToken, defaultPageSize)
	if err != nil {
		return nil, nil, err
	}

	likers := make([]Liker, 0, len(decisions))
	for _, d := range decisions {
		likers = append(likers, Liker{
			ProfileID:  d.ActorID,
			SuperLiked: d.SuperLiked,
			LikedAt:    d.UpdatedAt,
		})
	}
	return likers, nextToken, nil
}

// CountLikedYou returns how many profiles liked the caller.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:<id>).
//  2. On miss, falls back to the DB count.
//  3. Stores the DB result with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, callerID uint64) (int64, error) {
	if cached, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, callerID); err == nil && ok {
		return cached, nil
	}

	count, err := s.swipeRepo.CountLikers(ctx, callerID)
	if err != nil {
		return 0, err
	}
	if err := s.appCtx.RedisCache.SetLikeCount(ctx, callerID, count); err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "profile", callerID, "err", err)
	}
	return count, nil
}

func toCandidate(p db.Profile) Candidate {
	c := Candidate{
		ProfileID: p.ID,
		Name:      p.Name,
		Age:       p.Age,
		Bio:       p.Bio,
		Major:     p.Major,
		Year:      p.Year,
	}
	for _, photo := range p.Photos {
		c.Photos = append(c.Photos, photo.URL)
	}
	for _, interest := range p.Interests {
		c.Interests = append(c.Interests, interest.Tag)
	}
	return c
}

// parseFilter reads the feed query parameters; exported via the handler.
func parseFilter(minAge, maxAge, gender, year, major string) (repository.CandidateFilter, error) {
	f := repository.CandidateFilter{Gender: gender, Major: major}
	var err error
	if f.MinAge, err = strconv.Atoi(minAge); err != nil {
		return f, apperr.Validation("min_age must be an integer")
	}
	if f.MaxAge, err = strconv.Atoi(maxAge); err != nil {
		return f, apperr.Validation("max_age must be an integer")
	}
	if year != "" {
		if f.Year, err = strconv.Atoi(year); err != nil {
			return f, apperr.Validation("year must be an integer")
		}
	}
	return f, nil
}
