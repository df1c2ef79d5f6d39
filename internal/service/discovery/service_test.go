package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/cache"
	"github.com/campusmatch/campusmatch/internal/config"
	"github.com/campusmatch/campusmatch/internal/db"
	"github.com/campusmatch/campusmatch/internal/notify"
	"github.com/campusmatch/campusmatch/internal/repository"
	"github.com/campusmatch/campusmatch/internal/service/discovery"
)

// setupService wires a discovery service over in-memory SQLite and
// miniredis.
//
// Dataset: requester is profile 1. Candidates 2..7 cover the exclusion
// rules: 2 plain, 3 already swiped, 4 banned, 5 hidden, 6 blocked by 1,
// 7 has blocked 1.
func setupService(t *testing.T) (*discovery.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	profiles := []db.Profile{
		{ID: 1, Name: "requester", Age: 20, Gender: "female", PasswordHash: "x"},
		{ID: 2, Name: "plain", Age: 21, Gender: "male", Major: "physics", Year: 2, PasswordHash: "x"},
		{ID: 3, Name: "swiped", Age: 22, Gender: "male", PasswordHash: "x"},
		{ID: 4, Name: "banned", Age: 23, Gender: "male", PasswordHash: "x", Banned: true},
		{ID: 5, Name: "hidden", Age: 24, Gender: "male", PasswordHash: "x", Hidden: true},
		{ID: 6, Name: "blockee", Age: 25, Gender: "male", PasswordHash: "x"},
		{ID: 7, Name: "blocker", Age: 26, Gender: "male", PasswordHash: "x"},
	}
	require.NoError(t, dbase.Create(&profiles).Error)
	require.NoError(t, dbase.Create(&db.SwipeDecision{ActorID: 1, TargetID: 3, Liked: false}).Error)
	require.NoError(t, dbase.Create(&db.BlockRelation{BlockerID: 1, BlockedID: 6}).Error)
	require.NoError(t, dbase.Create(&db.BlockRelation{BlockerID: 7, BlockedID: 1}).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), notify.Nop{}, logger)

	return discovery.NewService(appCtx), appCtx
}

func feedIDs(candidates []discovery.Candidate) map[uint64]bool {
	ids := map[uint64]bool{}
	for _, c := range candidates {
		ids[c.ProfileID] = true
	}
	return ids
}

func TestFeedExclusions(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	candidates, err := svc.Feed(ctx, 1, repository.CandidateFilter{MinAge: 18, MaxAge: 99}, 20)
	require.NoError(t, err)

	ids := feedIDs(candidates)
	assert.True(t, ids[2])
	assert.False(t, ids[1], "requester never sees themselves")
	assert.False(t, ids[3], "already swiped")
	assert.False(t, ids[4], "banned")
	assert.False(t, ids[5], "hidden")
	assert.False(t, ids[6], "blocked by requester")
	assert.False(t, ids[7], "requester is blocked")
}

func TestFeedUnknownRequesterEmptyPage(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	candidates, err := svc.Feed(ctx, 999, repository.CandidateFilter{MinAge: 18, MaxAge: 99}, 20)
	require.NoError(t, err, "unknown requester is not an error")
	assert.Empty(t, candidates)

	// banned requesters are likewise shut out of discovery
	candidates, err = svc.Feed(ctx, 4, repository.CandidateFilter{MinAge: 18, MaxAge: 99}, 20)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFeedFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	candidates, err := svc.Feed(ctx, 1, repository.CandidateFilter{MinAge: 18, MaxAge: 21}, 20)
	require.NoError(t, err)
	ids := feedIDs(candidates)
	assert.True(t, ids[2])
	assert.False(t, ids[6])

	candidates, err = svc.Feed(ctx, 1, repository.CandidateFilter{MinAge: 18, MaxAge: 99, Major: "physics"}, 20)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "plain", candidates[0].Name)

	candidates, err = svc.Feed(ctx, 1, repository.CandidateFilter{MinAge: 18, MaxAge: 99, Gender: "female"}, 20)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFeedInvalidAgeRange(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Feed(ctx, 1, repository.CandidateFilter{MinAge: 30, MaxAge: 20}, 20)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
}

func TestListLikedYou(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	require.NoError(t, appCtx.DB.Create(&db.SwipeDecision{ActorID: 2, TargetID: 1, Liked: true}).Error)
	require.NoError(t, appCtx.DB.Create(&db.SwipeDecision{ActorID: 6, TargetID: 1, Liked: true, SuperLiked: true}).Error)
	// a liker the caller already passed on stays hidden
	require.NoError(t, appCtx.DB.Create(&db.SwipeDecision{ActorID: 3, TargetID: 1, Liked: true}).Error)

	likers, next, err := svc.ListLikedYou(ctx, 1, "")
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, likers, 2)

	byID := map[uint64]discovery.Liker{}
	for _, l := range likers {
		byID[l.ProfileID] = l
	}
	assert.Contains(t, byID, uint64(2))
	assert.True(t, byID[6].SuperLiked)
	assert.NotContains(t, byID, uint64(3))
}

func TestCountLikedYouCacheFirst(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	require.NoError(t, appCtx.DB.Create(&db.SwipeDecision{ActorID: 2, TargetID: 1, Liked: true}).Error)

	count, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// second read is served from cache: a DB-only change is not seen
	require.NoError(t, appCtx.DB.Create(&db.SwipeDecision{ActorID: 6, TargetID: 1, Liked: true}).Error)
	count, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// a swipe-path bump is visible immediately
	appCtx.RedisCache.BumpLikeCount(ctx, 1, 1)
	count, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
