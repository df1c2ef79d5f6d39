package swipe_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
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
	"github.com/campusmatch/campusmatch/internal/service/swipe"
)

// captureNotifier records published events for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	ProfileID uint64
	Event     notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, profileID uint64, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, capturedEvent{ProfileID: profileID, Event: ev})
}

func (n *captureNotifier) byType(t notify.EventType) []capturedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []capturedEvent
	for _, e := range n.events {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// setupService spins up an in-memory SQLite DB, a miniredis, seeds four
// profiles and wires everything into a swipe service.
//
// Dataset: profiles 1,2 (male), 3,4 (female); profile 4 is premium.
func setupService(t *testing.T) (*swipe.Service, *app.AppContext, *captureNotifier) {
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
		{ID: 1, Name: "alex", Age: 20, Gender: "male", PasswordHash: "x"},
		{ID: 2, Name: "ben", Age: 21, Gender: "male", PasswordHash: "x"},
		{ID: 3, Name: "cara", Age: 20, Gender: "female", PasswordHash: "x"},
		{ID: 4, Name: "dana", Age: 22, Gender: "female", PasswordHash: "x", Premium: true},
	}
	require.NoError(t, dbase.Create(&profiles).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), notifier, logger)

	return swipe.NewService(appCtx), appCtx, notifier
}

// TestMutualLikeScenario walks the canonical flow: a one-way like is not
// a match, the reciprocal like is, and a repeated like leaves exactly one
// match row.
func TestMutualLikeScenario(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	res, err := svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.Nil(t, res.Match)

	res, err = svc.RecordSwipe(ctx, 3, 1, true, false)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	require.NotNil(t, res.Match)
	assert.Equal(t, uint64(1), res.Match.OtherProfileID)
	assert.Equal(t, "alex", res.Match.OtherName)

	// repeat like: still exactly one match
	res, err = svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)

	var count int64
	appCtx.DB.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestPassDoesNotMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)

	res, err := svc.RecordSwipe(ctx, 3, 1, false, false)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)

	var count int64
	appCtx.DB.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestNewMatchFanOut(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, 3, 1, true, false)
	require.NoError(t, err)

	events := notifier.byType(notify.EventNewMatch)
	require.Len(t, events, 2, "one event per participant")

	recipients := map[uint64]bool{}
	for _, e := range events {
		recipients[e.ProfileID] = true
	}
	assert.True(t, recipients[1])
	assert.True(t, recipients[3])
}

func TestSwipeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 1, true, false)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)

	_, err = svc.RecordSwipe(ctx, 1, 999, true, false)
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
}

func TestBlockedPairCannotSwipe(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	require.NoError(t, appCtx.DB.Create(&db.BlockRelation{BlockerID: 3, BlockedID: 1}).Error)

	// block in either direction rejects the swipe
	_, err := svc.RecordSwipe(ctx, 1, 3, true, false)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
}

func TestDailySwipeQuota(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	appCtx.Cfg.Quota.DailySwipes = 2

	res, err := svc.RecordSwipe(ctx, 1, 2, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemainingSwipes)

	res, err = svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RemainingSwipes)

	// allowance exhausted: rejected before any write
	_, err = svc.RecordSwipe(ctx, 1, 4, true, false)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindRateLimit, e.Kind)
	assert.Equal(t, 0, e.Remaining)
	assert.False(t, e.ResetAt.IsZero())

	var count int64
	appCtx.DB.Model(&db.SwipeDecision{}).Count(&count)
	assert.Equal(t, int64(2), count, "rejected swipe left state unchanged")

	// the rejection also gave its reserved slot back
	used, err := appCtx.RedisCache.GetCounter(ctx, appCtx.RedisCache.KeyForSwipeQuota(1, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(2), used)

	// repeat decision on an already-swiped target is not a fresh swipe
	_, err = svc.RecordSwipe(ctx, 1, 3, false, false)
	require.NoError(t, err)
}

// TestSwipeQuotaUnderContention drives parallel fresh swipes through the
// allowance; the atomic reservation admits exactly the configured number.
func TestSwipeQuotaUnderContention(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	appCtx.Cfg.Quota.DailySwipes = 3

	// single connection keeps SQLite happy under parallel writers
	sqlDB, err := appCtx.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const workers = 8
	targets := make([]db.Profile, 0, workers)
	for i := 0; i < workers; i++ {
		targets = append(targets, db.Profile{
			ID: uint64(100 + i), Name: fmt.Sprintf("t%d", i), Age: 20, Gender: "female", PasswordHash: "x",
		})
	}
	require.NoError(t, appCtx.DB.Create(&targets).Error)

	var wg sync.WaitGroup
	var accepted, limited int64
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(target uint64) {
			defer wg.Done()
			_, err := svc.RecordSwipe(ctx, 1, target, false, false)
			if err == nil {
				atomic.AddInt64(&accepted, 1)
				return
			}
			if e, ok := apperr.As(err); ok && e.Kind == apperr.KindRateLimit {
				atomic.AddInt64(&limited, 1)
				return
			}
			errs <- err
		}(uint64(100 + i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, int64(3), accepted)
	assert.Equal(t, int64(workers-3), limited)

	var count int64
	appCtx.DB.Model(&db.SwipeDecision{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestPremiumSwipesUnlimited(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	appCtx.Cfg.Quota.DailySwipes = 1

	res, err := svc.RecordSwipe(ctx, 4, 1, true, false)
	require.NoError(t, err)
	assert.Equal(t, -1, res.RemainingSwipes)

	res, err = svc.RecordSwipe(ctx, 4, 2, true, false)
	require.NoError(t, err)
	assert.Equal(t, -1, res.RemainingSwipes)
}

// TestRewindDeactivatesMatch checks that undoing the like that completed
// a match takes the match down with it.
func TestRewindDeactivatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)
	res, err := svc.RecordSwipe(ctx, 3, 1, true, false)
	require.NoError(t, err)
	require.True(t, res.IsMatch)

	out, err := svc.UndoLastSwipe(ctx, 3)
	require.NoError(t, err)
	assert.True(t, out.Undone)
	assert.Equal(t, uint64(1), out.TargetID)

	var match db.Match
	require.NoError(t, appCtx.DB.First(&match, res.Match.MatchID).Error)
	assert.False(t, match.IsActive)

	var decisions int64
	appCtx.DB.Model(&db.SwipeDecision{}).Where("actor_id = ?", 3).Count(&decisions)
	assert.Equal(t, int64(0), decisions)
}

// TestRewindBeforeMatchPreventsIt checks the iff invariant: deleting one
// like before the reciprocal arrives prevents match formation.
func TestRewindBeforeMatchPreventsIt(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 3, true, false)
	require.NoError(t, err)

	out, err := svc.UndoLastSwipe(ctx, 1)
	require.NoError(t, err)
	require.True(t, out.Undone)

	res, err := svc.RecordSwipe(ctx, 3, 1, true, false)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)

	var count int64
	appCtx.DB.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRewindNothingToUndo(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	out, err := svc.UndoLastSwipe(ctx, 1)
	require.NoError(t, err, "nothing to undo is not an error")
	assert.False(t, out.Undone)
	assert.Equal(t, "nothing to undo", out.Reason)
}

func TestRewindQuota(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)
	appCtx.Cfg.Quota.DailyRewinds = 1

	_, err := svc.RecordSwipe(ctx, 1, 2, false, false)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, 1, 3, false, false)
	require.NoError(t, err)

	out, err := svc.UndoLastSwipe(ctx, 1)
	require.NoError(t, err)
	assert.True(t, out.Undone)

	_, err = svc.UndoLastSwipe(ctx, 1)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindRateLimit, e.Kind)
}
