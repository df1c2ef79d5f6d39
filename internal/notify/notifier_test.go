package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmatch/campusmatch/internal/cache"
	"github.com/campusmatch/campusmatch/internal/config"
	"github.com/campusmatch/campusmatch/internal/notify"
)

func TestRedisNotifierRoundTrip(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)

	sub := c.Subscribe(ctx, c.ChannelForUser(7))
	t.Cleanup(func() { sub.Close() })
	// wait for the subscription to be live before publishing
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := notify.NewRedisNotifier(c, logger)

	n.Publish(ctx, 7, notify.Event{
		Type:          notify.EventNewMessage,
		MatchID:       10,
		FromProfileID: 3,
		Message: &notify.MessagePayload{
			ID:       1,
			MatchID:  10,
			SenderID: 3,
			Content:  "hello",
		},
	})

	select {
	case msg := <-sub.Channel():
		var ev notify.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, notify.EventNewMessage, ev.Type)
		assert.Equal(t, uint64(10), ev.MatchID)
		assert.Equal(t, uint64(3), ev.FromProfileID)
		require.NotNil(t, ev.Message)
		assert.Equal(t, "hello", ev.Message.Content)
		assert.False(t, ev.At.IsZero(), "timestamp is stamped on publish")
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifierIsolatesChannels(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)

	sub := c.Subscribe(ctx, c.ChannelForUser(8))
	t.Cleanup(func() { sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := notify.NewRedisNotifier(c, logger)
	n.Publish(ctx, 7, notify.Event{Type: notify.EventTyping, MatchID: 10})

	select {
	case msg := <-sub.Channel():
		t.Fatalf("event for profile 7 leaked to profile 8: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}
