package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nkazmin/liveboard/cache"
	"github.com/nkazmin/liveboard/models"
)

func TestPresenceExpiresAfterTTL(t *testing.T) {
	c := NewMemoryPresenceCache()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.SetClock(func() time.Time { return now })

	err := c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user1", Timestamp: now.Unix()})
	assert.NoError(t, err)

	entries, err := c.GetPresence(ctx, "c1")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	// Just inside the TTL
	now = now.Add(cache.PresenceTTL - time.Second)
	entries, err = c.GetPresence(ctx, "c1")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	// Past the TTL
	now = now.Add(2 * time.Second)
	entries, err = c.GetPresence(ctx, "c1")
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHeartbeatRefreshesTTL(t *testing.T) {
	c := NewMemoryPresenceCache()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.SetClock(func() time.Time { return now })

	assert.NoError(t, c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user1"}))

	// Refresh just before expiry
	now = now.Add(cache.PresenceTTL - time.Second)
	assert.NoError(t, c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user1"}))

	// The original TTL would have elapsed by now
	now = now.Add(2 * time.Second)
	entries, err := c.GetPresence(ctx, "c1")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCursorTTLShorterThanPresence(t *testing.T) {
	c := NewMemoryPresenceCache()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.SetClock(func() time.Time { return now })

	assert.NoError(t, c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user1"}))
	assert.NoError(t, c.SetCursor(ctx, "c1", models.CursorEntry{UserId: "user1", Position: models.Position{X: 1, Y: 2}}))

	// Past the cursor TTL but inside the presence TTL
	now = now.Add(cache.CursorTTL + time.Second)

	cursors, err := c.GetCursors(ctx, "c1")
	assert.NoError(t, err)
	assert.Empty(t, cursors)

	entries, err := c.GetPresence(ctx, "c1")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteRemovesOnlyThatUser(t *testing.T) {
	c := NewMemoryPresenceCache()
	ctx := context.Background()

	assert.NoError(t, c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user1"}))
	assert.NoError(t, c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user2"}))

	assert.NoError(t, c.DeletePresence(ctx, "c1", "user1"))

	entries, err := c.GetPresence(ctx, "c1")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "user2", entries[0].UserId)
}

func TestSweepDropsExpiredRecords(t *testing.T) {
	c := NewMemoryPresenceCache()
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	c.SetClock(func() time.Time { return now })

	assert.NoError(t, c.SetPresence(ctx, "c1", models.PresenceEntry{UserId: "user1"}))
	assert.NoError(t, c.SetCursor(ctx, "c1", models.CursorEntry{UserId: "user1"}))

	now = now.Add(cache.PresenceTTL + time.Second)
	c.sweep()

	assert.Empty(t, c.presence)
	assert.Empty(t, c.cursors)
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	c := NewMemoryPresenceCache()
	ctx := context.Background()

	var got1, got2 []byte
	assert.NoError(t, c.Subscribe(ctx, "room:canvas:c1", func(m []byte) { got1 = m }))
	assert.NoError(t, c.Subscribe(ctx, "room:canvas:c1", func(m []byte) { got2 = m }))
	assert.NoError(t, c.Subscribe(ctx, "room:canvas:c2", func(m []byte) { t.Error("wrong channel") }))

	assert.NoError(t, c.Publish(ctx, "room:canvas:c1", []byte("hello")))

	assert.Equal(t, []byte("hello"), got1)
	assert.Equal(t, []byte("hello"), got2)
}
