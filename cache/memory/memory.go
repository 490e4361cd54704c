package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nkazmin/liveboard/cache"
	"github.com/nkazmin/liveboard/models"
)

type presenceRecord struct {
	entry     models.PresenceEntry
	expiresAt time.Time
}

type cursorRecord struct {
	entry     models.CursorEntry
	expiresAt time.Time
}

// MemoryPresenceCache is the in-process fallback for environments without
// Redis (dev mode, tests). Same contract: TTL-bound presence/cursor entries
// and pub/sub, except pub/sub only reaches subscribers in this process.
//
// Expiry is enforced lazily at read time; the janitor additionally sweeps
// expired records so an idle canvas doesn't pin memory.
type MemoryPresenceCache struct {
	mu        sync.Mutex
	presence  map[string]map[string]presenceRecord // canvasId -> userId -> record
	cursors   map[string]map[string]cursorRecord
	subs      map[string]map[int]func(message []byte)
	nextSubId int
	now       func() time.Time
}

func NewMemoryPresenceCache() *MemoryPresenceCache {
	return &MemoryPresenceCache{
		presence: make(map[string]map[string]presenceRecord),
		cursors:  make(map[string]map[string]cursorRecord),
		subs:     make(map[string]map[int]func(message []byte)),
		now:      time.Now,
	}
}

const sweepInterval = 30 * time.Second

// RunJanitor sweeps expired records until ctx is cancelled.
func (c *MemoryPresenceCache) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (c *MemoryPresenceCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for canvasId, byUser := range c.presence {
		for userId, rec := range byUser {
			if now.After(rec.expiresAt) {
				delete(byUser, userId)
			}
		}
		if len(byUser) == 0 {
			delete(c.presence, canvasId)
		}
	}
	for canvasId, byUser := range c.cursors {
		for userId, rec := range byUser {
			if now.After(rec.expiresAt) {
				delete(byUser, userId)
			}
		}
		if len(byUser) == 0 {
			delete(c.cursors, canvasId)
		}
	}
}

func (c *MemoryPresenceCache) Publish(ctx context.Context, channel string, message []byte) error {
	c.mu.Lock()
	handlers := make([]func([]byte), 0, len(c.subs[channel]))
	for _, handler := range c.subs[channel] {
		handlers = append(handlers, handler)
	}
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(message)
	}
	return nil
}

// Subscribe registers a handler until ctx is cancelled, mirroring the redis
// subscription lifecycle.
func (c *MemoryPresenceCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	c.mu.Lock()
	if c.subs[channel] == nil {
		c.subs[channel] = make(map[int]func(message []byte))
	}
	subId := c.nextSubId
	c.nextSubId++
	c.subs[channel][subId] = handler
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs[channel], subId)
		if len(c.subs[channel]) == 0 {
			delete(c.subs, channel)
		}
		c.mu.Unlock()
	}()

	return nil
}

func (c *MemoryPresenceCache) SetPresence(ctx context.Context, canvasId string, entry models.PresenceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byUser, ok := c.presence[canvasId]
	if !ok {
		byUser = make(map[string]presenceRecord)
		c.presence[canvasId] = byUser
	}
	byUser[entry.UserId] = presenceRecord{entry: entry, expiresAt: c.now().Add(cache.PresenceTTL)}
	return nil
}

func (c *MemoryPresenceCache) DeletePresence(ctx context.Context, canvasId string, userId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.presence[canvasId], userId)
	return nil
}

func (c *MemoryPresenceCache) GetPresence(ctx context.Context, canvasId string) ([]models.PresenceEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entries := make([]models.PresenceEntry, 0, len(c.presence[canvasId]))
	for userId, rec := range c.presence[canvasId] {
		if now.After(rec.expiresAt) {
			delete(c.presence[canvasId], userId)
			continue
		}
		entries = append(entries, rec.entry)
	}
	return entries, nil
}

func (c *MemoryPresenceCache) SetCursor(ctx context.Context, canvasId string, entry models.CursorEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byUser, ok := c.cursors[canvasId]
	if !ok {
		byUser = make(map[string]cursorRecord)
		c.cursors[canvasId] = byUser
	}
	byUser[entry.UserId] = cursorRecord{entry: entry, expiresAt: c.now().Add(cache.CursorTTL)}
	return nil
}

func (c *MemoryPresenceCache) DeleteCursor(ctx context.Context, canvasId string, userId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cursors[canvasId], userId)
	return nil
}

func (c *MemoryPresenceCache) GetCursors(ctx context.Context, canvasId string) ([]models.CursorEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entries := make([]models.CursorEntry, 0, len(c.cursors[canvasId]))
	for userId, rec := range c.cursors[canvasId] {
		if now.After(rec.expiresAt) {
			delete(c.cursors[canvasId], userId)
			continue
		}
		entries = append(entries, rec.entry)
	}
	return entries, nil
}

// SetClock overrides the time source. Test hook for TTL expiry.
func (c *MemoryPresenceCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
