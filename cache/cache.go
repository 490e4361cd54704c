package cache

import (
	"context"
	"time"

	"github.com/nkazmin/liveboard/models"
)

// TTLs for the two ephemeral channels. Expiry is the only mechanism for
// detecting silent disconnects, so every snapshot read must treat an
// unrefreshed entry as absent once its TTL has elapsed.
const (
	PresenceTTL = 60 * time.Second
	CursorTTL   = 30 * time.Second
)

// PresenceCache is the ephemeral presence/cursor store plus the pub/sub
// transport the session gateway fans broadcasts out over. Implementations:
// redis (production) and memory (dev/test fallback).
type PresenceCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	SetPresence(ctx context.Context, canvasId string, entry models.PresenceEntry) error
	DeletePresence(ctx context.Context, canvasId string, userId string) error
	GetPresence(ctx context.Context, canvasId string) ([]models.PresenceEntry, error)

	SetCursor(ctx context.Context, canvasId string, entry models.CursorEntry) error
	DeleteCursor(ctx context.Context, canvasId string, userId string) error
	GetCursors(ctx context.Context, canvasId string) ([]models.CursorEntry, error)
}
