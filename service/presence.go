package service

import (
	"context"
	"time"

	"github.com/nkazmin/liveboard/models"
)

// Presence and cursor state lives only in the cache with short TTLs, so a
// client that stops heartbeating falls out of snapshots on its own. Writes
// always refresh the TTL.

func (s *Service) MarkOnline(ctx context.Context, user models.User, canvasId string) (models.PresenceEntry, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return models.PresenceEntry{}, err
	}

	entry := models.PresenceEntry{
		UserId:    user.Id,
		UserName:  user.Name,
		UserEmail: user.Email,
		AvatarURL: user.AvatarURL,
		Timestamp: time.Now().Unix(),
	}
	if err := s.Cache.SetPresence(ctx, canvasId, entry); err != nil {
		return models.PresenceEntry{}, err
	}
	return entry, nil
}

// Heartbeat refreshes the presence TTL without a permission check; the check
// already happened when the user came online, and a heartbeat never reveals
// anything to the caller.
func (s *Service) Heartbeat(ctx context.Context, user models.User, canvasId string) error {
	return s.Cache.SetPresence(ctx, canvasId, models.PresenceEntry{
		UserId:    user.Id,
		UserName:  user.Name,
		UserEmail: user.Email,
		AvatarURL: user.AvatarURL,
		Timestamp: time.Now().Unix(),
	})
}

func (s *Service) MarkOffline(ctx context.Context, user models.User, canvasId string) error {
	if err := s.Cache.DeleteCursor(ctx, canvasId, user.Id); err != nil {
		return err
	}
	return s.Cache.DeletePresence(ctx, canvasId, user.Id)
}

func (s *Service) GetOnlineUsers(ctx context.Context, user models.User, canvasId string) ([]models.PresenceEntry, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return nil, err
	}
	return s.Cache.GetPresence(ctx, canvasId)
}

// UpdateCursor stores the client's own timestamp so receivers keep its
// ordering hint; a missing timestamp falls back to server time.
func (s *Service) UpdateCursor(ctx context.Context, user models.User, canvasId string, pos models.Position, timestamp int64) (models.CursorEntry, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return models.CursorEntry{}, err
	}

	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	entry := models.CursorEntry{
		UserId:    user.Id,
		UserName:  user.Name,
		Position:  pos,
		Timestamp: timestamp,
	}
	if err := s.Cache.SetCursor(ctx, canvasId, entry); err != nil {
		return models.CursorEntry{}, err
	}
	return entry, nil
}

func (s *Service) RemoveCursor(ctx context.Context, user models.User, canvasId string) error {
	return s.Cache.DeleteCursor(ctx, canvasId, user.Id)
}

func (s *Service) GetCursors(ctx context.Context, user models.User, canvasId string) ([]models.CursorEntry, error) {
	if _, err := s.requireCanvasTier(ctx, canvasId, user.Id, models.TierView); err != nil {
		return nil, err
	}
	return s.Cache.GetCursors(ctx, canvasId)
}
