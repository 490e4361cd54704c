package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/service"
	"github.com/nkazmin/liveboard/store"
)

func TestMarkOnline_WritesPresence(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com", Name: "User One"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockCache.On("SetPresence", ctx, "c1", mock.MatchedBy(func(e models.PresenceEntry) bool {
		return e.UserId == "user1" && e.UserName == "User One" && e.Timestamp > 0
	})).Return(nil)

	entry, err := svc.MarkOnline(ctx, user, "c1")
	assert.NoError(t, err)
	assert.Equal(t, "user1", entry.UserId)
	mockCache.AssertExpectations(t)
}

func TestMarkOnline_NoAccess(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)

	_, err := svc.MarkOnline(ctx, user, "c1")
	assert.ErrorIs(t, err, service.ErrNotFound)
	mockCache.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkOffline_ClearsCursorAndPresence(t *testing.T) {
	svc, _, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockCache.On("DeleteCursor", ctx, "c1", "user1").Return(nil)
	mockCache.On("DeletePresence", ctx, "c1", "user1").Return(nil)

	err := svc.MarkOffline(ctx, user, "c1")
	assert.NoError(t, err)
	mockCache.AssertExpectations(t)
}

func TestUpdateCursor_PublicViewer(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com", Name: "User One"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPublic,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)
	mockCache.On("SetCursor", ctx, "c1", mock.MatchedBy(func(e models.CursorEntry) bool {
		return e.UserId == "user1" && e.Position.X == 12.5 && e.Position.Y == 40
	})).Return(nil)

	entry, err := svc.UpdateCursor(ctx, user, "c1", models.Position{X: 12.5, Y: 40}, 0)
	assert.NoError(t, err)
	assert.Equal(t, models.Position{X: 12.5, Y: 40}, entry.Position)
	assert.Greater(t, entry.Timestamp, int64(0))
	mockCache.AssertExpectations(t)
}

func TestUpdateCursor_KeepsClientTimestamp(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockCache.On("SetCursor", ctx, "c1", mock.MatchedBy(func(e models.CursorEntry) bool {
		return e.Timestamp == 1700000123
	})).Return(nil)

	entry, err := svc.UpdateCursor(ctx, user, "c1", models.Position{X: 1, Y: 2}, 1700000123)
	assert.NoError(t, err)
	assert.Equal(t, int64(1700000123), entry.Timestamp)
	mockCache.AssertExpectations(t)
}

func TestGetOnlineUsers_Snapshot(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	online := []models.PresenceEntry{
		{UserId: "user1", Timestamp: 100},
		{UserId: "user2", Timestamp: 101},
	}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockCache.On("GetPresence", ctx, "c1").Return(online, nil)

	users, err := svc.GetOnlineUsers(ctx, user, "c1")
	assert.NoError(t, err)
	assert.Equal(t, online, users)
}

func TestGetCursors_Snapshot(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	cursors := []models.CursorEntry{
		{UserId: "user2", Position: models.Position{X: 1, Y: 2}},
	}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockCache.On("GetCursors", ctx, "c1").Return(cursors, nil)

	got, err := svc.GetCursors(ctx, user, "c1")
	assert.NoError(t, err)
	assert.Equal(t, cursors, got)
}
