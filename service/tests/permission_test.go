package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/service"
	"github.com/nkazmin/liveboard/store"
)

func TestEffectivePermission_Owner(t *testing.T) {
	svc, _, _, _ := setupService(t)

	canvas := models.Canvas{Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate}

	tier, err := svc.EffectivePermission(context.Background(), canvas, "user1")
	assert.NoError(t, err)
	assert.Equal(t, models.TierOwner, tier)
}

func TestEffectivePermission_PermissionRow(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	canvas := models.Canvas{Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate}
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{
		CanvasId: "c1",
		UserId:   "user1",
		TierName: "edit",
	}, nil)

	tier, err := svc.EffectivePermission(ctx, canvas, "user1")
	assert.NoError(t, err)
	assert.Equal(t, models.TierEdit, tier)
}

func TestEffectivePermission_PublicFallback(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	canvas := models.Canvas{Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPublic}
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)

	tier, err := svc.EffectivePermission(ctx, canvas, "user1")
	assert.NoError(t, err)
	assert.Equal(t, models.TierView, tier)
}

func TestEffectivePermission_None(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	canvas := models.Canvas{Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate}
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)

	tier, err := svc.EffectivePermission(ctx, canvas, "user1")
	assert.NoError(t, err)
	assert.Equal(t, models.TierNone, tier)
}

// A permission row outranks public visibility, so a row tier below view would
// never happen, but a row with edit on a public canvas must win over view.
func TestEffectivePermission_RowBeatsPublic(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	canvas := models.Canvas{Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPublic}
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{
		CanvasId: "c1",
		UserId:   "user1",
		TierName: "edit",
	}, nil)

	tier, err := svc.EffectivePermission(ctx, canvas, "user1")
	assert.NoError(t, err)
	assert.Equal(t, models.TierEdit, tier)
}

func TestUpdateCollaboratorPermission_NotOwner(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{
		CanvasId: "c1", UserId: "user1", TierName: "edit",
	}, nil)

	_, err := svc.UpdateCollaboratorPermission(ctx, user, "c1", "user2", "view")
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestUpdateCollaboratorPermission_Success(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "owner", Email: "owner@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user2").Return(models.CanvasPermission{
		CanvasId: "c1", UserId: "user2", TierName: "view", GrantedBy: "owner",
	}, nil)
	mockStore.On("PutPermission", ctx, models.CanvasPermission{
		CanvasId: "c1", UserId: "user2", TierName: "edit", GrantedBy: "owner",
	}).Return(models.CanvasPermission{
		CanvasId: "c1", UserId: "user2", TierName: "edit", GrantedBy: "owner",
	}, nil)

	perm, err := svc.UpdateCollaboratorPermission(ctx, owner, "c1", "user2", "edit")
	assert.NoError(t, err)
	assert.Equal(t, "edit", perm.TierName)
	mockStore.AssertExpectations(t)
}

func TestUpdateCollaboratorPermission_InvalidTier(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "owner", Email: "owner@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)

	_, err := svc.UpdateCollaboratorPermission(ctx, owner, "c1", "user2", "superuser")
	assert.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = svc.UpdateCollaboratorPermission(ctx, owner, "c1", "user2", "owner")
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestRemoveCollaborator_Missing(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "owner", Email: "owner@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("DeletePermission", ctx, "c1", "user2").Return(store.ErrItemNotFound)

	err := svc.RemoveCollaborator(ctx, owner, "c1", "user2")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRemoveCollaborator_OwnerRow(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "owner", Email: "owner@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)

	err := svc.RemoveCollaborator(ctx, owner, "c1", "owner")
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

// Hidden canvases report not found rather than forbidden
func TestPrivateCanvasNotProbeable(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)

	_, err := svc.GetCanvas(ctx, user, "c1")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrForbidden)
}
