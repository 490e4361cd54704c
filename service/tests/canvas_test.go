package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/service"
	"github.com/nkazmin/liveboard/store"
	"github.com/nkazmin/liveboard/worker"
)

func TestCreateCanvas_Success(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("CreateCanvas", ctx, mock.MatchedBy(func(c models.Canvas) bool {
		return c.Title == "My Board" &&
			c.OwnerId == "user1" &&
			c.Visibility == models.VisibilityPrivate &&
			c.Id != ""
	})).Return(models.Canvas{Id: "c1", Title: "My Board", OwnerId: "user1"}, nil)

	canvas, err := svc.CreateCanvas(ctx, user, "My Board", "", "")
	assert.NoError(t, err)
	assert.Equal(t, "c1", canvas.Id)
	mockStore.AssertExpectations(t)
}

func TestCreateCanvas_EmptyTitle(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.CreateCanvas(context.Background(), models.User{Id: "user1"}, "   ", "", "")
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestCreateCanvas_InvalidVisibility(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.CreateCanvas(context.Background(), models.User{Id: "user1"}, "Board", "", "unlisted")
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestDeleteCanvas_EnqueuesCascade(t *testing.T) {
	svc, mockStore, _, mockMQ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "owner", Email: "owner@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("DeleteCanvas", ctx, "c1").Return(nil)
	mockMQ.On("Send", ctx, mock.MatchedBy(func(body string) bool {
		var msg worker.CanvasDeletedMessage
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			return false
		}
		return msg.CanvasId == "c1"
	})).Return(nil)

	err := svc.DeleteCanvas(ctx, owner, "c1")
	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
	mockMQ.AssertExpectations(t)
}

func TestDeleteCanvas_NotOwner(t *testing.T) {
	svc, mockStore, _, mockMQ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPublic,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)

	err := svc.DeleteCanvas(ctx, user, "c1")
	assert.ErrorIs(t, err, service.ErrForbidden)
	mockMQ.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestListUserCanvases_Dedup(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	owned := models.Canvas{Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPublic}
	shared := models.Canvas{Id: "c2", OwnerId: "owner2", Visibility: models.VisibilityPrivate}
	public := models.Canvas{Id: "c3", OwnerId: "owner3", Visibility: models.VisibilityPublic}

	mockStore.On("GetCanvasesByOwner", ctx, "user1").Return([]models.Canvas{owned}, nil)
	mockStore.On("GetCanvasesSharedWith", ctx, "user1").Return([]models.Canvas{shared}, nil)
	// c1 is public and owned; it must not appear twice
	mockStore.On("GetPublicCanvases", ctx).Return([]models.Canvas{owned, public}, nil)

	canvases, err := svc.ListUserCanvases(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, []models.Canvas{owned, shared, public}, canvases)
}

func TestCreateObject_Success(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}
	properties := []byte(`{"x":10,"y":20,"width":100,"height":50,"fill":"#ff0000"}`)

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("CreateObject", ctx, mock.MatchedBy(func(o models.CanvasObject) bool {
		return o.CanvasId == "c1" &&
			o.Type == models.ObjectRectangle &&
			o.CreatedBy == "user1" &&
			o.Id != ""
	})).Return(models.CanvasObject{Id: "o1", CanvasId: "c1", Type: models.ObjectRectangle}, nil)

	object, err := svc.CreateObject(ctx, user, "c1", models.ObjectRectangle, properties)
	assert.NoError(t, err)
	assert.Equal(t, "o1", object.Id)
	mockStore.AssertExpectations(t)
}

func TestCreateObject_InvalidType(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)

	_, err := svc.CreateObject(ctx, user, "c1", "triangle", []byte(`{}`))
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
	mockStore.AssertNotCalled(t, "CreateObject", mock.Anything, mock.Anything)
}

func TestCreateObject_ViewerForbidden(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "owner", Visibility: models.VisibilityPublic,
	}, nil)
	mockStore.On("GetPermission", ctx, "c1", "user1").Return(models.CanvasPermission{}, store.ErrItemNotFound)

	_, err := svc.CreateObject(ctx, user, "c1", models.ObjectCircle, []byte(`{}`))
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestCreateObject_BadProperties(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)

	_, err := svc.CreateObject(ctx, user, "c1", models.ObjectText, []byte(`{"text":`))
	assert.ErrorIs(t, err, service.ErrInvalidArgument)

	_, err = svc.CreateObject(ctx, user, "c1", models.ObjectText, nil)
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

// The stored record comes back to the caller; the broadcast layer depends on
// it being the canonical state.
func TestUpdateObject_ReturnsStoredRecord(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}
	properties := []byte(`{"x":5}`)

	stored := models.CanvasObject{
		Id:         "o1",
		CanvasId:   "c1",
		Type:       models.ObjectCircle,
		Properties: properties,
		CreatedBy:  "someone-else",
		Updated:    1700000000,
	}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("UpdateObjectProperties", ctx, "c1", "o1", properties, mock.Anything).Return(stored, nil)

	object, err := svc.UpdateObject(ctx, user, "c1", "o1", properties)
	assert.NoError(t, err)
	assert.Equal(t, stored, object)
}

func TestUpdateObject_Missing(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("UpdateObjectProperties", ctx, "c1", "o-missing", mock.Anything, mock.Anything).
		Return(models.CanvasObject{}, store.ErrItemNotFound)

	_, err := svc.UpdateObject(ctx, user, "c1", "o-missing", []byte(`{}`))
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteObject_Missing(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1", Email: "user1@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "user1", Visibility: models.VisibilityPrivate,
	}, nil)
	mockStore.On("DeleteObject", ctx, "c1", "o-missing").Return(store.ErrItemNotFound)

	err := svc.DeleteObject(ctx, user, "c1", "o-missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
