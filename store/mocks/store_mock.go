package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nkazmin/liveboard/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, userId string) (models.User, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) CreateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error) {
	args := m.Called(ctx, canvas)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) UpdateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error) {
	args := m.Called(ctx, canvas)
	return args.Get(0).(models.Canvas), args.Error(1)
}

func (m *MockStore) DeleteCanvas(ctx context.Context, canvasId string) error {
	args := m.Called(ctx, canvasId)
	return args.Error(0)
}

func (m *MockStore) GetCanvasesByOwner(ctx context.Context, ownerId string) ([]models.Canvas, error) {
	args := m.Called(ctx, ownerId)
	return args.Get(0).([]models.Canvas), args.Error(1)
}

func (m *MockStore) GetPublicCanvases(ctx context.Context) ([]models.Canvas, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Canvas), args.Error(1)
}

func (m *MockStore) GetCanvasesSharedWith(ctx context.Context, userId string) ([]models.Canvas, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]models.Canvas), args.Error(1)
}

func (m *MockStore) CreateObject(ctx context.Context, object models.CanvasObject) (models.CanvasObject, error) {
	args := m.Called(ctx, object)
	return args.Get(0).(models.CanvasObject), args.Error(1)
}

func (m *MockStore) GetObject(ctx context.Context, canvasId string, objectId string) (models.CanvasObject, error) {
	args := m.Called(ctx, canvasId, objectId)
	return args.Get(0).(models.CanvasObject), args.Error(1)
}

func (m *MockStore) UpdateObjectProperties(ctx context.Context, canvasId string, objectId string, properties []byte, updated int64) (models.CanvasObject, error) {
	args := m.Called(ctx, canvasId, objectId, properties, updated)
	return args.Get(0).(models.CanvasObject), args.Error(1)
}

func (m *MockStore) DeleteObject(ctx context.Context, canvasId string, objectId string) error {
	args := m.Called(ctx, canvasId, objectId)
	return args.Error(0)
}

func (m *MockStore) GetCanvasObjects(ctx context.Context, canvasId string) ([]models.CanvasObject, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).([]models.CanvasObject), args.Error(1)
}

func (m *MockStore) DeleteCanvasRows(ctx context.Context, canvasId string) error {
	args := m.Called(ctx, canvasId)
	return args.Error(0)
}

func (m *MockStore) PutPermission(ctx context.Context, perm models.CanvasPermission) (models.CanvasPermission, error) {
	args := m.Called(ctx, perm)
	return args.Get(0).(models.CanvasPermission), args.Error(1)
}

func (m *MockStore) GetPermission(ctx context.Context, canvasId string, userId string) (models.CanvasPermission, error) {
	args := m.Called(ctx, canvasId, userId)
	return args.Get(0).(models.CanvasPermission), args.Error(1)
}

func (m *MockStore) DeletePermission(ctx context.Context, canvasId string, userId string) error {
	args := m.Called(ctx, canvasId, userId)
	return args.Error(0)
}

func (m *MockStore) GetCanvasPermissions(ctx context.Context, canvasId string) ([]models.CanvasPermission, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).([]models.CanvasPermission), args.Error(1)
}

func (m *MockStore) CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(models.Invitation), args.Error(1)
}

func (m *MockStore) GetInvitation(ctx context.Context, invitationId string) (models.Invitation, error) {
	args := m.Called(ctx, invitationId)
	return args.Get(0).(models.Invitation), args.Error(1)
}

func (m *MockStore) SetInvitationStatus(ctx context.Context, invitationId string, status models.InvitationStatus) (models.Invitation, error) {
	args := m.Called(ctx, invitationId, status)
	return args.Get(0).(models.Invitation), args.Error(1)
}

func (m *MockStore) GetInvitationsByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]models.Invitation), args.Error(1)
}

func (m *MockStore) GetInvitationsByCanvas(ctx context.Context, canvasId string) ([]models.Invitation, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).([]models.Invitation), args.Error(1)
}

func (m *MockStore) DeleteInvitation(ctx context.Context, invitationId string) error {
	args := m.Called(ctx, invitationId)
	return args.Error(0)
}
