package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nkazmin/liveboard/models"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) SetPresence(ctx context.Context, canvasId string, entry models.PresenceEntry) error {
	args := m.Called(ctx, canvasId, entry)
	return args.Error(0)
}

func (m *MockCache) DeletePresence(ctx context.Context, canvasId string, userId string) error {
	args := m.Called(ctx, canvasId, userId)
	return args.Error(0)
}

func (m *MockCache) GetPresence(ctx context.Context, canvasId string) ([]models.PresenceEntry, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).([]models.PresenceEntry), args.Error(1)
}

func (m *MockCache) SetCursor(ctx context.Context, canvasId string, entry models.CursorEntry) error {
	args := m.Called(ctx, canvasId, entry)
	return args.Error(0)
}

func (m *MockCache) DeleteCursor(ctx context.Context, canvasId string, userId string) error {
	args := m.Called(ctx, canvasId, userId)
	return args.Error(0)
}

func (m *MockCache) GetCursors(ctx context.Context, canvasId string) ([]models.CursorEntry, error) {
	args := m.Called(ctx, canvasId)
	return args.Get(0).([]models.CursorEntry), args.Error(1)
}
