package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nkazmin/liveboard/cache/memory"
	"github.com/nkazmin/liveboard/models"
	mqmocks "github.com/nkazmin/liveboard/mq/mocks"
	"github.com/nkazmin/liveboard/service"
	storemocks "github.com/nkazmin/liveboard/store/mocks"
)

var testSecret = []byte("test-secret")

func setupHandler(t *testing.T) (*Handler, *storemocks.MockStore, *Hub) {
	t.Helper()
	mockStore := new(storemocks.MockStore)
	svc, err := service.NewService(mockStore, memory.NewMemoryPresenceCache(), new(mqmocks.MockMQ), nil, testSecret)
	assert.NoError(t, err)

	hub := NewHub(memory.NewMemoryPresenceCache())
	go hub.Run()

	return NewHandler(svc, hub), mockStore, hub
}

func mintToken(t *testing.T, user models.User, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   user.Id,
		"email": user.Email,
		"name":  user.Name,
		"exp":   expiresAt.Unix(),
		"iat":   time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	assert.NoError(t, err)
	return token
}

func wsMessage(t *testing.T, msgType string, token string, data any) []byte {
	t.Helper()
	dataBytes, err := json.Marshal(data)
	assert.NoError(t, err)
	msgBytes, err := json.Marshal(message{Type: msgType, Token: token, Data: dataBytes})
	assert.NoError(t, err)
	return msgBytes
}

func decodeResponse(t *testing.T, raw []byte) (string, map[string]any) {
	t.Helper()
	var resp struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(raw, &resp))
	return resp.Type, resp.Data
}

func TestHandleWsMessage_ExpiredTokenRejected(t *testing.T) {
	handler, mockStore, hub := setupHandler(t)

	user := models.User{Id: "alice", Email: "alice@example.com"}
	expired := mintToken(t, user, time.Now().Add(-time.Minute))
	client := NewClient(hub, nil, user, expired, handler.HandleWsMessage)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "create_object", "", map[string]any{
		"canvas_id":   "c1",
		"object_type": "circle",
		"properties":  map[string]any{"r": 5},
	}))

	respType, data := decodeResponse(t, waitForMessage(t, client))
	assert.Equal(t, "error", respType)
	assert.Equal(t, "create_object", data["event"])
	mockStore.AssertNotCalled(t, "CreateObject", mock.Anything, mock.Anything)
}

func TestHandleWsMessage_PayloadTokenRefreshesAuth(t *testing.T) {
	handler, mockStore, hub := setupHandler(t)

	user := models.User{Id: "alice", Email: "alice@example.com"}
	expired := mintToken(t, user, time.Now().Add(-time.Minute))
	fresh := mintToken(t, user, time.Now().Add(time.Hour))
	client := NewClient(hub, nil, user, expired, handler.HandleWsMessage)

	mockStore.On("GetCanvas", mock.Anything, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "alice", Visibility: models.VisibilityPrivate,
	}, nil)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "get_online_users", fresh, map[string]any{
		"canvas_id": "c1",
	}))

	respType, _ := decodeResponse(t, waitForMessage(t, client))
	assert.Equal(t, "online_users", respType)
}

func TestHandleWsMessage_TokenSubjectMismatchRejected(t *testing.T) {
	handler, _, hub := setupHandler(t)

	alice := models.User{Id: "alice", Email: "alice@example.com"}
	mallory := models.User{Id: "mallory", Email: "mallory@example.com"}
	client := NewClient(hub, nil, alice, mintToken(t, alice, time.Now().Add(time.Hour)), handler.HandleWsMessage)

	handler.HandleWsMessage(client, websocket.TextMessage, wsMessage(t, "get_online_users",
		mintToken(t, mallory, time.Now().Add(time.Hour)), map[string]any{"canvas_id": "c1"}))

	respType, data := decodeResponse(t, waitForMessage(t, client))
	assert.Equal(t, "error", respType)
	assert.Equal(t, "get_online_users", data["event"])
}

func TestUserOnline_JoinsPresenceRoom(t *testing.T) {
	handler, mockStore, hub := setupHandler(t)

	alice := models.User{Id: "alice", Email: "alice@example.com", Name: "Alice"}
	aliceClient := NewClient(hub, nil, alice, mintToken(t, alice, time.Now().Add(time.Hour)), handler.HandleWsMessage)
	bobClient := newTestClient(hub, "bob")

	hub.OpenCh <- aliceClient
	hub.OpenCh <- bobClient
	joinRoom(hub, bobClient, "presence:c1")
	time.Sleep(50 * time.Millisecond)

	mockStore.On("GetCanvas", mock.Anything, "c1").Return(models.Canvas{
		Id: "c1", OwnerId: "alice", Visibility: models.VisibilityPrivate,
	}, nil)

	// user_online without a prior join_canvas
	handler.HandleWsMessage(aliceClient, websocket.TextMessage, wsMessage(t, "user_online", "", map[string]any{
		"canvas_id": "c1",
	}))

	respType, _ := decodeResponse(t, waitForMessage(t, bobClient))
	assert.Equal(t, "user_came_online", respType)
	time.Sleep(50 * time.Millisecond)

	// Alice is now a presence room member and receives subsequent broadcasts.
	err := hub.Broadcast(context.Background(), "presence:c1", "", []byte(`{"type":"user_went_offline"}`))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_went_offline"}`, string(waitForMessage(t, aliceClient)))
}
