package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nkazmin/liveboard/models"
	"github.com/nkazmin/liveboard/service"
)

type Handler struct {
	Service *service.Service
	Hub     *Hub
}

func NewHandler(svc *service.Service, hub *Hub) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
	}
}

func canvasRoom(canvasId string) string   { return "canvas:" + canvasId }
func presenceRoom(canvasId string) string { return "presence:" + canvasId }

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{"liveboard-v1"},
	}
}

// ServeWS handles websocket requests from the peer. The JWT travels as the
// second websocket subprotocol because browsers cannot set headers on the
// upgrade request.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	protocols := r.Header.Get("Sec-WebSocket-Protocol")
	protocolsSplit := strings.Split(protocols, ",")

	if len(protocolsSplit) != 2 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token := strings.TrimSpace(protocolsSplit[1])

	user, authErr := h.Service.AuthenticateToken(r.Context(), token)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn, user, token, h.HandleWsMessage)

	h.Hub.OpenCh <- client

	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

// Websocket message structs
type message struct {
	Type  string          `json:"type"`
	Token string          `json:"token,omitempty"`
	Data  json.RawMessage `json:"data"`
}

type canvasMessage struct {
	CanvasId string `json:"canvas_id"`
}

type createObjectMessage struct {
	CanvasId   string          `json:"canvas_id"`
	ObjectType string          `json:"object_type"`
	Properties json.RawMessage `json:"properties"`
}

type updateObjectMessage struct {
	CanvasId   string          `json:"canvas_id"`
	ObjectId   string          `json:"object_id"`
	Properties json.RawMessage `json:"properties"`
}

type deleteObjectMessage struct {
	CanvasId string `json:"canvas_id"`
	ObjectId string `json:"object_id"`
}

type cursorMoveMessage struct {
	CanvasId  string          `json:"canvas_id"`
	Position  models.Position `json:"position"`
	Timestamp int64           `json:"timestamp"`
}

type responseMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("Invalid JSON: %v", err)
		return
	}

	// Tokens expire mid-session, so every event re-verifies before dispatch.
	// A payload token lets the client rotate without reconnecting.
	token := msg.Token
	if token == "" {
		token = client.token
	}
	claimed, err := h.Service.VerifyJWT(token)
	if err != nil {
		h.sendError(client, msg.Type, fmt.Errorf("%w: %v", service.ErrUnauthorized, err))
		return
	}
	if claimed.Id != client.user.Id {
		h.sendError(client, msg.Type, fmt.Errorf("%w: token subject mismatch", service.ErrUnauthorized))
		return
	}

	switch msg.Type {
	case "join_canvas":
		h.withCanvasMessage(client, msg, h.handleJoinCanvas)

	case "leave_canvas":
		h.withCanvasMessage(client, msg, h.handleLeaveCanvas)

	case "create_object":
		var createMsg createObjectMessage
		if err := json.Unmarshal(msg.Data, &createMsg); err != nil {
			log.Printf("Invalid create_object data: %v", err)
			return
		}
		h.handleCreateObject(client, createMsg)

	case "update_object":
		var updateMsg updateObjectMessage
		if err := json.Unmarshal(msg.Data, &updateMsg); err != nil {
			log.Printf("Invalid update_object data: %v", err)
			return
		}
		h.handleUpdateObject(client, updateMsg)

	case "delete_object":
		var deleteMsg deleteObjectMessage
		if err := json.Unmarshal(msg.Data, &deleteMsg); err != nil {
			log.Printf("Invalid delete_object data: %v", err)
			return
		}
		h.handleDeleteObject(client, deleteMsg)

	case "cursor_move":
		var cursorMsg cursorMoveMessage
		if err := json.Unmarshal(msg.Data, &cursorMsg); err != nil {
			log.Printf("Invalid cursor_move data: %v", err)
			return
		}
		h.handleCursorMove(client, cursorMsg)

	case "cursor_leave":
		h.withCanvasMessage(client, msg, h.handleCursorLeave)

	case "get_cursors":
		h.withCanvasMessage(client, msg, h.handleGetCursors)

	case "user_online":
		h.withCanvasMessage(client, msg, h.handleUserOnline)

	case "heartbeat":
		h.withCanvasMessage(client, msg, h.handleHeartbeat)

	case "user_offline":
		h.withCanvasMessage(client, msg, h.handleUserOffline)

	case "get_online_users":
		h.withCanvasMessage(client, msg, h.handleGetOnlineUsers)

	default:
		log.Printf("Unknown message type: %v", msg.Type)
	}
}

func (h *Handler) withCanvasMessage(client *Client, msg message, handle func(*Client, canvasMessage)) {
	var canvasMsg canvasMessage
	if err := json.Unmarshal(msg.Data, &canvasMsg); err != nil {
		log.Printf("Invalid %s data: %v", msg.Type, err)
		return
	}
	handle(client, canvasMsg)
}

// sendToSelf delivers an event to the originating connection only.
func (h *Handler) sendToSelf(client *Client, resp responseMessage) {
	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Error marshaling response JSON: %v", err)
		return
	}
	client.Send <- respBytes
}

// broadcast fans an event out to a room. With excludeOrigin the sending
// connection is skipped; without it the sender receives the event too, which
// is how object mutations confirm themselves.
func (h *Handler) broadcast(client *Client, roomKey string, excludeOrigin bool, resp responseMessage) {
	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Error marshaling broadcast JSON: %v", err)
		return
	}

	origin := ""
	if excludeOrigin {
		origin = client.id
	}
	if err := h.Hub.Broadcast(context.Background(), roomKey, origin, respBytes); err != nil {
		log.Printf("Broadcast to %s failed: %v", roomKey, err)
	}
}

func (h *Handler) sendError(client *Client, event string, err error) {
	log.Printf("%s failed for user %s: %v", event, client.user.Id, err)
	h.sendToSelf(client, responseMessage{
		Type: "error",
		Data: map[string]any{"event": event, "message": err.Error()},
	})
}

func (h *Handler) handleJoinCanvas(client *Client, canvasMsg canvasMessage) {
	ctx := context.Background()

	canvas, err := h.Service.GetCanvas(ctx, client.user, canvasMsg.CanvasId)
	if err != nil {
		h.sendError(client, "join_canvas", err)
		return
	}

	objects, err := h.Service.GetCanvasObjects(ctx, client.user, canvas.Id)
	if err != nil {
		h.sendError(client, "join_canvas", err)
		return
	}

	if _, err := h.Service.MarkOnline(ctx, client.user, canvas.Id); err != nil {
		h.sendError(client, "join_canvas", err)
		return
	}

	h.Hub.JoinCh <- membership{client: client, roomKey: canvasRoom(canvas.Id)}
	h.Hub.JoinCh <- membership{client: client, roomKey: presenceRoom(canvas.Id)}

	onlineUsers, err := h.Service.GetOnlineUsers(ctx, client.user, canvas.Id)
	if err != nil {
		log.Printf("Online users snapshot failed: %v", err)
	}
	cursors, err := h.Service.GetCursors(ctx, client.user, canvas.Id)
	if err != nil {
		log.Printf("Cursor snapshot failed: %v", err)
	}

	h.sendToSelf(client, responseMessage{
		Type: "joined_canvas",
		Data: map[string]any{
			"canvas_id":    canvas.Id,
			"canvas":       canvas,
			"objects":      objects,
			"online_users": onlineUsers,
			"cursors":      cursors,
		},
	})

	h.broadcast(client, presenceRoom(canvas.Id), true, responseMessage{
		Type: "user_joined",
		Data: map[string]any{
			"canvas_id":  canvas.Id,
			"user_id":    client.user.Id,
			"user_name":  client.user.Name,
			"avatar_url": client.user.AvatarURL,
		},
	})
}

func (h *Handler) handleLeaveCanvas(client *Client, canvasMsg canvasMessage) {
	if err := h.Service.MarkOffline(context.Background(), client.user, canvasMsg.CanvasId); err != nil {
		log.Printf("Mark offline failed: %v", err)
	}

	h.broadcast(client, presenceRoom(canvasMsg.CanvasId), true, responseMessage{
		Type: "user_left",
		Data: map[string]any{
			"canvas_id": canvasMsg.CanvasId,
			"user_id":   client.user.Id,
		},
	})

	h.Hub.LeaveCh <- membership{client: client, roomKey: canvasRoom(canvasMsg.CanvasId)}
	h.Hub.LeaveCh <- membership{client: client, roomKey: presenceRoom(canvasMsg.CanvasId)}
}

func (h *Handler) handleCreateObject(client *Client, createMsg createObjectMessage) {
	object, err := h.Service.CreateObject(context.Background(), client.user,
		createMsg.CanvasId, models.ObjectType(createMsg.ObjectType), createMsg.Properties)
	if err != nil {
		h.sendError(client, "create_object", err)
		return
	}

	// The stored record goes to everyone, sender included, so all clients
	// render the same canonical object.
	h.broadcast(client, canvasRoom(createMsg.CanvasId), false, responseMessage{
		Type: "object_created",
		Data: map[string]any{"canvas_id": createMsg.CanvasId, "object": object},
	})
}

func (h *Handler) handleUpdateObject(client *Client, updateMsg updateObjectMessage) {
	object, err := h.Service.UpdateObject(context.Background(), client.user,
		updateMsg.CanvasId, updateMsg.ObjectId, updateMsg.Properties)
	if err != nil {
		h.sendError(client, "update_object", err)
		return
	}

	h.broadcast(client, canvasRoom(updateMsg.CanvasId), false, responseMessage{
		Type: "object_updated",
		Data: map[string]any{"canvas_id": updateMsg.CanvasId, "object": object},
	})
}

func (h *Handler) handleDeleteObject(client *Client, deleteMsg deleteObjectMessage) {
	err := h.Service.DeleteObject(context.Background(), client.user, deleteMsg.CanvasId, deleteMsg.ObjectId)
	if err != nil {
		h.sendError(client, "delete_object", err)
		return
	}

	h.broadcast(client, canvasRoom(deleteMsg.CanvasId), false, responseMessage{
		Type: "object_deleted",
		Data: map[string]any{"canvas_id": deleteMsg.CanvasId, "object_id": deleteMsg.ObjectId},
	})
}

func (h *Handler) handleCursorMove(client *Client, cursorMsg cursorMoveMessage) {
	entry, err := h.Service.UpdateCursor(context.Background(), client.user, cursorMsg.CanvasId, cursorMsg.Position, cursorMsg.Timestamp)
	if err != nil {
		h.sendError(client, "cursor_move", err)
		return
	}

	h.broadcast(client, presenceRoom(cursorMsg.CanvasId), true, responseMessage{
		Type: "cursor_moved",
		Data: map[string]any{"canvas_id": cursorMsg.CanvasId, "cursor": entry},
	})
}

func (h *Handler) handleCursorLeave(client *Client, canvasMsg canvasMessage) {
	if err := h.Service.RemoveCursor(context.Background(), client.user, canvasMsg.CanvasId); err != nil {
		h.sendError(client, "cursor_leave", err)
		return
	}

	h.broadcast(client, presenceRoom(canvasMsg.CanvasId), true, responseMessage{
		Type: "cursor_left",
		Data: map[string]any{"canvas_id": canvasMsg.CanvasId, "user_id": client.user.Id},
	})
}

func (h *Handler) handleGetCursors(client *Client, canvasMsg canvasMessage) {
	cursors, err := h.Service.GetCursors(context.Background(), client.user, canvasMsg.CanvasId)
	if err != nil {
		h.sendError(client, "get_cursors", err)
		return
	}

	h.sendToSelf(client, responseMessage{
		Type: "cursors_data",
		Data: map[string]any{"canvas_id": canvasMsg.CanvasId, "cursors": cursors},
	})
}

func (h *Handler) handleUserOnline(client *Client, canvasMsg canvasMessage) {
	entry, err := h.Service.MarkOnline(context.Background(), client.user, canvasMsg.CanvasId)
	if err != nil {
		h.sendError(client, "user_online", err)
		return
	}

	// A client may come online without a prior join_canvas; make sure it is in
	// the presence room so presence and cursor broadcasts reach it. The hub
	// ignores joins for rooms the connection is already in.
	h.Hub.JoinCh <- membership{client: client, roomKey: presenceRoom(canvasMsg.CanvasId)}

	h.broadcast(client, presenceRoom(canvasMsg.CanvasId), true, responseMessage{
		Type: "user_came_online",
		Data: map[string]any{"canvas_id": canvasMsg.CanvasId, "user": entry},
	})
}

func (h *Handler) handleHeartbeat(client *Client, canvasMsg canvasMessage) {
	if err := h.Service.Heartbeat(context.Background(), client.user, canvasMsg.CanvasId); err != nil {
		log.Printf("Heartbeat failed for user %s: %v", client.user.Id, err)
	}
}

func (h *Handler) handleUserOffline(client *Client, canvasMsg canvasMessage) {
	if err := h.Service.MarkOffline(context.Background(), client.user, canvasMsg.CanvasId); err != nil {
		h.sendError(client, "user_offline", err)
		return
	}

	h.broadcast(client, presenceRoom(canvasMsg.CanvasId), true, responseMessage{
		Type: "user_went_offline",
		Data: map[string]any{"canvas_id": canvasMsg.CanvasId, "user_id": client.user.Id},
	})
}

func (h *Handler) handleGetOnlineUsers(client *Client, canvasMsg canvasMessage) {
	users, err := h.Service.GetOnlineUsers(context.Background(), client.user, canvasMsg.CanvasId)
	if err != nil {
		h.sendError(client, "get_online_users", err)
		return
	}

	h.sendToSelf(client, responseMessage{
		Type: "online_users",
		Data: map[string]any{"canvas_id": canvasMsg.CanvasId, "users": users},
	})
}
