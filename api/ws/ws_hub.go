package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nkazmin/liveboard/cache"
)

type membership struct {
	client  *Client
	roomKey string
}

type delivery struct {
	roomKey string
	origin  string
	payload []byte
}

// envelope is the wire format on the cache pub/sub channels. Origin carries
// the connection id of the sender so the local fan-out can skip it for events
// that go to everyone else in the room.
type envelope struct {
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Hub maintains the set of active clients and their room memberships. Every
// room is backed by one cache pub/sub subscription shared by all local
// members, so broadcasts reach clients on every instance.
//
// Membership maps are owned by the Run goroutine alone. Subscription
// callbacks run on cache reader goroutines, so they hand deliveries to Run
// through deliverCh instead of touching roomToClients themselves.
type Hub struct {
	presenceCache        cache.PresenceCache
	OpenCh               chan *Client
	CloseCh              chan *Client
	JoinCh               chan membership
	LeaveCh              chan membership
	deliverCh            chan delivery
	userToClients        map[string]map[*Client]struct{}
	roomToClients        map[string]map[*Client]struct{}
	roomSubscriberCancel map[string]context.CancelFunc
}

func NewHub(presenceCache cache.PresenceCache) *Hub {
	return &Hub{
		presenceCache:        presenceCache,
		OpenCh:               make(chan *Client, 256),
		CloseCh:              make(chan *Client, 256),
		JoinCh:               make(chan membership, 1024),
		LeaveCh:              make(chan membership, 1024),
		deliverCh:            make(chan delivery, 1024),
		userToClients:        make(map[string]map[*Client]struct{}),
		roomToClients:        make(map[string]map[*Client]struct{}),
		roomSubscriberCancel: make(map[string]context.CancelFunc),
	}
}

const (
	maxConnectionsPerUser = 5
	maxRoomsPerConnection = 20
)

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.OpenCh:
			if _, ok := h.userToClients[client.user.Id]; !ok {
				h.userToClients[client.user.Id] = make(map[*Client]struct{})
			}

			if len(h.userToClients[client.user.Id]) >= maxConnectionsPerUser {
				log.Printf("User %s reached max connections (%d)", client.user.Id, maxConnectionsPerUser)
				close(client.Send)
				continue
			}

			h.userToClients[client.user.Id][client] = struct{}{}

		case client := <-h.CloseCh:
			for room := range client.joinedRooms {
				h.removeFromRoom(client, room)
			}
			delete(h.userToClients[client.user.Id], client)
			if len(h.userToClients[client.user.Id]) == 0 {
				delete(h.userToClients, client.user.Id)
			}

		case join := <-h.JoinCh:
			if _, member := join.client.joinedRooms[join.roomKey]; member {
				continue
			}
			if len(join.client.joinedRooms) >= maxRoomsPerConnection {
				log.Printf("Connection by user %s reached max rooms (%d)", join.client.user.Id, maxRoomsPerConnection)
				continue
			}
			if h.roomToClients[join.roomKey] == nil {
				ctx, cancel := context.WithCancel(context.Background())
				roomKey := join.roomKey
				channel := "room:" + roomKey

				err := h.presenceCache.Subscribe(ctx, channel, func(messageBytes []byte) {
					var env envelope
					if err := json.Unmarshal(messageBytes, &env); err != nil {
						log.Printf("Bad envelope on channel %s: %v", channel, err)
						return
					}
					h.deliverCh <- delivery{roomKey: roomKey, origin: env.Origin, payload: env.Payload}
				})
				if err != nil {
					log.Printf("Failed to create subscription for channel %s: %v", channel, err)
					cancel()
					continue
				}

				h.roomToClients[join.roomKey] = make(map[*Client]struct{})
				h.roomSubscriberCancel[join.roomKey] = cancel
			}
			h.roomToClients[join.roomKey][join.client] = struct{}{}
			join.client.joinedRooms[join.roomKey] = struct{}{}

		case leave := <-h.LeaveCh:
			delete(leave.client.joinedRooms, leave.roomKey)
			h.removeFromRoom(leave.client, leave.roomKey)

		case d := <-h.deliverCh:
			for client := range h.roomToClients[d.roomKey] {
				if d.origin != "" && client.id == d.origin {
					continue
				}
				select {
				case client.Send <- d.payload:
				default:
					log.Printf("Dropping message to slow connection of user %s", client.user.Id)
				}
			}
		}
	}
}

func (h *Hub) removeFromRoom(client *Client, roomKey string) {
	delete(h.roomToClients[roomKey], client)
	if len(h.roomToClients[roomKey]) == 0 {
		if cancel, ok := h.roomSubscriberCancel[roomKey]; ok {
			cancel()
			delete(h.roomSubscriberCancel, roomKey)
		}
		delete(h.roomToClients, roomKey)
	}
}

// Broadcast publishes an event to a room through the cache, so it reaches
// members on every instance. An empty origin delivers to everyone including
// the sender; a connection id as origin skips that connection locally and
// remotely.
func (h *Hub) Broadcast(ctx context.Context, roomKey string, origin string, payload []byte) error {
	env := envelope{Origin: origin, Payload: payload}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return h.presenceCache.Publish(ctx, "room:"+roomKey, envBytes)
}
