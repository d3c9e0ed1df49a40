package websocket

// Central hub managing all connections and rooms
// Each WebSocket connection runs in its own goroutine
// but they all communicate through channels to avoid race conditions.

import (
	"log/slog"
	"sync"

	"chatdesk/internal/microservices/http-api/models"
)

type subscription struct {
	client *Client
	roomID string
}

type outbound struct {
	roomID  string
	payload []byte
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan outbound

	// owned by Run; rooms are only touched from the hub goroutine, the map
	// of all clients is read from Shutdown under the mutex
	rooms   map[string]*Room
	clients map[string]*Client
	mu      sync.RWMutex

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		broadcast:   make(chan outbound, 256),
		rooms:       make(map[string]*Room),
		clients:     make(map[string]*Client),
		done:        make(chan struct{}),
	}
}

// Run is the hub event loop. All room bookkeeping happens here so no two
// goroutines ever mutate the rooms map concurrently.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			slog.Info("Client registered", "client_id", client.ID)

		case client := <-h.Unregister:
			h.mu.Lock()
			delete(h.clients, client.ID)
			h.mu.Unlock()
			for _, room := range h.rooms {
				room.RemoveUser(client)
			}
			h.dropEmptyRooms()
			close(client.SendChannel)
			slog.Info("Client unregistered", "client_id", client.ID)

		case sub := <-h.subscribe:
			room := h.rooms[sub.roomID]
			if room == nil {
				room = NewRoom(sub.roomID)
				h.rooms[sub.roomID] = room
			}
			room.AddUser(sub.client)

		case sub := <-h.unsubscribe:
			if room := h.rooms[sub.roomID]; room != nil {
				room.RemoveUser(sub.client)
			}
			h.dropEmptyRooms()

		case out := <-h.broadcast:
			if room := h.rooms[out.roomID]; room != nil {
				room.Broadcast(out.payload)
			}

		case <-h.done:
			for _, room := range h.rooms {
				for _, client := range room.GetClients() {
					room.RemoveUser(client)
				}
			}
			return
		}
	}
}

// BroadcastMessage pushes a stored message to the room's live subscribers.
// Called by the mutation service after the insert transaction commits;
// non-blocking so a saturated hub cannot stall a send.
func (h *Hub) BroadcastMessage(roomID string, message *models.Message) {
	frame := NewChatFrame(roomID, message)
	payload, err := frame.ToJSON()
	if err != nil {
		return
	}
	select {
	case h.broadcast <- outbound{roomID: roomID, payload: payload}:
	default:
		slog.Warn("Hub broadcast queue full, dropping frame", "room_id", roomID)
	}
}

func (h *Hub) Shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		client.Conn.Close()
	}
}

func (h *Hub) dropEmptyRooms() {
	for id, room := range h.rooms {
		if room.GetUserCount() == 0 {
			delete(h.rooms, id)
		}
	}
}
