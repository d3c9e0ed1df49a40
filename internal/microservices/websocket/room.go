package websocket

import (
	"log/slog"
	"sync"
)

// Room = the live-subscriber set of one chat room
type Room struct {
	ID      string             // room UUID
	Clients map[string]*Client // map[clientID] -> *Client
	mu      sync.RWMutex       // mutex for concurrent access
}

// NewRoom creates a new subscriber Room
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		Clients: make(map[string]*Client),
	}
}

// AddUser: adds new client to the room
func (r *Room) AddUser(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Clients[c.ID] == nil {
		slog.Info("Client added to room", "room_id", r.ID, "client_id", c.ID)
		r.Clients[c.ID] = c
	} else {
		slog.Warn("Client already in room", "room_id", r.ID, "client_id", c.ID)
	}
}

// RemoveUser: removes client from the room
func (r *Room) RemoveUser(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Clients[c.ID] != nil {
		slog.Info("Client removed from room", "room_id", r.ID, "client_id", c.ID)
		delete(r.Clients, c.ID)
	} else {
		slog.Warn("Client not found in room", "room_id", r.ID, "client_id", c.ID)
	}
}

// Broadcast: queues the payload on every subscriber in the room. A client
// whose send buffer is full is skipped; it will resync from the query API.
func (r *Room) Broadcast(payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, client := range r.Clients {
		select {
		case client.SendChannel <- payload:
		default:
			slog.Warn("Dropping frame for slow client", "room_id", r.ID, "client_id", client.ID)
		}
	}
}

// GetUserCount: returns the number of clients in the room
func (r *Room) GetUserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Clients)
}

// GetClients: returns copy of clients list in the room
func (r *Room) GetClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]*Client, 0, len(r.Clients))
	for _, client := range r.Clients {
		clients = append(clients, client)
	}
	return clients
}
