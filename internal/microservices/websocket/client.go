package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Individual client connection handler

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // send pings before the pong deadline expires, 10% slack for network jitter
	MaxMessageSize = 512                 // maximum message size allowed from peer
)

type Client struct {
	ID          string          // unique client ID
	UserID      string          // user ID from auth token (JWT claims)
	UserName    string          // display name from auth token
	Conn        *websocket.Conn // WebSocket connection
	SendChannel chan []byte     // channel for outbound messages
	Hub         *Hub            // reference to the central Hub
}

// constructor new client
func NewClient(id, userID, userName string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:          id,
		UserID:      userID,
		UserName:    userName,
		Conn:        conn,
		SendChannel: make(chan []byte, 256),
		Hub:         hub,
	}
}

// ReadPump reads subscription and typing frames from the peer. Runs in its
// own goroutine; exiting unregisters the client and closes the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Unexpected websocket close", "client_id", c.ID, "error", err)
			}
			return
		}

		frame, err := FrameFromJSON(data)
		if err != nil {
			continue
		}

		switch frame.Type {
		case TypeJoin:
			if frame.RoomID != "" {
				c.Hub.subscribe <- subscription{client: c, roomID: frame.RoomID}
			}
		case TypeLeave:
			if frame.RoomID != "" {
				c.Hub.unsubscribe <- subscription{client: c, roomID: frame.RoomID}
			}
		case TypeTyping:
			// relay with the authenticated identity, never the client's claim
			relay := &Frame{
				Type:      TypeTyping,
				RoomID:    frame.RoomID,
				UserID:    c.UserID,
				UserName:  c.UserName,
				Timestamp: time.Now().UTC(),
			}
			if payload, err := relay.ToJSON(); err == nil {
				c.Hub.broadcast <- outbound{roomID: frame.RoomID, payload: payload}
			}
		default:
			// chat content enters through the HTTP send endpoint only
			c.sendSystem(frame.RoomID, "messages must be sent through the API")
		}
	}
}

// WritePump forwards queued frames to the peer and keeps the heartbeat going.
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.SendChannel:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				// hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendSystem(roomID, content string) {
	payload, err := NewSystemFrame(roomID, content).ToJSON()
	if err != nil {
		return
	}
	select {
	case c.SendChannel <- payload:
	default:
	}
}
