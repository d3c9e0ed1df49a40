package client

// ws_client.go is the live-update socket client. The socket only carries
// subscriptions (join/leave) and server pushes; messages are sent over HTTP.

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// Frame mirrors the server's socket envelope.
type Frame struct {
	Type     string   `json:"type"`
	RoomID   string   `json:"room_id,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
	UserName string   `json:"user_name,omitempty"`
	Message  *Message `json:"message,omitempty"`
	Content  string   `json:"content,omitempty"`
}

type WSConn struct {
	conn *websocket.Conn
}

// DialWS connects to the live socket of the API server, upgrading the base
// URL's scheme (http -> ws, https -> wss).
func DialWS(apiURL, token string) (*WSConn, error) {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: parsed.Host, Path: "/ws"}

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return &WSConn{conn: conn}, nil
}

func (w *WSConn) Join(roomID string) error {
	return w.conn.WriteJSON(Frame{Type: "join", RoomID: roomID})
}

func (w *WSConn) Leave(roomID string) error {
	return w.conn.WriteJSON(Frame{Type: "leave", RoomID: roomID})
}

func (w *WSConn) Typing(roomID string) error {
	return w.conn.WriteJSON(Frame{Type: "typing", RoomID: roomID})
}

// ReadLoop delivers every inbound frame to handle until the connection dies.
func (w *WSConn) ReadLoop(handle func(Frame)) error {
	for {
		var frame Frame
		if err := w.conn.ReadJSON(&frame); err != nil {
			return err
		}
		handle(frame)
	}
}

func (w *WSConn) Close() error {
	return w.conn.Close()
}

// PrintFrame pretty prints a server push.
func PrintFrame(frame Frame) {
	switch frame.Type {
	case "system":
		color.Yellow("🔔 %s", frame.Content)

	case "chat":
		if frame.Message != nil {
			PrintMessage(frame.Message)
		}

	case "typing":
		color.HiBlack("%s is typing...", frame.UserName)
	}
}

// PrintMessage renders one stored message line.
func PrintMessage(m *Message) {
	line := fmt.Sprintf("[%s] %s: %s",
		m.CreatedAt.Local().Format("15:04"), m.SenderName, strings.TrimRight(m.Content, "\n"))
	color.Cyan("%s", line)
	if m.FileRef != nil {
		color.HiBlack("  attachment: %s", *m.FileRef)
	}
}
