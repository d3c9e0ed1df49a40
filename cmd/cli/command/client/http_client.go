package client

// http_client.go wraps the chatdesk REST API for the CLI.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Request/response structures, mirroring the server's DTOs.

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	FileRef    *string   `json:"file_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

type Room struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type RoomWithLastMessage struct {
	Room        Room     `json:"room"`
	LastMessage *Message `json:"last_message,omitempty"`
}

type RoomListResponse struct {
	Rooms []RoomWithLastMessage `json:"rooms"`
}

type CreateRoomRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants,omitempty"`
	Color        string   `json:"color,omitempty"`
}

type UpdateRoomRequest struct {
	Name            *string  `json:"name,omitempty"`
	Color           *string  `json:"color,omitempty"`
	AddParticipants []string `json:"add_participants,omitempty"`
}

type RoomResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Created bool   `json:"created"`
}

type SendMessageRequest struct {
	Content string  `json:"content"`
	FileRef *string `json:"file_ref,omitempty"`
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetToken attaches the access token used on authenticated endpoints.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

func (c *HTTPClient) Register(request *RegisterRequest) (*RegisterResponse, error) {
	var result RegisterResponse
	if err := c.doJSON(http.MethodPost, "/api/auth/register", request, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Login(request *LoginRequest) (*AuthResponse, error) {
	var result AuthResponse
	if err := c.doJSON(http.MethodPost, "/api/auth/login", request, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Refresh(refreshToken string) (*RefreshResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var result RefreshResponse
	if err := c.doJSON(http.MethodPost, "/api/auth/refresh", body, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GetRooms() ([]RoomWithLastMessage, error) {
	var result RoomListResponse
	if err := c.doJSON(http.MethodGet, "/api/chat/rooms", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result.Rooms, nil
}

func (c *HTTPClient) CreateRoom(request *CreateRoomRequest) (*RoomResponse, error) {
	// 201 on a fresh room, 200 on an idempotent replay
	var result RoomResponse
	err := c.doJSON(http.MethodPost, "/api/chat/rooms", request, http.StatusCreated, &result)
	if err == nil {
		return &result, nil
	}
	if statusOf(err) == http.StatusOK {
		return &result, nil
	}
	return nil, err
}

func (c *HTTPClient) UpdateRoom(roomID string, request *UpdateRoomRequest) (*Room, error) {
	var result Room
	path := "/api/chat/rooms/" + url.PathEscape(roomID)
	if err := c.doJSON(http.MethodPatch, path, request, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessages fetches one page of a room's history. An empty cursor means the
// newest page; pageSize 0 leaves the page size to the server.
func (c *HTTPClient) GetMessages(roomID, cursor string, pageSize int) (*MessagePage, error) {
	path := "/api/chat/rooms/" + url.PathEscape(roomID) + "/messages"
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var result MessagePage
	if err := c.doJSON(http.MethodGet, path, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) SendMessage(roomID, content string) (*Message, error) {
	path := "/api/chat/rooms/" + url.PathEscape(roomID) + "/messages"
	var result Message
	if err := c.doJSON(http.MethodPost, path, &SendMessageRequest{Content: content}, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// apiError keeps the status code so callers can tell a replay (200) from a
// real failure.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.status, e.body)
}

func statusOf(err error) int {
	if apiErr, ok := err.(*apiError); ok {
		return apiErr.status
	}
	return 0
}

// doJSON sends one request and decodes the response. A status other than
// wantStatus still decodes into result when the body parses, so callers can
// inspect near-miss statuses like 200-vs-201.
func (c *HTTPClient) doJSON(method, path string, body any, wantStatus int, result any) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	request, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != wantStatus {
		var buf bytes.Buffer
		buf.ReadFrom(response.Body)
		err := &apiError{status: response.StatusCode, body: buf.String()}
		if result != nil {
			json.Unmarshal(buf.Bytes(), result)
		}
		return err
	}

	if result == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(result)
}
