package handler

import (
	"errors"
	"net/http"
	"strconv"

	"chatdesk/internal/microservices/http-api/dto"
	"chatdesk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	queries   service.ChatQueryService
	mutations service.ChatMutationService
}

func NewChatHandler(queries service.ChatQueryService, mutations service.ChatMutationService) *ChatHandler {
	return &ChatHandler{queries: queries, mutations: mutations}
}

// callerFrom builds the caller identity from the claims the auth middleware
// validated. This is the only identity-resolution path chat handlers use.
func callerFrom(c *gin.Context) service.Caller {
	claims, exists := c.Get("claims")
	if !exists {
		return service.Caller{}
	}
	parsed, ok := claims.(*service.Claims)
	if !ok {
		return service.Caller{}
	}
	return parsed.Caller()
}

// GetRooms lists the caller's rooms with their last-message previews.
func (h *ChatHandler) GetRooms(c *gin.Context) {
	rooms, err := h.queries.GetRooms(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoomMessages returns one reverse-chronological page of a room's log.
func (h *ChatHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("id")
	cursor := c.Query("cursor")

	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be an integer"})
			return
		}
		pageSize = parsed
	}

	page, err := h.queries.GetRoomMessages(c.Request.Context(), roomID, cursor, pageSize)
	if err != nil {
		respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SendMessage validates and persists a message into the room.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.mutations.SendMessage(c.Request.Context(), callerFrom(c), c.Param("id"), req.Content, req.FileRef)
	if err != nil {
		respondChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// CreateRoom upserts a room; replaying the same name returns the existing
// room with created=false.
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, created, err := h.mutations.CreateRoom(c.Request.Context(), callerFrom(c), req.Name, req.Participants, req.Color)
	if err != nil {
		respondChatError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.RoomResponse{
		ID:      room.ID,
		Name:    room.Name,
		Color:   room.Color,
		Created: created,
	})
}

// UpdateRoom patches room fields and adds participants.
func (h *ChatHandler) UpdateRoom(c *gin.Context) {
	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.mutations.UpdateRoom(c.Request.Context(), callerFrom(c), c.Param("id"), service.RoomUpdate{
		Name:            req.Name,
		Color:           req.Color,
		AddParticipants: req.AddParticipants,
	})
	if err != nil {
		respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// respondChatError maps service errors onto HTTP statuses.
func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusForbidden, gin.H{"error": "no profile provisioned for this identity"})
	case errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrEmptyRoomName),
		errors.Is(err, service.ErrNoParticipants),
		errors.Is(err, service.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage temporarily unavailable"})
	}
}
