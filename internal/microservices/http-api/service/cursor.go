package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chatdesk/internal/microservices/http-api/repository"
)

var ErrInvalidCursor = errors.New("malformed pagination cursor")

// A cursor is the base64url form of "<created_at unix nanos>|<message id>",
// the keyset boundary of the last message on the page it was issued with.
// Opaque to clients; the empty string means "start from the newest message".

// EncodeCursor builds the continuation cursor pointing just past the given
// message.
func EncodeCursor(createdAt time.Time, messageID string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), messageID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a client-supplied cursor back into a page boundary.
// An empty cursor decodes to nil, meaning the first (newest) page.
func DecodeCursor(cursor string) (*repository.PageBoundary, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidCursor
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &repository.PageBoundary{
		CreatedAt: time.Unix(0, nanos),
		ID:        parts[1],
	}, nil
}
