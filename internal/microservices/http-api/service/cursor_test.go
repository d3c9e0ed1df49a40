package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)

	cursor := EncodeCursor(createdAt, "msg-42")
	boundary, err := DecodeCursor(cursor)

	require.NoError(t, err)
	assert.True(t, boundary.CreatedAt.Equal(createdAt))
	assert.Equal(t, "msg-42", boundary.ID)
}

func TestDecodeCursor_EmptyMeansFirstPage(t *testing.T) {
	boundary, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, boundary)
}

func TestDecodeCursor_Malformed(t *testing.T) {
	cases := []string{
		"not base64 at all!!!",
		"bm8gc2VwYXJhdG9y",     // "no separator"
		"MTIzNDV8",             // missing id
		"bm90YW51bWJlcnxhYmM=", // "notanumber|abc"
	}
	for _, cursor := range cases {
		_, err := DecodeCursor(cursor)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", cursor)
	}
}
