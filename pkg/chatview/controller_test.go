package chatview

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMessages(n int, start time.Time) []Message {
	// newest first, like the query service returns; IDs derive from the
	// timestamp so pages built from different starts never collide
	msgs := make([]Message, n)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(n-i) * time.Second)
		msgs[i] = Message{
			ID:        fmt.Sprintf("msg-%d", at.Unix()),
			Content:   fmt.Sprintf("message at %d", at.Unix()),
			CreatedAt: at,
		}
	}
	return msgs
}

func firstPageLoaded(t *testing.T, pageSize int) State {
	t.Helper()
	s, effects := NewState(Config{})

	require.Len(t, effects, 1)
	fetch, ok := effects[0].(EffectFetchPage)
	require.True(t, ok)
	assert.Equal(t, "", fetch.Cursor)

	s, effects = Apply(s, PageLoaded{
		Messages:   makeMessages(pageSize, time.Unix(1000, 0)),
		NextCursor: "cursor-1",
		HasMore:    true,
		Generation: fetch.Generation,
	})
	require.Equal(t, PhaseReady, s.Phase)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectScrollToBottom{Smooth: false}, effects[0])
	return s
}

func TestFirstPageLoad_JumpsToBottomInstantly(t *testing.T) {
	s := firstPageLoaded(t, 50)

	assert.True(t, s.NearBottom)
	assert.False(t, s.FetchInFlight)
	assert.False(t, s.Exhausted)
	assert.Len(t, s.Messages, 50)

	// render order is ascending by CreatedAt
	for i := 1; i < len(s.Messages); i++ {
		assert.True(t, s.Messages[i-1].CreatedAt.Before(s.Messages[i].CreatedAt))
	}
}

func TestScrollNearTop_TriggersExactlyOneFetch(t *testing.T) {
	s := firstPageLoaded(t, 50)

	s, effects := Apply(s, Scrolled{Offset: 10, ViewportHeight: 600, ContentHeight: 5000})
	require.Len(t, effects, 1)
	fetch := effects[0].(EffectFetchPage)
	assert.Equal(t, "cursor-1", fetch.Cursor)
	assert.Equal(t, PhaseLoadingOlder, s.Phase)

	// a second trigger while the fetch is outstanding is dropped, not queued
	s, effects = Apply(s, Scrolled{Offset: 5, ViewportHeight: 600, ContentHeight: 5000})
	assert.Empty(t, effects)
	assert.True(t, s.FetchInFlight)
}

func TestScrollNearTop_NoFetchWhenExhausted(t *testing.T) {
	s := firstPageLoaded(t, 50)
	s.Exhausted = true

	_, effects := Apply(s, Scrolled{Offset: 0, ViewportHeight: 600, ContentHeight: 5000})
	assert.Empty(t, effects)
}

func TestOlderPagePrepend_PreservesScrollAnchor(t *testing.T) {
	s := firstPageLoaded(t, 50)

	s, effects := Apply(s, Scrolled{Offset: 10, ViewportHeight: 600, ContentHeight: 5000})
	fetch := effects[0].(EffectFetchPage)

	older := makeMessages(50, time.Unix(0, 0))
	offsetBefore := s.ScrollOffset
	const prependedHeight = 2400.0

	s, effects = Apply(s, PageLoaded{
		Messages:        older,
		NextCursor:      "cursor-2",
		HasMore:         true,
		PrependedHeight: prependedHeight,
		Generation:      fetch.Generation,
	})

	require.Equal(t, PhaseReady, s.Phase)
	assert.Len(t, s.Messages, 100)

	// both pages survive the merge in full, every ID exactly once
	seen := make(map[string]bool, len(s.Messages))
	for _, m := range s.Messages {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}

	// offset after the prepend equals offset before plus the inserted height
	assert.Equal(t, offsetBefore+prependedHeight, s.ScrollOffset)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectAdjustScroll{Delta: prependedHeight}, effects[0])
}

func TestOldestPage_MarksExhausted(t *testing.T) {
	s := firstPageLoaded(t, 50)

	s, effects := Apply(s, Scrolled{Offset: 10, ViewportHeight: 600, ContentHeight: 5000})
	fetch := effects[0].(EffectFetchPage)

	s, _ = Apply(s, PageLoaded{
		Messages:   makeMessages(3, time.Unix(0, 0)),
		NextCursor: "",
		HasMore:    false,
		Generation: fetch.Generation,
	})
	assert.True(t, s.Exhausted)
	assert.Len(t, s.Messages, 53)

	// no further fetches, ever
	_, effects = Apply(s, Scrolled{Offset: 0, ViewportHeight: 600, ContentHeight: 5200})
	assert.Empty(t, effects)
}

func TestStalePageResponse_IsIgnored(t *testing.T) {
	s := firstPageLoaded(t, 10)
	before := s

	// a response stamped with an old generation arrives late
	s, effects := Apply(s, PageLoaded{
		Messages:   makeMessages(10, time.Unix(0, 0)),
		Generation: s.Generation + 7,
	})
	assert.Empty(t, effects)
	assert.Equal(t, before.Messages, s.Messages)
}

func TestLiveArrival_AutoScrollsOnlyWhenNearBottom(t *testing.T) {
	s := firstPageLoaded(t, 10)
	require.True(t, s.NearBottom)

	newest := Message{ID: "live-1", Content: "hi", CreatedAt: time.Unix(2000, 0)}
	s, effects := Apply(s, MessageArrived{Message: newest})
	require.Len(t, effects, 1)
	assert.Equal(t, EffectScrollToBottom{Smooth: true}, effects[0])
	assert.Equal(t, "live-1", s.Messages[len(s.Messages)-1].ID)

	// scrolled up to read history: arrivals must not steal the viewport
	s, _ = Apply(s, Scrolled{Offset: 500, ViewportHeight: 600, ContentHeight: 5000})
	require.False(t, s.NearBottom)
	offsetBefore := s.ScrollOffset

	s, effects = Apply(s, MessageArrived{Message: Message{ID: "live-2", CreatedAt: time.Unix(2001, 0)}})
	assert.Empty(t, effects)
	assert.Equal(t, offsetBefore, s.ScrollOffset)
}

func TestArrivalOrder_DoesNotAffectRenderOrder(t *testing.T) {
	s := firstPageLoaded(t, 5)

	// live updates arriving out of created-at order
	late := Message{ID: "b", CreatedAt: time.Unix(3000, 0)}
	early := Message{ID: "a", CreatedAt: time.Unix(2000, 0)}
	s, _ = Apply(s, MessageArrived{Message: late})
	s, _ = Apply(s, MessageArrived{Message: early})

	for i := 1; i < len(s.Messages); i++ {
		assert.False(t, s.Messages[i].CreatedAt.Before(s.Messages[i-1].CreatedAt))
	}
}

func TestDuplicateArrival_IsDroppedOnce(t *testing.T) {
	s := firstPageLoaded(t, 5)

	m := Message{ID: "dup", CreatedAt: time.Unix(2000, 0)}
	s, _ = Apply(s, MessageArrived{Message: m})
	s, _ = Apply(s, MessageArrived{Message: m}) // send round trip + live feed

	count := 0
	for _, msg := range s.Messages {
		if msg.ID == "dup" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSendFlow_OptimisticClearAndRestoreOnFailure(t *testing.T) {
	s := firstPageLoaded(t, 5)

	s, effects := Apply(s, SendSubmitted{Draft: "hello there"})
	require.Len(t, effects, 1)
	assert.Equal(t, EffectClearInput{}, effects[0])

	sendErr := errors.New("network down")
	s, effects = Apply(s, SendFailed{Err: sendErr})
	require.Len(t, effects, 2)
	assert.Equal(t, EffectRestoreDraft{Draft: "hello there"}, effects[0])
	assert.Equal(t, EffectShowError{Err: sendErr}, effects[1])
	assert.Empty(t, s.Draft)
}

func TestSendFlow_SuccessDropsDraft(t *testing.T) {
	s := firstPageLoaded(t, 5)

	s, _ = Apply(s, SendSubmitted{Draft: "hello"})
	s, effects := Apply(s, SendSucceeded{})
	assert.Empty(t, effects)
	assert.Empty(t, s.Draft)
}

func TestFetchFailure_ReturnsToPriorStateAndIsRetryable(t *testing.T) {
	s := firstPageLoaded(t, 50)

	s, effects := Apply(s, Scrolled{Offset: 10, ViewportHeight: 600, ContentHeight: 5000})
	fetch := effects[0].(EffectFetchPage)
	messagesBefore := len(s.Messages)

	fetchErr := errors.New("storage unavailable")
	s, effects = Apply(s, FetchFailed{Err: fetchErr, Generation: fetch.Generation})
	require.Equal(t, PhaseReady, s.Phase)
	assert.False(t, s.FetchInFlight)
	assert.Len(t, s.Messages, messagesBefore)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectShowError{Err: fetchErr}, effects[0])

	// the same gesture that triggered the fetch retries it
	_, effects = Apply(s, Scrolled{Offset: 10, ViewportHeight: 600, ContentHeight: 5000})
	require.Len(t, effects, 1)
	retry := effects[0].(EffectFetchPage)
	assert.Equal(t, "cursor-1", retry.Cursor)
	assert.Greater(t, retry.Generation, fetch.Generation)
}

func TestFirstPageFetchFailure_IsRetryable(t *testing.T) {
	s, effects := NewState(Config{})
	fetch := effects[0].(EffectFetchPage)

	fetchErr := errors.New("storage unavailable")
	s, effects = Apply(s, FetchFailed{Err: fetchErr, Generation: fetch.Generation})
	require.Equal(t, PhaseReady, s.Phase)
	assert.False(t, s.FetchInFlight)
	assert.Empty(t, s.Messages)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectShowError{Err: fetchErr}, effects[0])

	// scrolling near the top of the empty view re-requests the first page
	_, effects = Apply(s, Scrolled{Offset: 0, ViewportHeight: 600, ContentHeight: 0})
	require.Len(t, effects, 1)
	retry := effects[0].(EffectFetchPage)
	assert.Equal(t, "", retry.Cursor)
	assert.Greater(t, retry.Generation, fetch.Generation)
}

func TestEmptyRoom_ReadyWithNoMessages(t *testing.T) {
	s, effects := NewState(Config{})
	fetch := effects[0].(EffectFetchPage)

	s, _ = Apply(s, PageLoaded{
		Messages:   nil,
		NextCursor: "",
		HasMore:    false,
		Generation: fetch.Generation,
	})
	assert.Equal(t, PhaseReady, s.Phase)
	assert.True(t, s.Exhausted)
	assert.Empty(t, s.Messages)
}

func TestApply_DoesNotMutateInputState(t *testing.T) {
	s := firstPageLoaded(t, 5)
	snapshot := make([]Message, len(s.Messages))
	copy(snapshot, s.Messages)

	_, _ = Apply(s, MessageArrived{Message: Message{ID: "x", CreatedAt: time.Unix(1, 0)}})
	assert.Equal(t, snapshot, s.Messages)
}
