// Package chatview is the client-resident state machine behind an open chat
// room view. It merges paginated history with live updates, decides when to
// request older pages and when to auto-scroll, and keeps the visual anchor
// stable when older messages are prepended.
//
// The machine is pure: Apply maps (state, event) to (state, effects) and
// never touches the network or the DOM itself. The host (a UI binding, or a
// test) executes the returned effects and feeds the results back in as
// events. Per-view session state therefore survives re-renders without any
// ambient mutable cells.
package chatview

import (
	"sort"
	"time"
)

// Phase is the coarse lifecycle position of the view.
type Phase int

const (
	PhaseLoadingFirstPage Phase = iota
	PhaseReady
	PhaseLoadingOlder
)

// Default geometry thresholds, in pixels.
const (
	DefaultNearBottomThreshold = 80.0 // within this distance of the bottom, auto-scroll stays on
	DefaultNearTopThreshold    = 60.0 // within this distance of the top, older history is requested
)

// Message is the view's notion of a chat entry. CreatedAt ordering is the
// only ordering ever rendered, regardless of network arrival order.
type Message struct {
	ID         string
	SenderName string
	Content    string
	FileRef    string
	CreatedAt  time.Time
}

// Config tunes the scroll geometry. The zero value picks the defaults.
type Config struct {
	NearBottomThreshold float64
	NearTopThreshold    float64
}

func (c Config) withDefaults() Config {
	if c.NearBottomThreshold <= 0 {
		c.NearBottomThreshold = DefaultNearBottomThreshold
	}
	if c.NearTopThreshold <= 0 {
		c.NearTopThreshold = DefaultNearTopThreshold
	}
	return c
}

// State is the complete per-view session state. It is a value: Apply returns
// a new one and never mutates its input.
type State struct {
	Config Config

	Phase      Phase
	Messages   []Message // ascending CreatedAt, ties by ID
	NextCursor string
	Exhausted  bool // the oldest page has been fetched

	NearBottom    bool
	FetchInFlight bool // at most one older-page fetch at a time
	Generation    int  // stamped on fetches; responses for other generations are stale

	Draft string // last submitted input, kept for restore on send failure

	ScrollOffset   float64
	ViewportHeight float64
	ContentHeight  float64
}

// Event is an input to the machine.
type Event interface{ isEvent() }

// PageLoaded reports a finished page fetch. PrependedHeight is the pixel
// height of the inserted content, measured by the host after layout.
type PageLoaded struct {
	Messages        []Message // newest first, as returned by the query service
	NextCursor      string
	HasMore         bool
	PrependedHeight float64
	Generation      int
}

// MessageArrived is a live update, not a pagination result.
type MessageArrived struct {
	Message Message
}

// Scrolled reports the viewport geometry after a user scroll.
type Scrolled struct {
	Offset         float64
	ViewportHeight float64
	ContentHeight  float64
}

// SendSubmitted is the user pressing send with the given draft.
type SendSubmitted struct{ Draft string }

// SendSucceeded acknowledges the round trip; the stored message itself
// arrives separately as a MessageArrived.
type SendSucceeded struct{}

// SendFailed reports a failed send; the draft must come back.
type SendFailed struct{ Err error }

// FetchFailed reports a failed page fetch for the given generation.
type FetchFailed struct {
	Err        error
	Generation int
}

func (PageLoaded) isEvent()     {}
func (MessageArrived) isEvent() {}
func (Scrolled) isEvent()       {}
func (SendSubmitted) isEvent()  {}
func (SendSucceeded) isEvent()  {}
func (SendFailed) isEvent()     {}
func (FetchFailed) isEvent()    {}

// Effect is an instruction to the host. Effects emitted together must be
// executed in order, synchronously with the state change that produced them
// (scroll adjustments in particular must land before the next paint).
type Effect interface{ isEffect() }

// EffectFetchPage asks the host to call the query service. Cursor "" means
// the first (newest) page. The response comes back as PageLoaded or
// FetchFailed carrying the same generation.
type EffectFetchPage struct {
	Cursor     string
	Generation int
}

// EffectScrollToBottom scrolls the view to the newest message.
type EffectScrollToBottom struct{ Smooth bool }

// EffectAdjustScroll shifts the scroll offset by exactly Delta so the
// anchored message does not jump when content is prepended.
type EffectAdjustScroll struct{ Delta float64 }

// EffectClearInput empties the input box (optimistically, on submit).
type EffectClearInput struct{}

// EffectRestoreDraft puts the failed draft back into the input box.
type EffectRestoreDraft struct{ Draft string }

// EffectShowError surfaces a failure to the user.
type EffectShowError struct{ Err error }

func (EffectFetchPage) isEffect()      {}
func (EffectScrollToBottom) isEffect() {}
func (EffectAdjustScroll) isEffect()   {}
func (EffectClearInput) isEffect()     {}
func (EffectRestoreDraft) isEffect()   {}
func (EffectShowError) isEffect()      {}

// NewState opens a room view: the machine starts loading the first page and
// the host is told to fetch it.
func NewState(cfg Config) (State, []Effect) {
	s := State{
		Config:        cfg.withDefaults(),
		Phase:         PhaseLoadingFirstPage,
		NearBottom:    true,
		FetchInFlight: true,
		Generation:    1,
	}
	return s, []Effect{EffectFetchPage{Cursor: "", Generation: 1}}
}

// Apply is the transition function. The input state is never mutated.
func Apply(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case PageLoaded:
		return applyPageLoaded(s, e)
	case MessageArrived:
		return applyMessageArrived(s, e)
	case Scrolled:
		return applyScrolled(s, e)
	case SendSubmitted:
		s.Draft = e.Draft
		return s, []Effect{EffectClearInput{}}
	case SendSucceeded:
		s.Draft = ""
		return s, nil
	case SendFailed:
		draft := s.Draft
		s.Draft = ""
		return s, []Effect{EffectRestoreDraft{Draft: draft}, EffectShowError{Err: e.Err}}
	case FetchFailed:
		return applyFetchFailed(s, e)
	}
	return s, nil
}

func applyPageLoaded(s State, e PageLoaded) (State, []Effect) {
	// late response for a view that moved on (or was torn down and
	// reopened): ignore it entirely
	if e.Generation != s.Generation || !s.FetchInFlight {
		return s, nil
	}

	incoming := make([]Message, len(e.Messages))
	copy(incoming, e.Messages)
	reverse(incoming) // query returns newest first, the view renders ascending

	s.FetchInFlight = false
	s.NextCursor = e.NextCursor
	s.Exhausted = !e.HasMore

	switch s.Phase {
	case PhaseLoadingFirstPage:
		s.Messages = incoming
		s.Phase = PhaseReady
		s.NearBottom = true
		// land at the conversation's tail instantly, no animation
		return s, []Effect{EffectScrollToBottom{Smooth: false}}

	case PhaseLoadingOlder:
		s.Messages = mergeByCreatedAt(incoming, s.Messages)
		s.Phase = PhaseReady
		if e.PrependedHeight == 0 {
			return s, nil
		}
		// shift by exactly the inserted height, in the same transition as
		// the insert, so the anchored message stays put
		s.ScrollOffset += e.PrependedHeight
		return s, []Effect{EffectAdjustScroll{Delta: e.PrependedHeight}}
	}
	return s, nil
}

func applyMessageArrived(s State, e MessageArrived) (State, []Effect) {
	s.Messages = mergeByCreatedAt(s.Messages, []Message{e.Message})

	// never steal scroll position from a user reading history
	if s.Phase == PhaseReady && s.NearBottom {
		return s, []Effect{EffectScrollToBottom{Smooth: true}}
	}
	return s, nil
}

func applyScrolled(s State, e Scrolled) (State, []Effect) {
	s.ScrollOffset = e.Offset
	s.ViewportHeight = e.ViewportHeight
	s.ContentHeight = e.ContentHeight

	distanceFromBottom := e.ContentHeight - e.Offset - e.ViewportHeight
	s.NearBottom = distanceFromBottom <= s.Config.NearBottomThreshold

	// request older history when the user reaches the top of the loaded
	// window; a second trigger while one fetch is outstanding is dropped
	if e.Offset <= s.Config.NearTopThreshold &&
		s.Phase == PhaseReady && !s.Exhausted && !s.FetchInFlight {
		s.Phase = PhaseLoadingOlder
		s.FetchInFlight = true
		s.Generation++
		return s, []Effect{EffectFetchPage{Cursor: s.NextCursor, Generation: s.Generation}}
	}
	return s, nil
}

func applyFetchFailed(s State, e FetchFailed) (State, []Effect) {
	if e.Generation != s.Generation || !s.FetchInFlight {
		return s, nil
	}
	s.FetchInFlight = false
	// land in Ready either way: a failed older fetch returns to the prior
	// window, a failed first fetch leaves an empty view. The same scroll
	// gesture retries (NextCursor is still the cursor of the failed fetch,
	// "" for the first page).
	s.Phase = PhaseReady
	return s, []Effect{EffectShowError{Err: e.Err}}
}

// mergeByCreatedAt merges two ascending runs, dropping duplicate IDs (a sent
// message can arrive both from the send round trip and the live feed).
func mergeByCreatedAt(a, b []Message) []Message {
	merged := make([]Message, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})

	out := merged[:0]
	seen := make(map[string]bool, len(merged))
	for _, m := range merged {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

func reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
