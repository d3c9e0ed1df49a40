package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"chatdesk/cmd/cli/command/client"
	"chatdesk/pkg/chatview"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// chat.go: the interactive room session. History paging, live updates and
// draft handling are all driven by the chatview state machine; this file is
// just the terminal host executing its effects.

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat commands",
	Long:  `Open a room to read history and exchange messages in real time.`,
}

var chatOpenCmd = &cobra.Command{
	Use:   "open <room-id>",
	Short: "Open a chat room",
	Long: `Open a chat room. Lines you type are sent as messages. Commands:
  /older   load the previous page of history
  /quit    leave the room`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}
		pageSize, _ := cmd.Flags().GetInt("page-size")

		ws, err := client.DialWS(apiURL, token)
		if err != nil {
			return err
		}
		defer ws.Close()

		s := &chatSession{
			http:     httpClient,
			ws:       ws,
			roomID:   args[0],
			pageSize: pageSize,
			events:   make(chan chatview.Event, 16),
			quit:     make(chan struct{}),
		}
		return s.run()
	},
}

type chatSession struct {
	state    chatview.State
	http     *client.HTTPClient
	ws       *client.WSConn
	roomID   string
	pageSize int

	events chan chatview.Event
	quit   chan struct{}
	once   sync.Once
}

// stop ends the session; safe to call from any goroutine, more than once.
func (s *chatSession) stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *chatSession) run() error {
	if err := s.ws.Join(s.roomID); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}
	defer s.ws.Leave(s.roomID)

	fmt.Printf("Opening room %s... type /quit to leave.\n\n", s.roomID)

	var effects []chatview.Effect
	s.state, effects = chatview.NewState(chatview.Config{})
	s.exec(effects)

	go s.readSocket()
	go s.readInput()

	for {
		select {
		case <-s.quit:
			return nil
		case ev := <-s.events:
			s.dispatch(ev)
		}
	}
}

// dispatch runs one transition and renders what changed.
func (s *chatSession) dispatch(ev chatview.Event) {
	before := s.state
	var effects []chatview.Effect
	s.state, effects = chatview.Apply(s.state, ev)

	switch ev.(type) {
	case chatview.PageLoaded:
		s.printLoadedPage(before)
	case chatview.MessageArrived:
		s.printNewTail(before)
	}
	s.exec(effects)
}

// printLoadedPage renders the messages a page fetch added. The first page is
// the conversation tail; older pages go out under a separator since a
// terminal cannot prepend.
func (s *chatSession) printLoadedPage(before chatview.State) {
	added := diffMessages(before.Messages, s.state.Messages)
	if len(added) == 0 {
		if before.Phase == chatview.PhaseLoadingOlder && s.state.Exhausted {
			color.HiBlack("-- beginning of history --")
		}
		return
	}

	if before.Phase == chatview.PhaseLoadingOlder {
		color.HiBlack("-- older messages --")
	}
	for i := range added {
		printViewMessage(&added[i])
	}
	if before.Phase == chatview.PhaseLoadingOlder && s.state.Exhausted {
		color.HiBlack("-- beginning of history --")
	}
}

func (s *chatSession) printNewTail(before chatview.State) {
	for _, m := range diffMessages(before.Messages, s.state.Messages) {
		printViewMessage(&m)
	}
}

// exec performs the machine's effects. Scroll effects are no-ops: a terminal
// is always at its tail.
func (s *chatSession) exec(effects []chatview.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case chatview.EffectFetchPage:
			go s.fetchPage(e.Cursor, e.Generation)
		case chatview.EffectRestoreDraft:
			if e.Draft != "" {
				color.Red("send failed, your draft: %s", e.Draft)
			}
		case chatview.EffectShowError:
			color.Red("error: %v", e.Err)
		case chatview.EffectScrollToBottom, chatview.EffectAdjustScroll, chatview.EffectClearInput:
			// nothing to do in a line terminal
		}
	}
}

func (s *chatSession) fetchPage(cursor string, generation int) {
	page, err := s.http.GetMessages(s.roomID, cursor, s.pageSize)
	if err != nil {
		s.events <- chatview.FetchFailed{Err: err, Generation: generation}
		return
	}
	s.events <- chatview.PageLoaded{
		Messages:   toViewMessages(page.Messages),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Generation: generation,
	}
}

// readSocket feeds live chat frames into the machine and prints everything
// else (system notices, typing indicators) directly.
func (s *chatSession) readSocket() {
	err := s.ws.ReadLoop(func(frame client.Frame) {
		if frame.Type == "chat" && frame.Message != nil && frame.RoomID == s.roomID {
			s.events <- chatview.MessageArrived{Message: toViewMessage(*frame.Message)}
			return
		}
		client.PrintFrame(frame)
	})
	if err != nil {
		color.Red("connection lost: %v", err)
		s.stop()
	}
}

func (s *chatSession) readInput() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			s.stop()
			return
		case line == "/older":
			// a scroll to the very top; the machine decides whether a
			// fetch actually goes out
			s.events <- chatview.Scrolled{Offset: 0}
		default:
			s.events <- chatview.SendSubmitted{Draft: line}
			go s.send(line)
		}
	}
	s.stop()
}

func (s *chatSession) send(content string) {
	if _, err := s.http.SendMessage(s.roomID, content); err != nil {
		s.events <- chatview.SendFailed{Err: err}
		return
	}
	s.events <- chatview.SendSucceeded{}
}

// diffMessages returns the entries of after that are missing from before,
// in after's (ascending) order.
func diffMessages(before, after []chatview.Message) []chatview.Message {
	known := make(map[string]bool, len(before))
	for _, m := range before {
		known[m.ID] = true
	}
	var added []chatview.Message
	for _, m := range after {
		if !known[m.ID] {
			added = append(added, m)
		}
	}
	return added
}

func toViewMessage(m client.Message) chatview.Message {
	view := chatview.Message{
		ID:         m.ID,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
	if m.FileRef != nil {
		view.FileRef = *m.FileRef
	}
	return view
}

func toViewMessages(msgs []client.Message) []chatview.Message {
	out := make([]chatview.Message, len(msgs))
	for i, m := range msgs {
		out[i] = toViewMessage(m)
	}
	return out
}

func printViewMessage(m *chatview.Message) {
	line := fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format("15:04"), m.SenderName, m.Content)
	color.Cyan("%s", line)
	if m.FileRef != "" {
		color.HiBlack("  attachment: %s", m.FileRef)
	}
}

func init() {
	chatCmd.AddCommand(chatOpenCmd)
	rootCmd.AddCommand(chatCmd)

	chatOpenCmd.Flags().Int("page-size", 0, "History page size (server default when 0)")
}
