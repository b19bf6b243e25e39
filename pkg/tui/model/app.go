package model

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/livefeed/pkg/transport/uds"
)

// Pane identifies which TUI pane is focused.
type Pane int

const (
	PaneFeeds Pane = iota
	PaneValue
	PaneEvents
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeEditor
)

const maxLines = 500

// eventLine is one rendered entry of the events pane.
type eventLine struct {
	ts    time.Time
	feed  string
	isErr bool
	text  string
}

// App is the root Bubble Tea model.
type App struct {
	// Connection
	client     *uds.Client
	socketPath string
	connected  bool
	events     chan uds.FeedEvent

	// State
	feeds       []uds.FeedInfo
	selectedIdx int
	watching    map[string][]string // feed -> subscription ids
	latest      map[string]string   // feed -> last value, pretty printed
	lines       []eventLine
	paused      bool

	// UI
	activePane Pane
	mode       Mode
	search     textinput.Model
	width      int
	height     int

	editor *EditorModel

	statusMsg string
}

// New creates a new TUI app model.
func New(socketPath string) App {
	si := textinput.New()
	si.Placeholder = "search..."
	si.CharLimit = 64

	return App{
		socketPath: socketPath,
		events:     make(chan uds.FeedEvent, 256),
		watching:   make(map[string][]string),
		latest:     make(map[string]string),
		search:     si,
		activePane: PaneFeeds,
		mode:       ModeNormal,
	}
}

// Init connects to the daemon.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		connectCmd(a.socketPath, a.events),
		tea.SetWindowTitle("livefeed"),
	)
}

// tickMsg triggers periodic refresh.
type tickMsg time.Time

// connectedMsg indicates successful daemon connection.
type connectedMsg struct{ client *uds.Client }

// feedsMsg carries the feed list from the daemon.
type feedsMsg struct{ feeds []uds.FeedInfo }

// feedEventMsg carries one pushed feed value or error.
type feedEventMsg uds.FeedEvent

// subscribedMsg reports the subscriptions opened for a feed.
type subscribedMsg struct {
	feed string
	ids  []string
}

// unsubscribedMsg reports that a feed is no longer watched.
type unsubscribedMsg struct{ feed string }

// currentMsg carries a snapshot fetched on demand.
type currentMsg struct {
	feed string
	data []byte
}

// errorMsg carries an error to display.
type errorMsg struct{ err error }

func connectCmd(socketPath string, events chan<- uds.FeedEvent) tea.Cmd {
	return func() tea.Msg {
		client, err := uds.Dial(socketPath)
		if err != nil {
			return errorMsg{err}
		}
		client.OnEvent(func(m uds.Message) {
			var evt uds.FeedEvent
			if m.UnmarshalData(&evt) != nil {
				return
			}
			select {
			case events <- evt:
			default:
				// UI is behind; drop rather than stall the connection.
			}
		})
		return connectedMsg{client}
	}
}

func waitEventCmd(events <-chan uds.FeedEvent) tea.Cmd {
	return func() tea.Msg {
		return feedEventMsg(<-events)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchFeedsCmd(client *uds.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var resp uds.ListFeedsResponse
		if err := client.Call(ctx, uds.MethodListFeeds, nil, &resp); err != nil {
			return errorMsg{err}
		}
		return feedsMsg{resp.Feeds}
	}
}

func subscribeCmd(client *uds.Client, feed string, channels, fields []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var resp uds.SubscribeResponse
		req := uds.SubscribeRequest{Feed: feed, Channels: channels, Fields: fields}
		if err := client.Call(ctx, uds.MethodSubscribe, req, &resp); err != nil {
			return errorMsg{err}
		}
		ids := make([]string, 0, len(resp.Subscriptions))
		for _, s := range resp.Subscriptions {
			ids = append(ids, s.ID)
		}
		return subscribedMsg{feed: feed, ids: ids}
	}
}

func unsubscribeCmd(client *uds.Client, feed string, ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Call(ctx, uds.MethodUnsubscribe, uds.UnsubscribeRequest{IDs: ids}, nil); err != nil {
			return errorMsg{err}
		}
		return unsubscribedMsg{feed: feed}
	}
}

func getCurrentCmd(client *uds.Client, feed string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var resp uds.GetCurrentResponse
		if err := client.Call(ctx, uds.MethodGetCurrent, uds.GetCurrentRequest{Feed: feed, Fresh: true}, &resp); err != nil {
			return errorMsg{err}
		}
		return currentMsg{feed: feed, data: resp.Data}
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case connectedMsg:
		a.client = msg.client
		a.connected = true
		a.statusMsg = "connected"
		return a, tea.Batch(tickCmd(), fetchFeedsCmd(a.client), waitEventCmd(a.events))

	case tickMsg:
		if a.client != nil {
			return a, tea.Batch(tickCmd(), fetchFeedsCmd(a.client))
		}
		return a, tickCmd()

	case feedsMsg:
		a.feeds = msg.feeds
		if a.selectedIdx >= len(a.feeds) {
			a.selectedIdx = max(0, len(a.feeds)-1)
		}
		return a, nil

	case feedEventMsg:
		a.record(uds.FeedEvent(msg))
		return a, waitEventCmd(a.events)

	case subscribedMsg:
		a.watching[msg.feed] = msg.ids
		a.statusMsg = "watching " + msg.feed
		return a, nil

	case unsubscribedMsg:
		delete(a.watching, msg.feed)
		a.statusMsg = "stopped watching " + msg.feed
		return a, nil

	case currentMsg:
		a.latest[msg.feed] = prettyJSON(msg.data)
		a.activePane = PaneValue
		return a, nil

	case errorMsg:
		a.statusMsg = "error: " + msg.err.Error()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

// record applies a pushed event to the value and events panes.
func (a *App) record(evt uds.FeedEvent) {
	line := eventLine{ts: time.UnixMilli(evt.TsUnixMs), feed: evt.Feed}
	if evt.Channel == "error" || evt.Error != "" {
		line.isErr = true
		line.text = evt.Error
	} else {
		a.latest[evt.Feed] = prettyJSON(evt.Data)
		line.text = summarize(evt.Data)
	}
	if a.paused {
		return
	}
	a.lines = append(a.lines, line)
	if len(a.lines) > maxLines {
		a.lines = a.lines[len(a.lines)-maxLines:]
	}
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.mode == ModeSearch {
		switch msg.String() {
		case "esc":
			a.mode = ModeNormal
			a.search.SetValue("")
			a.search.Blur()
			return a, nil
		case "enter":
			a.mode = ModeNormal
			a.search.Blur()
			return a, nil
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			return a, cmd
		}
	}

	if a.mode == ModeEditor && a.editor != nil {
		return a.editor.HandleKey(a, msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.activePane == PaneFeeds && len(a.feeds) > 0 {
			a.selectedIdx = min(a.selectedIdx+1, max(0, len(a.filteredFeeds())-1))
		}
	case "k", "up":
		if a.activePane == PaneFeeds && a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "tab":
		a.activePane = (a.activePane + 1) % 3

	case "/":
		a.mode = ModeSearch
		a.search.Focus()
		return a, textinput.Blink

	case "enter", "w":
		return a.toggleWatch()

	case "o":
		if f := a.selectedFeed(); f != nil {
			a.editor = NewWatchEditor(f.Name)
			a.mode = ModeEditor
		}

	case "g":
		if f := a.selectedFeed(); f != nil && a.client != nil {
			a.statusMsg = "fetching " + f.Name + "..."
			return a, getCurrentCmd(a.client, f.Name)
		}

	case "e":
		a.activePane = PaneEvents

	case " ":
		if a.activePane == PaneEvents {
			a.paused = !a.paused
		}

	case "c":
		if a.activePane == PaneEvents {
			a.lines = nil
		}
	}

	return a, nil
}

// toggleWatch subscribes to the selected feed, or unsubscribes if it is
// already watched.
func (a App) toggleWatch() (tea.Model, tea.Cmd) {
	f := a.selectedFeed()
	if f == nil || a.client == nil {
		return a, nil
	}
	if ids, ok := a.watching[f.Name]; ok {
		return a, unsubscribeCmd(a.client, f.Name, ids)
	}
	return a, subscribeCmd(a.client, f.Name, []string{"data", "error"}, nil)
}

func (a App) filteredFeeds() []uds.FeedInfo {
	q := strings.ToLower(a.search.Value())
	if q == "" {
		return a.feeds
	}
	var filtered []uds.FeedInfo
	for _, f := range a.feeds {
		if strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Kind), q) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

func (a App) selectedFeed() *uds.FeedInfo {
	feeds := a.filteredFeeds()
	if a.selectedIdx < len(feeds) {
		return &feeds[a.selectedIdx]
	}
	return nil
}
