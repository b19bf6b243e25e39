package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoterra/livefeed/pkg/transport/uds"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	statusActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusPartial = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	activePaneStyle = paneStyle.
			BorderForeground(lipgloss.Color("205"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	if a.mode == ModeEditor && a.editor != nil {
		return paneStyle.Width(a.width - 4).Height(a.height - 2).Render(a.editor.View(a.width - 4))
	}

	statusBarH := 2
	eventsH := max(a.height/3, 5)
	mainH := a.height - eventsH - statusBarH - 2
	listW := a.width*2/5 - 2
	valueW := a.width - listW - 4

	list := a.paneBox(PaneFeeds, " Feeds ", a.renderFeeds(listW, mainH), listW, mainH)
	value := a.paneBox(PaneValue, a.valueTitle(), a.renderValue(valueW, mainH), valueW, mainH)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, list, value)

	events := a.paneBox(PaneEvents, a.eventsTitle(), a.renderEvents(a.width-4, eventsH), a.width-4, eventsH)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, events, a.renderStatusBar())
}

func (a App) paneBox(pane Pane, title, content string, w, h int) string {
	style := paneStyle
	if a.activePane == pane {
		style = activePaneStyle
	}
	return style.Width(w).Height(h).Render(
		titleStyle.Render(title) + "\n" + content,
	)
}

func (a App) renderFeeds(w, h int) string {
	feeds := a.filteredFeeds()
	if len(feeds) == 0 {
		return dimStyle.Render("no feeds")
	}

	var b strings.Builder
	maxVisible := h - 2
	start := 0
	if a.selectedIdx >= maxVisible {
		start = a.selectedIdx - maxVisible + 1
	}

	for i := start; i < len(feeds) && i-start < maxVisible; i++ {
		f := feeds[i]
		mark := " "
		if _, ok := a.watching[f.Name]; ok {
			mark = "*"
		}
		name := truncate(f.Name, w-8)
		line := fmt.Sprintf(" %s%s %-*s", feedIndicator(f), mark, w-8, name)

		if i == a.selectedIdx {
			line = selectedStyle.Width(w).Render(line)
		}
		b.WriteString(line + "\n")
	}

	if a.mode == ModeSearch {
		b.WriteString("\n" + a.search.View())
	}

	return b.String()
}

func (a App) valueTitle() string {
	if f := a.selectedFeed(); f != nil {
		return " " + f.Name + " "
	}
	return " Value "
}

func (a App) renderValue(w, h int) string {
	f := a.selectedFeed()
	if f == nil {
		return dimStyle.Render("select a feed")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Kind:     %s\n", f.Kind)
	fmt.Fprintf(&b, "State:    %s\n", colorState(f))
	fmt.Fprintf(&b, "Delay:    %s\n", f.Delay)
	fmt.Fprintf(&b, "Subs:     %d data, %d error\n", f.DataSubs, f.ErrorSubs)
	if f.PID > 0 {
		fmt.Fprintf(&b, "Process:  %s (pid %d)\n", f.State, f.PID)
	} else if f.State != "" {
		fmt.Fprintf(&b, "Process:  %s\n", f.State)
	}
	b.WriteString("\n")

	v, ok := a.latest[f.Name]
	if !ok {
		b.WriteString(dimStyle.Render("no value yet (enter: watch, g: get)"))
		return b.String()
	}
	budget := h - 8
	for i, line := range strings.Split(v, "\n") {
		if i >= budget {
			b.WriteString(dimStyle.Render("..."))
			break
		}
		b.WriteString(truncate(line, w) + "\n")
	}
	return b.String()
}

func (a App) renderEvents(w, h int) string {
	if len(a.lines) == 0 {
		return dimStyle.Render("no events")
	}

	start := 0
	if len(a.lines) > h-1 {
		start = len(a.lines) - h + 1
	}

	var b strings.Builder
	for i := start; i < len(a.lines); i++ {
		l := a.lines[i]
		prefix := dimStyle.Render(l.ts.Format("15:04:05")) + " " + l.feed + " "
		text := truncate(l.text, max(0, w-len(l.feed)-10))
		if l.isErr {
			text = statusFailed.Render(text)
		}
		b.WriteString(prefix + text + "\n")
	}
	return b.String()
}

func (a App) eventsTitle() string {
	title := " Events "
	if a.paused {
		title += dimStyle.Render("[PAUSED]") + " "
	}
	return title
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	right := "j/k:nav tab:pane /:search enter:watch o:options g:get e:events q:quit"
	if a.mode == ModeSearch {
		right = "enter:apply esc:cancel"
	}
	if a.mode == ModeEditor {
		right = "tab:next field enter:subscribe esc:cancel"
	}

	gap := a.width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// feedIndicator shows whether the feed ticks, holds its provider only for
// error subscribers, or is idle.
func feedIndicator(f uds.FeedInfo) string {
	switch {
	case f.State == "failed":
		return statusFailed.Render("✖")
	case f.Active:
		return statusActive.Render("●")
	case f.Provider == "ON":
		return statusPartial.Render("◐")
	default:
		return statusIdle.Render("○")
	}
}

func colorState(f *uds.FeedInfo) string {
	switch {
	case f.Active:
		return statusActive.Render("active")
	case f.Provider == "ON":
		return statusPartial.Render("errors only")
	default:
		return statusIdle.Render("idle")
	}
}

// summarize renders a data value on one line. Log lines show their text.
func summarize(raw []byte) string {
	var line struct {
		Stream string `json:"stream"`
		Line   string `json:"line"`
	}
	if json.Unmarshal(raw, &line) == nil && line.Line != "" {
		if line.Stream != "" {
			return line.Stream + ": " + line.Line
		}
		return line.Line
	}
	var b bytes.Buffer
	if json.Compact(&b, raw) == nil {
		return b.String()
	}
	return string(raw)
}

func prettyJSON(raw []byte) string {
	var b bytes.Buffer
	if json.Indent(&b, raw, "", "  ") == nil {
		return b.String()
	}
	return string(raw)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
