package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// EditorField is a named text input in the editor form.
type EditorField struct {
	Label string
	Input textinput.Model
}

// EditorModel is the watch-options form: which channels to subscribe to and
// which fields to keep from each data value.
type EditorModel struct {
	feed      string
	fields    []EditorField
	activeIdx int
}

// NewWatchEditor creates a form for subscribing to feed.
func NewWatchEditor(feed string) *EditorModel {
	fields := []EditorField{
		newField("channels", "data,error"),
		newField("fields", ""),
	}
	fields[0].Input.Focus()
	return &EditorModel{feed: feed, fields: fields}
}

func newField(label, value string) EditorField {
	ti := textinput.New()
	ti.Placeholder = label
	ti.SetValue(value)
	ti.CharLimit = 256
	return EditorField{Label: label, Input: ti}
}

// Value returns the comma separated entries of the labelled field.
func (e *EditorModel) Value(label string) []string {
	for _, f := range e.fields {
		if f.Label == label {
			return splitList(f.Input.Value())
		}
	}
	return nil
}

// HandleKey processes key events in editor mode.
func (e *EditorModel) HandleKey(a App, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = ModeNormal
		a.editor = nil
		return a, nil

	case "enter":
		a.mode = ModeNormal
		a.editor = nil
		if a.client == nil {
			a.statusMsg = "not connected"
			return a, nil
		}
		sub := subscribeCmd(a.client, e.feed, e.Value("channels"), e.Value("fields"))
		if ids, ok := a.watching[e.feed]; ok {
			return a, tea.Sequence(unsubscribeCmd(a.client, e.feed, ids), sub)
		}
		return a, sub

	case "tab":
		e.fields[e.activeIdx].Input.Blur()
		e.activeIdx = (e.activeIdx + 1) % len(e.fields)
		e.fields[e.activeIdx].Input.Focus()
		return a, textinput.Blink

	case "shift+tab":
		e.fields[e.activeIdx].Input.Blur()
		e.activeIdx = (e.activeIdx - 1 + len(e.fields)) % len(e.fields)
		e.fields[e.activeIdx].Input.Focus()
		return a, textinput.Blink

	default:
		var cmd tea.Cmd
		e.fields[e.activeIdx].Input, cmd = e.fields[e.activeIdx].Input.Update(msg)
		return a, cmd
	}
}

// View renders the editor form.
func (e *EditorModel) View(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" Watch "+truncate(e.feed, width-10)+" ") + "\n\n")
	for i, f := range e.fields {
		prefix := "  "
		if i == e.activeIdx {
			prefix = "▸ "
		}
		b.WriteString(prefix + dimStyle.Render(f.Label+": ") + f.Input.View() + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  tab:next  shift+tab:prev  enter:subscribe  esc:cancel"))
	return b.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
