// Package publish forwards feed snapshots to an event bus.
package publish

import (
	"context"
	"strings"
	"sync"
)

// Publisher is the minimal event-publishing seam.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

// Subject joins a prefix and a feed name into a subject. Characters that are
// not valid in a subject token are replaced with '_'.
func Subject(prefix, feed string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, feed)
	if prefix == "" {
		return token
	}
	return prefix + "." + token
}

// Message is one payload recorded by Memory.
type Message struct {
	Subject string
	Payload []byte
}

// Memory records published messages in process. Tests use it in place of a
// bus.
type Memory struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
}

func (m *Memory) Publish(_ context.Context, subject string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Subject: subject, Payload: append([]byte(nil), payload...)})
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
