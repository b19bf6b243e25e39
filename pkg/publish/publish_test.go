package publish

import (
	"context"
	"log/slog"
	"testing"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix, feed, want string
	}{
		{"livefeed", "hello", "livefeed.hello"},
		{"livefeed", "app.log", "livefeed.app_log"},
		{"", "a b", "a_b"},
		{"x", "wild*>", "x.wild__"},
	}
	for _, tt := range tests {
		if got := Subject(tt.prefix, tt.feed); got != tt.want {
			t.Errorf("Subject(%q, %q) = %q, want %q", tt.prefix, tt.feed, got, tt.want)
		}
	}
}

func TestMemory(t *testing.T) {
	var m Memory
	payload := []byte("one")
	m.Publish(context.Background(), "a", payload)
	payload[0] = 'X'
	m.Publish(context.Background(), "b", []byte("two"))

	got := m.Messages()
	if len(got) != 2 || got[0].Subject != "a" || string(got[0].Payload) != "one" {
		t.Errorf("messages = %+v", got)
	}
}

func TestNATSPublisher_Unreachable(t *testing.T) {
	if _, err := NewNATSPublisher("nats://127.0.0.1:1", slog.Default()); err == nil {
		t.Fatal("expected connect error")
	}
}
