package websocket

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/modoterra/livefeed/pkg/core"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestProvider_Messages(t *testing.T) {
	hello := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()

		_, msg, err := c.Read(ctx)
		if err != nil {
			return
		}
		hello <- string(msg)

		c.Write(ctx, websocket.MessageText, []byte(`{"price": 42}`))
		c.Write(ctx, websocket.MessageText, []byte(`plain text`))
		<-ctx.Done()
	}))
	defer srv.Close()

	p := New(wsURL(srv), `{"subscribe":"ticker"}`, slog.Default())
	data := make(chan any, 4)
	p.Listen(core.SignalData, func(v any) { data <- v })

	if err := p.TurnON(); err != nil {
		t.Fatal(err)
	}
	defer p.TurnOFF()

	select {
	case m := <-hello:
		if m != `{"subscribe":"ticker"}` {
			t.Errorf("hello = %q", m)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("hello not received")
	}

	got := make([]any, 0, 2)
	for len(got) < 2 {
		select {
		case v := <-data:
			got = append(got, v)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	m, ok := got[0].(map[string]any)
	if !ok || m["price"] != float64(42) {
		t.Errorf("first message = %#v", got[0])
	}
	if got[1] != "plain text" {
		t.Errorf("second message = %#v", got[1])
	}
}

func TestProvider_ReadFailureReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c.Close(websocket.StatusInternalError, "bye")
	}))
	defer srv.Close()

	p := New(wsURL(srv), "", slog.Default())
	errs := make(chan any, 4)
	p.Listen(core.SignalError, func(v any) { errs <- v })

	if err := p.TurnON(); err != nil {
		t.Fatal(err)
	}
	defer p.TurnOFF()

	select {
	case <-errs:
	case <-time.After(3 * time.Second):
		t.Fatal("expected read error")
	}
}

func TestProvider_DialFailure(t *testing.T) {
	p := New("ws://127.0.0.1:1/none", "", slog.Default())
	p.dialTimeout = 500 * time.Millisecond
	if err := p.TurnON(); err == nil {
		t.Fatal("expected dial error")
	}
	if p.IsTurnedON() {
		t.Error("provider ON after failed dial")
	}
}
