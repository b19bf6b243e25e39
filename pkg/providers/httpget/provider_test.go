package httpget

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

func request(t *testing.T, p *Provider) (any, error) {
	t.Helper()
	data := make(chan any, 1)
	errs := make(chan any, 1)
	stopData := p.Listen(core.SignalData, func(v any) { data <- v })
	stopErr := p.Listen(core.SignalError, func(v any) { errs <- v })
	defer stopData()
	defer stopErr()

	p.RequestData(nil)
	select {
	case v := <-data:
		return v, nil
	case v := <-errs:
		return nil, v.(error)
	case <-time.After(3 * time.Second):
		t.Fatal("no response")
		return nil, nil
	}
}

func TestProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			if r.Header.Get("X-Token") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"status":"ok","uptime":12}`)
		case "/text":
			fmt.Fprint(w, "pong")
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{"json", "/health", "map[status:ok uptime:12]", ""},
		{"text", "/text", "pong", ""},
		{"server error", "/broken", "", "status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(srv.URL+tt.path, map[string]string{"X-Token": "secret"}, time.Second, slog.Default())
			p.TurnON()
			defer p.TurnOFF()

			v, err := request(t, p)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := fmt.Sprint(v); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
