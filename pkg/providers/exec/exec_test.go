package exec

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		got := backoff(tt.failures)
		if got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestShouldRestart(t *testing.T) {
	tests := []struct {
		policy core.RestartPolicy
		code   int
		want   bool
	}{
		{core.RestartAlways, 0, true},
		{core.RestartAlways, 1, true},
		{core.RestartOnFailure, 0, false},
		{core.RestartOnFailure, 2, true},
		{core.RestartNever, 1, false},
	}
	for _, tt := range tests {
		if got := shouldRestart(tt.policy, tt.code); got != tt.want {
			t.Errorf("shouldRestart(%s, %d) = %v", tt.policy, tt.code, got)
		}
	}
}

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.sh")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return "/bin/sh " + path
}

func newTestProvider(t *testing.T, body string, restart core.RestartPolicy) *Provider {
	p := New("worker", Config{Command: script(t, body), Restart: restart}, slog.Default())
	p.backoff = func(int) time.Duration { return 10 * time.Millisecond }
	p.stopGrace = time.Second
	return p
}

func TestProvider_StreamsOutput(t *testing.T) {
	p := newTestProvider(t, "echo out\necho err >&2\nsleep 30\n", core.RestartNever)
	lines := make(chan any, 4)
	p.Listen(core.SignalData, func(v any) { lines <- v })

	if err := p.TurnON(); err != nil {
		t.Fatal(err)
	}

	seen := map[string]string{}
	for len(seen) < 2 {
		select {
		case v := <-lines:
			l := v.(core.Line)
			seen[l.Stream] = l.Line
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out, seen %v", seen)
		}
	}
	if seen["stdout"] != "out" || seen["stderr"] != "err" {
		t.Errorf("seen = %v", seen)
	}
	if state, pid, _ := p.Process(); state != core.StateRunning || pid == 0 {
		t.Errorf("state = %s pid = %d", state, pid)
	}

	p.TurnOFF()
	if state, pid, _ := p.Process(); state != core.StateStopped || pid != 0 {
		t.Errorf("after TurnOFF: state = %s pid = %d", state, pid)
	}
}

func TestProvider_ExitErrorNoRestart(t *testing.T) {
	p := newTestProvider(t, "exit 3\n", core.RestartNever)
	errs := make(chan any, 2)
	p.Listen(core.SignalError, func(v any) { errs <- v })

	if err := p.TurnON(); err != nil {
		t.Fatal(err)
	}
	defer p.TurnOFF()

	select {
	case v := <-errs:
		var exitErr *ExitError
		if !errors.As(v.(error), &exitErr) || exitErr.ExitCode != 3 {
			t.Errorf("error = %v", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no exit error")
	}

	time.Sleep(50 * time.Millisecond)
	if state, _, _ := p.Process(); state != core.StateFailed {
		t.Errorf("state = %s, want failed", state)
	}
}

func TestProvider_RestartOnFailure(t *testing.T) {
	p := newTestProvider(t, "echo run\nexit 1\n", core.RestartOnFailure)
	lines := make(chan any, 16)
	p.Listen(core.SignalData, func(v any) { lines <- v })

	if err := p.TurnON(); err != nil {
		t.Fatal(err)
	}
	defer p.TurnOFF()

	for i := 0; i < 2; i++ {
		select {
		case <-lines:
		case <-time.After(3 * time.Second):
			t.Fatalf("run %d never happened", i+1)
		}
	}
}

func TestProvider_EmptyCommand(t *testing.T) {
	p := New("nothing", Config{Command: "  "}, slog.Default())
	if err := p.TurnON(); err == nil {
		t.Fatal("expected error for empty command")
	}
	if p.IsTurnedON() {
		t.Error("provider ON after failed start")
	}
}
