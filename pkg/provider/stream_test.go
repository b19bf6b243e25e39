package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
)

func TestStream_Lifecycle(t *testing.T) {
	stopped := make(chan struct{})
	s := NewStream("counter", func(ctx context.Context) (func(), error) {
		return func() {
			defer close(stopped)
			<-ctx.Done()
		}, nil
	}, nil)

	if err := s.TurnON(); err != nil {
		t.Fatal(err)
	}
	if !s.IsTurnedON() {
		t.Fatal("expected ON")
	}
	if err := s.TurnON(); err != nil {
		t.Fatal(err)
	}
	s.TurnOFF()
	select {
	case <-stopped:
	default:
		t.Error("producer still running after TurnOFF")
	}
	if s.IsTurnedON() {
		t.Error("expected OFF")
	}
}

func TestStream_EmitsData(t *testing.T) {
	var s *Stream
	s = NewStream("once", func(ctx context.Context) (func(), error) {
		return func() {
			s.SetData("hello")
			<-ctx.Done()
		}, nil
	}, nil)
	got := make(chan any, 1)
	s.Listen(core.SignalData, func(v any) { got <- v })

	s.TurnON()
	defer s.TurnOFF()
	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("data = %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no data")
	}
}

func TestStream_StartFailure(t *testing.T) {
	boom := errors.New("boom")
	s := NewStream("broken", func(context.Context) (func(), error) { return nil, boom }, nil)
	if err := s.TurnON(); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.IsTurnedON() {
		t.Error("provider ON after failed start")
	}
	if err := s.TurnOFF(); err != nil {
		t.Error(err)
	}
}

func TestScanLines(t *testing.T) {
	var lines []string
	err := ScanLines(strings.NewReader("a\nb\n\nc"), func(l string) { lines = append(lines, l) })
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, "|") != "a|b||c" {
		t.Errorf("lines = %q", lines)
	}
}
