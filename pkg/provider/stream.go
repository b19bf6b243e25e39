package provider

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// StartFunc prepares a producer for a push-style provider. It returns an
// error if the producer cannot start; otherwise the returned run function is
// executed on its own goroutine and must return once ctx is cancelled.
type StartFunc func(ctx context.Context) (run func(), err error)

// Stream is a push-style provider: while ON, a producer goroutine reports
// values with SetData and failures with SetError as they happen.
type Stream struct {
	*Base

	name   string
	start  StartFunc
	logger *slog.Logger
	grace  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStream creates a push provider. name labels log lines.
func NewStream(name string, start StartFunc, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		Base:   NewBase(),
		name:   name,
		start:  start,
		logger: logger,
		grace:  5 * time.Second,
	}
}

// TurnON starts the producer. The provider stays OFF if start fails.
func (s *Stream) TurnON() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IsTurnedON() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	run, err := s.start(ctx)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		run()
	}()

	s.logger.Debug("stream started", "provider", s.name)
	return s.Base.TurnON()
}

// TurnOFF cancels the producer and waits a bounded time for it to return.
func (s *Stream) TurnOFF() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(s.grace):
			s.logger.Warn("stream did not stop in time", "provider", s.name, "grace", s.grace)
		}
	}
	return s.Base.TurnOFF()
}

// ScanLines calls fn for each line read from r until r is exhausted.
func ScanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}
