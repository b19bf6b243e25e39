package filetail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// Provider tails a file while ON. Each appended line becomes one core.Line
// data value; lines present before TurnON are skipped.
type Provider struct {
	*provider.Stream

	path   string
	poll   time.Duration
	logger *slog.Logger
}

// New creates a new file tail provider.
func New(path string, logger *slog.Logger) *Provider {
	p := &Provider{path: path, poll: 250 * time.Millisecond, logger: logger}
	p.Stream = provider.NewStream("filetail", p.start, logger)
	return p
}

func (p *Provider) start(ctx context.Context) (func(), error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.path, err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}

	p.logger.Info("tailing file", "path", p.path)
	return func() {
		defer f.Close()
		p.tail(ctx, f)
	}, nil
}

func (p *Provider) tail(ctx context.Context, f *os.File) {
	reader := bufio.NewReader(f)
	var partial strings.Builder

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := reader.ReadString('\n')
		partial.WriteString(chunk)
		if err != nil {
			if err != io.EOF {
				p.SetError(fmt.Errorf("read %s: %w", p.path, err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.poll):
			}
			// truncated or rotated in place
			info, serr := f.Stat()
			if serr != nil {
				continue
			}
			pos, _ := f.Seek(0, io.SeekCurrent)
			if info.Size() < pos {
				f.Seek(0, io.SeekStart)
				reader.Reset(f)
				partial.Reset()
			}
			continue
		}

		p.SetData(core.Line{
			Source:   p.path,
			TsUnixMs: time.Now().UnixMilli(),
			Stream:   "file",
			Line:     strings.TrimRight(partial.String(), "\r\n"),
		})
		partial.Reset()
	}
}
