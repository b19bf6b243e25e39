package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/modoterra/livefeed/pkg/core"
	"github.com/modoterra/livefeed/pkg/provider"
)

// ExitError reports a supervised command that exited with a non-zero code.
type ExitError struct {
	Name     string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
}

func (e *ExitError) Unwrap() error { return e.Err }

// spawn starts the command and streams its output as data. The returned
// channel yields the result of Wait.
func (p *Provider) spawn(ctx context.Context) (*exec.Cmd, <-chan error, error) {
	parts := strings.Fields(p.cfg.Command)
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = p.cfg.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = p.stopGrace

	cmd.Env = os.Environ()
	for k, v := range p.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %q: %w", p.cfg.Command, err)
	}

	p.mu.Lock()
	p.pid = cmd.Process.Pid
	p.state = core.StateRunning
	p.startedAt = time.Now()
	p.mu.Unlock()

	p.logger.Info("process started", "name", p.name, "pid", cmd.Process.Pid, "command", p.cfg.Command)

	streams := make(chan struct{}, 2)
	go func() { provider.ScanLines(stdoutPipe, p.emitLine("stdout")); streams <- struct{}{} }()
	go func() { provider.ScanLines(stderrPipe, p.emitLine("stderr")); streams <- struct{}{} }()

	exited := make(chan error, 1)
	go func() {
		<-streams
		<-streams
		exited <- cmd.Wait()
	}()
	return cmd, exited, nil
}

func (p *Provider) emitLine(stream string) func(string) {
	return func(line string) {
		p.SetData(core.Line{
			Source:   p.name,
			TsUnixMs: time.Now().UnixMilli(),
			Stream:   stream,
			Line:     line,
		})
	}
}

// supervise waits for the command and restarts it according to the restart
// policy until ctx is cancelled.
func (p *Provider) supervise(ctx context.Context, cmd *exec.Cmd, exited <-chan error) {
	failures := 0
	for {
		err := <-exited
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}

		if ctx.Err() != nil {
			p.setState(core.StateStopped)
			return
		}

		if exitCode == 0 {
			p.setState(core.StateStopped)
		} else {
			p.setState(core.StateFailed)
			p.SetError(&ExitError{Name: p.name, ExitCode: exitCode, Err: err})
		}
		p.logger.Info("process exited", "name", p.name, "exit_code", exitCode, "err", err)

		if !shouldRestart(p.cfg.Restart, exitCode) {
			return
		}

		for {
			failures++
			delay := p.backoff(failures)
			p.setState(core.StateRestarting)
			p.logger.Info("restarting process", "name", p.name, "delay", delay, "attempt", failures)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				p.setState(core.StateStopped)
				return
			}

			cmd, exited, err = p.spawn(ctx)
			if err == nil {
				break
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				p.setState(core.StateStopped)
				return
			}
			p.logger.Error("restart failed", "name", p.name, "err", err)
			p.SetError(err)
		}
	}
}

func (p *Provider) setState(s core.State) {
	p.mu.Lock()
	p.state = s
	if s != core.StateRunning {
		p.pid = 0
	}
	p.mu.Unlock()
}

func shouldRestart(policy core.RestartPolicy, exitCode int) bool {
	switch policy {
	case core.RestartAlways:
		return true
	case core.RestartOnFailure:
		return exitCode != 0
	default:
		return false
	}
}

// backoff returns exponential backoff delay: 1s, 2s, 4s, 8s, 16s, 30s max.
func backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > 6 {
		return 30 * time.Second
	}
	d := time.Duration(1<<uint(failures-1)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
