// Package runner manages the lifecycle of one external process and
// exposes its combined output as a stream of lines.
package runner

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"sitemirror/internal/logger"
)

// graceTimeout bounds the wait between a graceful termination signal and
// the forced kill.
const graceTimeout = 2 * time.Second

const lineBuffer = 256

// Options carries optional supervision hooks.
type Options struct {
	// OnStop runs exactly once when Stop terminates a live process.
	OnStop func()
}

// Proc wraps one spawned process. It is single-use: a new mirror run
// needs a new Start. The caller must drain Lines to completion.
type Proc struct {
	cmd      *exec.Cmd
	lines    chan string
	done     chan struct{}
	stopOnce sync.Once
	hookOnce sync.Once
	onStop   func()
	stopped  atomic.Bool
	exitCode int
	log      *logger.Logger
}

// Start spawns the command with stdout and stderr joined into a single
// stream. Returns an error if the executable cannot be launched.
func Start(name string, args ...string) (*Proc, error) {
	return StartWithOptions(Options{}, name, args...)
}

func StartWithOptions(opts Options, name string, args ...string) (*Proc, error) {
	pr, pw := io.Pipe()
	cmd := exec.Command(name, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, errors.Wrapf(err, "spawn %s", name)
	}

	p := &Proc{
		cmd:    cmd,
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
		onStop: opts.OnStop,
		log:    logger.New("Runner"),
	}

	go func() {
		err := cmd.Wait()
		p.exitCode = 0
		if err != nil {
			if ee, ok := err.(*exec.ExitError); ok {
				p.exitCode = ee.ExitCode()
			} else {
				p.exitCode = -1
				p.log.LogErrorf("wait failed for %s: %v", name, err)
			}
		}
		pw.Close()
		close(p.done)
	}()

	go func() {
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		// Scanner emits any trailing partial output as its final token,
		// so nothing buffered is lost when the process dies mid-line.
		close(p.lines)
	}()

	return p, nil
}

// Lines returns the finite stream of output lines. The channel closes
// once the process has exited and all buffered output was delivered.
func (p *Proc) Lines() <-chan string { return p.lines }

// Done is closed when the process has exited and its exit code is
// recorded.
func (p *Proc) Done() <-chan struct{} { return p.done }

// ExitCode blocks until the process has exited, then returns its exit
// code. 0 means success by convention; interpreting anything else is the
// caller's business.
func (p *Proc) ExitCode() int {
	<-p.done
	return p.exitCode
}

// Stopped reports whether Stop terminated the process before its natural
// exit.
func (p *Proc) Stopped() bool { return p.stopped.Load() }

// Stop terminates a live process: SIGTERM, a bounded grace period, then
// SIGKILL. No-op if the process already exited. Idempotent; the OnStop
// hook fires at most once, whichever exit path was taken.
func (p *Proc) Stop() {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		p.stopped.Store(true)
		defer p.fireHook()

		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			p.log.LogWarnf("terminate signal failed: %v", err)
		}
		select {
		case <-p.done:
			return
		case <-time.After(graceTimeout):
		}

		p.log.LogWarnf("grace period expired, killing pid %d", p.cmd.Process.Pid)
		if err := p.cmd.Process.Kill(); err != nil {
			p.log.LogErrorf("kill failed: %v", err)
		}
		<-p.done
	})
}

func (p *Proc) fireHook() {
	p.hookOnce.Do(func() {
		if p.onStop != nil {
			p.onStop()
		}
	})
}
