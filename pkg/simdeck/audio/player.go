package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// ErrPlayerNotFound is returned when the player binary is missing.
var ErrPlayerNotFound = errors.New("audio player not found")

// ExecPlayer plays media by running an external command, one process at a time.
type ExecPlayer struct {
	Command string
	Args    []string // Arguments placed before the media URL

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecPlayer returns a player backed by ffplay without a video window.
func NewExecPlayer() *ExecPlayer {
	return &ExecPlayer{
		Command: "ffplay",
		Args:    []string{"-nodisp", "-autoexit", "-loglevel", "quiet"},
	}
}

// Play stops the current process and starts url. onEnded runs on its own
// goroutine once the process exits without being stopped.
func (p *ExecPlayer) Play(ctx context.Context, url string, onEnded func()) error {
	path, err := exec.LookPath(p.Command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, p.Command)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	args := append(append([]string{}, p.Args...), url)
	cmd := exec.CommandContext(ctx, path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", p.Command, err)
	}
	p.cmd = cmd

	go func() {
		_ = cmd.Wait()

		p.mu.Lock()
		natural := p.cmd == cmd
		if natural {
			p.cmd = nil
		}
		p.mu.Unlock()

		if natural && onEnded != nil {
			onEnded()
		}
	}()

	return nil
}

// Pause stops the current process. Resuming restarts from the beginning.
func (p *ExecPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Playing reports whether a process is running.
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

func (p *ExecPlayer) stopLocked() {
	if p.cmd == nil {
		return
	}
	cmd := p.cmd
	p.cmd = nil
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
