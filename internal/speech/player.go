package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Player plays encoded audio. Play blocks until playback ends or ctx is done.
type Player interface {
	Play(ctx context.Context, audio []byte) error
	Pause() error
	Resume() error
}

// CommandPlayer pipes audio into an external player such as
// "mpg123 -q -" or "ffplay -nodisp -autoexit -loglevel quiet -".
type CommandPlayer struct {
	name string
	args []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandPlayer parses a command line. It returns nil when the line is empty.
func NewCommandPlayer(line string) *CommandPlayer {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}
}

// Available reports whether the player binary is on PATH.
func (p *CommandPlayer) Available() bool {
	_, err := exec.LookPath(p.name)
	return err == nil
}

func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.name, err)
	}
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	err := cmd.Wait()

	p.mu.Lock()
	if p.cmd == cmd {
		p.cmd = nil
	}
	p.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *CommandPlayer) Pause() error {
	return p.signal(pauseProcess)
}

func (p *CommandPlayer) Resume() error {
	return p.signal(resumeProcess)
}

func (p *CommandPlayer) signal(f func(*exec.Cmd) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return errors.New("nothing is playing")
	}
	return f(p.cmd)
}
