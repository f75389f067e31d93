// Package clipboard places text on the user's clipboard through the
// terminal, using OSC 52 escape sequences.
package clipboard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
)

// Writer accepts clipboard payloads.
type Writer interface {
	WriteText(text string) error
}

// Mode picks the terminal multiplexer wrapping, if any.
type Mode int

// Multiplexer modes.
const (
	ModeAuto Mode = iota
	ModeDirect
	ModeTmux
	ModeScreen
)

// Terminal writes OSC 52 sequences to Out.
type Terminal struct {
	Out  io.Writer
	Mode Mode

	mu sync.Mutex
}

// NewTerminal returns a Terminal writing to stderr with the mode detected
// from the environment.
func NewTerminal() *Terminal {
	return &Terminal{Out: os.Stderr, Mode: ModeAuto}
}

// WriteText implements Writer.
func (t *Terminal) WriteText(text string) error {
	seq := osc52.New(text)
	switch t.resolveMode() {
	case ModeTmux:
		seq = seq.Tmux()
	case ModeScreen:
		seq = seq.Screen()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := seq.WriteTo(t.Out); err != nil {
		return fmt.Errorf("failed to write clipboard sequence: %w", err)
	}
	return nil
}

func (t *Terminal) resolveMode() Mode {
	if t.Mode != ModeAuto {
		return t.Mode
	}
	if os.Getenv("TMUX") != "" {
		return ModeTmux
	}
	if strings.HasPrefix(os.Getenv("TERM"), "screen") {
		return ModeScreen
	}
	return ModeDirect
}

// Memory keeps the last payload. It backs hosts with no terminal attached.
type Memory struct {
	mu   sync.Mutex
	last string
}

// WriteText implements Writer.
func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	m.last = text
	m.mu.Unlock()
	return nil
}

// Text returns the last payload written.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
