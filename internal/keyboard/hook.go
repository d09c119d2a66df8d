package keyboard

import (
	"context"
	"sync"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
)

// Hook delivers key-down events from the operating system.
type Hook interface {
	// Start begins capturing. The returned channel is closed when capture
	// stops, either through Stop, ctx cancellation or a device fault.
	Start(ctx context.Context) (<-chan Event, error)

	// Stop terminates capture and waits for the reader to exit.
	Stop() error

	// Available reports whether capture can work on this machine with the
	// current permissions, with a human-readable reason.
	Available() (bool, string)
}

// HookConfig configures a platform hook.
type HookConfig struct {
	// Device is an evdev device path. Empty means every keyboard.
	Device string

	// Target is the layout keys are decoded through while Active reports it.
	Target layout.Mapper

	// Active reports the layout the OS applies. Nil means keys are always
	// read as US QWERTY.
	Active ActiveLayout
}

// baseHook holds the state every platform hook shares.
type baseHook struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (b *baseHook) setRunning(running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = running
}

func (b *baseHook) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Simulated is a Hook fed by the program itself.
type Simulated struct {
	baseHook
	ch chan Event
}

// NewSimulated creates a simulated hook with a buffer of size events.
func NewSimulated(size int) *Simulated {
	if size <= 0 {
		size = 64
	}
	return &Simulated{ch: make(chan Event, size)}
}

// Start returns the channel Send writes to.
func (s *Simulated) Start(ctx context.Context) (<-chan Event, error) {
	if s.isRunning() {
		return nil, ErrAlreadyRunning
	}
	s.setRunning(true)
	return s.ch, nil
}

// Stop closes the event channel.
func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.ch)
	return nil
}

// Send delivers events as if they had been typed.
func (s *Simulated) Send(events ...Event) {
	for _, ev := range events {
		s.ch <- ev
	}
}

// Type delivers one event per character of text.
func (s *Simulated) Type(text string) {
	s.Send(TextEvents(text)...)
}

// Available always reports true.
func (s *Simulated) Available() (bool, string) {
	return true, "simulated hook (for testing)"
}
