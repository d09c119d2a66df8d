package keyboard

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Injector types synthetic keystrokes into the focused application.
type Injector interface {
	// Backspace deletes n characters before the cursor.
	Backspace(n int) error

	// Type enters text as if typed.
	Type(text string) error
}

// NewInjector returns the injector registered under name.
//   - "xdotool": X11 injection through the xdotool binary
//   - "none": accept every operation and do nothing (dry run)
func NewInjector(name string, delay time.Duration) (Injector, error) {
	switch name {
	case "xdotool", "":
		return NewXdotool(delay), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown injector %q", name)
	}
}

// Nop discards every operation.
type Nop struct{}

func (Nop) Backspace(int) error { return nil }
func (Nop) Type(string) error   { return nil }

// Xdotool injects through the xdotool command.
type Xdotool struct {
	delay   time.Duration
	timeout time.Duration
	run     func(ctx context.Context, args ...string) error
}

// NewXdotool creates an xdotool injector that waits delay between keys.
func NewXdotool(delay time.Duration) *Xdotool {
	return &Xdotool{
		delay:   delay,
		timeout: 5 * time.Second,
		run: func(ctx context.Context, args ...string) error {
			out, err := exec.CommandContext(ctx, "xdotool", args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("xdotool %s: %w: %s", args[0], err, out)
			}
			return nil
		},
	}
}

// Available reports whether the xdotool binary is on PATH.
func (x *Xdotool) Available() (bool, string) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return false, "xdotool not found. Install xdotool: sudo apt install xdotool"
	}
	return true, "injecting with " + path
}

func (x *Xdotool) delayMs() string {
	return strconv.FormatInt(x.delay.Milliseconds(), 10)
}

// Backspace presses BackSpace n times.
func (x *Xdotool) Backspace(n int) error {
	if n <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	defer cancel()
	return x.run(ctx, "key", "--clearmodifiers", "--delay", x.delayMs(), "--repeat", strconv.Itoa(n), "BackSpace")
}

// Type enters text. xdotool remaps a spare keycode for characters the
// current layout cannot produce, so Hebrew text works on an English layout.
func (x *Xdotool) Type(text string) error {
	if text == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	defer cancel()
	return x.run(ctx, "type", "--clearmodifiers", "--delay", x.delayMs(), "--", text)
}

// Op is one recorded injector call.
type Op struct {
	Backspaces int
	Text       string
}

// Recorder is an Injector that remembers every call. Set Fail to make the
// next calls return an error.
type Recorder struct {
	mu   sync.Mutex
	ops  []Op
	Fail error
}

func (r *Recorder) Backspace(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.ops = append(r.ops, Op{Backspaces: n})
	return nil
}

func (r *Recorder) Type(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.ops = append(r.ops, Op{Text: text})
	return nil
}

// Ops returns a copy of the recorded calls.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Apply replays the recorded calls against text, as an editor would.
func (r *Recorder) Apply(text string) string {
	out := []rune(text)
	for _, op := range r.Ops() {
		n := op.Backspaces
		if n > len(out) {
			n = len(out)
		}
		out = out[:len(out)-n]
		out = append(out, []rune(op.Text)...)
	}
	return string(out)
}

// Loopback wraps an Injector and queues a synthetic event for every
// operation that succeeded. Injection paths such as xdotool bypass the
// capture devices, so without the loopback the capture side would never see
// the injected keys.
type Loopback struct {
	inner   Injector
	mu      sync.Mutex
	pending []Event
}

// NewLoopback wraps inner.
func NewLoopback(inner Injector) *Loopback {
	return &Loopback{inner: inner}
}

// Backspace forwards to the wrapped injector and queues n backspace events.
func (l *Loopback) Backspace(n int) error {
	if err := l.inner.Backspace(n); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < n; i++ {
		ev := Backspace()
		ev.Synthetic = true
		l.pending = append(l.pending, ev)
	}
	return nil
}

// Type forwards to the wrapped injector and queues one event per character.
func (l *Loopback) Type(text string) error {
	if err := l.inner.Type(text); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range TextEvents(text) {
		ev.Synthetic = true
		l.pending = append(l.pending, ev)
	}
	return nil
}

// Next pops the oldest queued event.
func (l *Loopback) Next() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return Event{}, false
	}
	ev := l.pending[0]
	l.pending = l.pending[1:]
	return ev, true
}

// Pending returns the number of queued events.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
