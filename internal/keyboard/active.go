package keyboard

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ActiveLayout reports whether the operating system currently applies the
// target layout to key presses.
type ActiveLayout interface {
	TargetActive() bool
}

// FixedLayout is an ActiveLayout that never changes.
type FixedLayout bool

// TargetActive returns the fixed value.
func (f FixedLayout) TargetActive() bool { return bool(f) }

// XkbQuery asks an external command for the active XKB group name, such as
// "us" or "il", and caches the answer for a short time. Lookups that fail
// report the source layout.
type XkbQuery struct {
	command []string
	group   string
	ttl     time.Duration
	timeout time.Duration
	run     func(ctx context.Context, args ...string) (string, error)
	now     func() time.Time

	mu      sync.Mutex
	checked time.Time
	active  bool
	lastErr error
}

// NewXkbQuery creates a query that runs command (for example "xkb-switch -p")
// and treats group, or any variant of it such as "il(phonetic)", as the
// target layout.
func NewXkbQuery(command, group string) *XkbQuery {
	return &XkbQuery{
		command: strings.Fields(command),
		group:   group,
		ttl:     250 * time.Millisecond,
		timeout: time.Second,
		run: func(ctx context.Context, args ...string) (string, error) {
			out, err := exec.CommandContext(ctx, args[0], args[1:]...).Output()
			if err != nil {
				return "", fmt.Errorf("%s: %w", args[0], err)
			}
			return string(out), nil
		},
		now: time.Now,
	}
}

// TargetActive reports whether the last known group is the target group.
func (q *XkbQuery) TargetActive() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	if !q.checked.IsZero() && now.Sub(q.checked) < q.ttl {
		return q.active
	}
	q.checked = now
	q.active, q.lastErr = q.query()
	return q.active
}

// Err returns the error of the most recent lookup.
func (q *XkbQuery) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// Available runs the query once and describes the result.
func (q *XkbQuery) Available() (bool, string) {
	if len(q.command) == 0 {
		return false, "no layout query configured; keys are read as US QWERTY"
	}
	if _, err := exec.LookPath(q.command[0]); err != nil {
		return false, q.command[0] + " not found. Install xkb-switch: sudo apt install xkb-switch"
	}
	name, err := q.groupName()
	if err != nil {
		return false, err.Error()
	}
	return true, fmt.Sprintf("active group %q (target %q)", name, q.group)
}

func (q *XkbQuery) query() (bool, error) {
	name, err := q.groupName()
	if err != nil {
		return false, err
	}
	return name == q.group || strings.HasPrefix(name, q.group+"("), nil
}

func (q *XkbQuery) groupName() (string, error) {
	if len(q.command) == 0 {
		return "", fmt.Errorf("no layout query configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	out, err := q.run(ctx, q.command...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
