// Package keyboard delivers key-down events from the operating system and
// injects synthetic backspaces and text back into it.
//
// Platform support:
//   - Linux: capture from /dev/input/event* (requires the input group or
//     root), injection through xdotool
//   - Other platforms: capture reports ErrNotAvailable
//
// Simulated, Recorder and Loopback are in-memory implementations used by
// tests and by the offline check command.
package keyboard

import (
	"errors"
	"time"
)

// Kind categorizes a key-down event.
type Kind int

const (
	KindOther     Kind = iota // modifiers, navigation, function keys, chords
	KindChar                  // a key that produced a printable character
	KindSpace                 // the space bar
	KindBackspace             // delete backward
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindChar:
		return "char"
	case KindSpace:
		return "space"
	case KindBackspace:
		return "backspace"
	default:
		return "other"
	}
}

// Event is a single key-down event.
type Event struct {
	Kind      Kind
	Rune      rune   // character produced, only meaningful for KindChar
	Code      uint16 // platform key code, zero for synthetic events
	Synthetic bool   // produced by an Injector rather than a keyboard
	Timestamp time.Time
}

// Char returns the character the event carries and whether it carries one.
// Events that are not KindChar, or that have no character data, report false.
func (e Event) Char() (rune, bool) {
	if e.Kind != KindChar || e.Rune == 0 {
		return 0, false
	}
	return e.Rune, true
}

// CharEvent builds a KindChar event for r. A space rune yields KindSpace.
func CharEvent(r rune) Event {
	if r == ' ' {
		return Event{Kind: KindSpace, Timestamp: time.Now()}
	}
	return Event{Kind: KindChar, Rune: r, Timestamp: time.Now()}
}

// TextEvents expands s into one event per character.
func TextEvents(s string) []Event {
	events := make([]Event, 0, len(s))
	for _, r := range s {
		events = append(events, CharEvent(r))
	}
	return events
}

// Backspace builds a KindBackspace event.
func Backspace() Event {
	return Event{Kind: KindBackspace, Timestamp: time.Now()}
}

// ErrNotAvailable is returned when keyboard capture isn't available.
var ErrNotAvailable = errors.New("keyboard capture not available on this platform")

// ErrPermissionDenied is returned when input devices cannot be opened.
var ErrPermissionDenied = errors.New("insufficient permissions for keyboard capture")

// ErrAlreadyRunning is returned when Start is called while already running.
var ErrAlreadyRunning = errors.New("hook already running")
