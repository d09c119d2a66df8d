package keyboard

import (
	"time"
	"unicode"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
)

// Linux evdev constants from <linux/input-event-codes.h>.
const (
	evKey = 0x01

	keyReleased = 0
	keyPressed  = 1
	keyRepeat   = 2

	keyBackspace  = 14
	keySpace      = 57
	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftAlt    = 56
	keyRightAlt   = 100
	keyLeftMeta   = 125
	keyRightMeta  = 126
	keyCapsLock   = 58
)

// usQwerty maps evdev key codes to the unshifted and shifted characters of a
// US QWERTY keyboard. Key codes are physical positions; other layouts are
// decoded by mapping the unshifted character through a layout table.
var usQwerty = map[uint16][2]rune{
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'}, 6: {'5', '%'},
	7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'}, 10: {'9', '('}, 11: {'0', ')'},
	12: {'-', '_'}, 13: {'=', '+'},
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'}, 20: {'t', 'T'},
	21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'}, 24: {'o', 'O'}, 25: {'p', 'P'},
	26: {'[', '{'}, 27: {']', '}'},
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'}, 34: {'g', 'G'},
	35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'}, 38: {'l', 'L'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'}, 43: {'\\', '|'},
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'}, 48: {'b', 'B'},
	49: {'n', 'N'}, 50: {'m', 'M'},
	51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},
}

// evdevDecoder turns raw input_event records into Events. It tracks modifier
// state, so each device needs its own decoder.
//
// When active reports the target layout, unshifted keys are decoded through
// target, so a word typed correctly in the target language arrives as
// target-language characters.
type evdevDecoder struct {
	target layout.Mapper
	active ActiveLayout

	shift    int
	ctrl     int
	alt      int
	meta     int
	capsLock bool
}

// Decode interprets one input_event. ok is false for records that are not
// key-down events (releases, sync and non-key records).
func (d *evdevDecoder) Decode(typ, code uint16, value int32, ts time.Time) (ev Event, ok bool) {
	if typ != evKey {
		return Event{}, false
	}

	if d.trackModifier(code, value) {
		if value == keyPressed {
			return Event{Kind: KindOther, Code: code, Timestamp: ts}, true
		}
		return Event{}, false
	}

	if value != keyPressed && value != keyRepeat {
		return Event{}, false
	}

	ev = Event{Kind: KindOther, Code: code, Timestamp: ts}
	if d.ctrl > 0 || d.alt > 0 || d.meta > 0 {
		return ev, true
	}

	switch code {
	case keySpace:
		ev.Kind = KindSpace
	case keyBackspace:
		ev.Kind = KindBackspace
	default:
		if pair, known := usQwerty[code]; known {
			ev.Kind = KindChar
			ev.Rune = d.pick(pair)
		}
	}
	return ev, true
}

// trackModifier updates modifier state and reports whether code is a modifier.
func (d *evdevDecoder) trackModifier(code uint16, value int32) bool {
	var counter *int
	switch code {
	case keyLeftShift, keyRightShift:
		counter = &d.shift
	case keyLeftCtrl, keyRightCtrl:
		counter = &d.ctrl
	case keyLeftAlt, keyRightAlt:
		counter = &d.alt
	case keyLeftMeta, keyRightMeta:
		counter = &d.meta
	case keyCapsLock:
		if value == keyPressed {
			d.capsLock = !d.capsLock
		}
		return true
	default:
		return false
	}

	switch value {
	case keyPressed:
		*counter++
	case keyReleased:
		if *counter > 0 {
			*counter--
		}
	}
	return true
}

func (d *evdevDecoder) pick(pair [2]rune) rune {
	shifted := d.shift > 0
	if d.capsLock && unicode.IsLetter(pair[0]) {
		shifted = !shifted
	}
	if shifted {
		return pair[1]
	}
	if d.active != nil && d.active.TargetActive() {
		return d.target.Map(pair[0])
	}
	return pair[0]
}
