package keyboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
)

// =============================================================================
// Tests for Event
// =============================================================================

func TestEventChar(t *testing.T) {
	r, ok := CharEvent('a').Char()
	assert.True(t, ok)
	assert.Equal(t, 'a', r)

	_, ok = Event{Kind: KindChar}.Char()
	assert.False(t, ok, "char event without data is unmappable")

	_, ok = Backspace().Char()
	assert.False(t, ok)

	_, ok = Event{Kind: KindOther, Rune: 'x'}.Char()
	assert.False(t, ok)
}

func TestCharEventSpace(t *testing.T) {
	assert.Equal(t, KindSpace, CharEvent(' ').Kind)
}

func TestTextEvents(t *testing.T) {
	events := TextEvents("שלום ")
	require.Len(t, events, 5)
	assert.Equal(t, 'ש', events[0].Rune)
	assert.Equal(t, KindSpace, events[4].Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "char", KindChar.String())
	assert.Equal(t, "space", KindSpace.String())
	assert.Equal(t, "backspace", KindBackspace.String())
	assert.Equal(t, "other", KindOther.String())
}

// =============================================================================
// Tests for evdevDecoder
// =============================================================================

func press(d *evdevDecoder, code uint16) (Event, bool) {
	return d.Decode(evKey, code, keyPressed, time.Now())
}

func release(d *evdevDecoder, code uint16) {
	d.Decode(evKey, code, keyReleased, time.Now())
}

func TestDecodeLetters(t *testing.T) {
	var d evdevDecoder

	ev, ok := press(&d, 30)
	require.True(t, ok)
	assert.Equal(t, KindChar, ev.Kind)
	assert.Equal(t, 'a', ev.Rune)
	assert.Equal(t, uint16(30), ev.Code)

	ev, _ = press(&d, 51)
	assert.Equal(t, ',', ev.Rune)
}

func TestDecodeShift(t *testing.T) {
	var d evdevDecoder

	ev, ok := press(&d, keyLeftShift)
	require.True(t, ok)
	assert.Equal(t, KindOther, ev.Kind)

	ev, _ = press(&d, 30)
	assert.Equal(t, 'A', ev.Rune)
	ev, _ = press(&d, 2)
	assert.Equal(t, '!', ev.Rune)

	release(&d, keyLeftShift)
	ev, _ = press(&d, 30)
	assert.Equal(t, 'a', ev.Rune)
}

func TestDecodeCapsLock(t *testing.T) {
	var d evdevDecoder

	press(&d, keyCapsLock)
	ev, _ := press(&d, 30)
	assert.Equal(t, 'A', ev.Rune)
	ev, _ = press(&d, 2)
	assert.Equal(t, '1', ev.Rune, "caps lock only affects letters")

	press(&d, keyCapsLock)
	ev, _ = press(&d, 30)
	assert.Equal(t, 'a', ev.Rune)
}

func TestDecodeSpaceAndBackspace(t *testing.T) {
	var d evdevDecoder

	ev, _ := press(&d, keySpace)
	assert.Equal(t, KindSpace, ev.Kind)
	ev, _ = press(&d, keyBackspace)
	assert.Equal(t, KindBackspace, ev.Kind)
}

func TestDecodeChordIsOther(t *testing.T) {
	var d evdevDecoder

	press(&d, keyLeftCtrl)
	ev, ok := press(&d, 46)
	require.True(t, ok)
	assert.Equal(t, KindOther, ev.Kind)
	_, has := ev.Char()
	assert.False(t, has)

	release(&d, keyLeftCtrl)
	ev, _ = press(&d, 46)
	assert.Equal(t, 'c', ev.Rune)
}

func TestDecodeRepeatIsKeyDown(t *testing.T) {
	var d evdevDecoder

	ev, ok := d.Decode(evKey, 24, keyRepeat, time.Now())
	require.True(t, ok)
	assert.Equal(t, 'o', ev.Rune)
}

func TestDecodeIgnoresReleasesAndSync(t *testing.T) {
	var d evdevDecoder

	_, ok := d.Decode(evKey, 30, keyReleased, time.Now())
	assert.False(t, ok)
	_, ok = d.Decode(0, 0, 0, time.Now())
	assert.False(t, ok)
}

func decodeWord(d *evdevDecoder, codes ...uint16) string {
	var out []rune
	for _, code := range codes {
		if ev, ok := press(d, code); ok {
			if r, has := ev.Char(); has {
				out = append(out, r)
			}
		}
	}
	return string(out)
}

func TestDecodeTargetLayout(t *testing.T) {
	he, err := layout.Lookup("en-he")
	require.NoError(t, err)
	d := evdevDecoder{target: he, active: FixedLayout(true)}

	assert.Equal(t, "שלום", decodeWord(&d, 30, 37, 22, 24))
	assert.Equal(t, "/ת.", decodeWord(&d, 16, 51, 53))
	assert.Equal(t, "1", decodeWord(&d, 2), "digits are the same on both layouts")

	press(&d, keyLeftShift)
	assert.Equal(t, "A", decodeWord(&d, 30), "shifted keys type Latin capitals")
	release(&d, keyLeftShift)
}

func TestDecodeSourceLayout(t *testing.T) {
	he, err := layout.Lookup("en-he")
	require.NoError(t, err)
	d := evdevDecoder{target: he, active: FixedLayout(false)}

	assert.Equal(t, "akuo", decodeWord(&d, 30, 37, 22, 24))
}

type switchable struct{ on bool }

func (s *switchable) TargetActive() bool { return s.on }

func TestDecodeFollowsLayoutSwitch(t *testing.T) {
	he, err := layout.Lookup("en-he")
	require.NoError(t, err)
	active := &switchable{}
	d := evdevDecoder{target: he, active: active}

	assert.Equal(t, "akuo", decodeWord(&d, 30, 37, 22, 24))
	active.on = true
	assert.Equal(t, "שלום", decodeWord(&d, 30, 37, 22, 24))
}

func TestDecodeUnknownKeyIsOther(t *testing.T) {
	var d evdevDecoder

	ev, ok := press(&d, 59) // F1
	require.True(t, ok)
	assert.Equal(t, KindOther, ev.Kind)
}

// =============================================================================
// Tests for injectors
// =============================================================================

func TestRecorderApply(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Backspace(5))
	require.NoError(t, r.Type("שלום "))

	assert.Equal(t, "hi שלום ", r.Apply("hi akuo "))
	assert.Equal(t, []Op{{Backspaces: 5}, {Text: "שלום "}}, r.Ops())
}

func TestRecorderFail(t *testing.T) {
	r := Recorder{Fail: errors.New("boom")}
	assert.Error(t, r.Backspace(1))
	assert.Error(t, r.Type("x"))
	assert.Empty(t, r.Ops())
}

func TestLoopbackQueuesEchoes(t *testing.T) {
	var rec Recorder
	lb := NewLoopback(&rec)

	require.NoError(t, lb.Backspace(2))
	require.NoError(t, lb.Type("אב "))
	assert.Equal(t, 5, lb.Pending())

	var kinds []Kind
	for {
		ev, ok := lb.Next()
		if !ok {
			break
		}
		assert.True(t, ev.Synthetic)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []Kind{KindBackspace, KindBackspace, KindChar, KindChar, KindSpace}, kinds)
	assert.Len(t, rec.Ops(), 2)
}

func TestLoopbackSkipsFailedOperations(t *testing.T) {
	rec := Recorder{Fail: errors.New("no display")}
	lb := NewLoopback(&rec)

	assert.Error(t, lb.Backspace(3))
	assert.Error(t, lb.Type("abc"))
	assert.Equal(t, 0, lb.Pending())
}

func TestXdotoolArgs(t *testing.T) {
	x := NewXdotool(2 * time.Millisecond)
	var calls [][]string
	x.run = func(ctx context.Context, args ...string) error {
		calls = append(calls, args)
		return nil
	}

	require.NoError(t, x.Backspace(3))
	require.NoError(t, x.Type("שלום "))
	require.NoError(t, x.Backspace(0))
	require.NoError(t, x.Type(""))

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"key", "--clearmodifiers", "--delay", "2", "--repeat", "3", "BackSpace"}, calls[0])
	assert.Equal(t, []string{"type", "--clearmodifiers", "--delay", "2", "--", "שלום "}, calls[1])
}

func TestNewInjector(t *testing.T) {
	inj, err := NewInjector("none", 0)
	require.NoError(t, err)
	assert.NoError(t, inj.Backspace(10))

	inj, err = NewInjector("xdotool", time.Millisecond)
	require.NoError(t, err)
	assert.IsType(t, &Xdotool{}, inj)

	_, err = NewInjector("robot", 0)
	assert.Error(t, err)
}

// =============================================================================
// Tests for Simulated
// =============================================================================

func TestSimulatedHook(t *testing.T) {
	h := NewSimulated(16)
	ok, _ := h.Available()
	assert.True(t, ok)

	ch, err := h.Start(context.Background())
	require.NoError(t, err)

	_, err = h.Start(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	h.Type("ab")
	assert.Equal(t, 'a', (<-ch).Rune)
	assert.Equal(t, 'b', (<-ch).Rune)

	require.NoError(t, h.Stop())
	_, open := <-ch
	assert.False(t, open)
	assert.NoError(t, h.Stop())
}

// =============================================================================
// Tests for XkbQuery
// =============================================================================

func newTestQuery(out string, err error) (*XkbQuery, *int, *time.Time) {
	calls := 0
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	q := NewXkbQuery("xkb-switch -p", "il")
	q.run = func(ctx context.Context, args ...string) (string, error) {
		calls++
		return out, err
	}
	q.now = func() time.Time { return now }
	return q, &calls, &now
}

func TestXkbQueryTargetGroup(t *testing.T) {
	q, _, _ := newTestQuery("il\n", nil)
	assert.True(t, q.TargetActive())
	assert.NoError(t, q.Err())

	q, _, _ = newTestQuery("il(phonetic)\n", nil)
	assert.True(t, q.TargetActive())

	q, _, _ = newTestQuery("us\n", nil)
	assert.False(t, q.TargetActive())

	q, _, _ = newTestQuery("ilx\n", nil)
	assert.False(t, q.TargetActive())
}

func TestXkbQueryCaches(t *testing.T) {
	q, calls, now := newTestQuery("il", nil)

	q.TargetActive()
	q.TargetActive()
	assert.Equal(t, 1, *calls)

	*now = now.Add(time.Second)
	q.TargetActive()
	assert.Equal(t, 2, *calls)
}

func TestXkbQueryFailureReadsSource(t *testing.T) {
	q, _, _ := newTestQuery("", errors.New("cannot open display"))
	assert.False(t, q.TargetActive())
	assert.Error(t, q.Err())
}

func TestXkbQueryEmptyCommand(t *testing.T) {
	q := NewXkbQuery("", "il")
	assert.False(t, q.TargetActive())
	ok, _ := q.Available()
	assert.False(t, ok)
}
