package segmenter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/classify"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/lexicon"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/window"
)

// screen is the text an editor would show. Real keystrokes reach it through
// the observer, injected ones through the injector.
type screen struct {
	keyboard.Recorder
	text []rune
}

func (s *screen) Backspace(n int) error {
	if err := s.Recorder.Backspace(n); err != nil {
		return err
	}
	s.text = s.text[:max(0, len(s.text)-n)]
	return nil
}

func (s *screen) Type(text string) error {
	if err := s.Recorder.Type(text); err != nil {
		return err
	}
	s.text = append(s.text, []rune(text)...)
	return nil
}

func (s *screen) EventHandled(ev keyboard.Event, _ bool) {
	if ev.Synthetic {
		return
	}
	switch ev.Kind {
	case keyboard.KindChar:
		s.text = append(s.text, ev.Rune)
	case keyboard.KindSpace:
		s.text = append(s.text, ' ')
	case keyboard.KindBackspace:
		s.text = s.text[:max(0, len(s.text)-1)]
	}
}

func (s *screen) WordCompleted(classify.Token, classify.Verdict) {}

func (s *screen) String() string { return string(s.text) }

type pipeline struct {
	seg *Segmenter
	scr *screen
	lb  *keyboard.Loopback
	sup *correction.Suppressor
}

func newPipeline(t *testing.T, target, source []string) *pipeline {
	t.Helper()
	m, err := layout.Lookup("")
	require.NoError(t, err)

	p := &pipeline{scr: &screen{}, sup: &correction.Suppressor{}}
	p.lb = keyboard.NewLoopback(p.scr)
	em := correction.NewEmitter(p.lb, p.sup, nil)

	tgt := lexicon.New(target...)
	cls := classify.New(m, tgt, lexicon.New(source...), em, nil)
	win := window.New(m, tgt, em, nil)
	p.seg = New(cls, win, p.sup, nil)
	p.seg.SetEchoes(p.lb)
	p.seg.Observe(p.scr)
	return p
}

// typeAll runs the segmenter over text until the simulated source closes.
func (p *pipeline) typeAll(t *testing.T, text string) {
	t.Helper()
	h := keyboard.NewSimulated(1024)
	ch, err := h.Start(context.Background())
	require.NoError(t, err)
	h.Type(text)
	require.NoError(t, h.Stop())

	err = p.seg.Run(context.Background(), ch)
	assert.True(t, errors.Is(err, ErrSourceClosed))
}

func (p *pipeline) handle(text string) {
	for _, ev := range keyboard.TextEvents(text) {
		p.seg.Handle(ev)
	}
}

func words(w *window.Window) []string {
	var out []string
	for _, tok := range w.Tokens() {
		out = append(out, tok.Raw)
	}
	return out
}

func TestBufferAndBoundary(t *testing.T) {
	p := newPipeline(t, nil, nil)

	p.handle("HeL")
	assert.Equal(t, "hel", p.seg.Buffer(), "characters are lowercased")

	p.seg.Handle(keyboard.Backspace())
	assert.Equal(t, "he", p.seg.Buffer())

	p.handle("y ")
	assert.Equal(t, "", p.seg.Buffer())
	assert.Equal(t, []string{"hey"}, words(p.seg.Window()))
}

func TestBackspaceOnEmptyBuffer(t *testing.T) {
	p := newPipeline(t, nil, nil)

	p.seg.Handle(keyboard.Backspace())
	p.seg.Handle(keyboard.Backspace())
	assert.Equal(t, "", p.seg.Buffer())
	assert.Equal(t, 0, p.seg.Window().Len())
}

func TestSpacesWithoutWord(t *testing.T) {
	p := newPipeline(t, nil, nil)

	p.handle("   ")
	assert.Equal(t, 0, p.seg.Window().Len())

	p.handle("!!! ")
	assert.Equal(t, 0, p.seg.Window().Len(), "punctuation-only words produce no token")
	assert.Equal(t, "", p.seg.Buffer())
}

func TestOtherEventsAreIgnored(t *testing.T) {
	p := newPipeline(t, nil, nil)

	p.handle("ab")
	p.seg.Handle(keyboard.Event{Kind: keyboard.KindOther, Code: 42})
	p.seg.Handle(keyboard.Event{Kind: keyboard.KindChar})
	assert.Equal(t, "ab", p.seg.Buffer())
}

func TestSuppressedEventsAreIgnored(t *testing.T) {
	p := newPipeline(t, nil, nil)

	p.handle("xy")
	p.sup.Arm(5)

	p.seg.Handle(keyboard.CharEvent('a'))
	p.seg.Handle(keyboard.CharEvent(' '))
	p.seg.Handle(keyboard.Backspace())
	p.seg.Handle(keyboard.Backspace())
	p.seg.Handle(keyboard.Event{Kind: keyboard.KindOther})

	assert.Equal(t, "xy", p.seg.Buffer())
	assert.Equal(t, 0, p.seg.Window().Len())
	assert.Equal(t, 0, p.sup.Pending())

	p.seg.Handle(keyboard.CharEvent(' '))
	assert.Equal(t, []string{"xy"}, words(p.seg.Window()), "the sixth event is processed")
}

func TestWordCorrectionEndToEnd(t *testing.T) {
	p := newPipeline(t, []string{"שלום", "ספר"}, []string{"hello"})

	p.typeAll(t, "hello akuo xpr ")

	assert.Equal(t, "hello שלום ספר ", p.scr.String())
	assert.Equal(t, []string{"hello", "שלום", "ספר"}, words(p.seg.Window()))
	assert.Equal(t, 0, p.sup.Pending(), "every injected keystroke was debited")
	assert.Equal(t, 0, p.lb.Pending())
	assert.Equal(t, "", p.seg.Buffer())
}

func TestContextCorrectionEndToEnd(t *testing.T) {
	// "akuo" is a valid source word, so only the surrounding words can
	// reveal it was meant as "שלום".
	p := newPipeline(t, []string{"שלום", "בית", "ספר"}, []string{"akuo"})

	p.typeAll(t, "בית akuo ספר ")

	assert.Equal(t, "בית שלום ספר ", p.scr.String())
	assert.Equal(t, []keyboard.Op{{Backspaces: 13}, {Text: "בית שלום ספר "}}, p.scr.Ops())
	assert.Equal(t, 0, p.sup.Pending())
}

func TestWordAndContextCorrectionAtOneBoundary(t *testing.T) {
	p := newPipeline(t, []string{"שלום", "בית", "ספר"}, []string{"akuo"})

	p.typeAll(t, "בית akuo xpr ")

	assert.Equal(t, "בית שלום ספר ", p.scr.String())
	assert.Len(t, p.scr.Ops(), 4)
	assert.Equal(t, 0, p.sup.Pending())
	assert.Equal(t, []string{"בית", "שלום", "ספר"}, words(p.seg.Window()))
}

func TestTypingContinuesAfterCorrection(t *testing.T) {
	p := newPipeline(t, []string{"שלום"}, nil)

	p.typeAll(t, "akuo abc")

	assert.Equal(t, "abc", p.seg.Buffer(), "real keys after the echoes are buffered")
	assert.Equal(t, "שלום abc", p.scr.String())
}

func TestInjectionFailureKeepsRunning(t *testing.T) {
	p := newPipeline(t, []string{"שלום"}, nil)
	p.scr.Fail = errors.New("no display")

	p.typeAll(t, "akuo ab ")

	assert.Equal(t, 0, p.sup.Pending())
	assert.Empty(t, p.scr.Ops())
	assert.Equal(t, 2, p.seg.Window().Len())
}

func TestDisabledPassesThrough(t *testing.T) {
	p := newPipeline(t, []string{"שלום"}, nil)

	p.handle("abc def")
	p.seg.SetEnabled(false)
	assert.False(t, p.seg.Enabled())

	p.handle("akuo ")
	assert.Empty(t, p.scr.Ops())
	assert.Equal(t, "", p.seg.Buffer())
	assert.Equal(t, 0, p.seg.Window().Len())

	p.seg.SetEnabled(true)
	p.typeAll(t, "akuo ")
	assert.Len(t, p.scr.Ops(), 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	p := newPipeline(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.seg.Run(ctx, make(chan keyboard.Event))
	assert.True(t, errors.Is(err, context.Canceled))
}

type countingObserver struct {
	events     int
	suppressed int
	verdicts   []classify.Verdict
}

func (o *countingObserver) EventHandled(_ keyboard.Event, suppressed bool) {
	o.events++
	if suppressed {
		o.suppressed++
	}
}

func (o *countingObserver) WordCompleted(_ classify.Token, v classify.Verdict) {
	o.verdicts = append(o.verdicts, v)
}

func TestObserver(t *testing.T) {
	p := newPipeline(t, []string{"שלום"}, []string{"hello"})
	o := &countingObserver{}
	p.seg.Observe(o)

	typed := "hello akuo zz ! "
	p.typeAll(t, typed)

	assert.Equal(t, len([]rune(typed))+10, o.events)
	assert.Equal(t, 10, o.suppressed)
	assert.Equal(t, []classify.Verdict{
		classify.VerdictSource,
		classify.VerdictCorrected,
		classify.VerdictUnknown,
	}, o.verdicts)
}

type panickingObserver struct{ word string }

func (o *panickingObserver) EventHandled(keyboard.Event, bool) {}

func (o *panickingObserver) WordCompleted(tok classify.Token, _ classify.Verdict) {
	if tok.Clean == o.word {
		panic("observer failed on " + tok.Clean)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	p := newPipeline(t, nil, nil)
	p.seg.Observe(&panickingObserver{word: "boom"})

	var recovered []any
	var kinds []keyboard.Kind
	p.seg.OnPanic(func(ev keyboard.Event, v any) {
		kinds = append(kinds, ev.Kind)
		recovered = append(recovered, v)
	})

	p.typeAll(t, "ab boom cd ")

	require.Len(t, recovered, 1)
	assert.Equal(t, "observer failed on boom", recovered[0])
	assert.Equal(t, []keyboard.Kind{keyboard.KindSpace}, kinds)
	assert.Equal(t, []string{"cd"}, words(p.seg.Window()))
	assert.Equal(t, "", p.seg.Buffer())
}

func TestRunRecoversWithoutHook(t *testing.T) {
	p := newPipeline(t, nil, nil)
	p.seg.Observe(&panickingObserver{word: "boom"})

	p.typeAll(t, "boom ok ")
	assert.Equal(t, []string{"ok"}, words(p.seg.Window()))
}
