// Package metrics counts what the daemon does with the keystrokes it sees.
//
// Metrics live in a private Prometheus registry and are exported through the
// node_exporter textfile collector: the daemon never opens a listening
// socket.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/classify"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
)

const namespace = "smartkbd"

// Metrics holds the daemon's collectors.
type Metrics struct {
	registry *prometheus.Registry
	started  time.Time

	eventsTotal       *prometheus.CounterVec
	suppressedTotal   prometheus.Counter
	wordsTotal        *prometheus.CounterVec
	correctionsTotal  *prometheus.CounterVec
	injectionFailures prometheus.Counter
	panicsTotal       prometheus.Counter
	lexiconWords      *prometheus.GaugeVec
	uptime            prometheus.GaugeFunc
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		started:  time.Now(),

		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Key-down events handled, including injected ones",
			},
			[]string{"kind"}, // kind: char, space, backspace, other
		),
		suppressedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_suppressed_total",
				Help:      "Events skipped because they were injected by a correction",
			},
		),
		wordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "words_total",
				Help:      "Completed words by classification verdict",
			},
			[]string{"verdict"},
		),
		correctionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "corrections_total",
				Help:      "Corrections injected successfully",
			},
			[]string{"kind"}, // kind: word, context
		),
		injectionFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "injection_failures_total",
				Help:      "Corrections whose injection failed",
			},
		),
		panicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_recovered_total",
				Help:      "Panics recovered while handling an event",
			},
		),
		lexiconWords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lexicon_words",
				Help:      "Words loaded per lexicon",
			},
			[]string{"lexicon"}, // lexicon: target, source
		),
	}
	m.uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the daemon started",
		},
		func() float64 { return time.Since(m.started).Seconds() },
	)

	// Pre-create the label values so every series is exported from zero.
	for _, k := range []keyboard.Kind{keyboard.KindChar, keyboard.KindSpace, keyboard.KindBackspace, keyboard.KindOther} {
		m.eventsTotal.WithLabelValues(k.String())
	}
	for _, v := range []classify.Verdict{classify.VerdictTarget, classify.VerdictSource, classify.VerdictCorrected, classify.VerdictUnknown} {
		m.wordsTotal.WithLabelValues(v.String())
	}
	for _, k := range []correction.Kind{correction.KindWord, correction.KindContext} {
		m.correctionsTotal.WithLabelValues(k.String())
	}

	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// EventHandled counts an event seen by the segmenter.
func (m *Metrics) EventHandled(ev keyboard.Event, suppressed bool) {
	m.eventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	if suppressed {
		m.suppressedTotal.Inc()
	}
}

// WordCompleted counts a classified word.
func (m *Metrics) WordCompleted(_ classify.Token, verdict classify.Verdict) {
	m.wordsTotal.WithLabelValues(verdict.String()).Inc()
}

// CorrectionEmitted counts an injection attempt. It has the signature of a
// correction.Emitter observer.
func (m *Metrics) CorrectionEmitted(c correction.Correction, err error) {
	if err != nil {
		m.injectionFailures.Inc()
		return
	}
	m.correctionsTotal.WithLabelValues(c.Kind.String()).Inc()
}

// PanicRecovered counts a recovered panic.
func (m *Metrics) PanicRecovered() {
	m.panicsTotal.Inc()
}

// SetLexiconSize records how many words a lexicon holds.
func (m *Metrics) SetLexiconSize(lexicon string, words int) {
	m.lexiconWords.WithLabelValues(lexicon).Set(float64(words))
}
