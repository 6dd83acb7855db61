package metrics

import "time"

// TapMetrics holds the event tap's metrics. All methods are safe to call
// from the tap callback and tolerate a nil receiver.
type TapMetrics struct {
	registry *Registry

	// Lifecycle
	TapStartsTotal         *Counter
	TapStopsTotal          *Counter
	TapCreateFailuresTotal *Counter
	TapReenabledTotal      *Counter
	ActivationsTotal       *Counter
	Tapping                *Gauge
	Enabled                *Gauge
	DedicatedThread        *Gauge

	// Event path
	EventsTotal              *Counter
	CapturedTotal            *Counter
	PassedTotal              *Counter
	TranslationFailuresTotal *Counter
	RepostFailuresTotal      *Counter
	DecisionDuration         *Histogram
}

// NewTapMetrics creates and registers the event tap metrics.
func NewTapMetrics(registry *Registry) *TapMetrics {
	if registry == nil {
		registry = Default()
	}

	return &TapMetrics{
		registry: registry,

		TapStartsTotal: registry.RegisterCounter(
			"tap_starts_total",
			"Total number of successful event tap starts",
			nil,
		),
		TapStopsTotal: registry.RegisterCounter(
			"tap_stops_total",
			"Total number of event tap stops",
			nil,
		),
		TapCreateFailuresTotal: registry.RegisterCounter(
			"tap_create_failures_total",
			"Total number of failed event tap creations",
			nil,
		),
		TapReenabledTotal: registry.RegisterCounter(
			"tap_reenabled_total",
			"Total number of re-enables after the OS disabled the tap by timeout",
			nil,
		),
		ActivationsTotal: registry.RegisterCounter(
			"activations_total",
			"Total number of application activation notifications",
			nil,
		),
		Tapping: registry.RegisterGauge(
			"tapping",
			"1 while the event tap is installed",
			nil,
		),
		Enabled: registry.RegisterGauge(
			"enabled",
			"1 while the host wants the event tap installed",
			nil,
		),
		DedicatedThread: registry.RegisterGauge(
			"dedicated_thread",
			"1 when the tap is serviced on a dedicated thread",
			nil,
		),

		EventsTotal: registry.RegisterCounter(
			"events_total",
			"Total number of events delivered to the tap callback",
			nil,
		),
		CapturedTotal: registry.RegisterCounter(
			"captured_total",
			"Total number of events captured and re-posted to this process",
			nil,
		),
		PassedTotal: registry.RegisterCounter(
			"passed_total",
			"Total number of events passed through unchanged",
			nil,
		),
		TranslationFailuresTotal: registry.RegisterCounter(
			"translation_failures_total",
			"Total number of native events that could not be translated",
			nil,
		),
		RepostFailuresTotal: registry.RegisterCounter(
			"repost_failures_total",
			"Total number of captures that fell back to pass-through",
			nil,
		),
		DecisionDuration: registry.RegisterHistogram(
			"decision_duration_seconds",
			"Time spent deciding on a single event in seconds",
			nil,
			LatencyBuckets,
		),
	}
}

// Registry returns the registry the metrics are registered in.
func (m *TapMetrics) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *TapMetrics) RecordStart() {
	if m == nil {
		return
	}
	m.TapStartsTotal.Inc()
	m.Tapping.Set(1)
}

func (m *TapMetrics) RecordStop() {
	if m == nil {
		return
	}
	m.TapStopsTotal.Inc()
	m.Tapping.Set(0)
}

func (m *TapMetrics) RecordCreateFailure() {
	if m == nil {
		return
	}
	m.TapCreateFailuresTotal.Inc()
}

func (m *TapMetrics) RecordReenable() {
	if m == nil {
		return
	}
	m.TapReenabledTotal.Inc()
}

func (m *TapMetrics) RecordActivation() {
	if m == nil {
		return
	}
	m.ActivationsTotal.Inc()
}

// SetIntent records the host-controlled flags.
func (m *TapMetrics) SetIntent(enabled, dedicatedThread bool) {
	if m == nil {
		return
	}
	m.Enabled.SetBool(enabled)
	m.DedicatedThread.SetBool(dedicatedThread)
}

func (m *TapMetrics) RecordEvent() {
	if m == nil {
		return
	}
	m.EventsTotal.Inc()
}

// RecordDecision records the outcome of one decision and its latency.
func (m *TapMetrics) RecordDecision(captured bool, d time.Duration) {
	if m == nil {
		return
	}
	if captured {
		m.CapturedTotal.Inc()
	} else {
		m.PassedTotal.Inc()
	}
	m.DecisionDuration.ObserveDuration(d)
}

func (m *TapMetrics) RecordTranslationFailure() {
	if m == nil {
		return
	}
	m.TranslationFailuresTotal.Inc()
}

func (m *TapMetrics) RecordRepostFailure() {
	if m == nil {
		return
	}
	m.RepostFailuresTotal.Inc()
}
