package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry("test")
	c := r.RegisterCounter("events_total", "events", nil)
	g := r.RegisterGauge("tapping", "tapping", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
			g.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), c.Value())
	assert.Equal(t, int64(50), g.Value())
	assert.Equal(t, "test_events_total", c.Name())

	g.SetBool(false)
	assert.Equal(t, int64(0), g.Value())
	g.SetBool(true)
	assert.Equal(t, int64(1), g.Value())

	assert.Same(t, c, r.RegisterCounter("events_total", "again", nil))
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("decision", "", nil, []float64{1, 0.1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.ObserveDuration(2 * time.Second)

	assert.Equal(t, uint64(3), h.Count())
	assert.InDelta(t, 0.85, h.Mean(), 1e-9)
	assert.Equal(t, []uint64{1, 1, 1}, h.counts)
	assert.Equal(t, float64(0), NewHistogram("empty", "", nil, nil).Mean())
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("keyhook")
	r.RegisterCounter("captured_total", "Captured events", Labels{"kind": "media"}).Add(3)
	r.RegisterGauge("enabled", "Enabled", nil).Set(1)
	r.RegisterHistogram("decision_duration_seconds", "Latency", nil, []float64{0.001}).Observe(0.0005)

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE keyhook_captured_total counter")
	assert.Contains(t, out, `keyhook_captured_total{kind="media"} 3`)
	assert.Contains(t, out, "keyhook_enabled 1")
	assert.Contains(t, out, `keyhook_decision_duration_seconds_bucket{le="0.001"} 1`)
	assert.Contains(t, out, `keyhook_decision_duration_seconds_bucket{le="+Inf"} 1`)
	assert.Contains(t, out, "keyhook_decision_duration_seconds_count 1")
}

func TestHTTPHandler(t *testing.T) {
	r := NewRegistry("keyhook")
	tm := NewTapMetrics(r)
	tm.RecordStart()
	tm.RecordEvent()
	tm.RecordDecision(true, time.Microsecond)

	rec := httptest.NewRecorder()
	r.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "keyhook_tapping 1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	r.HTTPHandler().ServeHTTP(rec, req)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, float64(1), snap["keyhook_captured_total"])
	assert.Equal(t, float64(1), snap["keyhook_decision_duration_seconds_count"])
}

func TestTapMetrics(t *testing.T) {
	tm := NewTapMetrics(NewRegistry(""))

	tm.SetIntent(true, true)
	tm.RecordStart()
	tm.RecordReenable()
	tm.RecordActivation()
	tm.RecordDecision(false, 0)
	tm.RecordTranslationFailure()
	tm.RecordRepostFailure()
	tm.RecordCreateFailure()
	tm.RecordStop()

	assert.Equal(t, int64(1), tm.Enabled.Value())
	assert.Equal(t, int64(1), tm.DedicatedThread.Value())
	assert.Equal(t, int64(0), tm.Tapping.Value())
	assert.Equal(t, uint64(1), tm.TapStartsTotal.Value())
	assert.Equal(t, uint64(1), tm.TapStopsTotal.Value())
	assert.Equal(t, uint64(1), tm.PassedTotal.Value())
	assert.Equal(t, uint64(0), tm.CapturedTotal.Value())
	assert.Equal(t, uint64(1), tm.TapReenabledTotal.Value())
	assert.Equal(t, uint64(1), tm.ActivationsTotal.Value())
	assert.Equal(t, uint64(1), tm.TranslationFailuresTotal.Value())
	assert.Equal(t, uint64(1), tm.RepostFailuresTotal.Value())
	assert.Equal(t, uint64(1), tm.TapCreateFailuresTotal.Value())
	assert.Equal(t, "tapping", tm.Tapping.Name())
}

func TestTapMetrics_NilSafe(t *testing.T) {
	var tm *TapMetrics
	assert.NotPanics(t, func() {
		tm.RecordStart()
		tm.RecordStop()
		tm.RecordEvent()
		tm.RecordDecision(true, time.Millisecond)
		tm.SetIntent(true, false)
	})
	assert.Nil(t, tm.Registry())
}
