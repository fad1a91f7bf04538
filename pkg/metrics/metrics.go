// Package metrics exposes motoscan counters on a private Prometheus registry.
// All methods are safe on a nil *Metrics so components can run unmetered.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "motoscan"

// Metrics holds all application collectors.
type Metrics struct {
	registry *prometheus.Registry

	framesProcessed prometheus.Counter
	readErrors      prometheus.Counter
	processErrors   prometheus.Counter
	markersDetected prometheus.Counter
	reports         *prometheus.CounterVec
	logins          *prometheus.CounterVec
	streamClients   prometheus.Gauge
	captureRunning  prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames read, processed and stored by the capture loop.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_read_errors_total",
			Help:      "Transient camera read failures.",
		}),
		processErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_process_errors_total",
			Help:      "Frames dropped because detection or encoding failed.",
		}),
		markersDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_detected_total",
			Help:      "Marker detections across all frames.",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_reports_total",
			Help:      "Tag report attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_logins_total",
			Help:      "Backend login attempts by result.",
		}, []string{"result"}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected MJPEG stream clients.",
		}),
		captureRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_running",
			Help:      "1 while the capture loop is running.",
		}),
	}

	m.registry.MustRegister(
		m.framesProcessed,
		m.readErrors,
		m.processErrors,
		m.markersDetected,
		m.reports,
		m.logins,
		m.streamClients,
		m.captureRunning,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FrameProcessed counts a stored frame and its detections.
func (m *Metrics) FrameProcessed(markers int) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.markersDetected.Add(float64(markers))
}

// ReadError counts a transient read failure.
func (m *Metrics) ReadError() {
	if m == nil {
		return
	}
	m.readErrors.Inc()
}

// ProcessError counts a frame dropped during processing.
func (m *Metrics) ProcessError() {
	if m == nil {
		return
	}
	m.processErrors.Inc()
}

// Report counts a tag report attempt.
func (m *Metrics) Report(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}

// Login counts a login attempt; ok selects the result label.
func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.logins.WithLabelValues(result).Inc()
}

// StreamClientAdded increments the stream client gauge.
func (m *Metrics) StreamClientAdded() {
	if m == nil {
		return
	}
	m.streamClients.Inc()
}

// StreamClientRemoved decrements the stream client gauge.
func (m *Metrics) StreamClientRemoved() {
	if m == nil {
		return
	}
	m.streamClients.Dec()
}

// SetCaptureRunning records the capture loop state.
func (m *Metrics) SetCaptureRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.captureRunning.Set(1)
		return
	}
	m.captureRunning.Set(0)
}
