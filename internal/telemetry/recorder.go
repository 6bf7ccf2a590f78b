// Package telemetry records SSO session metrics with Prometheus.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fastertools/ftl-sso/internal/logging"
	"github.com/fastertools/ftl-sso/internal/sso"
)

const namespace = "ftl_sso"

// Result label values
const (
	ResultSucceeded = "Succeeded"
	ResultFailed    = "Failed"
)

// Recorder implements sso.Telemetry on a private registry
type Recorder struct {
	registry *prometheus.Registry

	sessionDuration *prometheus.HistogramVec
	refreshFailures *prometheus.CounterVec
	logins          *prometheus.CounterVec

	mu    sync.Mutex
	dirty bool
}

var _ sso.Telemetry = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Age of the SSO session when a token refresh was attempted",
			// one minute to one week
			Buckets: prometheus.ExponentialBuckets(60, 4, 8),
		}, []string{"result"}),
		refreshFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Token refresh failures by reason",
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Device authorization logins by result",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.sessionDuration, r.refreshFailures, r.logins)
	return r
}

func (r *Recorder) RefreshSucceeded(sessionAge time.Duration) {
	r.sessionDuration.WithLabelValues(ResultSucceeded).Observe(sessionAge.Seconds())
	r.markDirty()
}

func (r *Recorder) RefreshFailed(sessionAge time.Duration, reason string) {
	if reason == "" {
		reason = "Unknown"
	}
	r.sessionDuration.WithLabelValues(ResultFailed).Observe(sessionAge.Seconds())
	r.refreshFailures.WithLabelValues(reason).Inc()
	r.markDirty()
	logging.Debug("Telemetry", "Refresh failed after %s: %s", sessionAge.Round(time.Second), reason)
}

func (r *Recorder) LoginFinished(result string) {
	r.logins.WithLabelValues(result).Inc()
	r.markDirty()
}

func (r *Recorder) markDirty() {
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
}

// WriteTextfile writes the metrics in the text exposition format to path,
// for the node exporter textfile collector. Nothing is written when no
// observation was made since the last write.
func (r *Recorder) WriteTextfile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return err
	}
	r.dirty = false
	return nil
}
