package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	probeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quicvd",
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Completed probes by outcome.",
		},
		[]string{"status"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quicvd",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Probe duration in seconds from resolve to outcome.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	datagramsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quicvd",
			Subsystem: "probe",
			Name:      "datagrams_sent_total",
			Help:      "Trigger datagrams written to the network.",
		},
	)
	versionsSeen = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quicvd",
			Subsystem: "probe",
			Name:      "versions_seen_total",
			Help:      "Version tags advertised in negotiation replies.",
		},
		[]string{"version"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(probeResults, probeDuration, datagramsSent, versionsSeen)
	})
}

func RecordProbe(status string, duration time.Duration) {
	RegisterMetrics()
	probeResults.WithLabelValues(status).Inc()
	probeDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordDatagramsSent(n int) {
	RegisterMetrics()
	datagramsSent.Add(float64(n))
}

func RecordVersions(versions []string) {
	RegisterMetrics()
	for _, v := range versions {
		versionsSeen.WithLabelValues(v).Inc()
	}
}

// MetricsServer exposes the default registry on /metrics.
type MetricsServer struct {
	srv *http.Server
}

func NewMetricsServer(addr string) *MetricsServer {
	RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background; listen errors are sent on the returned channel.
func (m *MetricsServer) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		err := m.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func (m *MetricsServer) Close() error {
	return m.srv.Close()
}
