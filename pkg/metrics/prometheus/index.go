// Package prometheus implements the metrics interfaces on client_golang.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/p2pci/pkg/catalog"
	"github.com/marmos91/p2pci/pkg/metrics"
)

// indexMetrics is the Prometheus implementation of metrics.IndexMetrics.
type indexMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeConnections      prometheus.Gauge

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	registrations        *prometheus.CounterVec
	registrationFailures *prometheus.CounterVec
	uploadsPerPeer       prometheus.Histogram

	peers       prometheus.Gauge
	documents   prometheus.Gauge
	bytesStaged prometheus.Counter
}

// NewIndexMetrics creates the collectors on the process registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIndexMetrics() metrics.IndexMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newIndexMetrics(metrics.GetRegistry())
}

func newIndexMetrics(reg prometheus.Registerer) *indexMetrics {
	f := promauto.With(reg)
	return &indexMetrics{
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "p2pci_connections_accepted_total",
			Help: "Total number of accepted peer connections",
		}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "p2pci_connections_closed_total",
			Help: "Total number of closed peer connections",
		}),
		connectionsForceClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "p2pci_connections_force_closed_total",
			Help: "Connections force-closed after the shutdown timeout",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "p2pci_connections_active",
			Help: "Current number of open peer connections",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "p2pci_commands_total",
			Help: "Commands served by verb and response status",
		}, []string{"verb", "status"}),
		commandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "p2pci_command_duration_milliseconds",
			Help: "Command latency in milliseconds",
			Buckets: []float64{
				0.05, // catalog-only commands
				0.1,
				0.5,
				1,
				5,
				10,
				50, // GET with a file copy
				100,
				500,
				1000,
			},
		}, []string{"verb"}),
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "p2pci_registrations_total",
			Help: "Completed registrations; replaced=true when a stale peer was evicted",
		}, []string{"replaced"}),
		registrationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "p2pci_registration_failures_total",
			Help: "Connections that failed before completing registration",
		}, []string{"reason"}),
		uploadsPerPeer: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "p2pci_registration_uploads",
			Help:    "Documents announced per registration",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		peers: f.NewGauge(prometheus.GaugeOpts{
			Name: "p2pci_catalog_peers",
			Help: "Peers currently registered",
		}),
		documents: f.NewGauge(prometheus.GaugeOpts{
			Name: "p2pci_catalog_documents",
			Help: "Document records currently in the catalog",
		}),
		bytesStaged: f.NewCounter(prometheus.CounterOpts{
			Name: "p2pci_get_bytes_staged_total",
			Help: "Bytes copied between peer directories by GET",
		}),
	}
}

func (m *indexMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *indexMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *indexMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsForceClosed.Inc()
}

func (m *indexMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *indexMetrics) RecordCommand(verb string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(verb, strconv.Itoa(status)).Inc()
	m.commandDuration.WithLabelValues(verb).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *indexMetrics) RecordRegistration(documents int, replaced bool) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(strconv.FormatBool(replaced)).Inc()
	m.uploadsPerPeer.Observe(float64(documents))
}

func (m *indexMetrics) RecordRegistrationFailure(reason string) {
	if m == nil {
		return
	}
	m.registrationFailures.WithLabelValues(reason).Inc()
}

func (m *indexMetrics) RecordBytesStaged(bytes int64) {
	if m == nil {
		return
	}
	m.bytesStaged.Add(float64(bytes))
}

// CatalogChanged mirrors the catalog size into the gauges.
func (m *indexMetrics) CatalogChanged(s catalog.Stats) {
	if m == nil {
		return
	}
	m.peers.Set(float64(s.Peers))
	m.documents.Set(float64(s.Documents))
}
