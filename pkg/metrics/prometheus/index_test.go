package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/p2pci/pkg/catalog"
	"github.com/marmos91/p2pci/pkg/metrics"
)

func TestNewIndexMetricsDisabled(t *testing.T) {
	metrics.Reset()
	assert.Nil(t, NewIndexMetrics())
}

func TestNewIndexMetricsEnabled(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewIndexMetrics()
	require.NotNil(t, m)
	m.RecordConnectionAccepted()

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["p2pci_connections_accepted_total"])
	assert.True(t, names["go_goroutines"])
}

func TestIndexMetricsRecording(t *testing.T) {
	t.Parallel()
	m := newIndexMetrics(prometheus.NewRegistry())

	m.RecordConnectionAccepted()
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.SetActiveConnections(1)
	m.RecordCommand("LOOKUP", 200, time.Millisecond)
	m.RecordCommand("LOOKUP", 404, time.Millisecond)
	m.RecordCommand("GET", 200, 10*time.Millisecond)
	m.RecordRegistration(3, false)
	m.RecordRegistration(1, true)
	m.RecordRegistrationFailure("eof")
	m.RecordBytesStaged(512)
	m.CatalogChanged(catalog.Stats{Peers: 2, Documents: 4})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionsAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsClosed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("LOOKUP", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrationFailures.WithLabelValues("eof")))
	assert.Equal(t, 512.0, testutil.ToFloat64(m.bytesStaged))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.peers))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.documents))
}

func TestIndexMetricsNilReceiver(t *testing.T) {
	t.Parallel()
	var m *indexMetrics

	assert.NotPanics(t, func() {
		m.RecordConnectionAccepted()
		m.RecordConnectionClosed()
		m.RecordConnectionForceClosed()
		m.SetActiveConnections(3)
		m.RecordCommand("LIST", 200, time.Second)
		m.RecordRegistration(1, false)
		m.RecordRegistrationFailure("eof")
		m.RecordBytesStaged(1)
		m.CatalogChanged(catalog.Stats{})
	})
}
