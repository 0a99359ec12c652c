package metrics

import (
	"time"

	"github.com/marmos91/p2pci/pkg/adapter"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// IndexMetrics provides observability for the P2P-CI adapter.
//
// A nil IndexMetrics disables collection; the adapter checks before every
// call.
//
//	metrics.InitRegistry()
//	m := prometheus.NewIndexMetrics()
//	srv, err := p2pci.New(cfg, store, p2pci.WithMetrics(m))
type IndexMetrics interface {
	adapter.MetricsRecorder
	catalog.Observer

	// RecordCommand records a completed command with its verb, the status
	// it answered and how long it took.
	RecordCommand(verb string, status int, duration time.Duration)

	// RecordRegistration records a finished registration phase. replaced is
	// true when a stale peer on the same port was evicted.
	RecordRegistration(documents int, replaced bool)

	// RecordRegistrationFailure records a connection that dropped or sent
	// garbage before END.
	RecordRegistrationFailure(reason string)

	// RecordBytesStaged records a document copied for GET.
	RecordBytesStaged(bytes int64)
}
