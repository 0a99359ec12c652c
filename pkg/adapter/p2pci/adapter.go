// Package p2pci serves the P2P-CI index protocol over TCP.
//
// Each accepted connection runs in its own goroutine: it registers the peer
// and its uploads, then answers ADD, LOOKUP, LIST and GET until the peer
// hangs up, at which point everything the peer registered is dropped from
// the catalog.
package p2pci

import (
	"context"
	"errors"
	"net"

	"github.com/marmos91/p2pci/internal/adapter/p2pci/handlers"
	"github.com/marmos91/p2pci/internal/logger"
	proto "github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/adapter"
	"github.com/marmos91/p2pci/pkg/catalog"
	"github.com/marmos91/p2pci/pkg/metrics"
)

// ProtocolName identifies the adapter in logs and the status API.
const ProtocolName = "P2P-CI"

// Adapter is the P2P-CI index server.
type Adapter struct {
	*adapter.BaseAdapter

	config   Config
	store    *catalog.Store
	handler  *handlers.Handler
	resolver Resolver
	metrics  metrics.IndexMetrics
}

// Option customises an Adapter.
type Option func(*Adapter)

// WithResolver replaces the reverse DNS resolver.
func WithResolver(r Resolver) Option {
	return func(a *Adapter) { a.resolver = r }
}

// WithMetrics installs m for connection, command and catalog metrics.
func WithMetrics(m metrics.IndexMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithDocumentsRoot sets the directory path hints resolve against.
func WithDocumentsRoot(root string) Option {
	return func(a *Adapter) { a.handler.Files = handlers.NewFileStager(root) }
}

// New creates an adapter serving store. Zero config fields take defaults.
func New(cfg Config, store *catalog.Store, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config:   cfg,
		store:    store,
		handler:  handlers.NewHandler(store, handlers.NewFileStager(".")),
		resolver: NewDNSResolver(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.BaseAdapter = adapter.NewBaseAdapter(adapter.BaseConfig{
		Network:            "tcp4",
		BindAddress:        cfg.BindAddress,
		Port:               cfg.Port,
		MaxConnections:     cfg.MaxConnections,
		ShutdownTimeout:    cfg.Timeouts.Shutdown,
		MetricsLogInterval: cfg.MetricsLogInterval,
	}, ProtocolName)

	if a.metrics != nil {
		a.BaseAdapter.Metrics = a.metrics
		a.handler.OnStaged = a.metrics.RecordBytesStaged
		store.SetObserver(a.metrics)
	}

	logger.Debug("P2P-CI adapter configured",
		"port", cfg.Port,
		"max_line_size", cfg.MaxLineSize.String(),
		"idle_timeout", cfg.Timeouts.Idle,
		"close_on_get_error", cfg.CloseOnGetError,
		logger.Path(a.handler.Files.Root))
	return a, nil
}

// Serve accepts peers until ctx is cancelled or Stop is called.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a, adapter.Hooks{PreAccept: a.acceptPeer})
}

// acceptPeer refuses connections accepted after shutdown started.
func (a *Adapter) acceptPeer(conn net.Conn) bool {
	if a.ShuttingDown() {
		logger.Debug("Refusing P2P-CI peer during shutdown", logger.Address(conn.RemoteAddr().String()))
		return false
	}
	return true
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return NewConnection(a, conn)
}

// Settings returns the effective configuration.
func (a *Adapter) Settings() Config {
	return a.config
}

// Store returns the catalog the adapter serves.
func (a *Adapter) Store() *catalog.Store {
	return a.store
}

// MapError maps catalog and codec errors to the protocol status they answer.
func (a *Adapter) MapError(err error) adapter.ProtocolError {
	if err == nil {
		return nil
	}
	var se *proto.StatusError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, catalog.ErrPeerNotFound), errors.Is(err, catalog.ErrDocumentNotFound):
		return proto.NewStatusError(proto.StatusNotFound, err, "%v", err)
	case errors.Is(err, catalog.ErrInvalidPeer), errors.Is(err, catalog.ErrInvalidDocument):
		return proto.NewStatusError(proto.StatusBadRequest, err, "%v", err)
	}
	return proto.NewStatusError(proto.StatusInternalError, err, "%v", err)
}

var _ adapter.Adapter = (*Adapter)(nil)
