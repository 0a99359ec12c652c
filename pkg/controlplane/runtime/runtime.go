// Package runtime wires the catalog, the protocol adapters and the HTTP
// servers into one process lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/p2pci/internal/logger"
	"github.com/marmos91/p2pci/pkg/adapter"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// Server is an auxiliary HTTP server (status API, metrics).
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type readiness interface {
	Ready() bool
}

type adapterEntry struct {
	adapter adapter.Adapter
	cancel  context.CancelFunc
	done    chan struct{}
}

// Runtime owns the catalog and everything serving it.
type Runtime struct {
	catalog         *catalog.Store
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	entries map[string]*adapterEntry
	pending []adapter.Adapter

	apiServer     Server
	metricsServer Server

	serveOnce sync.Once
}

// New creates a Runtime around store.
func New(store *catalog.Store, shutdownTimeout time.Duration) *Runtime {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &Runtime{
		catalog:         store,
		shutdownTimeout: shutdownTimeout,
		entries:         make(map[string]*adapterEntry),
	}
}

// Catalog returns the shared catalog.
func (r *Runtime) Catalog() *catalog.Store {
	return r.catalog
}

// AddAdapter queues an adapter to start with Serve. Protocol names must be
// unique.
func (r *Runtime) AddAdapter(a adapter.Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.pending {
		if p.Protocol() == a.Protocol() {
			return fmt.Errorf("adapter %s already added", a.Protocol())
		}
	}
	r.pending = append(r.pending, a)
	return nil
}

// SetAPIServer sets the status API server. Must be called before Serve.
func (r *Runtime) SetAPIServer(s Server) {
	r.apiServer = s
}

// SetMetricsServer sets the metrics server. Must be called before Serve.
func (r *Runtime) SetMetricsServer(s Server) {
	r.metricsServer = s
}

// Ready reports whether every adapter is accepting connections.
func (r *Runtime) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return false
	}
	for _, e := range r.entries {
		if rc, ok := e.adapter.(readiness); ok && !rc.Ready() {
			return false
		}
	}
	return true
}

// RunningAdapters returns the protocols currently being served, sorted.
func (r *Runtime) RunningAdapters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serve starts everything and blocks until ctx is cancelled or a component
// fails. It runs at most once.
func (r *Runtime) Serve(ctx context.Context) error {
	err := errors.New("runtime already served")
	r.serveOnce.Do(func() {
		err = r.serve(ctx)
	})
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("Starting P2P-CI runtime")

	failures := make(chan error, 8)

	if r.metricsServer != nil {
		go func() {
			if err := r.metricsServer.Start(ctx); err != nil {
				failures <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	r.mu.Lock()
	for _, a := range r.pending {
		r.startAdapterLocked(a, failures)
	}
	r.pending = nil
	r.mu.Unlock()

	if r.apiServer != nil {
		go func() {
			if err := r.apiServer.Start(ctx); err != nil {
				failures <- fmt.Errorf("API server: %w", err)
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", "reason", ctx.Err())
	case err := <-failures:
		logger.Error("Component failed - initiating shutdown", logger.Err(err))
		shutdownErr = err
	}

	r.shutdown()
	logger.Info("P2P-CI runtime stopped")
	return shutdownErr
}

// startAdapterLocked runs a in its own goroutine. Caller must hold mu.
func (r *Runtime) startAdapterLocked(a adapter.Adapter, failures chan<- error) {
	ctx, cancel := context.WithCancel(context.Background())
	entry := &adapterEntry{adapter: a, cancel: cancel, done: make(chan struct{})}
	r.entries[a.Protocol()] = entry

	go func() {
		defer close(entry.done)
		logger.Info("Starting adapter", "protocol", a.Protocol(), "port", a.Port())
		err := a.Serve(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			logger.Error("Adapter failed", "protocol", a.Protocol(), logger.Err(err))
			select {
			case failures <- fmt.Errorf("%s adapter: %w", a.Protocol(), err):
			default:
			}
		}
	}()
}

func (r *Runtime) stopAdapters() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*adapterEntry)
	r.mu.Unlock()

	for name, e := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
		logger.Info("Stopping adapter", "protocol", name)
		if err := e.adapter.Stop(ctx); err != nil {
			logger.Warn("Adapter stop error", "protocol", name, logger.Err(err))
		}
		e.cancel()

		select {
		case <-e.done:
		case <-ctx.Done():
			logger.Warn("Adapter did not exit before the shutdown timeout", "protocol", name)
		}
		cancel()
	}
}

func (r *Runtime) shutdown() {
	r.stopAdapters()

	stop := func(name string, s Server) {
		if s == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			logger.Error(name+" shutdown error", logger.Err(err))
		}
	}
	stop("API server", r.apiServer)
	stop("Metrics server", r.metricsServer)

	stats := r.catalog.Stats()
	logger.Info("Catalog discarded", "peers", stats.Peers, "documents", stats.Documents)
}
