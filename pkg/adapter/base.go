package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/p2pci/internal/logger"
)

// ConnectionHandler serves one accepted connection. Serve blocks until the
// connection ends or ctx is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory builds a ConnectionHandler for each accepted connection.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds the listener settings shared by adapters.
type BaseConfig struct {
	// Network is "tcp4" (the default), "tcp6" or "tcp".
	Network string

	// BindAddress is the address to bind; empty binds all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// MaxConnections caps concurrent connections. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Serve waits for connections to drain.
	ShutdownTimeout time.Duration

	// MetricsLogInterval enables a periodic log of the connection count.
	MetricsLogInterval time.Duration
}

// MetricsRecorder receives connection lifecycle events. It may be nil.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// Hooks customises the accept loop.
type Hooks struct {
	// PreAccept runs right after accept; returning false closes the
	// connection without serving it. Optional.
	PreAccept func(net.Conn) bool
}

// BaseAdapter owns a TCP listener and the goroutines serving its
// connections. Protocol adapters embed it and supply a ConnectionFactory.
//
// Every accepted connection runs in its own goroutine; the accept loop never
// waits on a connection. Shutdown closes the listener, nudges blocked reads
// with a short deadline, cancels ShutdownCtx, and waits up to
// ShutdownTimeout before force-closing whatever is left.
type BaseAdapter struct {
	Config  BaseConfig
	Metrics MetricsRecorder

	protocol string

	listenerMu    sync.RWMutex
	listener      net.Listener
	ListenerReady chan struct{}
	readyOnce     sync.Once

	shutdownOnce sync.Once
	Shutdown     chan struct{}

	// ShutdownCtx is handed to every connection and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	wg        sync.WaitGroup
	ConnCount atomic.Int32
	slots     chan struct{}

	// conns maps remote address to net.Conn for forced closure.
	conns sync.Map
}

// NewBaseAdapter creates a stopped adapter for protocol.
func NewBaseAdapter(cfg BaseConfig, protocol string) *BaseAdapter {
	if cfg.Network == "" {
		cfg.Network = "tcp4"
	}

	var slots chan struct{}
	if cfg.MaxConnections > 0 {
		slots = make(chan struct{}, cfg.MaxConnections)
	}
	logger.Debug(protocol+" connection limit", "max_connections", cfg.MaxConnections)

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseAdapter{
		Config:         cfg,
		protocol:       protocol,
		ListenerReady:  make(chan struct{}),
		Shutdown:       make(chan struct{}),
		ShutdownCtx:    ctx,
		CancelRequests: cancel,
		slots:          slots,
	}
}

func (b *BaseAdapter) markReady() {
	b.readyOnce.Do(func() { close(b.ListenerReady) })
}

// ServeWithFactory binds the listener and runs the accept loop until ctx is
// cancelled or Stop is called. Bind failures are returned immediately.
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory, hooks Hooks) error {
	addr := net.JoinHostPort(b.Config.BindAddress, strconv.Itoa(b.Config.Port))
	ln, err := net.Listen(b.Config.Network, addr)
	if err != nil {
		b.markReady()
		return fmt.Errorf("failed to create %s listener on %s: %w", b.protocol, addr, err)
	}

	b.listenerMu.Lock()
	b.listener = ln
	b.listenerMu.Unlock()
	b.markReady()

	logger.Info(b.protocol+" server listening", logger.Address(ln.Addr().String()))

	go func() {
		select {
		case <-ctx.Done():
			logger.Info(b.protocol+" shutdown signal received", logger.Err(ctx.Err()))
			b.initiateShutdown()
		case <-b.Shutdown:
		}
	}()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	var backoff time.Duration
	for {
		if b.slots != nil {
			select {
			case b.slots <- struct{}{}:
			case <-b.Shutdown:
				return b.gracefulShutdown()
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			b.releaseSlot()
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				logger.Warn("Temporary accept error on "+b.protocol+" listener", logger.Err(err), "retry_in", backoff)
				time.Sleep(backoff)
				continue
			}
			logger.Debug("Error accepting "+b.protocol+" connection", logger.Err(err))
			continue
		}
		backoff = 0

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		if hooks.PreAccept != nil && !hooks.PreAccept(conn) {
			_ = conn.Close()
			b.releaseSlot()
			continue
		}

		b.track(conn)
		go b.serve(factory.NewConnection(conn), conn)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func (b *BaseAdapter) releaseSlot() {
	if b.slots != nil {
		<-b.slots
	}
}

func (b *BaseAdapter) track(conn net.Conn) {
	b.wg.Add(1)
	active := b.ConnCount.Add(1)
	b.conns.Store(conn.RemoteAddr().String(), conn)

	if b.Metrics != nil {
		b.Metrics.RecordConnectionAccepted()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.protocol+" connection accepted", logger.Address(conn.RemoteAddr().String()), "active", active)
}

func (b *BaseAdapter) serve(h ConnectionHandler, conn net.Conn) {
	addr := conn.RemoteAddr().String()
	defer func() {
		b.conns.Delete(addr)
		active := b.ConnCount.Add(-1)
		b.releaseSlot()
		b.wg.Done()

		if b.Metrics != nil {
			b.Metrics.RecordConnectionClosed()
			b.Metrics.SetActiveConnections(active)
		}
		logger.Debug(b.protocol+" connection closed", logger.Address(addr), "active", active)
	}()

	h.Serve(b.ShutdownCtx)
}

// initiateShutdown stops accepting, interrupts blocked reads, and cancels
// in-flight requests. Safe to call more than once.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocol + " shutdown initiated")
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocol+" listener", logger.Err(err))
			}
		}
		b.listenerMu.Unlock()

		deadline := time.Now().Add(100 * time.Millisecond)
		b.conns.Range(func(_, v any) bool {
			_ = v.(net.Conn).SetReadDeadline(deadline)
			return true
		})

		b.CancelRequests()
	})
}

// waitIdle returns a channel closed once every connection goroutine exited.
func (b *BaseAdapter) waitIdle() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	return done
}

func (b *BaseAdapter) gracefulShutdown() error {
	logger.Info(b.protocol+" graceful shutdown: waiting for active connections",
		"active", b.ConnCount.Load(), "timeout", b.Config.ShutdownTimeout)

	select {
	case <-b.waitIdle():
		logger.Info(b.protocol + " graceful shutdown complete")
		return nil
	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocol+" shutdown timeout exceeded, forcing closure", "active", remaining)
		b.forceCloseConnections()
		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocol, remaining)
	}
}

func (b *BaseAdapter) forceCloseConnections() {
	closed := 0
	b.conns.Range(func(k, v any) bool {
		if err := v.(net.Conn).Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.Address(k.(string)), logger.Err(err))
			return true
		}
		closed++
		if b.Metrics != nil {
			b.Metrics.RecordConnectionForceClosed()
		}
		return true
	})
	logger.Info("Force-closed "+b.protocol+" connections", "count", closed)
}

// Stop initiates shutdown and waits for connections to finish until ctx
// expires.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()

	select {
	case <-b.waitIdle():
		return nil
	case <-ctx.Done():
		logger.Warn(b.protocol+" shutdown context cancelled", "active", b.ConnCount.Load(), logger.Err(ctx.Err()))
		return ctx.Err()
	}
}

func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.Shutdown:
			return
		case <-ticker.C:
			logger.Info(b.protocol+" metrics", "active_connections", b.ConnCount.Load())
		}
	}
}

// ActiveConnections returns the number of connections being served.
func (b *BaseAdapter) ActiveConnections() int32 {
	return b.ConnCount.Load()
}

// ListenerAddr blocks until the listener is bound and returns its address,
// or "" when binding failed.
func (b *BaseAdapter) ListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Ready reports whether the listener is bound and not shutting down.
func (b *BaseAdapter) Ready() bool {
	select {
	case <-b.ListenerReady:
	default:
		return false
	}
	if b.ShuttingDown() {
		return false
	}

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	return b.listener != nil
}

// ShuttingDown reports whether shutdown has started.
func (b *BaseAdapter) ShuttingDown() bool {
	select {
	case <-b.Shutdown:
		return true
	default:
		return false
	}
}

// Port returns the configured port.
func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

// Protocol returns the protocol name.
func (b *BaseAdapter) Protocol() string {
	return b.protocol
}
