package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/p2pci/pkg/adapter"
	"github.com/marmos91/p2pci/pkg/catalog"
)

type fakeAdapter struct {
	name     string
	serveErr error
	ready    atomic.Bool
	stopped  atomic.Bool
	stop     chan struct{}
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, stop: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.serveErr != nil {
		return f.serveErr
	}
	f.ready.Store(true)
	select {
	case <-ctx.Done():
	case <-f.stop:
	}
	return nil
}

func (f *fakeAdapter) Stop(ctx context.Context) error {
	if f.stopped.CompareAndSwap(false, true) {
		f.ready.Store(false)
		close(f.stop)
	}
	return nil
}

func (f *fakeAdapter) Protocol() string                     { return f.name }
func (f *fakeAdapter) Port() int                            { return 0 }
func (f *fakeAdapter) MapError(error) adapter.ProtocolError { return nil }
func (f *fakeAdapter) Ready() bool                          { return f.ready.Load() }

type fakeServer struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (s *fakeServer) Start(ctx context.Context) error {
	s.started.Store(true)
	<-ctx.Done()
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func TestServeAndShutdown(t *testing.T) {
	t.Parallel()

	rt := New(catalog.New(), time.Second)
	a := newFakeAdapter("P2P-CI")
	api := &fakeServer{}
	require.NoError(t, rt.AddAdapter(a))
	rt.SetAPIServer(api)

	assert.False(t, rt.Ready(), "nothing runs before Serve")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	require.Eventually(t, rt.Ready, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"P2P-CI"}, rt.RunningAdapters())
	require.Eventually(t, api.started.Load, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.True(t, a.stopped.Load())
	assert.True(t, api.stopped.Load())
	assert.Empty(t, rt.RunningAdapters())
	assert.False(t, rt.Ready())
}

func TestAdapterFailureStopsRuntime(t *testing.T) {
	t.Parallel()

	rt := New(catalog.New(), time.Second)
	a := newFakeAdapter("P2P-CI")
	a.serveErr = errors.New("address already in use")
	require.NoError(t, rt.AddAdapter(a))

	err := rt.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestAddAdapterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	rt := New(catalog.New(), 0)
	require.NoError(t, rt.AddAdapter(newFakeAdapter("P2P-CI")))
	assert.Error(t, rt.AddAdapter(newFakeAdapter("P2P-CI")))
}

func TestCatalogIsShared(t *testing.T) {
	t.Parallel()

	store := catalog.New()
	rt := New(store, 0)
	assert.Same(t, store, rt.Catalog())
}

func TestServeRunsOnce(t *testing.T) {
	t.Parallel()

	rt := New(catalog.New(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, rt.Serve(ctx))
	assert.Error(t, rt.Serve(ctx))
}
