package p2pci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	proto "github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
)

const testHost = "peer.test"

// testServer runs an adapter on a free loopback port.
type testServer struct {
	adapter *Adapter
	store   *catalog.Store
	root    string
	addr    string
}

func startServer(t *testing.T, cfg Config, opts ...Option) *testServer {
	t.Helper()

	root := t.TempDir()
	store := catalog.New()
	cfg.BindAddress = "127.0.0.1"

	opts = append([]Option{
		WithResolver(StaticResolver{"127.0.0.1": testHost}),
		WithDocumentsRoot(root),
	}, opts...)
	a, err := New(cfg, store, opts...)
	require.NoError(t, err)
	a.BaseAdapter.Config.Port = 0

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background()) }()

	addr := a.ListenerAddr()
	require.NotEmpty(t, addr)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
		<-done
	})

	return &testServer{adapter: a, store: store, root: root, addr: addr}
}

func (s *testServer) writeDocument(t *testing.T, hint string, n int, body string) {
	t.Helper()
	dir := filepath.Join(s.root, hint)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, proto.DocumentFileName(n)), []byte(body), 0o644))
}

// testPeer is a minimal protocol client.
type testPeer struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
	port   int
}

func dialPeer(t *testing.T, addr string) *testPeer {
	t.Helper()
	conn, err := net.Dial("tcp4", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testPeer{
		t:      t,
		conn:   conn,
		reader: bufio.NewReader(conn),
		port:   conn.LocalAddr().(*net.TCPAddr).Port,
	}
}

func (p *testPeer) send(lines ...string) {
	p.t.Helper()
	for _, l := range lines {
		_, err := io.WriteString(p.conn, l+"\r\n")
		require.NoError(p.t, err)
	}
}

func (p *testPeer) register(osName string, uploads ...string) {
	p.t.Helper()
	p.send(osName)
	p.send(uploads...)
	p.send(proto.EndOfUpload)
}

func (p *testPeer) do(format string, args ...any) *proto.Response {
	p.t.Helper()
	p.send(fmt.Sprintf(format, args...))
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := proto.ReadResponse(p.reader)
	require.NoError(p.t, err)
	return resp
}

func (p *testPeer) lookup(n int) *proto.Response {
	return p.do("LOOKUP RFC %d %s %s %d", n, proto.Version, testHost, p.port)
}

// waitClosed reports whether the server closed the connection.
func (p *testPeer) waitClosed() bool {
	_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := p.reader.ReadByte()
	return err != nil && !errors.Is(err, os.ErrDeadlineExceeded)
}

func TestRegistrationAndLookup(t *testing.T) {
	srv := startServer(t, Config{})
	a := dialPeer(t, srv.addr)
	a.register("Linux", "docs rfc1234.txt 1234 The Title Of The Document")

	resp := a.lookup(1234)
	assert.Equal(t, proto.StatusOK, resp.Status)
	title, _ := resp.Header("Title")
	assert.Equal(t, "The Title Of The Document", title)

	peer, err := srv.store.FindPeer(context.Background(), testHost, a.port)
	require.NoError(t, err)
	assert.Equal(t, "Linux", peer.OS)
}

func TestRequestValidation(t *testing.T) {
	srv := startServer(t, Config{})
	a := dialPeer(t, srv.addr)
	a.register("Linux", "docs rfc1.txt 1 One")

	tests := []struct {
		name   string
		line   string
		status proto.Status
	}{
		{"unknown verb", fmt.Sprintf("FETCH RFC 1 %s %s %d", proto.Version, testHost, a.port), proto.StatusBadRequest},
		{"bad literal", fmt.Sprintf("LOOKUP RCF 1 %s %s %d", proto.Version, testHost, a.port), proto.StatusBadRequest},
		{"bad version", fmt.Sprintf("LOOKUP RFC 1 P2P-CI/2.0 %s %d", testHost, a.port), proto.StatusVersionNotSupported},
		{"port mismatch", fmt.Sprintf("LOOKUP RFC 1 %s %s %d", proto.Version, testHost, a.port+1), proto.StatusBadRequest},
		{"unknown rfc", fmt.Sprintf("LOOKUP RFC 99 %s %s %d", proto.Version, testHost, a.port), proto.StatusNotFound},
		{"foreign host", fmt.Sprintf("LOOKUP RFC 1 %s other.test %d", proto.Version, a.port), proto.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.do("%s", tt.line)
			assert.Equal(t, tt.status, resp.Status)
		})
	}

	// Errors never close the connection.
	assert.Equal(t, proto.StatusOK, a.lookup(1).Status)
}

func TestAddAndList(t *testing.T) {
	srv := startServer(t, Config{})

	a := dialPeer(t, srv.addr)
	a.register("Linux", "docs rfc1.txt 1 One", "docs rfc2.txt 2 Two")
	b := dialPeer(t, srv.addr)
	b.register("Linux", "mine rfc3.txt 3 Three")
	require.Eventually(t, func() bool { return srv.store.Stats().Peers == 2 }, 2*time.Second, 10*time.Millisecond)

	resp := b.do("ADD RFC 1 %s %s %d", proto.Version, testHost, b.port)
	assert.Equal(t, proto.StatusOK, resp.Status)
	title, _ := resp.Header("Title")
	assert.Equal(t, "One", title)

	resp = b.do("ADD RFC 42 %s %s %d", proto.Version, testHost, b.port)
	assert.Equal(t, proto.StatusNotFound, resp.Status)

	resp = a.do("LIST ALL %s %s %d", proto.Version, testHost, a.port)
	require.Equal(t, proto.StatusOK, resp.Status)
	require.Len(t, resp.Body, 4)
	assert.Equal(t, fmt.Sprintf("RFC 1 One %s %d", testHost, b.port), resp.Body[0])
}

func TestGetStagesDocument(t *testing.T) {
	srv := startServer(t, Config{})
	srv.writeDocument(t, "alpha", 1234, "Request for Comments: 1234\n")

	a := dialPeer(t, srv.addr)
	a.register("Linux", "alpha rfc1234.txt 1234 Title")
	b := dialPeer(t, srv.addr)
	b.register("Linux", "beta rfc7.txt 7 Seven")
	require.Eventually(t, func() bool { return srv.store.Stats().Peers == 2 }, 2*time.Second, 10*time.Millisecond)

	resp := b.do("GET RFC 1234 %s %s Linux", proto.Version, testHost)
	require.Equal(t, proto.StatusOK, resp.Status)

	for _, name := range []string{"Date", "OS", "Last-Modified", "Content-Length", "Content-Type"} {
		_, ok := resp.Header(name)
		assert.True(t, ok, name)
	}
	length, _ := resp.Header("Content-Length")
	assert.Equal(t, "27", length)

	staged, err := os.ReadFile(filepath.Join(srv.root, "beta", "rfc1234.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Request for Comments: 1234\n", string(staged))
}

func TestGetFailurePolicy(t *testing.T) {
	t.Run("keeps connection by default", func(t *testing.T) {
		srv := startServer(t, Config{})
		a := dialPeer(t, srv.addr)
		a.register("Linux", "docs rfc1.txt 1 One")

		resp := a.do("GET RFC 1 %s %s Windows", proto.Version, testHost)
		assert.Equal(t, proto.StatusBadRequest, resp.Status)
		assert.Equal(t, proto.StatusOK, a.lookup(1).Status)
	})

	t.Run("closes when configured", func(t *testing.T) {
		srv := startServer(t, Config{CloseOnGetError: true})
		a := dialPeer(t, srv.addr)
		a.register("Linux", "docs rfc1.txt 1 One")

		resp := a.do("GET RFC 1 %s %s Windows", proto.Version, testHost)
		assert.Equal(t, proto.StatusBadRequest, resp.Status)
		assert.True(t, a.waitClosed())

		require.Eventually(t, func() bool { return srv.store.Stats() == catalog.Stats{} },
			2*time.Second, 10*time.Millisecond)
	})

	t.Run("missing file answers 500", func(t *testing.T) {
		srv := startServer(t, Config{})
		a := dialPeer(t, srv.addr)
		a.register("Linux", "docs rfc1.txt 1 One")

		resp := a.do("GET RFC 1 %s %s Linux", proto.Version, testHost)
		assert.Equal(t, proto.StatusInternalError, resp.Status)
		assert.Equal(t, proto.StatusOK, a.lookup(1).Status)
	})
}

func TestDisconnectCleanup(t *testing.T) {
	srv := startServer(t, Config{})

	a := dialPeer(t, srv.addr)
	a.register("Linux", "docs rfc1.txt 1 One", "docs rfc2.txt 2 Two")
	b := dialPeer(t, srv.addr)
	b.register("Linux", "docs rfc3.txt 3 Three")
	require.Eventually(t, func() bool { return srv.store.Stats().Peers == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, proto.StatusOK, b.lookup(1).Status)

	require.NoError(t, a.conn.Close())

	require.Eventually(t, func() bool {
		return srv.store.Stats() == catalog.Stats{Peers: 1, Documents: 1}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, proto.StatusNotFound, b.lookup(1).Status)
}

func TestRegistrationFailuresAreFatal(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"empty os", []string{""}},
		{"malformed upload", []string{"Linux", "docs rfc1.txt one Title"}},
		{"escaping path hint", []string{"Linux", "../etc rfc1.txt 1 Title"}},
		{"oversized line", []string{"Linux", "docs rfc1.txt 1 " + strings.Repeat("x", 8192)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startServer(t, Config{})
			p := dialPeer(t, srv.addr)
			p.send(tt.lines...)

			assert.True(t, p.waitClosed())
			assert.Equal(t, catalog.Stats{}, srv.store.Stats())
		})
	}
}

func TestRegistrationTimeout(t *testing.T) {
	srv := startServer(t, Config{Timeouts: TimeoutsConfig{Registration: 100 * time.Millisecond}})
	p := dialPeer(t, srv.addr)
	p.send("Linux", "docs rfc1.txt 1 One")

	assert.True(t, p.waitClosed())
	assert.Equal(t, catalog.Stats{}, srv.store.Stats())
}

func TestIdleTimeoutClosesAndCleansUp(t *testing.T) {
	srv := startServer(t, Config{Timeouts: TimeoutsConfig{Idle: 100 * time.Millisecond}})
	p := dialPeer(t, srv.addr)
	p.register("Linux", "docs rfc1.txt 1 One")

	assert.True(t, p.waitClosed())
	require.Eventually(t, func() bool { return srv.store.Stats() == catalog.Stats{} },
		2*time.Second, 10*time.Millisecond)
}

func TestStopDisconnectsPeers(t *testing.T) {
	srv := startServer(t, Config{})
	p := dialPeer(t, srv.addr)
	p.register("Linux", "docs rfc1.txt 1 One")
	require.Equal(t, proto.StatusOK, p.lookup(1).Status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.adapter.Stop(ctx))

	assert.Equal(t, catalog.Stats{}, srv.store.Stats())
	assert.Zero(t, srv.adapter.ActiveConnections())
}

func TestOversizedCommandLineIsRejected(t *testing.T) {
	srv := startServer(t, Config{})
	a := dialPeer(t, srv.addr)
	a.register("Linux", "docs rfc1.txt 1 One")
	require.Equal(t, proto.StatusOK, a.lookup(1).Status)

	resp := a.do("LOOKUP RFC 1 %s %s %d", proto.Version, strings.Repeat("h", 5000), a.port)
	assert.Equal(t, proto.StatusBadRequest, resp.Status)

	// The rest of the long line was drained; the next request parses cleanly.
	assert.Equal(t, proto.StatusOK, a.lookup(1).Status)
	assert.Equal(t, catalog.Stats{Peers: 1, Documents: 1}, srv.store.Stats())
}

// panickyMetrics blows up on every command.
type panickyMetrics struct{}

func (panickyMetrics) RecordConnectionAccepted()                {}
func (panickyMetrics) RecordConnectionClosed()                  {}
func (panickyMetrics) RecordConnectionForceClosed()             {}
func (panickyMetrics) SetActiveConnections(int32)               {}
func (panickyMetrics) CatalogChanged(catalog.Stats)             {}
func (panickyMetrics) RecordRegistration(int, bool)             {}
func (panickyMetrics) RecordRegistrationFailure(string)         {}
func (panickyMetrics) RecordBytesStaged(int64)                  {}
func (panickyMetrics) RecordCommand(string, int, time.Duration) { panic("metrics exploded") }

func TestPanicStillCleansUp(t *testing.T) {
	srv := startServer(t, Config{}, WithMetrics(panickyMetrics{}))
	p := dialPeer(t, srv.addr)
	p.register("Linux", "docs rfc1.txt 1 One", "docs rfc2.txt 2 Two")
	require.Eventually(t, func() bool { return srv.store.Stats().Peers == 1 }, 2*time.Second, 10*time.Millisecond)

	p.send(fmt.Sprintf("LOOKUP RFC 1 %s %s %d", proto.Version, testHost, p.port))

	assert.True(t, p.waitClosed())
	require.Eventually(t, func() bool { return srv.store.Stats() == catalog.Stats{} },
		2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return srv.adapter.ActiveConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestRefusesPeersDuringShutdown(t *testing.T) {
	a, err := New(Config{}, catalog.New())
	require.NoError(t, err)

	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	assert.True(t, a.acceptPeer(server))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Stop(ctx))

	assert.False(t, a.acceptPeer(server))
	assert.False(t, a.Ready())
}

func TestRegistrationFailureReasons(t *testing.T) {
	a, err := New(Config{}, catalog.New())
	require.NoError(t, err)
	c := &Connection{adapter: a}

	_, uploadErr := proto.ParseUpload("docs rfc1.txt one Title")
	require.Error(t, uploadErr)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"eof", io.EOF, failEOF},
		{"closed", net.ErrClosed, failEOF},
		{"timeout", os.ErrDeadlineExceeded, failTimeout},
		{"too long", fmt.Errorf("%w (4Ki)", ErrLineTooLong), failTooLong},
		{"empty os", ErrEmptyOS, failMalformed},
		{"bad upload", uploadErr, failMalformed},
		{"catalog", fmt.Errorf("register peer: %w", catalog.ErrInvalidPeer), failCatalog},
		{"unexpected", errors.New("disk on fire"), failInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.failureReason(tt.err))
		})
	}
}

func TestMapError(t *testing.T) {
	a, err := New(Config{}, catalog.New())
	require.NoError(t, err)

	tests := []struct {
		err  error
		code uint32
	}{
		{catalog.ErrPeerNotFound, 404},
		{fmt.Errorf("wrapped: %w", catalog.ErrDocumentNotFound), 404},
		{catalog.ErrInvalidDocument, 400},
		{proto.NewStatusError(proto.StatusVersionNotSupported, proto.ErrUnsupportedVersion, "v"), 505},
		{errors.New("disk on fire"), 500},
	}
	for _, tt := range tests {
		pe := a.MapError(tt.err)
		require.NotNil(t, pe)
		assert.Equal(t, tt.code, pe.Code(), tt.err.Error())
		assert.ErrorIs(t, pe, tt.err)
	}
	assert.Nil(t, a.MapError(nil))
}

func TestConfigDefaults(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, proto.DefaultPort, c.Port)
	assert.Equal(t, DefaultMaxLineSize, c.MaxLineSize)
	assert.False(t, c.CloseOnGetError)
	assert.Zero(t, c.Timeouts.Idle)
	assert.NoError(t, c.Validate())

	c.MaxLineSize = 16
	assert.Error(t, c.Validate())
}
