package p2pci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/p2pci/internal/adapter/p2pci/handlers"
	"github.com/marmos91/p2pci/internal/logger"
	proto "github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/internal/telemetry"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// ErrLineTooLong is returned when a line exceeds the configured maximum.
var ErrLineTooLong = errors.New("line exceeds maximum size")

// ErrEmptyOS is returned when the first registration line is blank.
var ErrEmptyOS = errors.New("empty operating system line")

// Registration failure reasons, used as metric labels.
const (
	failEOF       = "eof"
	failTimeout   = "timeout"
	failMalformed = "malformed"
	failTooLong   = "line_too_long"
	failCatalog   = "catalog"
	failInternal  = "internal"
)

// Connection serves one peer: registration, then the command loop.
type Connection struct {
	adapter *Adapter
	conn    net.Conn
	reader  *bufio.Reader

	sessionID string
	ip        string
	port      int
	hostname  string

	lc         *logger.LogContext
	registered bool
}

// NewConnection wraps an accepted connection.
func NewConnection(a *Adapter, conn net.Conn) *Connection {
	c := &Connection{
		adapter:   a,
		conn:      conn,
		reader:    bufio.NewReaderSize(conn, int(a.config.MaxLineSize)),
		sessionID: uuid.NewString(),
	}

	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		c.ip = addr.IP.String()
		c.port = addr.Port
	} else if host, port, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
		c.ip = host
		c.port, _ = strconv.Atoi(port)
	}

	c.lc = logger.NewLogContext(c.sessionID, c.ip, c.port)
	return c
}

// SessionID returns the id assigned to the connection at accept time.
func (c *Connection) SessionID() string {
	return c.sessionID
}

// Serve runs the connection until the peer hangs up, a fatal error occurs
// or ctx is cancelled. Whatever the exit path, including a panic, the peer
// and its documents are removed from the catalog before Serve returns.
func (c *Connection) Serve(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanConnection)
	defer span.End()
	span.SetAttributes(telemetry.ClientAttrs(c.ip, c.port, "")...)

	c.lc = c.lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, c.lc)

	defer func() { c.close(ctx) }()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic in P2P-CI connection",
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	// Unblock reads when the server shuts down.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	c.hostname = c.adapter.resolver.LookupHost(ctx, c.ip)
	c.lc = c.lc.WithHost(c.hostname)
	ctx = logger.WithContext(ctx, c.lc)
	span.SetAttributes(attribute.String(telemetry.AttrClientHost, c.hostname))

	logger.DebugCtx(ctx, "P2P-CI connection accepted")

	if err := c.register(ctx); err != nil {
		c.logReadError(ctx, "registration", err)
		if c.adapter.metrics != nil {
			c.adapter.metrics.RecordRegistrationFailure(c.failureReason(err))
		}
		return
	}

	c.commandLoop(ctx)
}

// register runs the registration phase: the OS line, upload lines, then END.
// Nothing reaches the catalog unless END arrives and every line parsed.
func (c *Connection) register(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRegistration)
	defer span.End()

	if t := c.adapter.config.Timeouts.Registration; t > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(t)); err != nil {
			return err
		}
	}

	line, err := c.readLine()
	if err != nil {
		return err
	}
	osName := strings.TrimSpace(line)
	switch {
	case osName == "":
		return ErrEmptyOS
	case len(osName) > proto.MaxOSLen:
		return fmt.Errorf("%w: os exceeds %d bytes", proto.ErrTokenTooLong, proto.MaxOSLen)
	}

	var docs []catalog.Document
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if proto.IsEndOfUpload(line) {
			break
		}
		up, err := proto.ParseUpload(line)
		if err != nil {
			return err
		}
		docs = append(docs, catalog.Document{
			Number:   up.Number,
			Title:    up.Title,
			PathHint: up.PathHint,
			FileName: up.FileName,
		})
	}

	now := time.Now()
	for i := range docs {
		docs[i].AddedAt = now
	}

	replaced, err := c.adapter.store.Register(ctx, catalog.Peer{
		Hostname:    c.hostname,
		Port:        c.port,
		OS:          osName,
		SessionID:   c.sessionID,
		ConnectedAt: now,
	}, docs)
	if err != nil {
		return fmt.Errorf("register peer: %w", err)
	}
	c.registered = true

	span.SetAttributes(
		attribute.String(telemetry.AttrOS, osName),
		attribute.Int(telemetry.AttrDocuments, len(docs)),
	)
	if c.adapter.metrics != nil {
		c.adapter.metrics.RecordRegistration(len(docs), replaced)
	}
	if replaced {
		logger.WarnCtx(ctx, "Replaced stale peer registered on the same port")
	}
	logger.InfoCtx(ctx, "Peer registered", logger.OS(osName), logger.Documents(len(docs)))

	return c.conn.SetReadDeadline(time.Time{})
}

// commandLoop answers one request per line, strictly in order.
func (c *Connection) commandLoop(ctx context.Context) {
	idle := c.adapter.config.Timeouts.Idle

	for {
		if ctx.Err() != nil {
			logger.DebugCtx(ctx, "P2P-CI connection closed due to server shutdown")
			return
		}

		if idle > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
				logger.DebugCtx(ctx, "Failed to set idle deadline", logger.Err(err))
				return
			}
		}

		var (
			resp *proto.Response
			verb proto.Verb
		)
		line, err := c.readLine()
		switch {
		case errors.Is(err, ErrLineTooLong):
			if derr := c.discardLine(); derr != nil {
				c.logReadError(ctx, "command", derr)
				return
			}
			resp = c.reject(ctx, time.Now(), proto.NewStatusError(proto.StatusBadRequest, err, "request line"))
		case err != nil:
			c.logReadError(ctx, "command", err)
			return
		case strings.TrimSpace(line) == "":
			continue
		default:
			resp, verb = c.dispatch(ctx, line)
		}

		if err := c.writeResponse(resp); err != nil {
			logger.DebugCtx(ctx, "Error writing P2P-CI response", logger.Err(err))
			return
		}

		if verb == proto.VerbGet && resp.Status != proto.StatusOK && c.adapter.config.CloseOnGetError {
			logger.DebugCtx(ctx, "Closing connection after failed GET", logger.Status(int(resp.Status)))
			return
		}
	}
}

// dispatch parses and handles one command line. It never fails: errors
// become the matching status response.
func (c *Connection) dispatch(ctx context.Context, line string) (*proto.Response, proto.Verb) {
	start := time.Now()

	req, err := proto.ParseRequest(line, c.port)
	if err != nil {
		return c.reject(ctx, start, err), ""
	}

	lc := c.lc.WithProcedure(string(req.Verb))
	ctx = logger.WithContext(ctx, lc)

	attrs := []attribute.KeyValue{attribute.String(telemetry.AttrHost, req.Hostname)}
	if req.Number > 0 {
		attrs = append(attrs, attribute.Int(telemetry.AttrRFC, req.Number))
	}
	ctx, span := telemetry.StartCommandSpan(ctx, string(req.Verb), attrs...)

	resp, err := c.adapter.handler.Handle(&handlers.RequestContext{
		Context:   ctx,
		Hostname:  c.hostname,
		Port:      c.port,
		SessionID: c.sessionID,
	}, req)
	if err != nil {
		resp = c.errorResponse(err)
	}

	telemetry.EndCommandSpan(span, int(resp.Status), resp.Status.Reason())

	switch {
	case err == nil:
		logger.DebugCtx(ctx, "P2P-CI command served", logger.Status(int(resp.Status)), logger.DurationMs(lc.DurationMs()))
	case resp.Status >= proto.StatusInternalError:
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "P2P-CI command failed", logger.Status(int(resp.Status)), logger.Err(err))
	default:
		logger.DebugCtx(ctx, "P2P-CI command rejected", logger.Status(int(resp.Status)), logger.Err(err))
	}

	if c.adapter.metrics != nil {
		c.adapter.metrics.RecordCommand(string(req.Verb), int(resp.Status), time.Since(start))
	}
	return resp, req.Verb
}

// reject answers a line that never reached a handler.
func (c *Connection) reject(ctx context.Context, start time.Time, err error) *proto.Response {
	resp := c.errorResponse(err)
	logger.DebugCtx(ctx, "Rejected P2P-CI request", logger.Status(int(resp.Status)), logger.Err(err))
	if c.adapter.metrics != nil {
		c.adapter.metrics.RecordCommand("INVALID", int(resp.Status), time.Since(start))
	}
	return resp
}

// errorResponse builds the status response for err through the adapter's
// error mapping.
func (c *Connection) errorResponse(err error) *proto.Response {
	pe := c.adapter.MapError(err)
	if pe == nil {
		return proto.NewResponse(proto.StatusInternalError)
	}
	return proto.NewResponse(proto.Status(pe.Code()))
}

func (c *Connection) writeResponse(resp *proto.Response) error {
	if t := c.adapter.config.Timeouts.Write; t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return err
		}
	}
	_, err := resp.WriteTo(c.conn)
	return err
}

// readLine reads one '\n' terminated line. A final line without a
// terminator is returned as is; the next call reports io.EOF.
func (c *Connection) readLine() (string, error) {
	line, err := c.reader.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return "", fmt.Errorf("%w (%s)", ErrLineTooLong, c.adapter.config.MaxLineSize)
	case errors.Is(err, io.EOF) && len(line) > 0:
		return string(line), nil
	case err != nil:
		return "", err
	}
	return string(line), nil
}

// discardLine drops input up to and including the next '\n'.
func (c *Connection) discardLine() error {
	for {
		_, err := c.reader.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// close removes the peer from the catalog and closes the socket.
func (c *Connection) close(ctx context.Context) {
	if c.registered {
		_, span := telemetry.StartSpan(ctx, telemetry.SpanDisconnect)

		// The server context may already be cancelled; cleanup must still run.
		removed, dropped, err := c.adapter.store.Disconnect(context.WithoutCancel(ctx), c.port, c.sessionID)
		switch {
		case err != nil:
			logger.ErrorCtx(ctx, "Failed to remove peer from catalog", logger.Err(err))
		case dropped:
			logger.InfoCtx(ctx, "Peer disconnected", logger.Documents(removed))
		default:
			logger.DebugCtx(ctx, "Peer already replaced, nothing to remove")
		}
		span.SetAttributes(attribute.Int(telemetry.AttrDocuments, removed))
		span.End()
	}

	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.DebugCtx(ctx, "Error closing P2P-CI connection", logger.Err(err))
	}
}

func (c *Connection) logReadError(ctx context.Context, phase string, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		logger.DebugCtx(ctx, "P2P-CI connection closed by peer", "phase", phase)
	case errors.Is(err, os.ErrDeadlineExceeded):
		if ctx.Err() != nil {
			logger.DebugCtx(ctx, "P2P-CI connection interrupted by shutdown", "phase", phase)
			return
		}
		logger.DebugCtx(ctx, "P2P-CI connection timed out", "phase", phase)
	default:
		logger.WarnCtx(ctx, "P2P-CI connection aborted", "phase", phase, logger.Err(err))
	}
}

// failureReason classifies a registration failure. Transport errors are
// matched first; anything else is classified by the status it maps to.
func (c *Connection) failureReason(err error) string {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return failEOF
	case errors.Is(err, os.ErrDeadlineExceeded):
		return failTimeout
	case errors.Is(err, ErrLineTooLong):
		return failTooLong
	case errors.Is(err, ErrEmptyOS):
		return failMalformed
	case errors.Is(err, catalog.ErrInvalidPeer), errors.Is(err, catalog.ErrInvalidDocument):
		return failCatalog
	}

	pe := c.adapter.MapError(err)
	if pe == nil || proto.Status(pe.Code()) == proto.StatusInternalError {
		return failInternal
	}
	return failMalformed
}
