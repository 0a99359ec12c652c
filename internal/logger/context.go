package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds connection and request scoped logging fields.
type LogContext struct {
	TraceID      string // OpenTelemetry trace ID
	SpanID       string // OpenTelemetry span ID
	ConnectionID string // Session id assigned at accept time
	Procedure    string // P2P-CI verb (ADD, LOOKUP, LIST, GET) or phase name
	ClientIP     string // Remote address without port
	ClientPort   int    // Remote source port, the peer's identity
	ClientHost   string // Resolved hostname of the remote end
	StartTime    time.Time
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a freshly accepted connection.
func NewLogContext(connectionID, clientIP string, clientPort int) *LogContext {
	return &LogContext{
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		ClientPort:   clientPort,
		StartTime:    time.Now(),
	}
}

// Clone returns a shallow copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithProcedure returns a copy with the procedure set and the timer restarted.
func (lc *LogContext) WithProcedure(procedure string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Procedure = procedure
		c.StartTime = time.Now()
	}
	return c
}

// WithHost returns a copy with the resolved client hostname set.
func (lc *LogContext) WithHost(host string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.ClientHost = host
	}
	return c
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// DurationMs returns the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
