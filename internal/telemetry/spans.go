package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on P2P-CI spans.
const (
	AttrClientIP   = "client.ip"
	AttrClientPort = "client.port"
	AttrClientHost = "client.host"

	AttrVerb      = "p2pci.verb"
	AttrRFC       = "p2pci.rfc"
	AttrHost      = "p2pci.host"
	AttrOS        = "p2pci.os"
	AttrStatus    = "p2pci.status"
	AttrDocuments = "p2pci.documents"
	AttrPath      = "p2pci.path"
)

// Span names.
const (
	SpanConnection   = "p2pci.connection"
	SpanRegistration = "p2pci.registration"
	SpanDisconnect   = "p2pci.disconnect"
	SpanFileStage    = "p2pci.file.stage"
)

// CommandSpanName returns the span name for a command verb, e.g. "p2pci.LOOKUP".
func CommandSpanName(verb string) string {
	return "p2pci." + verb
}

// StartCommandSpan starts a server span for one P2P-CI command.
func StartCommandSpan(ctx context.Context, verb string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(AttrVerb, verb))
	return StartSpan(ctx, CommandSpanName(verb),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

// EndCommandSpan records the response status and ends span. Statuses of 500
// and above mark the span as failed.
func EndCommandSpan(span trace.Span, status int, reason string) {
	span.SetAttributes(attribute.Int(AttrStatus, status))
	if status >= 500 {
		span.SetStatus(codes.Error, reason)
	}
	span.End()
}

// ClientAttrs returns the client identification attributes of a connection.
func ClientAttrs(ip string, port int, host string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrClientIP, ip),
		attribute.Int(AttrClientPort, port),
	}
	if host != "" {
		attrs = append(attrs, attribute.String(AttrClientHost, host))
	}
	return attrs
}
