package logger

import "log/slog"

// Standard field keys. Use these consistently so log lines can be queried
// across the index server, the status API and the CLI.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Protocol & operation
	KeyProtocol  = "protocol"
	KeyProcedure = "procedure"
	KeyStatus    = "status"
	KeyStatusMsg = "status_msg"

	// Catalog
	KeyRFC       = "rfc"
	KeyTitle     = "title"
	KeyPathHint  = "path_hint"
	KeyOS        = "os"
	KeyDocuments = "documents"
	KeyPeers     = "peers"

	// Files
	KeyPath = "path"
	KeySize = "size"

	// Client identification
	KeyClientIP   = "client_ip"
	KeyClientPort = "client_port"
	KeyClientHost = "client_host"

	// Session & connection
	KeySessionID    = "session_id"
	KeyConnectionID = "connection_id"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAddress    = "address"
)

// Procedure returns an attr for the P2P-CI verb.
func Procedure(name string) slog.Attr {
	return slog.String(KeyProcedure, name)
}

// Status returns an attr for a P2P-CI status code.
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// RFC returns an attr for an RFC number.
func RFC(n int) slog.Attr {
	return slog.Int(KeyRFC, n)
}

func Title(t string) slog.Attr {
	return slog.String(KeyTitle, t)
}

func PathHint(p string) slog.Attr {
	return slog.String(KeyPathHint, p)
}

func OS(name string) slog.Attr {
	return slog.String(KeyOS, name)
}

// Documents returns an attr for a document count.
func Documents(n int) slog.Attr {
	return slog.Int(KeyDocuments, n)
}

func Peers(n int) slog.Attr {
	return slog.Int(KeyPeers, n)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

func ClientHost(host string) slog.Attr {
	return slog.String(KeyClientHost, host)
}

func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// DurationMs returns an attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns an attr for err, or an empty attr when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}
