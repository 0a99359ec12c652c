// Package p2pci implements the P2P-CI wire format: request lines, the
// registration upload lines, and status responses.
//
// Requests are single newline-terminated lines of space separated tokens:
//
//	ADD RFC 793 P2P-CI/1.0 alpha.example 50123
//	LOOKUP RFC 793 P2P-CI/1.0 alpha.example 50123
//	LIST ALL P2P-CI/1.0 alpha.example 50123
//	GET RFC 793 P2P-CI/1.0 alpha.example Linux
//
// Responses are a status line, optional header and body lines, and an empty
// line terminating the response.
package p2pci

// Version is the only protocol version the server speaks.
const Version = "P2P-CI/1.0"

// DefaultPort is the well-known index server port.
const DefaultPort = 7734

// EndOfUpload terminates the registration upload phase.
const EndOfUpload = "END"

// Token limits. Longer tokens are rejected, never truncated.
const (
	MaxHostnameLen = 253
	MaxOSLen       = 64
	MaxTitleLen    = 512
	MaxPathHintLen = 255
	MaxFileNameLen = 255
)

// Verb is a P2P-CI command.
type Verb string

const (
	VerbAdd    Verb = "ADD"
	VerbLookup Verb = "LOOKUP"
	VerbList   Verb = "LIST"
	VerbGet    Verb = "GET"
)

// Verbs lists the supported verbs in a stable order.
var Verbs = []Verb{VerbAdd, VerbLookup, VerbList, VerbGet}

// literal returns the token that must follow the verb.
func (v Verb) literal() string {
	if v == VerbList {
		return "ALL"
	}
	return "RFC"
}

// tokens returns the exact number of tokens a well-formed request carries.
func (v Verb) tokens() int {
	if v == VerbList {
		return 5
	}
	return 6
}

func parseVerb(s string) (Verb, bool) {
	switch v := Verb(s); v {
	case VerbAdd, VerbLookup, VerbList, VerbGet:
		return v, true
	}
	return "", false
}

// Status is a P2P-CI response status code.
type Status int

const (
	StatusOK                  Status = 200
	StatusBadRequest          Status = 400
	StatusNotFound            Status = 404
	StatusInternalError       Status = 500
	StatusVersionNotSupported Status = 505
)

// Reason returns the reason phrase sent on the status line.
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalError:
		return "Internal Server Error"
	case StatusVersionNotSupported:
		return "P2P-CI Version Not Supported"
	default:
		return "Unknown"
	}
}
