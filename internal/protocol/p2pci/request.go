package p2pci

import (
	"strconv"
	"strings"
)

// Request is a parsed, validated command line.
type Request struct {
	Verb     Verb
	Number   int    // RFC number; zero for LIST
	Hostname string // hostname claimed by the requester
	Port     int    // claimed port; zero for GET
	OS       string // declared OS; GET only
}

// ParseRequest parses one command line received on a connection whose
// remote source port is connPort.
//
// Checks run in a fixed order and the first failure wins: verb, literal
// (RFC or ALL), version, then the remaining fields including the port
// identity check. A wrong version yields 505; every other failure is 400.
//
// Tokens are split on any run of whitespace, so doubled spaces and tabs
// between fields are accepted.
func ParseRequest(line string, connPort int) (*Request, error) {
	tokens := strings.Fields(trimEOL(line))
	if len(tokens) == 0 {
		return nil, NewStatusError(StatusBadRequest, ErrMalformedRequest, "empty request")
	}

	verb, ok := parseVerb(tokens[0])
	if !ok {
		return nil, NewStatusError(StatusBadRequest, ErrUnknownVerb, "verb %q", clip(tokens[0]))
	}

	if len(tokens) < 2 || tokens[1] != verb.literal() {
		return nil, NewStatusError(StatusBadRequest, ErrBadLiteral, "%s expects %s", verb, verb.literal())
	}

	versionAt := 3
	if verb == VerbList {
		versionAt = 2
	}
	if len(tokens) <= versionAt {
		return nil, NewStatusError(StatusBadRequest, ErrMalformedRequest, "%s: missing version", verb)
	}
	if tokens[versionAt] != Version {
		return nil, NewStatusError(StatusVersionNotSupported, ErrUnsupportedVersion, "version %q", clip(tokens[versionAt]))
	}

	if len(tokens) != verb.tokens() {
		return nil, NewStatusError(StatusBadRequest, ErrMalformedRequest,
			"%s takes %d tokens, got %d", verb, verb.tokens(), len(tokens))
	}

	req := &Request{Verb: verb}
	if verb != VerbList {
		n, err := parseRFCNumber(tokens[2])
		if err != nil {
			return nil, err
		}
		req.Number = n
	}

	host := tokens[versionAt+1]
	if len(host) > MaxHostnameLen {
		return nil, NewStatusError(StatusBadRequest, ErrTokenTooLong, "hostname exceeds %d bytes", MaxHostnameLen)
	}
	req.Hostname = host

	last := tokens[versionAt+2]
	if verb == VerbGet {
		if len(last) > MaxOSLen {
			return nil, NewStatusError(StatusBadRequest, ErrTokenTooLong, "os exceeds %d bytes", MaxOSLen)
		}
		req.OS = last
		return req, nil
	}

	port, err := strconv.Atoi(last)
	if err != nil || port <= 0 || port > 65535 {
		return nil, NewStatusError(StatusBadRequest, ErrMalformedRequest, "port %q", clip(last))
	}
	if port != connPort {
		return nil, NewStatusError(StatusBadRequest, ErrPortMismatch, "port %d, connection port %d", port, connPort)
	}
	req.Port = port
	return req, nil
}

func parseRFCNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, NewStatusError(StatusBadRequest, ErrMalformedRequest, "rfc number %q", clip(s))
	}
	return n, nil
}

// trimEOL strips a trailing "\n" or "\r\n".
func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// clip shortens untrusted tokens before they end up in errors and logs.
func clip(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// String renders the request in wire form, without the line terminator.
func (r *Request) String() string {
	var b strings.Builder
	b.WriteString(string(r.Verb))
	b.WriteByte(' ')
	b.WriteString(r.Verb.literal())
	if r.Verb != VerbList {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(r.Number))
	}
	b.WriteByte(' ')
	b.WriteString(Version)
	b.WriteByte(' ')
	b.WriteString(r.Hostname)
	b.WriteByte(' ')
	if r.Verb == VerbGet {
		b.WriteString(r.OS)
	} else {
		b.WriteString(strconv.Itoa(r.Port))
	}
	return b.String()
}
