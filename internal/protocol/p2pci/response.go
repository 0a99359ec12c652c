package p2pci

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of the Date and Last-Modified headers.
const DateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatDate renders t in DateLayout, always in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Header is one "Name: value" response line.
type Header struct {
	Name  string
	Value string
}

// Response is a status line followed by headers and body lines.
type Response struct {
	Status  Status
	Headers []Header
	Body    []string
}

// NewResponse creates a response with the given status.
func NewResponse(status Status) *Response {
	return &Response{Status: status}
}

// OK creates a 200 response.
func OK() *Response {
	return NewResponse(StatusOK)
}

// ErrorResponse creates the response for err, using StatusOf.
func ErrorResponse(err error) *Response {
	return NewResponse(StatusOf(err))
}

// WithHeader appends a header and returns r.
func (r *Response) WithHeader(name, value string) *Response {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
	return r
}

// AddLine appends a body line.
func (r *Response) AddLine(line string) {
	r.Body = append(r.Body, line)
}

// Header returns the first header with the given name.
func (r *Response) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Render returns the wire form of r. Embedded line breaks in headers and
// body lines are flattened so they cannot end the response early.
func (r *Response) Render() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %d %s\n", Version, int(r.Status), r.Status.Reason())
	for _, h := range r.Headers {
		b.WriteString(flatten(h.Name))
		b.WriteString(": ")
		b.WriteString(flatten(h.Value))
		b.WriteByte('\n')
	}
	for _, line := range r.Body {
		b.WriteString(flatten(line))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// WriteTo writes the rendered response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Render())
	return int64(n), err
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return lineBreaks.Replace(s)
}

// ReadResponse reads one response from br. Lines of the form "Name: value"
// that precede the first body line are returned as headers. Used by the
// protocol tests and the bundled client.
func ReadResponse(br *bufio.Reader) (*Response, error) {
	statusLine, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	fields := strings.SplitN(trimEOL(statusLine), " ", 3)
	if len(fields) < 2 || fields[0] != Version {
		return nil, fmt.Errorf("%w: status line %q", ErrMalformedRequest, clip(statusLine))
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformedRequest, fields[1])
	}

	resp := NewResponse(Status(code))
	inHeaders := true
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = trimEOL(line)
		if line == "" {
			return resp, nil
		}
		if inHeaders {
			if name, value, ok := strings.Cut(line, ": "); ok && !strings.Contains(name, " ") {
				resp.Headers = append(resp.Headers, Header{Name: name, Value: value})
				continue
			}
			inHeaders = false
		}
		resp.Body = append(resp.Body, line)
	}
}
