package adapter

// ProtocolError is a domain error translated to a wire status code.
//
// Adapters implement MapError to turn sentinel errors (for example
// catalog.ErrPeerNotFound) into the status their protocol sends, such as
// P2P-CI "404 Not Found". Unwrap exposes the original error so callers can
// still match it with errors.Is.
type ProtocolError interface {
	error

	// Code returns the numeric status code.
	Code() uint32

	// Message returns the human-readable status text.
	Message() string

	Unwrap() error
}
