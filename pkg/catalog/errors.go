package catalog

import "errors"

var (
	ErrPeerNotFound     = errors.New("peer not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidPeer      = errors.New("invalid peer")
	ErrInvalidDocument  = errors.New("invalid document")
)
