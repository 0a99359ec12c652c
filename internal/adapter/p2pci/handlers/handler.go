// Package handlers implements the P2P-CI command handlers.
//
// Every handler resolves its catalog reads and writes inside one store
// transaction. File system work for GET happens after the transaction
// commits, so slow disks never hold the catalog lock.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// ErrOSMismatch is returned by GET when the declared OS differs from the
// owner's registered OS.
var ErrOSMismatch = errors.New("operating system mismatch")

// ErrNoOwnDocuments is returned by GET when the requesting connection holds
// no documents of its own.
var ErrNoOwnDocuments = errors.New("requester has no registered documents")

// ErrHostnameMismatch is returned when the hostname in a request is not the
// hostname the server resolved for the connection.
var ErrHostnameMismatch = errors.New("hostname does not match connection")

// RequestContext carries what the connection knows about the requester.
type RequestContext struct {
	// Context carries cancellation, the logger.LogContext and the command span.
	Context context.Context

	// Hostname is the name resolved from the connection's remote address.
	Hostname string

	// Port is the connection's remote source port, the peer identity.
	Port int

	// SessionID identifies the connection.
	SessionID string
}

// Handler serves P2P-CI commands against a shared catalog.
type Handler struct {
	Store *catalog.Store
	Files *FileStager

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// OnStaged, when set, is called with the size of every document GET
	// copied into the requester's directory.
	OnStaged func(bytes int64)
}

// NewHandler creates a Handler with the wall clock.
func NewHandler(store *catalog.Store, files *FileStager) *Handler {
	return &Handler{Store: store, Files: files, Now: time.Now}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Handle dispatches req to the handler for its verb. It always returns a
// response; err is non-nil when the response reports a failure.
func (h *Handler) Handle(ctx *RequestContext, req *p2pci.Request) (*p2pci.Response, error) {
	var (
		resp *p2pci.Response
		err  error
	)
	switch req.Verb {
	case p2pci.VerbAdd:
		resp, err = h.Add(ctx, req)
	case p2pci.VerbLookup:
		resp, err = h.Lookup(ctx, req)
	case p2pci.VerbList:
		resp, err = h.List(ctx, req)
	case p2pci.VerbGet:
		resp, err = h.Get(ctx, req)
	default:
		err = p2pci.NewStatusError(p2pci.StatusBadRequest, p2pci.ErrUnknownVerb, "verb %q", req.Verb)
	}
	if err != nil {
		return p2pci.ErrorResponse(err), err
	}
	return resp, nil
}

func notFound(err error, format string, args ...any) error {
	return p2pci.NewStatusError(p2pci.StatusNotFound, err, format, args...)
}

func badRequest(err error, format string, args ...any) error {
	return p2pci.NewStatusError(p2pci.StatusBadRequest, err, format, args...)
}

func internalError(err error, format string, args ...any) error {
	return p2pci.NewStatusError(p2pci.StatusInternalError, err, format, args...)
}

// checkRequester verifies the claimed hostname is the connection's own and
// that the peer registered on the connection port carries it.
func checkRequester(tx *catalog.Tx, ctx *RequestContext, hostname string) error {
	if hostname != ctx.Hostname {
		return notFound(ErrHostnameMismatch, "host %q, connection host %q", hostname, ctx.Hostname)
	}
	if _, ok := tx.FindPeer(hostname, ctx.Port); !ok {
		return notFound(catalog.ErrPeerNotFound, "no peer %s:%d", hostname, ctx.Port)
	}
	return nil
}
