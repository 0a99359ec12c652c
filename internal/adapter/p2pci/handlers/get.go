package handlers

import (
	"strconv"

	"github.com/marmos91/p2pci/internal/logger"
	"github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// ContentType is sent on every successful GET.
const ContentType = "text/text"

// getPlan is what GET resolves from the catalog before touching files.
type getPlan struct {
	ownerOS string
	srcHint string
	dstHint string
}

// Get brokers a document transfer. The catalog is consulted in a fixed
// order, and the first failure decides the status:
//
//  1. a record for the number exists (else 400)
//  2. the owner of that record is still registered (else 400)
//  3. the declared OS equals the owner's OS (else 400)
//  4. the requester is the connection's own registered host (else 404)
//  5. the requester itself owns at least one document (else 404)
//
// The owner's file is then stat'ed and, when it lives elsewhere, copied into
// the requester's directory. File errors answer 500.
func (h *Handler) Get(ctx *RequestContext, req *p2pci.Request) (*p2pci.Response, error) {
	var plan getPlan

	err := h.Store.WithTransaction(ctx.Context, func(tx *catalog.Tx) error {
		doc, ok := tx.FirstDocument(req.Number)
		if !ok {
			return badRequest(catalog.ErrDocumentNotFound, "rfc %d", req.Number)
		}

		owner, ok := tx.PeerByPort(doc.OwnerPort)
		if !ok {
			return badRequest(catalog.ErrPeerNotFound, "owner of rfc %d on port %d", req.Number, doc.OwnerPort)
		}

		if req.OS != owner.OS {
			return badRequest(ErrOSMismatch, "declared %q, owner runs %q", req.OS, owner.OS)
		}

		if req.Hostname != ctx.Hostname || !tx.HasPeerHostname(req.Hostname) {
			return notFound(catalog.ErrPeerNotFound, "host %q", req.Hostname)
		}

		// Only peers sharing something may fetch.
		own, ok := tx.FindDocumentByOwnerPort(ctx.Port)
		if !ok {
			logger.DebugCtx(ctx.Context, "GET: requester owns no documents", logger.RFC(req.Number))
			return notFound(ErrNoOwnDocuments, "port %d", ctx.Port)
		}

		plan = getPlan{ownerOS: owner.OS, srcHint: doc.PathHint, dstHint: own.PathHint}
		return nil
	})
	if err != nil {
		return nil, err
	}

	info, err := h.Files.Stat(plan.srcHint, req.Number)
	if err != nil {
		return nil, internalError(err, "stat rfc %d", req.Number)
	}

	copied, err := h.Files.Stage(ctx.Context, plan.srcHint, plan.dstHint, req.Number)
	if err != nil {
		return nil, internalError(err, "stage rfc %d", req.Number)
	}
	if copied {
		if h.OnStaged != nil {
			h.OnStaged(info.Size())
		}
		logger.DebugCtx(ctx.Context, "GET: document staged",
			logger.RFC(req.Number), logger.Path(h.Files.Path(plan.dstHint, req.Number)), logger.Size(info.Size()))
	}

	return p2pci.OK().
		WithHeader("Date", p2pci.FormatDate(h.now())).
		WithHeader("OS", plan.ownerOS).
		WithHeader("Last-Modified", p2pci.FormatDate(info.ModTime())).
		WithHeader("Content-Length", strconv.FormatInt(info.Size(), 10)).
		WithHeader("Content-Type", ContentType), nil
}
