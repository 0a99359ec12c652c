package handlers

import (
	"github.com/marmos91/p2pci/internal/logger"
	"github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// Add claims an RFC already present in the catalog for the calling peer.
//
// The new record copies the title of the most recent record for the number
// and the path hint of the most recent record owned by the calling port.
// A peer that owns nothing yet gets an empty hint, which resolves to the
// documents root.
func (h *Handler) Add(ctx *RequestContext, req *p2pci.Request) (*p2pci.Response, error) {
	var added catalog.Document

	err := h.Store.WithTransaction(ctx.Context, func(tx *catalog.Tx) error {
		if err := checkRequester(tx, ctx, req.Hostname); err != nil {
			return err
		}

		existing, ok := tx.FirstDocument(req.Number)
		if !ok {
			return notFound(catalog.ErrDocumentNotFound, "rfc %d", req.Number)
		}

		added = catalog.Document{
			Number:        req.Number,
			Title:         existing.Title,
			OwnerHostname: req.Hostname,
			OwnerPort:     ctx.Port,
			FileName:      p2pci.DocumentFileName(req.Number),
			AddedAt:       h.now(),
		}
		if own, ok := tx.FindDocumentByOwnerPort(ctx.Port); ok {
			added.PathHint = own.PathHint
		}
		return tx.AddDocument(added)
	})
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx.Context, "ADD: document claimed",
		logger.RFC(added.Number), logger.Title(added.Title), logger.PathHint(added.PathHint))

	return p2pci.OK().WithHeader("Title", added.Title), nil
}
