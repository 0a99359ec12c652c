package handlers

import (
	"github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// Lookup returns the title of an RFC present in the catalog. When several
// peers hold the number, the most recently added record wins.
func (h *Handler) Lookup(ctx *RequestContext, req *p2pci.Request) (*p2pci.Response, error) {
	var title string

	err := h.Store.WithTransaction(ctx.Context, func(tx *catalog.Tx) error {
		doc, ok := tx.FirstDocument(req.Number)
		if !ok {
			return notFound(catalog.ErrDocumentNotFound, "rfc %d", req.Number)
		}
		if err := checkRequester(tx, ctx, req.Hostname); err != nil {
			return err
		}
		title = doc.Title
		return nil
	})
	if err != nil {
		return nil, err
	}

	return p2pci.OK().WithHeader("Title", title), nil
}
