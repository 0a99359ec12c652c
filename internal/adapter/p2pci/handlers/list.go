package handlers

import (
	"fmt"

	"github.com/marmos91/p2pci/internal/protocol/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
)

// List renders every document in the catalog, one line each:
//
//	RFC <number> <title> <hostname> <port>
func (h *Handler) List(ctx *RequestContext, req *p2pci.Request) (*p2pci.Response, error) {
	var docs []catalog.Document

	err := h.Store.WithTransaction(ctx.Context, func(tx *catalog.Tx) error {
		if err := checkRequester(tx, ctx, req.Hostname); err != nil {
			return err
		}
		docs = tx.AllDocuments()
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := p2pci.OK()
	for _, d := range docs {
		resp.AddLine(FormatListLine(d))
	}
	return resp, nil
}

// FormatListLine renders one LIST body line.
func FormatListLine(d catalog.Document) string {
	return fmt.Sprintf("RFC %d %s %s %d", d.Number, d.Title, d.OwnerHostname, d.OwnerPort)
}
