package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/marmos91/p2pci/pkg/catalog"
)

// Catalog is the read side of catalog.Store used by the API.
type Catalog interface {
	AllPeers(ctx context.Context) ([]catalog.Peer, error)
	AllDocuments(ctx context.Context) ([]catalog.Document, error)
	FindDocumentsByNumber(ctx context.Context, n int) ([]catalog.Document, error)
	Stats() catalog.Stats
}

// CatalogHandler serves catalog snapshots.
type CatalogHandler struct {
	catalog Catalog
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(c Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Peers handles GET /api/v1/peers.
func (h *CatalogHandler) Peers(w http.ResponseWriter, r *http.Request) {
	peers, err := h.catalog.AllPeers(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	if peers == nil {
		peers = []catalog.Peer{}
	}
	writeJSON(w, http.StatusOK, okResponse(peers))
}

// Documents handles GET /api/v1/documents. The optional rfc query parameter
// filters by RFC number.
func (h *CatalogHandler) Documents(w http.ResponseWriter, r *http.Request) {
	var (
		docs []catalog.Document
		err  error
	)

	if q := r.URL.Query().Get("rfc"); q != "" {
		n, convErr := strconv.Atoi(q)
		if convErr != nil || n <= 0 {
			BadRequest(w, "rfc must be a positive integer")
			return
		}
		docs, err = h.catalog.FindDocumentsByNumber(r.Context(), n)
	} else {
		docs, err = h.catalog.AllDocuments(r.Context())
	}
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	if docs == nil {
		docs = []catalog.Document{}
	}
	writeJSON(w, http.StatusOK, okResponse(docs))
}

// Stats handles GET /api/v1/stats.
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.catalog.Stats()))
}
