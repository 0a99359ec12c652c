package catalog

import "sort"

// Tx is a view of the store valid only inside WithTransaction.
type Tx struct {
	store *Store
	dirty bool
}

// AddPeer inserts p, replacing any peer already registered on p.Port.
func (tx *Tx) AddPeer(p Peer) error {
	if err := p.validate(); err != nil {
		return err
	}
	tx.store.peers[p.Port] = p
	tx.dirty = true
	return nil
}

// RemovePeer drops the peer on port. Missing peers are ignored.
func (tx *Tx) RemovePeer(port int) {
	if _, ok := tx.store.peers[port]; !ok {
		return
	}
	delete(tx.store.peers, port)
	tx.dirty = true
}

// PeerByPort returns the peer registered on port.
func (tx *Tx) PeerByPort(port int) (Peer, bool) {
	p, ok := tx.store.peers[port]
	return p, ok
}

// FindPeer returns the peer on port if its hostname matches.
func (tx *Tx) FindPeer(hostname string, port int) (Peer, bool) {
	p, ok := tx.store.peers[port]
	if !ok || p.Hostname != hostname {
		return Peer{}, false
	}
	return p, true
}

// HasPeerHostname reports whether any live peer registered with hostname.
func (tx *Tx) HasPeerHostname(hostname string) bool {
	for _, p := range tx.store.peers {
		if p.Hostname == hostname {
			return true
		}
	}
	return false
}

// AllPeers returns every peer ordered by port.
func (tx *Tx) AllPeers() []Peer {
	out := make([]Peer, 0, len(tx.store.peers))
	for _, p := range tx.store.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// AddDocument appends d to the catalog.
func (tx *Tx) AddDocument(d Document) error {
	if err := d.validate(); err != nil {
		return err
	}
	tx.store.docs = append(tx.store.docs, d)
	tx.dirty = true
	return nil
}

// RemoveDocumentsByOwnerPort drops every document owned by port and returns
// the number removed.
func (tx *Tx) RemoveDocumentsByOwnerPort(port int) int {
	docs := tx.store.docs
	kept := docs[:0]
	for _, d := range docs {
		if d.OwnerPort != port {
			kept = append(kept, d)
		}
	}
	removed := len(docs) - len(kept)
	if removed == 0 {
		return 0
	}
	// Zero the tail so dropped titles can be collected.
	clear(docs[len(kept):])
	tx.store.docs = kept
	tx.dirty = true
	return removed
}

// FindDocumentsByNumber returns the documents for RFC n, most recent first.
func (tx *Tx) FindDocumentsByNumber(n int) []Document {
	var out []Document
	for i := len(tx.store.docs) - 1; i >= 0; i-- {
		if tx.store.docs[i].Number == n {
			out = append(out, tx.store.docs[i])
		}
	}
	return out
}

// FirstDocument returns the most recent document for RFC n.
func (tx *Tx) FirstDocument(n int) (Document, bool) {
	for i := len(tx.store.docs) - 1; i >= 0; i-- {
		if tx.store.docs[i].Number == n {
			return tx.store.docs[i], true
		}
	}
	return Document{}, false
}

// FindDocumentByOwnerPort returns the most recent document owned by port.
func (tx *Tx) FindDocumentByOwnerPort(port int) (Document, bool) {
	for i := len(tx.store.docs) - 1; i >= 0; i-- {
		if tx.store.docs[i].OwnerPort == port {
			return tx.store.docs[i], true
		}
	}
	return Document{}, false
}

// AllDocuments returns every document, most recent first.
func (tx *Tx) AllDocuments() []Document {
	out := make([]Document, len(tx.store.docs))
	for i, d := range tx.store.docs {
		out[len(out)-1-i] = d
	}
	return out
}

// Stats returns the catalog size as seen inside the transaction.
func (tx *Tx) Stats() Stats {
	return tx.store.statsLocked()
}
