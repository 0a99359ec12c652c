// Package catalog holds the shared P2P-CI registries: the live peers and the
// documents they hold.
//
// Both registries sit behind one mutex. A logical operation (registering a
// peer with its uploads, resolving a GET, cleaning up after a disconnect) runs
// as a single transaction so other connections never observe it half done:
//
//	err := store.WithTransaction(ctx, func(tx *catalog.Tx) error {
//	    if _, ok := tx.FindPeer(host, port); !ok {
//	        return catalog.ErrPeerNotFound
//	    }
//	    return tx.AddDocument(doc)
//	})
//
// Records are returned by value; callers never hold references into the store.
package catalog

import (
	"context"
	"sync"
)

// Observer is notified with the catalog size after every transaction that
// changed it. It runs with the store lock held and must not call back into
// the store.
type Observer interface {
	CatalogChanged(stats Stats)
}

// Store is the in-memory peer and document registry.
type Store struct {
	mu    sync.Mutex
	peers map[int]Peer

	// docs is kept in insertion order; enumeration walks it backwards so
	// the most recently added document comes first.
	docs []Document

	observer Observer
}

// New creates an empty store.
func New() *Store {
	return &Store{peers: make(map[int]Peer)}
}

// SetObserver installs o. Pass nil to remove it.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// WithTransaction runs fn with the store lock held for its whole duration.
//
// There is no rollback: writes made before fn returns an error persist. All
// handlers validate first and mutate last, so in practice an error means
// nothing was written.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s}
	err := fn(tx)
	tx.store = nil

	if tx.dirty && s.observer != nil {
		s.observer.CatalogChanged(s.statsLocked())
	}
	return err
}

// Register inserts peer and its uploaded documents in one transaction.
// A stale peer on the same port is replaced and its documents purged first.
// Documents are attributed to the peer regardless of their owner fields.
func (s *Store) Register(ctx context.Context, peer Peer, docs []Document) (replaced bool, err error) {
	if err := peer.validate(); err != nil {
		return false, err
	}
	for i := range docs {
		docs[i].OwnerHostname = peer.Hostname
		docs[i].OwnerPort = peer.Port
		if err := docs[i].validate(); err != nil {
			return false, err
		}
	}

	err = s.WithTransaction(ctx, func(tx *Tx) error {
		if _, ok := tx.PeerByPort(peer.Port); ok {
			replaced = true
			tx.RemoveDocumentsByOwnerPort(peer.Port)
		}
		if err := tx.AddPeer(peer); err != nil {
			return err
		}
		for _, d := range docs {
			if err := tx.AddDocument(d); err != nil {
				return err
			}
		}
		return nil
	})
	return replaced, err
}

// Disconnect removes the peer on port and every document it owns, provided
// the peer still belongs to sessionID. It returns the number of documents
// removed and whether the peer record was dropped. Calling it twice is
// harmless.
func (s *Store) Disconnect(ctx context.Context, port int, sessionID string) (removed int, dropped bool, err error) {
	err = s.WithTransaction(ctx, func(tx *Tx) error {
		p, ok := tx.PeerByPort(port)
		if !ok || p.SessionID != sessionID {
			return nil
		}
		removed = tx.RemoveDocumentsByOwnerPort(port)
		tx.RemovePeer(port)
		dropped = true
		return nil
	})
	return removed, dropped, err
}

// AddPeer inserts or replaces the peer keyed by its port.
func (s *Store) AddPeer(ctx context.Context, p Peer) error {
	return s.WithTransaction(ctx, func(tx *Tx) error { return tx.AddPeer(p) })
}

// RemovePeer drops the peer on port if present.
func (s *Store) RemovePeer(ctx context.Context, port int) error {
	return s.WithTransaction(ctx, func(tx *Tx) error {
		tx.RemovePeer(port)
		return nil
	})
}

// FindPeer returns the peer with the given hostname and port.
func (s *Store) FindPeer(ctx context.Context, hostname string, port int) (Peer, error) {
	var p Peer
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		var ok bool
		if p, ok = tx.FindPeer(hostname, port); !ok {
			return ErrPeerNotFound
		}
		return nil
	})
	return p, err
}

// AddDocument inserts d.
func (s *Store) AddDocument(ctx context.Context, d Document) error {
	return s.WithTransaction(ctx, func(tx *Tx) error { return tx.AddDocument(d) })
}

// RemoveDocumentsByOwnerPort drops every document owned by port and returns
// how many were removed.
func (s *Store) RemoveDocumentsByOwnerPort(ctx context.Context, port int) (int, error) {
	var n int
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		n = tx.RemoveDocumentsByOwnerPort(port)
		return nil
	})
	return n, err
}

// FindDocumentsByNumber returns every document for RFC n, most recent first.
func (s *Store) FindDocumentsByNumber(ctx context.Context, n int) ([]Document, error) {
	var docs []Document
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		docs = tx.FindDocumentsByNumber(n)
		return nil
	})
	return docs, err
}

// FindDocumentByOwnerPort returns the most recent document owned by port.
func (s *Store) FindDocumentByOwnerPort(ctx context.Context, port int) (Document, error) {
	var d Document
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		var ok bool
		if d, ok = tx.FindDocumentByOwnerPort(port); !ok {
			return ErrDocumentNotFound
		}
		return nil
	})
	return d, err
}

// AllDocuments returns a snapshot of every document, most recent first.
func (s *Store) AllDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		docs = tx.AllDocuments()
		return nil
	})
	return docs, err
}

// AllPeers returns a snapshot of every peer ordered by port.
func (s *Store) AllPeers(ctx context.Context) ([]Peer, error) {
	var peers []Peer
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		peers = tx.AllPeers()
		return nil
	})
	return peers, err
}

// Stats returns the current catalog size.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Store) statsLocked() Stats {
	return Stats{Peers: len(s.peers), Documents: len(s.docs)}
}
