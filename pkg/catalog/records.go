package catalog

import (
	"fmt"
	"time"
)

// Peer is a registered peer. The source port of its control connection is
// the peer's identity: at most one live Peer exists per port.
type Peer struct {
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	OS       string `json:"os"`

	// SessionID identifies the connection that registered the peer, so a
	// late cleanup cannot remove a newer peer that reused the port.
	SessionID   string    `json:"session_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Document says that the peer on OwnerPort holds RFC Number.
// Several documents may share a Number.
type Document struct {
	Number        int       `json:"rfc"`
	Title         string    `json:"title"`
	OwnerHostname string    `json:"hostname"`
	OwnerPort     int       `json:"port"`
	PathHint      string    `json:"path_hint"`
	FileName      string    `json:"file_name,omitempty"`
	AddedAt       time.Time `json:"added_at"`
}

// Stats is a point-in-time size of the catalog.
type Stats struct {
	Peers     int `json:"peers"`
	Documents int `json:"documents"`
}

func (p Peer) validate() error {
	if p.Hostname == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidPeer)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPeer, p.Port)
	}
	return nil
}

func (d Document) validate() error {
	if d.Number <= 0 {
		return fmt.Errorf("%w: rfc number %d", ErrInvalidDocument, d.Number)
	}
	if d.Title == "" {
		return fmt.Errorf("%w: empty title for rfc %d", ErrInvalidDocument, d.Number)
	}
	if d.OwnerPort <= 0 || d.OwnerPort > 65535 {
		return fmt.Errorf("%w: owner port %d out of range", ErrInvalidDocument, d.OwnerPort)
	}
	return nil
}
