package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/marmos91/p2pci/pkg/catalog"
)

// PeerTable lists registered peers.
type PeerTable []catalog.Peer

func (t PeerTable) Headers() []string {
	return []string{"Hostname", "Port", "OS", "Connected"}
}

func (t PeerTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{p.Hostname, strconv.Itoa(p.Port), p.OS, FormatSince(p.ConnectedAt)})
	}
	return rows
}

// DocumentTable lists catalog documents in catalog order.
type DocumentTable []catalog.Document

func (t DocumentTable) Headers() []string {
	return []string{"RFC", "Title", "Hostname", "Port", "Path"}
}

func (t DocumentTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, d := range t {
		rows = append(rows, []string{
			strconv.Itoa(d.Number),
			d.Title,
			d.OwnerHostname,
			strconv.Itoa(d.OwnerPort),
			d.PathHint,
		})
	}
	return rows
}

// FormatUptime renders a duration the way the status command shows it:
// "3d 4h 12m", "4h 12m 3s", "12m 3s" or "3s".
func FormatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	seconds := int((d - time.Duration(minutes)*time.Minute) / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatSince renders the time elapsed since t, or "-" for the zero time.
func FormatSince(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return FormatUptime(time.Since(t)) + " ago"
}
