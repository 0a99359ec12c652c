package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/p2pci/pkg/catalog"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func sampleDocs() DocumentTable {
	return DocumentTable{
		{Number: 793, Title: "Transmission Control Protocol", OwnerHostname: "alpha", OwnerPort: 50001, PathHint: "rfcs"},
		{Number: 791, Title: "Internet Protocol", OwnerHostname: "beta", OwnerPort: 50002, PathHint: "docs"},
	}
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(sampleDocs()))

	out := buf.String()
	assert.Contains(t, out, "RFC")
	assert.Contains(t, out, "Transmission Control Protocol")
	assert.Contains(t, out, "50002")
}

func TestPrinterTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Print(map[string]int{"peers": 2}))
	assert.JSONEq(t, `{"peers":2}`, buf.String())
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Print(sampleDocs()))

	var docs []catalog.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, 791, docs[1].Number)
}

func TestPrinterYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatYAML, false).Print(map[string]any{"peers": 2, "documents": 5}))

	var got map[string]int
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]int{"peers": 2, "documents": 5}, got)
}

func TestPrinterMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	p.Success("done")
	p.Warning("careful")
	assert.Equal(t, "done\ncareful\n", buf.String())

	buf.Reset()
	NewPrinter(&buf, FormatTable, true).Success("done")
	assert.Equal(t, "\033[32mdone\033[0m\n", buf.String())
}

func TestKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValues(&buf, [][2]string{{"Status", "running"}, {"PID", "42"}}))
	assert.Contains(t, buf.String(), "Status")
	assert.Contains(t, buf.String(), "running")
}

func TestPeerTable(t *testing.T) {
	peers := PeerTable{{Hostname: "alpha", Port: 50001, OS: "Linux"}}
	assert.Equal(t, [][]string{{"alpha", "50001", "Linux", "-"}}, peers.Rows())
	assert.Len(t, peers.Headers(), 4)
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{12*time.Minute + 3*time.Second, "12m 3s"},
		{4*time.Hour + 12*time.Minute + 3*time.Second, "4h 12m 3s"},
		{3*24*time.Hour + 4*time.Hour + 12*time.Minute, "3d 4h 12m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUptime(tt.d), tt.d.String())
	}
}
