package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/internal/cli/output"
	"github.com/marmos91/p2pci/pkg/catalog"
)

var peersOutput string

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List registered peers",
	Long: `List the peers currently registered with a running index server.

Examples:
  p2pci peers
  p2pci peers -o json`,
	RunE: runPeers,
}

func init() {
	peersCmd.Flags().StringVarP(&peersOutput, "output", "o", "table", "Output format (table|json|yaml)")
	addAPIFlag(peersCmd)
}

func runPeers(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(peersOutput)
	if err != nil {
		return err
	}

	var peers []catalog.Peer
	if _, err := getAPI(cmd.Context(), apiURL, "/api/v1/peers", &peers); err != nil {
		return err
	}
	return output.NewPrinter(os.Stdout, format, false).Print(output.PeerTable(peers))
}
