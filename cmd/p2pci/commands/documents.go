package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/internal/cli/output"
	"github.com/marmos91/p2pci/pkg/catalog"
)

var (
	documentsOutput string
	documentsRFC    int
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List catalog documents",
	Long: `List the RFC documents in a running server's catalog, most recently
added first.

Examples:
  p2pci documents
  p2pci documents --rfc 793
  p2pci docs -o yaml`,
	RunE: runDocuments,
}

func init() {
	documentsCmd.Flags().StringVarP(&documentsOutput, "output", "o", "table", "Output format (table|json|yaml)")
	documentsCmd.Flags().IntVar(&documentsRFC, "rfc", 0, "Only show copies of this RFC number")
	addAPIFlag(documentsCmd)
}

func runDocuments(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(documentsOutput)
	if err != nil {
		return err
	}

	path := "/api/v1/documents"
	if documentsRFC != 0 {
		if documentsRFC < 0 {
			return fmt.Errorf("--rfc must be positive")
		}
		path = fmt.Sprintf("%s?rfc=%d", path, documentsRFC)
	}

	var docs []catalog.Document
	if _, err := getAPI(cmd.Context(), apiURL, path, &docs); err != nil {
		return err
	}
	return output.NewPrinter(os.Stdout, format, false).Print(output.DocumentTable(docs))
}
