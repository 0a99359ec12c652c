package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.MustLoad(configPath)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (index port %d, documents root %s)\n",
			cfg.Adapters.P2PCI.Port, cfg.Documents.Root)
		return nil
	},
}
