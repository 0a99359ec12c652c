// Package commands implements the p2pci CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/cmd/p2pci/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "p2pci",
	Short: "P2P-CI - centralized index for peer-to-peer RFC sharing",
	Long: `p2pci runs the centralized index of a P2P-CI network.

Peers connect over TCP, register the RFC documents they hold, and then
ADD, LOOKUP, LIST and GET documents through the P2P-CI/1.0 protocol.
The index lives in memory and forgets a peer as soon as its connection
closes.

Use "p2pci [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/p2pci/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
