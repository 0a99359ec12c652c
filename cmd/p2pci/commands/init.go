package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/internal/cli/prompt"
	"github.com/marmos91/p2pci/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample P2P-CI configuration file.

By default the file is created at $XDG_CONFIG_HOME/p2pci/config.yaml.
Use --config to choose another path. With --interactive the listening port
and the documents directory are asked for.

Examples:
  p2pci init
  p2pci init --config /etc/p2pci/config.yaml
  p2pci init --interactive
  p2pci init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file without asking")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil && !force {
		ok, err := prompt.Confirm(fmt.Sprintf("%s exists. Overwrite", configPath), false)
		if err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println("Keeping the existing configuration")
			return nil
		}
		force = true
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if initInteractive {
		if err := customizeConfig(configPath); err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				fmt.Println("Prompts aborted; the sample configuration was kept")
				return nil
			}
			return err
		}
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set documents.root to the directory holding your RFC files")
	fmt.Println("  2. Start the server with: p2pci start")
	fmt.Printf("  3. Or specify custom config: p2pci start --config %s\n", configPath)
	return nil
}

func customizeConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	port, err := prompt.InputPort("Index port", cfg.Adapters.P2PCI.Port)
	if err != nil {
		return err
	}
	root, err := prompt.Input("Documents directory", cfg.Documents.Root, prompt.ValidateDirectory)
	if err != nil {
		return err
	}

	cfg.Adapters.P2PCI.Port = port
	cfg.Documents.Root = root
	if err := config.Validate(cfg); err != nil {
		return err
	}
	return config.SaveConfig(cfg, path)
}
