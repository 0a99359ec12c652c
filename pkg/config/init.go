package config

import (
	"fmt"
	"os"
)

// InitConfig writes the sample configuration to the default location and
// returns its path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes the sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	if err := SaveConfig(GetDefaultConfig(), path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read back config file: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(sampleHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const sampleHeader = `# P2P-CI Index Server Configuration
#
# Every value below is a default. Environment variables override the file:
#   P2PCI_LOGGING_LEVEL=DEBUG
#   P2PCI_ADAPTERS_P2PCI_PORT=7735
#
# adapters.p2pci.timeouts.idle: 0 keeps quiet peers connected forever.
# adapters.p2pci.close_on_get_error: end the connection after a failed GET.
# documents.root: directory upload path hints are resolved against.

`
