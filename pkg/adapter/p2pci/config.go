package p2pci

import (
	"fmt"
	"time"

	"github.com/marmos91/p2pci/internal/bytesize"
	proto "github.com/marmos91/p2pci/internal/protocol/p2pci"
)

// DefaultMaxLineSize bounds a single request or upload line.
const DefaultMaxLineSize = 4 * bytesize.KiB

// TimeoutsConfig groups the connection timeouts.
type TimeoutsConfig struct {
	// Registration bounds the whole registration phase, from accept to END.
	// 0 means no limit.
	Registration time.Duration `mapstructure:"registration" yaml:"registration" validate:"min=0"`

	// Idle closes a registered connection that sends nothing for this long.
	// 0 keeps idle peers connected indefinitely, which is what peers expect.
	Idle time.Duration `mapstructure:"idle" yaml:"idle" validate:"min=0"`

	// Write bounds writing a single response. 0 means no limit.
	Write time.Duration `mapstructure:"write" yaml:"write" validate:"min=0"`

	// Shutdown is how long to wait for connections to drain on stop.
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown" validate:"required,gt=0"`
}

// Config holds the P2P-CI adapter settings.
//
// Default values (applied by ApplyDefaults if zero):
//   - Port: 7734
//   - Timeouts.Registration: 30s
//   - Timeouts.Write: 10s
//   - Timeouts.Shutdown: 10s
//   - MaxLineSize: 4KiB
type Config struct {
	// Enabled controls whether the index listener starts.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress is the IPv4 address to bind; empty binds all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address" validate:"omitempty,ipv4"`

	// Port is the TCP port peers connect to.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// MaxConnections caps concurrent peers. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`

	// MaxLineSize bounds one protocol line. An over-long registration line
	// ends the connection; an over-long command is drained and answered 400.
	MaxLineSize bytesize.ByteSize `mapstructure:"max_line_size" yaml:"max_line_size"`

	// CloseOnGetError ends the connection after a GET that did not answer
	// 200. Off by default; the peer stays registered and may retry.
	CloseOnGetError bool `mapstructure:"close_on_get_error" yaml:"close_on_get_error"`

	// MetricsLogInterval periodically logs the connection count. 0 disables.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	c := Config{Enabled: true}
	c.ApplyDefaults()
	return c
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = proto.DefaultPort
	}
	if c.Timeouts.Registration == 0 {
		c.Timeouts.Registration = 30 * time.Second
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = 10 * time.Second
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 10 * time.Second
	}
	if c.MaxLineSize == 0 {
		c.MaxLineSize = DefaultMaxLineSize
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections %d", c.MaxConnections)
	}
	if c.MaxLineSize < 128 {
		return fmt.Errorf("max_line_size %s is below 128B", c.MaxLineSize)
	}
	if c.Timeouts.Idle < 0 || c.Timeouts.Write < 0 || c.Timeouts.Registration < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
