package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no port while metrics are disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{ShutdownTimeout: 5 * time.Second}
	cfg.Adapters.P2PCI.Port = 9000
	cfg.Adapters.P2PCI.Timeouts.Write = time.Second
	cfg.Telemetry.SampleRate = 0.25
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Adapters.P2PCI.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Adapters.P2PCI.Port)
	}
	if cfg.Adapters.P2PCI.Timeouts.Write != time.Second {
		t.Errorf("Expected write timeout 1s, got %v", cfg.Adapters.P2PCI.Timeouts.Write)
	}
	if cfg.Telemetry.SampleRate != 0.25 {
		t.Errorf("Expected sample rate 0.25, got %v", cfg.Telemetry.SampleRate)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if !cfg.Adapters.P2PCI.Enabled {
		t.Error("Expected the index listener enabled by default")
	}
	if cfg.Adapters.P2PCI.Timeouts.Idle != 0 {
		t.Errorf("Expected no idle timeout by default, got %v", cfg.Adapters.P2PCI.Timeouts.Idle)
	}
	if cfg.Adapters.P2PCI.CloseOnGetError {
		t.Error("Expected close_on_get_error off by default")
	}
}
