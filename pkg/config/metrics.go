package config

import (
	"github.com/marmos91/p2pci/internal/logger"
	"github.com/marmos91/p2pci/pkg/metrics"
	"github.com/marmos91/p2pci/pkg/metrics/prometheus"
)

// InitializeMetrics sets up the Prometheus registry and returns the metrics
// HTTP server and the index recorder. Both are nil when metrics are disabled.
func InitializeMetrics(cfg *Config) (*metrics.Server, metrics.IndexMetrics) {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics collection disabled")
		return nil, nil
	}

	metrics.InitRegistry()
	logger.Info("Metrics collection enabled", "port", cfg.Metrics.Port)

	return metrics.NewServer(cfg.Metrics.Port), prometheus.NewIndexMetrics()
}
