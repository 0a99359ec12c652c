package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/p2pci/internal/telemetry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules that span fields.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled {
		if cfg.Telemetry.Profiling.Endpoint == "" {
			return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
		}
		for _, pt := range cfg.Telemetry.Profiling.ProfileTypes {
			if !telemetry.ValidProfileType(pt) {
				return fmt.Errorf("telemetry.profiling.profile_types: unknown profile type %q", pt)
			}
		}
	}

	if err := cfg.Adapters.P2PCI.Validate(); err != nil {
		return fmt.Errorf("adapters.p2pci: %w", err)
	}

	if cfg.Metrics.Enabled && cfg.ControlPlane.IsEnabled() && cfg.Metrics.Port == cfg.ControlPlane.Port {
		return fmt.Errorf("metrics.port and controlplane.port must differ (both %d)", cfg.Metrics.Port)
	}
	return nil
}

// formatValidationErrors keeps the validator's tag in every message so the
// failing rule ("oneof", "max", ...) stays visible.
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
