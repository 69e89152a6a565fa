package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/worksuite/identity-api/config"
	"github.com/worksuite/identity-api/internal/observability/statsd"
)

// BuildMetricsSink dials the configured StatsD endpoint. When metrics are
// disabled the returned client is a no-op, so callers can emit unconditionally.
func BuildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}

	if logger != nil && client.Enabled() {
		logger.Info("metrics enabled", "statsd_address", cfg.StatsdAddress, "prefix", cfg.StatsdPrefix)
	}

	return client, nil
}
