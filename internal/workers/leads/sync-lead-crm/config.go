package syncleadcrm

import (
	"time"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/models"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
	// MinBand is the lowest band that reaches the CRM.
	MinBand models.LeadBand
}

func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Timeout: 30 * time.Second,
		MinBand: models.BandWarm,
	}
}

// LoadConfig ties the worker to the Zoho integration switch.
func LoadConfig(wcfg config.WorkerConfig, integrations config.IntegrationConfig) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = integrations.Zoho.Enabled
	if timeout := config.GetDuration(wcfg.Timeout); timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg
}
