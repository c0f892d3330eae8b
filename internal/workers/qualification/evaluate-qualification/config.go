package evaluatequalification

import (
	"time"

	"funnel-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// RequireState fails the job with STATE_NOT_BUILT instead of completing
	// it with stateBuilt=false.
	RequireState bool
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout, RequireState: wcfg.Strict}
}
