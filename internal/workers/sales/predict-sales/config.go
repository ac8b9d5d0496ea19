// internal/workers/sales/predict-sales/config.go
package predictsales

import (
	"time"

	"sales-predictor/internal/common/config"
	"sales-predictor/pkg/registry"
)

type Config struct {
	Timeout       time.Duration
	MaxJobsActive int
}

// LoadConfig merges the worker section of cfg with the activity's declared
// timeout. The worker section wins when it sets one.
func LoadConfig(cfg *config.Config, activity *registry.Activity) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)

	timeout := 10 * time.Second
	if activity != nil {
		timeout = activity.TimeoutDuration(timeout)
	}
	if wc.Timeout > 0 {
		timeout = config.GetDuration(wc.Timeout)
	}

	return &Config{
		Timeout:       timeout,
		MaxJobsActive: wc.MaxJobsActive,
	}
}
