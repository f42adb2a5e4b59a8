package newrelic

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
)

// InitNewRelic initializes the New Relic application based on configuration.
// Returns nil when monitoring is disabled; callers must tolerate a nil app.
func InitNewRelic(configs *models.Config) *newrelic.Application {
	if !configs.NewRelic.Enabled || configs.NewRelic.LicenseKey == "" {
		logger.Info("New Relic is disabled or license key not provided")
		return nil
	}

	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigAppName(configs.NewRelic.AppName),
		newrelic.ConfigLicense(configs.NewRelic.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		logger.Warn("Failed to initialize New Relic, continuing without monitoring",
			logger.Err(err))
		return nil
	}

	logger.Info("New Relic enabled",
		logger.String("app_name", configs.NewRelic.AppName))

	return nrApp
}
