package domain

import (
	"github.com/vistaforge/waitlist-api/config"
	"github.com/vistaforge/waitlist-api/domain/monitoring"
	"github.com/vistaforge/waitlist-api/domain/waitlist"
)

// SetupCoreDomain mounts every controller onto the router service. The
// signup endpoints share one fixed-window limiter so both entrypoints
// draw from the same per-client budget.
func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	signupLimiter := waitlist.NewSignupRateLimiter(
		appConfig.Config.SignupRateLimitRequests,
		appConfig.Config.SignupRateLimitWindow,
		config.GetRedisClient(appConfig.Cache),
		appConfig.Logger,
	)

	appConfig.RouterService.MountController(monitoring.NewMonitoringController(appConfig.DB, appConfig.Logger, appConfig.Cache))
	appConfig.RouterService.MountController(waitlist.NewWaitlistController(appConfig.DB, appConfig.Logger, appConfig.Notifier, signupLimiter))
	appConfig.RouterService.MountController(waitlist.NewExportController(appConfig.DB, appConfig.Logger, appConfig.Config.ExportToken, appConfig.Config.ExportMaxLimit))
	appConfig.RouterService.MountController(waitlist.NewAdminController(appConfig.DB, appConfig.Logger, appConfig.Config.AdminToken))
}
