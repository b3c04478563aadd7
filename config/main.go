package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/vistaforge/waitlist-api/config/router"
	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
	"github.com/vistaforge/waitlist-api/internal/notify"
	"github.com/vistaforge/waitlist-api/pkg/constants"
	"github.com/vistaforge/waitlist-api/pkg/utils"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	Notifier        notify.Notifier
	Fanout          *notify.Fanout
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration

	// Signup endpoints run on their own fixed window, far below the router default.
	SignupRateLimitRequests int
	SignupRateLimitWindow   time.Duration

	// Bearer tokens for the export and admin surfaces. Empty disables the surface.
	ExportToken string
	AdminToken  string

	// ExportMaxLimit caps the `limit` query parameter on exports. 0 means uncapped.
	ExportMaxLimit int

	Mailchimp *notify.MailchimpConfig
	Slack     *notify.SlackConfig
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{
		RateLimitRequests:       constants.DefaultRateLimitRequests,
		RateLimitWindow:         constants.DefaultRateLimitWindow(),
		RequestTimeout:          30 * time.Second, // Default request timeout
		SignupRateLimitRequests: constants.SignupRateLimitRequests,
		SignupRateLimitWindow:   constants.SignupRateLimitWindow(),
		ExportToken:             utils.GetEnvTrimmed("WAITLIST_EXPORT_TOKEN"),
		AdminToken:              utils.GetEnvTrimmed("ADMIN_API_TOKEN"),
		Mailchimp: &notify.MailchimpConfig{
			APIKey:       utils.GetEnvTrimmed("MAILCHIMP_API_KEY"),
			ListID:       utils.GetEnvTrimmed("MAILCHIMP_LIST_ID"),
			ServerPrefix: utils.GetEnvTrimmed("MAILCHIMP_SERVER_PREFIX"),
		},
		Slack: &notify.SlackConfig{
			WebhookURL: utils.GetEnvTrimmed("SLACK_WEBHOOK_URL"),
		},
	}

	// Override from environment variables
	if reqStr := os.Getenv("RATE_LIMIT_REQUESTS"); reqStr != "" {
		if parsed, err := strconv.Atoi(reqStr); err == nil && parsed > 0 {
			config.RateLimitRequests = parsed
		}
	}

	if winStr := os.Getenv("RATE_LIMIT_WINDOW"); winStr != "" {
		if parsed, err := time.ParseDuration(winStr); err == nil && parsed > 0 {
			config.RateLimitWindow = parsed
		}
	}

	if timeoutStr := os.Getenv("REQUEST_TIMEOUT"); timeoutStr != "" {
		if parsed, err := time.ParseDuration(timeoutStr); err == nil && parsed > 0 {
			config.RequestTimeout = parsed
		}
	}

	if reqStr := os.Getenv("SIGNUP_RATE_LIMIT_REQUESTS"); reqStr != "" {
		if parsed, err := strconv.Atoi(reqStr); err == nil && parsed > 0 {
			config.SignupRateLimitRequests = parsed
		}
	}

	if winStr := os.Getenv("SIGNUP_RATE_LIMIT_WINDOW"); winStr != "" {
		if parsed, err := time.ParseDuration(winStr); err == nil && parsed > 0 {
			config.SignupRateLimitWindow = parsed
		}
	}

	if limitStr := os.Getenv("EXPORT_MAX_LIMIT"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed >= 0 {
			config.ExportMaxLimit = parsed
		}
	}

	return config
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.Fanout != nil {
		// Let in-flight notification deliveries drain before teardown.
		ac.Fanout.Wait()
	}

	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	dbCfg := &DBConfig{}
	db, err := NewDatabase(logger, dbCfg)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
	})

	channels := notify.BuildChannels(appConfig.Mailchimp, appConfig.Slack)

	var notifier notify.Notifier = notify.NopNotifier{}
	var fanout *notify.Fanout

	if len(channels) > 0 {
		fanout = notify.NewFanout(logger, channels...)
		notifier = fanout
		logger.Info("Notification fan-out enabled", "channels", len(channels))
	} else {
		logger.Info("No notification channels configured; signups will not fan out")
	}

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		Notifier:        notifier,
		Fanout:          fanout,
		TracingShutdown: tracingShutdown,
	}, nil
}
