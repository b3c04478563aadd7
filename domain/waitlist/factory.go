package waitlist

import (
	"gorm.io/gorm"

	"github.com/vistaforge/waitlist-api/config/router"
	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/notify"
	"github.com/vistaforge/waitlist-api/pkg/ratelimit"
)

type WaitlistServiceFactory interface {
	CreateSignupService() SignupService
	CreateExportService(maxLimit int) ExportService
	CreateController(limiter ratelimit.RateLimiter) *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	db       *gorm.DB
	logger   *log.Logger
	notifier notify.Notifier
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, notifier notify.Notifier) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:       db,
		logger:   logger,
		notifier: notifier,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateSignupService() SignupService {
	repository := NewWaitlistRepository(f.db)
	return NewSignupService(f.logger, repository, f.notifier)
}

func (f *DefaultWaitlistServiceFactory) CreateExportService(maxLimit int) ExportService {
	repository := NewWaitlistRepository(f.db)
	return NewExportService(f.logger, repository, maxLimit)
}

func (f *DefaultWaitlistServiceFactory) CreateController(limiter ratelimit.RateLimiter) *router.RESTController {
	return NewWaitlistController(f.db, f.logger, f.notifier, limiter)
}
