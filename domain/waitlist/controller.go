package waitlist

import (
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/vistaforge/waitlist-api/config/router"
	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/notify"
	apperrors "github.com/vistaforge/waitlist-api/pkg/errors"
	"github.com/vistaforge/waitlist-api/pkg/ratelimit"
)

func NewWaitlistController(
	db *gorm.DB,
	logger *log.Logger,
	notifier notify.Notifier,
	limiter ratelimit.RateLimiter,
) *router.RESTController {

	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			repository := NewWaitlistRepository(db)
			service := NewSignupService(logger, repository, notifier)

			rs.AddPostHandler(c, limiter, "", signupHandler(service))
			rs.AddPostHandler(c, limiter, "secure", secureSignupHandler(service))
		},
	)
}

// NewSignupRateLimiter builds the fixed-window limiter for the signup
// endpoints. With a Redis client the window is shared across instances;
// without one it is process-local and the effective limit multiplies by
// instance count.
func NewSignupRateLimiter(requests int, window time.Duration, redisClient *redis.Client, logger ratelimit.Logger) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests:  requests,
		Window:    window,
		Algorithm: ratelimit.AlgorithmFixedWindow,
		Redis:     redisClient,
		Scope:     "signup",
		Logger:    logger,
	})
}

func clientContext(ctx *router.RequestContext) *ClientContext {
	return &ClientContext{
		Address:   router.ClientAddress(ctx),
		UserAgent: ctx.GetHeader("User-Agent"),
		Referrer:  ctx.GetHeader("Referer"),
	}
}

func signupHandler(service SignupService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SignupRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind signup request", "error", err)
			return router.BadRequestResult("Invalid request body")
		}

		response, err := service.Submit(ctx.Request.Context(), &req, clientContext(ctx))
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
			)
		}

		return signupResult(response)
	}
}

func secureSignupHandler(service SignupService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SecureSignupRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind secure signup request", "error", err)

			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if len(validationErrors) > 0 {
				return router.ValidationErrorResult("Validation failed", validationErrors)
			}

			return router.BadRequestResult("Invalid request body")
		}

		if failures := ValidateSecureSignup(&req); len(failures) > 0 {
			return router.ValidationErrorResult("Validation failed", failures)
		}

		response, err := service.SubmitSecure(ctx.Request.Context(), &req, clientContext(ctx))
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
			)
		}

		return signupResult(response)
	}
}

func signupResult(response *SignupResponse) *router.ServiceResult {
	payload := map[string]any{"id": response.ID}
	if response.AlreadyExists {
		payload["alreadyExists"] = true
	}
	return router.OKResult(response.Message, payload)
}
