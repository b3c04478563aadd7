package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// MonthBucketFormat is the UTC calendar-month partition key used by waitlist statistics.
const MonthBucketFormat = "2006-01"

// Default rate limiting configuration for the router-wide limiter.
const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindowMinutes is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1
)

// Signup intake limits. The signup endpoints are public and unauthenticated,
// so they run far below the router default.
const (
	SignupRateLimitRequests      = 5
	SignupRateLimitWindowSeconds = 60
)

// MaxFieldLength caps every free-form classification string at intake.
const MaxFieldLength = 255

// DefaultExportLimit is the page size applied when an export request omits `limit`.
const DefaultExportLimit = 1000

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// SignupRateLimitWindow returns the fixed window applied to signup endpoints.
func SignupRateLimitWindow() time.Duration {
	return SignupRateLimitWindowSeconds * time.Second
}
