package waitlist

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vistaforge/waitlist-api/internal/models"
	"github.com/vistaforge/waitlist-api/pkg/constants"
)

// emailPattern is the intake-facing format check: non-empty local part,
// non-empty domain, at least one dot in the domain, no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SanitizeField trims surrounding whitespace and caps the value at the
// classification-field limit. The cap lands on a rune boundary so a
// multi-byte character is never split into invalid UTF-8.
func SanitizeField(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= constants.MaxFieldLength {
		return trimmed
	}

	cut := constants.MaxFieldLength
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut]
}

// NormalizeEmail produces the identity key for idempotent intake:
// sanitized and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(SanitizeField(email))
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func IsValidRole(role string) bool {
	for _, valid := range models.ValidRoles {
		if role == valid {
			return true
		}
	}
	return false
}

// ValidateSignup checks the loose public payload. It returns the exact
// client-facing message for the first failure, or "" when valid.
func ValidateSignup(req *SignupRequest) string {
	if req == nil || strings.TrimSpace(req.Email) == "" {
		return "Email is required"
	}
	if !IsValidEmail(strings.TrimSpace(req.Email)) {
		return "Please provide a valid email address"
	}
	return ""
}

// ValidateSecureSignup checks the strict payload and returns every
// failure, not just the first. Deterministic; no side effects.
func ValidateSecureSignup(req *SecureSignupRequest) []string {
	var failures []string

	if req == nil {
		return []string{"Valid email is required"}
	}

	if req.Email == "" || !IsValidEmail(strings.TrimSpace(req.Email)) {
		failures = append(failures, "Valid email is required")
	}

	if req.Role == "" || !IsValidRole(req.Role) {
		failures = append(failures, "Valid role is required")
	}

	if req.MonthlyListings != nil && *req.MonthlyListings < 0 {
		failures = append(failures, "Monthly listings must be a positive number")
	}

	return failures
}
