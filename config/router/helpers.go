package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vistaforge/waitlist-api/internal/log"
)

func GetLogger(ctx *RequestContext) *log.Logger {
	if logger := ctx.Request.Context().Value(log.LoggerKeyForContext); logger != nil {
		if l, ok := logger.(*log.Logger); ok {
			return l
		}
	}

	baseLogger := log.NewLoggerWithJSONOutput()
	return baseLogger.WithCorrelationID(ctx.Request.Context())
}

// ClientAddress derives the rate-limit/meta key for a request: the first
// X-Forwarded-For entry, then X-Real-IP, then the CDN client-IP header,
// else "unknown". The sentinel is deliberately one shared bucket for all
// unidentified clients.
func ClientAddress(ctx *RequestContext) string {
	if forwarded := ctx.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := ctx.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}
	if cfIP := ctx.GetHeader("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}
	return "unknown"
}

// BearerToken extracts the token from an Authorization: Bearer header,
// returning "" when absent or malformed.
func BearerToken(ctx *RequestContext) string {
	header := ctx.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func successBody(message string, payload gin.H) gin.H {
	body := gin.H{"ok": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return body
}

func errorBody(message string) gin.H {
	return gin.H{"ok": false, "error": message}
}

// OKResult renders 200 with the success envelope; payload fields are merged
// into the top level of the body.
func OKResult(message string, payload gin.H) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Body:       successBody(message, payload),
	}
}

// RawResult renders a non-JSON payload (e.g. a CSV download) verbatim.
func RawResult(statusCode int, contentType string, body []byte, headers map[string]string) *ServiceResult {
	return &ServiceResult{
		StatusCode:     statusCode,
		rawBody:        body,
		rawContentType: contentType,
		rawHeaders:     headers,
	}
}

func ErrorResult(statusCode int, message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Body:       errorBody(message),
	}
}

func BadRequestResult(message string) *ServiceResult {
	return ErrorResult(http.StatusBadRequest, message)
}

// ValidationErrorResult carries field-level details alongside the error text.
func ValidationErrorResult(message string, details any) *ServiceResult {
	body := errorBody(message)
	if details != nil {
		body["details"] = details
	}
	return &ServiceResult{
		StatusCode: http.StatusBadRequest,
		Body:       body,
	}
}

func UnauthorizedResult(message string) *ServiceResult {
	return ErrorResult(http.StatusUnauthorized, message)
}

func NotFoundResult(message string) *ServiceResult {
	return ErrorResult(http.StatusNotFound, message)
}

func InternalServerErrorResult(message string) *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, message)
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	body := errorBody("Too many requests. Please try again later.")
	body["limit"] = data.Limit
	body["window"] = data.Window
	body["retry_after"] = data.RetryAfter
	return &ServiceResult{
		StatusCode: http.StatusTooManyRequests,
		Body:       body,
	}
}
