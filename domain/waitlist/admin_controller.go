package waitlist

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/vistaforge/waitlist-api/config/router"
	"github.com/vistaforge/waitlist-api/internal/log"
	apperrors "github.com/vistaforge/waitlist-api/pkg/errors"
)

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// NewExportController mounts GET /v1/waitlist/export behind the export
// bearer token. An unconfigured token keeps the endpoint closed.
func NewExportController(
	db *gorm.DB,
	logger *log.Logger,
	exportToken string,
	exportMaxLimit int,
) *router.RESTController {

	return router.NewVersionedRESTController(
		"WaitlistExportController",
		"v1",
		"/waitlist/export",
		func(rs *router.RouterService, c *router.RESTController) {
			repository := NewWaitlistRepository(db)
			service := NewExportService(logger, repository, exportMaxLimit)

			rs.AddGetHandler(c, nil, "", exportHandler(service, exportToken))
		},
	)
}

// NewAdminController mounts GET /v1/admin/waitlist behind the elevated
// admin token: format=csv streams the full dump, anything else returns
// aggregate statistics.
func NewAdminController(
	db *gorm.DB,
	logger *log.Logger,
	adminToken string,
) *router.RESTController {

	return router.NewVersionedRESTController(
		"AdminWaitlistController",
		"v1",
		"/admin/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			repository := NewWaitlistRepository(db)
			service := NewExportService(logger, repository, 0)

			rs.AddGetHandler(c, nil, "", adminHandler(service, adminToken))
		},
	)
}

// authorize compares the presented bearer token against the configured
// secret. It must run before any repository read; an empty secret rejects
// everything.
func authorize(ctx *router.RequestContext, secret string) *router.ServiceResult {
	logger := router.GetLogger(ctx)

	if secret == "" {
		logger.Warn("Export token not configured; rejecting request")
		return router.UnauthorizedResult("Unauthorized")
	}

	presented := router.BearerToken(ctx)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
		logger.Warn("Export auth failed", "client", router.ClientAddress(ctx))
		return router.UnauthorizedResult("Unauthorized")
	}

	return nil
}

func exportHandler(service ExportService, token string) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		if denied := authorize(ctx, token); denied != nil {
			return denied
		}

		format := ctx.DefaultQuery("format", formatCSV)
		offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

		page, err := service.Export(ctx.Request.Context(), offset, limit)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
			)
		}

		if format == formatJSON {
			return router.OKResult("", map[string]any{
				"data":   page.Entries,
				"count":  page.Count,
				"offset": page.Offset,
				"limit":  page.Limit,
			})
		}

		body, err := RenderExportCSV(page.Entries)
		if err != nil {
			router.GetLogger(ctx).Error("Failed to render export CSV", "error", err)
			return router.InternalServerErrorResult("Failed to render export")
		}

		return router.RawResult(http.StatusOK, "text/csv; charset=utf-8", body, map[string]string{
			"Content-Disposition": `attachment; filename="waitlist.csv"`,
		})
	}
}

func adminHandler(service ExportService, token string) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		if denied := authorize(ctx, token); denied != nil {
			return denied
		}

		if ctx.Query("format") == formatCSV {
			entries, err := service.Dump(ctx.Request.Context())
			if err != nil {
				return router.ErrorResult(
					apperrors.HTTPStatusCode(err),
					apperrors.GetHumanReadableMessage(err),
				)
			}

			body, renderErr := RenderAdminCSV(entries)
			if renderErr != nil {
				router.GetLogger(ctx).Error("Failed to render admin CSV", "error", renderErr)
				return router.InternalServerErrorResult("Failed to render export")
			}

			return router.RawResult(http.StatusOK, "text/csv; charset=utf-8", body, map[string]string{
				"Content-Disposition": `attachment; filename="waitlist-export.csv"`,
			})
		}

		stats, err := service.Stats(ctx.Request.Context())
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
			)
		}

		return router.OKResult("", map[string]any{"data": stats})
	}
}
