package waitlist

import (
	"context"

	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
	"github.com/vistaforge/waitlist-api/pkg/constants"
)

type ExportService interface {
	// Export reads a page of entries ordered by created_at descending.
	// limit <= 0 falls back to the default page size; a configured cap
	// bounds oversized requests.
	Export(ctx context.Context, offset, limit int) (*ExportPage, error)

	// Dump reads every entry, newest first, for the admin CSV.
	Dump(ctx context.Context) ([]*models.WaitlistEntry, error)

	// Stats aggregates all entries. Full scan; acceptable at waitlist volume.
	Stats(ctx context.Context) (*StatsResponse, error)
}

type exportService struct {
	logger     *log.Logger
	repository WaitlistRepository
	maxLimit   int
}

// NewExportService builds the read-side service. maxLimit 0 leaves export
// page sizes uncapped.
func NewExportService(logger *log.Logger, repository WaitlistRepository, maxLimit int) ExportService {
	return &exportService{
		logger:     logger,
		repository: repository,
		maxLimit:   maxLimit,
	}
}

func (s *exportService) Export(ctx context.Context, offset, limit int) (*ExportPage, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = constants.DefaultExportLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		logger.Warn("Export limit capped", "requested", limit, "cap", s.maxLimit)
		limit = s.maxLimit
	}

	entries, err := s.repository.ListEntries(ctx, offset, limit)
	if err != nil {
		logger.Error("Failed to read waitlist entries for export", "error", err)
		return nil, err
	}

	return &ExportPage{
		Entries: entries,
		Count:   len(entries),
		Offset:  offset,
		Limit:   limit,
	}, nil
}

func (s *exportService) Dump(ctx context.Context) ([]*models.WaitlistEntry, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entries, err := s.repository.AllEntries(ctx)
	if err != nil {
		logger.Error("Failed to read waitlist entries for dump", "error", err)
		return nil, err
	}

	return entries, nil
}

func (s *exportService) Stats(ctx context.Context) (*StatsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entries, err := s.repository.AllEntries(ctx)
	if err != nil {
		logger.Error("Failed to read waitlist entries for stats", "error", err)
		return nil, err
	}

	return ComputeStats(entries), nil
}

// ComputeStats is the pure aggregation over a set of entries: totals,
// role buckets (empty role folds into "unknown"), UTC calendar-month
// buckets, opt-out and verification counts.
func ComputeStats(entries []*models.WaitlistEntry) *StatsResponse {
	stats := &StatsResponse{
		Total:   len(entries),
		ByRole:  make(map[string]int),
		ByMonth: make(map[string]int),
	}

	for _, entry := range entries {
		role := entry.Role
		if role == "" {
			role = "unknown"
		}
		stats.ByRole[role]++

		month := entry.CreatedAt.UTC().Format(constants.MonthBucketFormat)
		stats.ByMonth[month]++

		if entry.OptOut {
			stats.OptOuts++
		}
		if entry.EmailVerified {
			stats.Verified++
		}
	}

	return stats
}
