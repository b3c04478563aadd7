package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
)

func newExportService(t *testing.T, maxLimit int) (*MockWaitlistRepository, ExportService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockWaitlistRepository(ctrl)
	logger := log.NewLoggerWithJSONOutput()
	return mockRepo, NewExportService(logger, mockRepo, maxLimit)
}

func TestExport_DefaultsAndNormalization(t *testing.T) {
	mockRepo, service := newExportService(t, 0)

	mockRepo.EXPECT().ListEntries(gomock.Any(), 0, 1000).Return(nil, nil)

	page, err := service.Export(context.Background(), -5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 1000, page.Limit)
	assert.Equal(t, 0, page.Count)
}

func TestExport_ConfiguredCapApplies(t *testing.T) {
	mockRepo, service := newExportService(t, 200)

	mockRepo.EXPECT().ListEntries(gomock.Any(), 10, 200).Return(nil, nil)

	page, err := service.Export(context.Background(), 10, 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, page.Limit)
}

func TestExport_UncappedWhenZero(t *testing.T) {
	mockRepo, service := newExportService(t, 0)

	mockRepo.EXPECT().ListEntries(gomock.Any(), 0, 5000).Return(nil, nil)

	_, err := service.Export(context.Background(), 0, 5000)
	require.NoError(t, err)
}

func TestComputeStats(t *testing.T) {
	jan := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	entries := []*models.WaitlistEntry{
		{Role: models.RoleArchitect, CreatedAt: jan},
		{Role: models.RoleArchitect, CreatedAt: jan, OptOut: true},
		{Role: models.RoleInvestor, CreatedAt: feb, EmailVerified: true},
		{Role: "", CreatedAt: feb},
		{Role: "", CreatedAt: feb, OptOut: true, EmailVerified: true},
	}

	stats := ComputeStats(entries)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, map[string]int{
		models.RoleArchitect: 2,
		models.RoleInvestor:  1,
		"unknown":            2,
	}, stats.ByRole)
	assert.Equal(t, map[string]int{"2025-01": 2, "2025-02": 3}, stats.ByMonth)
	assert.Equal(t, 2, stats.OptOuts)
	assert.Equal(t, 2, stats.Verified)
}

func TestComputeStats_MonthBucketsAreUTC(t *testing.T) {
	// 23:30 on Jan 31 in UTC-2 is already February in UTC.
	loc := time.FixedZone("UTC-2", -2*3600)
	entries := []*models.WaitlistEntry{
		{CreatedAt: time.Date(2025, 2, 1, 1, 30, 0, 0, time.UTC).In(loc)},
	}

	stats := ComputeStats(entries)
	assert.Equal(t, map[string]int{"2025-02": 1}, stats.ByMonth)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.ByRole)
	assert.Empty(t, stats.ByMonth)
}
