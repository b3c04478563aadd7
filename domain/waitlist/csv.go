package waitlist

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/vistaforge/waitlist-api/internal/models"
	"github.com/vistaforge/waitlist-api/pkg/constants"
)

// Column orders are fixed wire contracts. The export set flattens
// meta.userAgent and meta.ip into top-level columns; the admin set adds the
// lifecycle flags instead.
var (
	exportColumns = []string{"id", "created_at", "name", "email", "role", "source", "referrer", "user_agent", "ip"}
	adminColumns  = []string{"id", "name", "email", "role", "source", "referrer", "created_at", "opt_out", "email_verified"}
)

// RenderExportCSV serializes entries in the export column order. An empty
// set still yields the header row.
func RenderExportCSV(entries []*models.WaitlistEntry) ([]byte, error) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ID,
			entry.CreatedAt.UTC().Format(constants.RFC3339DateTimeFormat),
			entry.Name,
			entry.Email,
			entry.Role,
			entry.Source,
			entry.Referrer,
			entry.Meta.UserAgent,
			entry.Meta.IP,
		})
	}

	return renderCSV(exportColumns, rows)
}

// RenderAdminCSV serializes the full dump with opt-out and verification
// columns.
func RenderAdminCSV(entries []*models.WaitlistEntry) ([]byte, error) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ID,
			entry.Name,
			entry.Email,
			entry.Role,
			entry.Source,
			entry.Referrer,
			entry.CreatedAt.UTC().Format(constants.RFC3339DateTimeFormat),
			strconv.FormatBool(entry.OptOut),
			strconv.FormatBool(entry.EmailVerified),
		})
	}

	return renderCSV(adminColumns, rows)
}

func renderCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
