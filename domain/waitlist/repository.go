package waitlist

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vistaforge/waitlist-api/internal/models"
	apperrors "github.com/vistaforge/waitlist-api/pkg/errors"
)

type WaitlistRepository interface {
	// CreateEntry persists a new waitlist entry.
	CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// FindEntryByEmail looks an entry up by normalized email. Returns
	// (nil, nil) when no entry exists; absence is the normal case on the
	// intake path, not an error.
	FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	// ListEntries returns a page of entries ordered by created_at descending.
	ListEntries(ctx context.Context, offset, limit int) ([]*models.WaitlistEntry, error)
	// AllEntries returns every entry ordered by created_at descending.
	AllEntries(ctx context.Context) ([]*models.WaitlistEntry, error)
}

// Client-facing copy for persistence failures, split by path so the export
// and stats surfaces never show signup wording.
const (
	publicSignupFailure = "Failed to join waitlist. Please try again."
	publicFetchFailure  = "Failed to fetch waitlist data"
)

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := wr.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.NewConflictError("waitlist entry with this email already exists", err)
		}
		return nil, apperrors.NewDatabaseError("unable to create waitlist entry", err).WithPublicMessage(publicSignupFailure)
	}

	return entry, nil
}

func (wr *waitlistRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	err := wr.db.WithContext(ctx).Where("email = ?", email).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("failed to look up waitlist entry", err).WithPublicMessage(publicSignupFailure)
	}

	return &entry, nil
}

func (wr *waitlistRepository) ListEntries(ctx context.Context, offset, limit int) ([]*models.WaitlistEntry, error) {
	var entries []*models.WaitlistEntry

	query := wr.db.WithContext(ctx).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist entries", err).WithPublicMessage(publicFetchFailure)
	}

	return entries, nil
}

func (wr *waitlistRepository) AllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	var entries []*models.WaitlistEntry

	if err := wr.db.WithContext(ctx).Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist entries", err).WithPublicMessage(publicFetchFailure)
	}

	return entries, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
