package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
	"github.com/vistaforge/waitlist-api/internal/notify"
	"github.com/vistaforge/waitlist-api/pkg/constants"
	apperrors "github.com/vistaforge/waitlist-api/pkg/errors"
)

const (
	defaultSource   = "landing_page"
	secureSource    = "secure_signup"
	defaultReferrer = "direct"
)

const (
	messageJoined        = "Thanks — you are on the waitlist! We will notify you when VistaForge is ready."
	messageAlreadyJoined = "You are already on the waitlist! We will notify you when VistaForge is ready."
	messageSecureJoined  = "Successfully joined the waitlist"
)

type SignupService interface {
	// Submit runs the loose public intake: validate, normalize, idempotent
	// lookup, insert, fan-out.
	Submit(ctx context.Context, req *SignupRequest, client *ClientContext) (*SignupResponse, error)

	// SubmitSecure runs the strict-schema intake. The payload is assumed to
	// have passed ValidateSecureSignup.
	SubmitSecure(ctx context.Context, req *SecureSignupRequest, client *ClientContext) (*SignupResponse, error)
}

type signupService struct {
	logger     *log.Logger
	repository WaitlistRepository
	notifier   notify.Notifier
	now        func() time.Time
}

func NewSignupService(logger *log.Logger, repository WaitlistRepository, notifier notify.Notifier) SignupService {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &signupService{
		logger:     logger,
		repository: repository,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *signupService) Submit(ctx context.Context, req *SignupRequest, client *ClientContext) (*SignupResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if msg := ValidateSignup(req); msg != "" {
		logger.Warn("Signup rejected by validation", "reason", msg)
		return nil, apperrors.NewInvalidRequestError(msg, nil)
	}

	source := SanitizeField(req.Source)
	if source == "" {
		source = defaultSource
	}

	entry := &models.WaitlistEntry{
		Email:  NormalizeEmail(req.Email),
		Name:   SanitizeField(req.Name),
		Role:   SanitizeField(req.Role),
		Source: source,
	}

	return s.intake(ctx, logger, entry, client, messageJoined)
}

func (s *signupService) SubmitSecure(ctx context.Context, req *SecureSignupRequest, client *ClientContext) (*SignupResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if failures := ValidateSecureSignup(req); len(failures) > 0 {
		logger.Warn("Secure signup rejected by validation", "failures", failures)
		return nil, apperrors.NewInvalidRequestError(failures[0], nil)
	}

	entry := &models.WaitlistEntry{
		Email:           NormalizeEmail(req.Email),
		Role:            req.Role,
		Company:         SanitizeField(req.Company),
		MonthlyListings: req.MonthlyListings,
		HowHeard:        SanitizeField(req.HowHeard),
		Source:          secureSource,
	}

	return s.intake(ctx, logger, entry, client, messageSecureJoined)
}

// intake is the shared idempotent insert path. The normalized email is the
// only identity key; a hit on the lookup or a unique-key conflict on the
// insert both converge to the already-exists success.
func (s *signupService) intake(
	ctx context.Context,
	logger *log.Logger,
	entry *models.WaitlistEntry,
	client *ClientContext,
	successMessage string,
) (*SignupResponse, error) {
	existing, err := s.repository.FindEntryByEmail(ctx, entry.Email)
	if err != nil {
		logger.Error("Failed to look up waitlist entry", "error", err)
		return nil, err
	}

	if existing != nil {
		logger.Info("Duplicate signup converged to existing entry", "id", existing.ID)
		return &SignupResponse{
			ID:            existing.ID,
			AlreadyExists: true,
			Message:       messageAlreadyJoined,
		}, nil
	}

	entry.Referrer = client.Referrer
	if entry.Referrer == "" {
		entry.Referrer = defaultReferrer
	}

	entry.Meta = models.EntryMeta{
		UserAgent: client.UserAgent,
		IP:        client.Address,
		Timestamp: s.now().UTC().Format(constants.RFC3339DateTimeFormat),
	}

	created, err := s.repository.CreateEntry(ctx, entry)
	if err != nil {
		// Two concurrent first signups can race past the lookup; the unique
		// index decides, and the loser converges to the same success.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeConflict {
			winner, lookupErr := s.repository.FindEntryByEmail(ctx, entry.Email)
			if lookupErr == nil && winner != nil {
				logger.Info("Insert conflict converged to existing entry", "id", winner.ID)
				return &SignupResponse{
					ID:            winner.ID,
					AlreadyExists: true,
					Message:       messageAlreadyJoined,
				}, nil
			}
		}

		logger.Error("Failed to create waitlist entry", "error", err)
		return nil, err
	}

	logger.Info("Waitlist entry created", "id", created.ID, "source", created.Source)

	s.notifier.Notify(created)

	return &SignupResponse{
		ID:      created.ID,
		Message: successMessage,
	}, nil
}
