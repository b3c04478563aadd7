package waitlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
	apperrors "github.com/vistaforge/waitlist-api/pkg/errors"
)

type recordingNotifier struct {
	mu      sync.Mutex
	entries []*models.WaitlistEntry
}

func (r *recordingNotifier) Notify(entry *models.WaitlistEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func newTestService(t *testing.T) (*MockWaitlistRepository, *recordingNotifier, SignupService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockWaitlistRepository(ctrl)
	notifier := &recordingNotifier{}
	logger := log.NewLoggerWithJSONOutput()
	service := NewSignupService(logger, mockRepo, notifier)
	return mockRepo, notifier, service
}

func testClient() *ClientContext {
	return &ClientContext{
		Address:   "1.1.1.1",
		UserAgent: "test-agent",
		Referrer:  "https://vistaforge.example/landing",
	}
}

func TestSubmit_MissingEmail(t *testing.T) {
	_, notifier, service := newTestService(t)

	result, err := service.Submit(context.Background(), &SignupRequest{Name: "Ada"}, testClient())
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
	assert.Equal(t, "Email is required", apperrors.GetHumanReadableMessage(err))
	assert.Zero(t, notifier.count())
}

func TestSubmit_InvalidEmailPattern(t *testing.T) {
	_, _, service := newTestService(t)

	for _, email := range []string{"plainaddress", "no@tld", "spaces in@mail.com", "@missing-local.com"} {
		result, err := service.Submit(context.Background(), &SignupRequest{Email: email}, testClient())
		assert.Error(t, err, "email %q should be rejected", email)
		assert.Nil(t, result)
		assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
	}
}

func TestSubmit_NewSignup(t *testing.T) {
	mockRepo, notifier, service := newTestService(t)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(nil, nil)
	mockRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.Equal(t, "ada@example.com", entry.Email)
			assert.Equal(t, "Ada", entry.Name)
			assert.Equal(t, "landing_page", entry.Source)
			assert.Equal(t, "https://vistaforge.example/landing", entry.Referrer)
			assert.Equal(t, "test-agent", entry.Meta.UserAgent)
			assert.Equal(t, "1.1.1.1", entry.Meta.IP)
			_, parseErr := time.Parse(time.RFC3339, entry.Meta.Timestamp)
			assert.NoError(t, parseErr)

			entry.ID = "entry-1"
			return entry, nil
		})

	result, err := service.Submit(context.Background(), &SignupRequest{
		Name:  "  Ada  ",
		Email: " Ada@Example.COM ",
	}, testClient())

	assert.NoError(t, err)
	assert.Equal(t, "entry-1", result.ID)
	assert.False(t, result.AlreadyExists)
	assert.Equal(t, 1, notifier.count())
}

func TestSubmit_DuplicateEmailIsIdempotentSuccess(t *testing.T) {
	mockRepo, notifier, service := newTestService(t)

	existing := &models.WaitlistEntry{ID: "entry-1", Email: "ada@example.com"}
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(existing, nil)

	result, err := service.Submit(context.Background(), &SignupRequest{Email: "ada@example.com"}, testClient())

	assert.NoError(t, err)
	assert.Equal(t, "entry-1", result.ID)
	assert.True(t, result.AlreadyExists)
	assert.NotEmpty(t, result.Message)
	assert.Zero(t, notifier.count(), "duplicate signup must not re-notify")
}

func TestSubmit_RepeatSignupFlagsAlreadyExists(t *testing.T) {
	mockRepo, _, service := newTestService(t)

	created := &models.WaitlistEntry{ID: "entry-1", Email: "ada@example.com"}

	first := mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(nil, nil)
	mockRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(created, nil)
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(created, nil).After(first)

	req := &SignupRequest{Email: "ada@example.com"}

	firstResult, err := service.Submit(context.Background(), req, testClient())
	assert.NoError(t, err)
	secondResult, err := service.Submit(context.Background(), req, testClient())
	assert.NoError(t, err)

	assert.Equal(t, firstResult.ID, secondResult.ID)
	assert.False(t, firstResult.AlreadyExists)
	assert.True(t, secondResult.AlreadyExists)
	assert.NotEqual(t, firstResult.Message, secondResult.Message)
}

func TestSubmit_InsertConflictConvergesToSuccess(t *testing.T) {
	mockRepo, _, service := newTestService(t)

	winner := &models.WaitlistEntry{ID: "entry-1", Email: "ada@example.com"}

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(nil, nil)
	mockRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.NewConflictError("waitlist entry with this email already exists", nil))
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(winner, nil)

	result, err := service.Submit(context.Background(), &SignupRequest{Email: "ada@example.com"}, testClient())

	assert.NoError(t, err)
	assert.Equal(t, "entry-1", result.ID)
	assert.True(t, result.AlreadyExists)
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	mockRepo, notifier, service := newTestService(t)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(nil, nil)
	mockRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.NewDatabaseError("unable to create waitlist entry", nil))

	result, err := service.Submit(context.Background(), &SignupRequest{Email: "ada@example.com"}, testClient())

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
	assert.Zero(t, notifier.count())
}

func TestSubmitSecure_InvalidRole(t *testing.T) {
	_, _, service := newTestService(t)

	result, err := service.SubmitSecure(context.Background(), &SecureSignupRequest{
		Email: "ada@example.com",
		Role:  "astronaut",
	}, testClient())

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestSubmitSecure_NegativeMonthlyListings(t *testing.T) {
	_, _, service := newTestService(t)

	negative := -3
	result, err := service.SubmitSecure(context.Background(), &SecureSignupRequest{
		Email:           "ada@example.com",
		Role:            models.RoleArchitect,
		MonthlyListings: &negative,
	}, testClient())

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestSubmitSecure_Success(t *testing.T) {
	mockRepo, notifier, service := newTestService(t)

	listings := 12
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ada@example.com").Return(nil, nil)
	mockRepo.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.Equal(t, models.RoleArchitect, entry.Role)
			assert.Equal(t, "Studio A", entry.Company)
			assert.Equal(t, "secure_signup", entry.Source)
			assert.Equal(t, &listings, entry.MonthlyListings)

			entry.ID = "entry-2"
			return entry, nil
		})

	result, err := service.SubmitSecure(context.Background(), &SecureSignupRequest{
		Email:           "Ada@Example.com",
		Role:            models.RoleArchitect,
		Company:         " Studio A ",
		MonthlyListings: &listings,
		HowHeard:        "twitter",
	}, testClient())

	assert.NoError(t, err)
	assert.Equal(t, "entry-2", result.ID)
	assert.False(t, result.AlreadyExists)
	assert.Equal(t, 1, notifier.count())
}
