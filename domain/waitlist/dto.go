package waitlist

import (
	"github.com/vistaforge/waitlist-api/internal/models"
)

// SignupRequest is the loose public payload. Shape checks happen in the
// pure validator so the wire messages stay exact; nothing here is bound
// beyond JSON decoding.
type SignupRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Source string `json:"source"`
}

// SecureSignupRequest is the strict alternate-entrypoint payload.
type SecureSignupRequest struct {
	Email           string `json:"email" binding:"required"`
	Role            string `json:"role" binding:"required,oneof=real_estate_agent property_developer architect interior_designer property_manager investor other"`
	Company         string `json:"company" binding:"omitempty,max=255"`
	MonthlyListings *int   `json:"monthly_listings" binding:"omitempty,gte=0"`
	HowHeard        string `json:"how_heard" binding:"omitempty,max=255"`
}

// ClientContext carries the request-derived intake context: the derived
// client address, the user agent, and the referring page.
type ClientContext struct {
	Address   string
	UserAgent string
	Referrer  string
}

// SignupResponse is the tagged intake outcome. Created and AlreadyExisted
// share one success status; AlreadyExists is the only discriminator.
type SignupResponse struct {
	ID            string `json:"id"`
	AlreadyExists bool   `json:"alreadyExists"`
	Message       string `json:"-"`
}

type ExportPage struct {
	Entries []*models.WaitlistEntry
	Count   int
	Offset  int
	Limit   int
}

type StatsResponse struct {
	Total    int            `json:"total"`
	ByRole   map[string]int `json:"byRole"`
	ByMonth  map[string]int `json:"byMonth"`
	OptOuts  int            `json:"optOuts"`
	Verified int            `json:"verified"`
}
