package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles accepted by the strict signup variant.
const (
	RoleRealEstateAgent  = "real_estate_agent"
	RolePropertyDevelop  = "property_developer"
	RoleArchitect        = "architect"
	RoleInteriorDesigner = "interior_designer"
	RolePropertyManager  = "property_manager"
	RoleInvestor         = "investor"
	RoleOther            = "other"
)

// ValidRoles is the fixed enumerated set for the strict signup schema.
var ValidRoles = []string{
	RoleRealEstateAgent,
	RolePropertyDevelop,
	RoleArchitect,
	RoleInteriorDesigner,
	RolePropertyManager,
	RoleInvestor,
	RoleOther,
}

// EntryMeta is the informational intake context. It is never used for
// matching or dedup; the normalized email is the only identity key.
type EntryMeta struct {
	UserAgent string `json:"userAgent"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// WaitlistEntry is the persisted signup record, uniquely keyed by normalized
// email. Entries are created exactly once per email and never updated or
// deleted by the intake pipeline; opt_out and email_verified are mutated by
// processes outside its scope.
type WaitlistEntry struct {
	ID              string    `gorm:"type:text;primaryKey" json:"id"`
	Email           string    `gorm:"not null;uniqueIndex" json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Company         string    `json:"company"`
	MonthlyListings *int      `json:"monthly_listings"`
	HowHeard        string    `json:"how_heard"`
	Source          string    `json:"source"`
	Referrer        string    `json:"referrer"`
	Meta            EntryMeta `gorm:"serializer:json" json:"meta"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
	OptOut          bool      `gorm:"not null;default:false" json:"opt_out"`
	EmailVerified   bool      `gorm:"not null;default:false" json:"email_verified"`
}

func (e *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
