package guardian

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pensezy/edutrack/core"
)

// Relationship kinds
const (
	KindFather   = "father"
	KindMother   = "mother"
	KindGuardian = "guardian"
	KindOther    = "other"
)

var AllKinds = []string{KindFather, KindMother, KindGuardian, KindOther}

// GuardianIdentity is the single tenant-independent record for one
// physical guardian. Its ID (the global guardian id) never changes and
// is never scoped to a school.
type GuardianIdentity struct {
	ID          string      `db:"id" json:"id"`
	DisplayName string      `db:"display_name" json:"display_name"`
	Email       null.String `db:"email" json:"email"`
	Phone       null.String `db:"phone" json:"phone"`
	Address     null.String `db:"address" json:"address"`
	Profession  null.String `db:"profession" json:"profession"`
	DedupKey    string      `db:"dedup_key" json:"-"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// GuardianRelationship binds one GuardianIdentity to one Student within
// exactly one School. The row is visible and mutable only inside its
// own school's tenant boundary.
type GuardianRelationship struct {
	ID               string    `db:"id" json:"id"`
	GuardianID       string    `db:"guardian_id" json:"guardian_id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	SchoolID         string    `db:"school_id" json:"school_id"`
	Kind             string    `db:"kind" json:"kind"`
	PrimaryContact   bool      `db:"primary_contact" json:"primary_contact"`
	PickupAuthorized bool      `db:"pickup_authorized" json:"pickup_authorized"`
	EmergencyContact bool      `db:"emergency_contact" json:"emergency_contact"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ChildLink is one (student, school) pair of a guardian's portal view.
type ChildLink struct {
	StudentID string `db:"student_id" json:"student_id"`
	SchoolID  string `db:"school_id" json:"school_id"`
	Kind      string `db:"kind" json:"kind"`
}

// ContactInfo carries a guardian's contact attributes. At least one of
// Email or Phone is required: one of them is the identity's dedup key.
type ContactInfo struct {
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Profession string `json:"profession"`
}

// DedupKey derives the canonical business key a guardian identity is
// deduplicated by: the normalized email when present, else the
// normalized phone number.
func (ci ContactInfo) DedupKey() string {
	if email := core.NormalizeEmail(ci.Email); email != "" {
		return email
	}
	return core.NormalizePhone(ci.Phone)
}

// NewGuardian contains information needed to create a GuardianIdentity.
type NewGuardian struct {
	DisplayName string      `json:"display_name" validate:"required"`
	Contact     ContactInfo `json:"contact"`
}

func (ng *NewGuardian) Validate() error {
	ng.DisplayName = core.CleanString(ng.DisplayName)
	ng.Contact.Email = core.NormalizeEmail(ng.Contact.Email)
	ng.Contact.Phone = core.NormalizePhone(ng.Contact.Phone)
	ng.Contact.Address = core.CleanString(ng.Contact.Address)
	ng.Contact.Profession = core.CleanString(ng.Contact.Profession)
	return core.Validate.Struct(ng)
}

// NewRelationship contains information needed to link a guardian to a
// student; the school comes from the caller's scope, never from here.
type NewRelationship struct {
	GuardianID       string `json:"guardian_id" validate:"required"`
	StudentID        string `json:"student_id" validate:"required"`
	Kind             string `json:"kind" validate:"required,relkind"`
	PrimaryContact   bool   `json:"primary_contact"`
	PickupAuthorized bool   `json:"pickup_authorized"`
	EmergencyContact bool   `json:"emergency_contact"`
}

func (nr *NewRelationship) Validate() error {
	nr.Kind = core.CleanString(nr.Kind, true /* lower */)
	return core.Validate.Struct(nr)
}

// GuardianMatch is a likely duplicate identity found by the audit helper.
type GuardianMatch struct {
	Guardian GuardianIdentity `json:"guardian"`
	Ratio    float64          `json:"ratio"`
}
