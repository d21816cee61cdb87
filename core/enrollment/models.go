package enrollment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pensezy/edutrack/core"
)

// Request statuses. pending is the only non-terminal state.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	return status != StatusPending
}

// Priorities; higher is reviewed first.
const (
	PriorityLow    = -1
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Request is one enrollment application. Mutated only through the
// service's transition operations; never physically deleted except from
// the terminal cancelled status.
type Request struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	ClassID  string `db:"class_id" json:"class_id"`

	// applicant identity
	StudentName string      `db:"student_name" json:"student_name"`
	StudentID   null.String `db:"student_id" json:"student_id"` // set when re-enrolling an existing student
	GuardianID  string      `db:"guardian_id" json:"guardian_id"`

	Status      string    `db:"status" json:"status"`
	Priority    int       `db:"priority" json:"priority"`
	SubmittedBy string    `db:"submitted_by" json:"submitted_by"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`

	ReviewedBy    null.String `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt    null.Time   `db:"reviewed_at" json:"reviewed_at"`
	ReviewMessage null.String `db:"review_message" json:"review_message"`
}

// Student is the enrollment record created (or re-activated) when a
// request is approved.
type Student struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	Name       string    `db:"name" json:"name"`
	GuardianID string    `db:"guardian_id" json:"guardian_id"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// NewRequest contains information needed to submit an application.
type NewRequest struct {
	ClassID     string `json:"class_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required"`
	StudentID   string `json:"student_id"`
	GuardianID  string `json:"guardian_id" validate:"required"`
	Priority    int    `json:"priority" validate:"gte=-1,lte=1"`
}

func (nr *NewRequest) Validate() error {
	nr.StudentName = core.CleanString(nr.StudentName)
	return core.Validate.Struct(nr)
}

// ReviewNote carries the reviewer's message. Required for rejections,
// optional for approvals.
type ReviewNote struct {
	Message string `json:"message"`
}
