package grading

import (
	"time"

	"github.com/pensezy/edutrack/core"
)

// Grade kinds
const (
	KindExamination   = "examination"
	KindHomework      = "homework"
	KindProject       = "project"
	KindParticipation = "participation"
	KindQuiz          = "quiz"
	KindPresentation  = "presentation"
)

var (
	AllKinds = []string{
		KindExamination,
		KindHomework,
		KindProject,
		KindParticipation,
		KindQuiz,
		KindPresentation,
	}

	// KindWeights holds the coefficient the grade entry form defaults to
	// per kind when the teacher does not set one.
	KindWeights = map[string]float64{
		KindExamination:   3,
		KindProject:       2,
		KindHomework:      1,
		KindQuiz:          1,
		KindPresentation:  1,
		KindParticipation: 0.5,
	}
)

// DefaultCoefficient applies when neither the entry nor KindWeights carries one.
const DefaultCoefficient = 1

// GradeEntry is one raw grade authored by a teacher for exactly one
// (student, subject, term). It is immutable once published except
// through Service.Amend.
type GradeEntry struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Subject     string    `db:"subject" json:"subject"`
	TermID      string    `db:"term_id" json:"term_id"`
	Title       string    `db:"title" json:"title"`
	Kind        string    `db:"kind" json:"kind"`
	Score       float64   `db:"score" json:"score"`
	MaxScore    float64   `db:"max_score" json:"max_score"`
	Coefficient float64   `db:"coefficient" json:"coefficient"`
	OutOfRange  bool      `db:"out_of_range" json:"out_of_range"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NewGradeEntry contains information needed to publish a new GradeEntry.
type NewGradeEntry struct {
	StudentID   string  `json:"student_id" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	TermID      string  `json:"term_id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Kind        string  `json:"kind" validate:"required,gradekind"`
	Score       float64 `json:"score" validate:"gte=0"`
	MaxScore    float64 `json:"max_score" validate:"required,gt=0"`
	Coefficient float64 `json:"coefficient" validate:"gte=0"`
}

func (ne *NewGradeEntry) Validate() error {
	ne.Subject = core.CleanString(ne.Subject)
	ne.Title = core.CleanString(ne.Title)
	ne.Kind = core.CleanString(ne.Kind, true /* lower */)
	return core.Validate.Struct(ne)
}

// coefficient resolves the entry's effective weight.
func (ne NewGradeEntry) coefficient() float64 {
	if ne.Coefficient > 0 {
		return ne.Coefficient
	}
	if w, ok := KindWeights[ne.Kind]; ok {
		return w
	}
	return DefaultCoefficient
}

// AmendGradeEntry defines what may be changed on a published GradeEntry.
// Amendment is last-write-wins: the entry keeps only the amending
// teacher and UpdatedAt, no version history.
type AmendGradeEntry struct {
	Score       *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore    *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Coefficient *float64 `json:"coefficient" validate:"omitempty,gt=0"`
	Title       string   `json:"title"`
}

func (ae *AmendGradeEntry) Validate() error {
	ae.Title = core.CleanString(ae.Title)
	return core.Validate.Struct(ae)
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	StudentID string
	Subject   string
	TermID    string
	Kind      string
	TeacherID string
}
