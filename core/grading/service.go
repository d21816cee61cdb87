package grading

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/pensezy/edutrack/core"
)

var (
	// errors
	ErrNotFound       = errors.New("grade entry not found")
	ErrNotAuthor      = errors.New("a grade entry may only be amended by its author")
	ErrDuplicateEntry = errors.New("a grade entry with this title already exists")
)

type (
	Repository interface {
		// UpsertEntries stores the batch as a single transactional upsert
		// keyed by (school, student, subject, term, kind, title): either the
		// whole batch becomes visible or none of it does.
		UpsertEntries(ctx context.Context, entries []GradeEntry) ([]GradeEntry, error)
		GetEntry(ctx context.Context, schoolID, id string) (GradeEntry, error)
		// UpdateEntry returns ErrDuplicateEntry when the change lands on
		// another entry's natural key.
		UpdateEntry(ctx context.Context, entry GradeEntry) (GradeEntry, error)
		// FilterEntries applies AND operation on available QueryFilter fields,
		// always bounded by schoolID.
		FilterEntries(ctx context.Context, schoolID string, filter QueryFilter, ordering ...core.DBOrdering) ([]GradeEntry, error)
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (svc *Service) newEntry(scope core.SchoolScope, ne NewGradeEntry, now time.Time) (GradeEntry, error) {
	if err := ne.Validate(); err != nil {
		return GradeEntry{}, err
	}
	_, warn, err := Normalize(ne.Score, ne.MaxScore)
	if err != nil {
		return GradeEntry{}, core.NewValidationError(err, core.FieldError{Field: "score", Error: err.Error()})
	}
	entry := GradeEntry{
		ID:          uuid.New().String(),
		SchoolID:    scope.SchoolID(),
		StudentID:   ne.StudentID,
		Subject:     ne.Subject,
		TermID:      ne.TermID,
		Title:       ne.Title,
		Kind:        ne.Kind,
		Score:       ne.Score,
		MaxScore:    ne.MaxScore,
		Coefficient: ne.coefficient(),
		OutOfRange:  warn != nil,
		TeacherID:   scope.UserID(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if warn != nil {
		warn.EntryID = entry.ID
		warn.StudentID = entry.StudentID
		warn.Subject = entry.Subject
		svc.log.Warn(warn.String(), scope)
	}
	return entry, nil
}

// Publish stores a single new grade entry.
func (svc *Service) Publish(ctx context.Context, scope core.SchoolScope, ne NewGradeEntry) (GradeEntry, error) {
	entries, err := svc.PublishBatch(ctx, scope, []NewGradeEntry{ne})
	if err != nil {
		return GradeEntry{}, err
	}
	return entries[0], nil
}

// PublishBatch stores a class-wide batch of grade entries; the whole
// batch is rejected on the first invalid entry and stored all-or-none
// otherwise.
func (svc *Service) PublishBatch(ctx context.Context, scope core.SchoolScope, nes []NewGradeEntry) ([]GradeEntry, error) {
	if !scope.Valid() {
		return nil, core.ErrTenantIsolation
	}
	now := time.Now().UTC()
	entries := make([]GradeEntry, 0, len(nes))
	for _, ne := range nes {
		entry, err := svc.newEntry(scope, ne, now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return svc.repo.UpsertEntries(ctx, entries)
}

// Amend applies a last-write-wins amendment to a published entry.
// Only the authoring teacher may amend.
func (svc *Service) Amend(ctx context.Context, scope core.SchoolScope, entryID string, ae AmendGradeEntry) (GradeEntry, error) {
	if !scope.Valid() {
		return GradeEntry{}, core.ErrTenantIsolation
	}
	if err := ae.Validate(); err != nil {
		return GradeEntry{}, err
	}
	entry, err := svc.repo.GetEntry(ctx, scope.SchoolID(), entryID)
	if err != nil {
		return GradeEntry{}, err
	}
	if entry.TeacherID != scope.UserID() {
		return GradeEntry{}, ErrNotAuthor
	}

	if ae.Score != nil {
		entry.Score = *ae.Score
	}
	if ae.MaxScore != nil {
		entry.MaxScore = *ae.MaxScore
	}
	if ae.Coefficient != nil {
		entry.Coefficient = *ae.Coefficient
	}
	if ae.Title != "" {
		entry.Title = ae.Title
	}

	_, warn, err := Normalize(entry.Score, entry.MaxScore)
	if err != nil {
		return GradeEntry{}, core.NewValidationError(err, core.FieldError{Field: "score", Error: err.Error()})
	}
	entry.OutOfRange = warn != nil
	if warn != nil {
		warn.EntryID = entry.ID
		warn.StudentID = entry.StudentID
		warn.Subject = entry.Subject
		svc.log.Warn(warn.String(), scope)
	}
	entry.UpdatedAt = time.Now().UTC()
	entry, err = svc.repo.UpdateEntry(ctx, entry)
	if errors.Is(err, ErrDuplicateEntry) {
		return GradeEntry{}, core.NewValidationError(err, core.FieldError{Field: "title", Error: err.Error()})
	}
	return entry, err
}

// ApplyAdjustment applies one bulk operation (set_all, add_points,
// multiply, curve) to every entry matching the filter and writes the
// batch back through the transactional upsert. An invalid operation
// rejects the whole batch.
func (svc *Service) ApplyAdjustment(ctx context.Context, scope core.SchoolScope, filter QueryFilter, op string, value float64) ([]GradeEntry, error) {
	if !scope.Valid() {
		return nil, core.ErrTenantIsolation
	}
	entries, err := svc.repo.FilterEntries(ctx, scope.SchoolID(), filter)
	if err != nil {
		return nil, err
	}

	pairs := make([]ScorePair, len(entries))
	for i, entry := range entries {
		pairs[i] = ScorePair{Score: entry.Score, MaxScore: entry.MaxScore}
	}
	adjusted, err := ApplyBulk(op, value, pairs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range entries {
		entries[i].Score = adjusted[i].Score
		entries[i].OutOfRange = false // clamped to [0, maxScore]
		entries[i].UpdatedAt = now
	}
	return svc.repo.UpsertEntries(ctx, entries)
}

// Filter lists entries within the scope's school.
func (svc *Service) Filter(ctx context.Context, scope core.SchoolScope, filter QueryFilter) ([]GradeEntry, error) {
	if !scope.Valid() {
		return nil, core.ErrTenantIsolation
	}
	return svc.repo.FilterEntries(ctx, scope.SchoolID(), filter,
		core.DBOrdering{Field: "subject", Ascending: true},
		core.DBOrdering{Field: "created_at", Ascending: true},
	)
}

type (
	SubjectReport struct {
		Subject     string       `json:"subject"`
		Coefficient float64      `json:"coefficient"`
		EntryCount  int          `json:"entry_count"`
		Average     null.Float64 `json:"average"`
		Letter      null.String  `json:"letter"`
	}

	TermReport struct {
		StudentID string          `json:"student_id"`
		TermID    string          `json:"term_id"`
		Subjects  []SubjectReport `json:"subjects"`
		Overall   null.Float64    `json:"overall"`
		Letter    null.String     `json:"letter"`
		Warnings  []Warning       `json:"warnings,omitempty"`
	}
)

// TermReport computes the dashboard aggregate for one student/term:
// per-subject averages on the 20-point scale, their letters and the
// overall average. subjectCoefs carries each subject's own coefficient
// (default 1 when absent); subjects with no entries stay out of the
// overall entirely.
func (svc *Service) TermReport(ctx context.Context, scope core.SchoolScope, studentID, termID string, subjectCoefs map[string]float64) (TermReport, error) {
	if !scope.Valid() {
		return TermReport{}, core.ErrTenantIsolation
	}
	entries, err := svc.repo.FilterEntries(ctx, scope.SchoolID(), QueryFilter{StudentID: studentID, TermID: termID})
	if err != nil {
		return TermReport{}, err
	}

	bySubject := make(map[string][]GradeEntry)
	names := make([]string, 0)
	for _, entry := range entries {
		if _, ok := bySubject[entry.Subject]; !ok {
			names = append(names, entry.Subject)
		}
		bySubject[entry.Subject] = append(bySubject[entry.Subject], entry)
	}
	sort.Strings(names)

	report := TermReport{StudentID: studentID, TermID: termID}
	subjects := make([]SubjectGrades, 0, len(names))
	for _, name := range names {
		coef := subjectCoefs[name]
		if coef <= 0 {
			coef = DefaultCoefficient
		}
		subj := SubjectGrades{Subject: name, Coefficient: coef, Entries: bySubject[name]}
		subjects = append(subjects, subj)

		avg, warns := SubjectAverage(subj.Entries)
		report.Warnings = append(report.Warnings, warns...)
		report.Subjects = append(report.Subjects, SubjectReport{
			Subject:     name,
			Coefficient: coef,
			EntryCount:  len(subj.Entries),
			Average:     avg,
			Letter:      letterOf(avg),
		})
	}
	overall, _ := OverallAverage(subjects) // warnings already collected per subject
	report.Overall = overall
	report.Letter = letterOf(overall)

	for _, warn := range report.Warnings {
		svc.log.Warn(warn.String(), scope)
	}
	return report, nil
}

func letterOf(avg null.Float64) null.String {
	if !avg.Valid {
		return null.String{}
	}
	return null.StringFrom(LetterGrade(Percent(avg.Float64)))
}
