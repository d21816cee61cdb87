package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/pensezy/edutrack/core/enrollment"
	"github.com/pensezy/edutrack/core/grading"
	"github.com/pensezy/edutrack/core/guardian"
)

// Logger captures log messages per level so tests can assert on them.
type Logger struct {
	mu       sync.Mutex
	Messages map[string][]string
}

func NewLogger() *Logger {
	return &Logger{Messages: make(map[string][]string)}
}

func (l *Logger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages[level] = append(l.Messages[level], msg)
}

func (l *Logger) Logged(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Messages[level]...)
}

func (l *Logger) Enable(bool) {}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.record("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.record("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.record("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.record("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.record("FATAL", msg) }

func CreateGuardian(
	t *testing.T,
	repo guardian.Repository,
	name, email, phone string,
) guardian.GuardianIdentity {
	t.Helper()

	ci := guardian.ContactInfo{Email: email, Phone: phone}
	now := time.Now().UTC()
	g := guardian.GuardianIdentity{
		ID:          uuid.New().String(),
		DisplayName: name,
		Email:       null.NewString(email, email != ""),
		Phone:       null.NewString(phone, phone != ""),
		DedupKey:    ci.DedupKey(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	g, err := repo.CreateGuardian(context.Background(), g)
	if err != nil {
		t.Fatalf("createGuardian() failed: %v", err)
	}
	return g
}

func LinkGuardian(
	t *testing.T,
	repo guardian.Repository,
	guardianID, studentID, schoolID, kind string,
) guardian.GuardianRelationship {
	t.Helper()

	now := time.Now().UTC()
	rel := guardian.GuardianRelationship{
		ID:         uuid.New().String(),
		GuardianID: guardianID,
		StudentID:  studentID,
		SchoolID:   schoolID,
		Kind:       kind,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rel, err := repo.UpsertRelationship(context.Background(), rel)
	if err != nil {
		t.Fatalf("linkGuardian() failed: %v", err)
	}
	return rel
}

func CreateEntry(
	t *testing.T,
	repo grading.Repository,
	schoolID, studentID, subject, termID, title, kind string,
	score, maxScore, coefficient float64,
) grading.GradeEntry {
	t.Helper()

	now := time.Now().UTC()
	entry := grading.GradeEntry{
		ID:          uuid.New().String(),
		SchoolID:    schoolID,
		StudentID:   studentID,
		Subject:     subject,
		TermID:      termID,
		Title:       title,
		Kind:        kind,
		Score:       score,
		MaxScore:    maxScore,
		Coefficient: coefficient,
		TeacherID:   "teacher-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entries, err := repo.UpsertEntries(context.Background(), []grading.GradeEntry{entry})
	if err != nil {
		t.Fatalf("createEntry() failed: %v", err)
	}
	return entries[0]
}

func SubmitRequest(
	t *testing.T,
	repo enrollment.Repository,
	schoolID, classID, studentName, guardianID string,
	priority int,
	submittedAt ...time.Time,
) enrollment.Request {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	req := enrollment.Request{
		ID:          uuid.New().String(),
		SchoolID:    schoolID,
		ClassID:     classID,
		StudentName: studentName,
		GuardianID:  guardianID,
		Status:      enrollment.StatusPending,
		Priority:    priority,
		SubmittedBy: guardianID,
		SubmittedAt: tstamp,
	}
	req, err := repo.CreateRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("submitRequest() failed: %v", err)
	}
	return req
}
