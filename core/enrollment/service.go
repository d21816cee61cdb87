package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/pensezy/edutrack/core"
)

var (
	// errors
	ErrNotFound = errors.New("enrollment request not found")
	// ErrInvalidStateTransition is returned when a transition is attempted
	// on a request that is no longer pending; the request is unchanged.
	ErrInvalidStateTransition = errors.New("enrollment request is not pending")
	ErrNotSubmitter           = errors.New("only the submitting guardian may cancel a request")
	ErrNotPurgeable           = errors.New("only cancelled requests may be purged")

	errEmptyReviewMessage = errors.New("a rejection requires a review message")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequest(ctx context.Context, schoolID, id string) (Request, error)
		// GetRequestByID serves the guardian's self-service path only.
		GetRequestByID(ctx context.Context, id string) (Request, error)
		// ApproveRequest atomically flips the request pending→approved and
		// creates or re-activates the student, as one transaction. The
		// status guard is compare-and-swap: when the request is no longer
		// pending it returns ErrInvalidStateTransition and writes nothing.
		ApproveRequest(ctx context.Context, req Request, student Student) (Request, Student, error)
		// TransitionRequest applies a pending→(rejected|cancelled) flip
		// under the same compare-and-swap guard.
		TransitionRequest(ctx context.Context, req Request) (Request, error)
		ListPendingRequests(ctx context.Context, schoolID string, ordering ...core.DBOrdering) ([]Request, error)
		// PurgeRequest physically deletes a request; storage enforces that
		// only cancelled rows go.
		PurgeRequest(ctx context.Context, schoolID, id string) error
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Submit files a new application in the scope's school.
func (svc *Service) Submit(ctx context.Context, scope core.SchoolScope, nr NewRequest) (Request, error) {
	if !scope.Valid() {
		return Request{}, core.ErrTenantIsolation
	}
	if err := nr.Validate(); err != nil {
		return Request{}, err
	}
	req := Request{
		ID:          uuid.New().String(),
		SchoolID:    scope.SchoolID(),
		ClassID:     nr.ClassID,
		StudentName: nr.StudentName,
		StudentID:   null.NewString(nr.StudentID, nr.StudentID != ""),
		GuardianID:  nr.GuardianID,
		Status:      StatusPending,
		Priority:    nr.Priority,
		SubmittedBy: scope.UserID(),
		SubmittedAt: time.Now().UTC(),
	}
	return svc.repo.CreateRequest(ctx, req)
}

// Approve marks the request approved and creates (or re-activates) the
// student record as a single unit. Of two concurrent reviewers exactly
// one wins; the other gets ErrInvalidStateTransition.
func (svc *Service) Approve(ctx context.Context, scope core.SchoolScope, requestID string, note ReviewNote) (Request, Student, error) {
	if !scope.Valid() {
		return Request{}, Student{}, core.ErrTenantIsolation
	}
	req, err := svc.repo.GetRequest(ctx, scope.SchoolID(), requestID)
	if err != nil {
		return Request{}, Student{}, err
	}
	if Terminal(req.Status) {
		return Request{}, Student{}, ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	req.Status = StatusApproved
	req.ReviewedBy = null.StringFrom(scope.UserID())
	req.ReviewedAt = null.TimeFrom(now)
	req.ReviewMessage = null.NewString(note.Message, note.Message != "")

	student := Student{
		ID:         uuid.New().String(),
		SchoolID:   req.SchoolID,
		ClassID:    req.ClassID,
		Name:       req.StudentName,
		GuardianID: req.GuardianID,
		IsActive:   true,
		EnrolledAt: now,
	}
	if req.StudentID.Valid {
		student.ID = req.StudentID.String
	}
	return svc.repo.ApproveRequest(ctx, req, student)
}

// Reject marks the request rejected. The review message is mandatory
// here, not in the UI.
func (svc *Service) Reject(ctx context.Context, scope core.SchoolScope, requestID string, note ReviewNote) (Request, error) {
	if !scope.Valid() {
		return Request{}, core.ErrTenantIsolation
	}
	if core.CleanString(note.Message) == "" {
		return Request{}, core.NewValidationError(errEmptyReviewMessage,
			core.FieldError{Field: "message", Error: errEmptyReviewMessage.Error()})
	}
	req, err := svc.repo.GetRequest(ctx, scope.SchoolID(), requestID)
	if err != nil {
		return Request{}, err
	}
	if Terminal(req.Status) {
		return Request{}, ErrInvalidStateTransition
	}

	req.Status = StatusRejected
	req.ReviewedBy = null.StringFrom(scope.UserID())
	req.ReviewedAt = null.TimeFrom(time.Now().UTC())
	req.ReviewMessage = null.StringFrom(note.Message)
	return svc.repo.TransitionRequest(ctx, req)
}

// Cancel is the guardian's self-service withdrawal, allowed only while
// the request is still pending.
func (svc *Service) Cancel(ctx context.Context, scope core.PortalScope, requestID string) (Request, error) {
	if !scope.Valid() {
		return Request{}, core.ErrTenantIsolation
	}
	req, err := svc.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.GuardianID != scope.GuardianID() {
		return Request{}, ErrNotSubmitter
	}
	if Terminal(req.Status) {
		return Request{}, ErrInvalidStateTransition
	}

	req.Status = StatusCancelled
	req.ReviewedAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.TransitionRequest(ctx, req)
}

// ListPending returns the reviewer queue, highest priority first, then
// oldest submission first.
func (svc *Service) ListPending(ctx context.Context, scope core.SchoolScope) ([]Request, error) {
	if !scope.Valid() {
		return nil, core.ErrTenantIsolation
	}
	return svc.repo.ListPendingRequests(ctx, scope.SchoolID(),
		core.DBOrdering{Field: "priority"},
		core.DBOrdering{Field: "submitted_at", Ascending: true},
	)
}

// Purge physically deletes a cancelled request.
func (svc *Service) Purge(ctx context.Context, scope core.SchoolScope, requestID string) error {
	if !scope.Valid() {
		return core.ErrTenantIsolation
	}
	req, err := svc.repo.GetRequest(ctx, scope.SchoolID(), requestID)
	if err != nil {
		return err
	}
	if req.Status != StatusCancelled {
		return ErrNotPurgeable
	}
	return svc.repo.PurgeRequest(ctx, scope.SchoolID(), requestID)
}
