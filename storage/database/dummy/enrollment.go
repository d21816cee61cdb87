package dummydb

import (
	"context"
	"fmt"
	"sort"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/enrollment"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollments}
}

func (repo *enrollmentRepository) CreateRequest(_ context.Context, req enrollment.Request) (enrollment.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.requests[req.ID] = &req
	return req, nil
}

func (repo *enrollmentRepository) GetRequest(_ context.Context, schoolID, id string) (enrollment.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.requests[id]; ok && req.SchoolID == schoolID {
		return *req, nil
	}
	return enrollment.Request{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetRequestByID(_ context.Context, id string) (enrollment.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.requests[id]; ok {
		return *req, nil
	}
	return enrollment.Request{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) ApproveRequest(_ context.Context, req enrollment.Request, student enrollment.Student) (enrollment.Request, enrollment.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// compare-and-swap: the stored row must still be pending
	stored, ok := repo.db.requests[req.ID]
	if !ok || stored.SchoolID != req.SchoolID {
		return enrollment.Request{}, enrollment.Student{}, enrollment.ErrNotFound
	}
	if stored.Status != enrollment.StatusPending {
		return enrollment.Request{}, enrollment.Student{}, enrollment.ErrInvalidStateTransition
	}

	if req.StudentID.Valid {
		// re-enrollment must land on an existing student row
		existing, ok := repo.db.students[student.ID]
		if !ok {
			return enrollment.Request{}, enrollment.Student{}, core.NewShutdownError(
				fmt.Sprintf("approving request %s: student %s is gone", req.ID, student.ID))
		}
		existing.ClassID = student.ClassID
		existing.IsActive = true
		existing.EnrolledAt = student.EnrolledAt
		student = *existing
	} else {
		s := student
		repo.db.students[s.ID] = &s
	}
	repo.db.requests[req.ID] = &req
	return req, student, nil
}

func (repo *enrollmentRepository) TransitionRequest(_ context.Context, req enrollment.Request) (enrollment.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.requests[req.ID]
	if !ok || stored.SchoolID != req.SchoolID {
		return enrollment.Request{}, enrollment.ErrNotFound
	}
	if stored.Status != enrollment.StatusPending {
		return enrollment.Request{}, enrollment.ErrInvalidStateTransition
	}
	repo.db.requests[req.ID] = &req
	return req, nil
}

func (repo *enrollmentRepository) ListPendingRequests(_ context.Context, schoolID string, _ ...core.DBOrdering) ([]enrollment.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]enrollment.Request, 0)
	for _, req := range repo.db.requests {
		if req.SchoolID == schoolID && req.Status == enrollment.StatusPending {
			reqs = append(reqs, *req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].Priority != reqs[j].Priority {
			return reqs[i].Priority > reqs[j].Priority
		}
		return reqs[i].SubmittedAt.Before(reqs[j].SubmittedAt)
	})
	return reqs, nil
}

func (repo *enrollmentRepository) PurgeRequest(_ context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	req, ok := repo.db.requests[id]
	if !ok || req.SchoolID != schoolID || req.Status != enrollment.StatusCancelled {
		return enrollment.ErrNotPurgeable
	}
	delete(repo.db.requests, id)
	return nil
}

// GetStudent is a test hook for asserting the approval side effect.
func (repo *enrollmentRepository) GetStudent(_ context.Context, id string) (enrollment.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return enrollment.Student{}, enrollment.ErrNotFound
}
