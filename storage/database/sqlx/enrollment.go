package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// The compare-and-swap guard behind every transition: the UPDATE only
// lands while the row is still pending, so of two concurrent reviewers
// exactly one sees RowsAffected == 1.
const transitionQuery = `
UPDATE enrollment_request
SET status         = :status,
    reviewed_by    = :reviewed_by,
    reviewed_at    = :reviewed_at,
    review_message = :review_message
WHERE id = :id AND school_id = :school_id AND status = 'pending'`

func (repo *enrollmentRepository) CreateRequest(ctx context.Context, req enrollment.Request) (enrollment.Request, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment_request (id, school_id, class_id, student_name, student_id, guardian_id,
		                                status, priority, submitted_by, submitted_at)
		VALUES (:id, :school_id, :class_id, :student_name, :student_id, :guardian_id,
		        :status, :priority, :submitted_by, :submitted_at)`, req)
	if err != nil {
		return enrollment.Request{}, errors.Wrap(err, "inserting enrollment request")
	}
	return req, nil
}

func (repo *enrollmentRepository) GetRequest(ctx context.Context, schoolID, id string) (enrollment.Request, error) {
	var req enrollment.Request
	err := repo.db.GetContext(ctx, &req,
		`SELECT * FROM enrollment_request WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return enrollment.Request{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment request")
	}
	return req, nil
}

func (repo *enrollmentRepository) GetRequestByID(ctx context.Context, id string) (enrollment.Request, error) {
	var req enrollment.Request
	err := repo.db.GetContext(ctx, &req, `SELECT * FROM enrollment_request WHERE id = $1`, id)
	if err != nil {
		return enrollment.Request{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment request")
	}
	return req, nil
}

func (repo *enrollmentRepository) ApproveRequest(ctx context.Context, req enrollment.Request, student enrollment.Student) (enrollment.Request, enrollment.Student, error) {
	fail := func(err error) (enrollment.Request, enrollment.Student, error) {
		return enrollment.Request{}, enrollment.Student{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return fail(errors.Wrap(err, "beginning approval"))
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NamedExec(transitionQuery, req)
	if err != nil {
		return fail(errors.Wrap(err, "approving enrollment request"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fail(enrollment.ErrInvalidStateTransition)
	}

	if req.StudentID.Valid {
		// re-enrollment: activate the existing student record
		res, err = tx.NamedExec(`
			UPDATE student
			SET class_id    = :class_id,
			    is_active   = TRUE,
			    enrolled_at = :enrolled_at
			WHERE id = :id AND school_id = :school_id`, student)
		if err != nil {
			return fail(errors.Wrap(err, "activating student"))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// the request references a student row that no longer exists
			return fail(core.NewShutdownError(
				fmt.Sprintf("approving request %s: student %s is gone", req.ID, student.ID)))
		}
	} else {
		_, err = tx.NamedExec(`
			INSERT INTO student (id, school_id, class_id, name, guardian_id, is_active, enrolled_at)
			VALUES (:id, :school_id, :class_id, :name, :guardian_id, :is_active, :enrolled_at)`, student)
		if err != nil {
			return fail(errors.Wrap(err, "creating student"))
		}
	}

	if err = tx.Commit(); err != nil {
		return fail(errors.Wrap(err, "committing approval"))
	}
	return req, student, nil
}

func (repo *enrollmentRepository) TransitionRequest(ctx context.Context, req enrollment.Request) (enrollment.Request, error) {
	res, err := repo.db.NamedExecContext(ctx, transitionQuery, req)
	if err != nil {
		return enrollment.Request{}, errors.Wrap(err, "transitioning enrollment request")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.Request{}, enrollment.ErrInvalidStateTransition
	}
	return req, nil
}

func (repo *enrollmentRepository) ListPendingRequests(ctx context.Context, schoolID string, ordering ...core.DBOrdering) ([]enrollment.Request, error) {
	query := `SELECT * FROM enrollment_request WHERE school_id = $1 AND status = 'pending' ORDER BY ` +
		orderBy(ordering, "priority DESC, submitted_at ASC")

	var reqs []enrollment.Request
	if err := repo.db.SelectContext(ctx, &reqs, query, schoolID); err != nil {
		return nil, errors.Wrap(err, "listing pending enrollment requests")
	}
	return reqs, nil
}

func (repo *enrollmentRepository) PurgeRequest(ctx context.Context, schoolID, id string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM enrollment_request WHERE id = $1 AND school_id = $2 AND status = 'cancelled'`, id, schoolID)
	if err != nil {
		return errors.Wrap(err, "purging enrollment request")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrNotPurgeable
	}
	return nil
}
