package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/grading"
)

type gradeEntryRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradeEntryRepository)(nil) // interface compliance check

func NewGradeEntryRepository(db *sqlx.DB) *gradeEntryRepository {
	return &gradeEntryRepository{db: db}
}

// One idempotent upsert keyed by the entry's natural key; a re-published
// entry keeps its original id and gets its values replaced. Never
// delete-then-insert: a crash must not leave the batch half-visible.
const upsertEntryQuery = `
INSERT INTO grade_entry (id, school_id, student_id, subject, term_id, title, kind,
                         score, max_score, coefficient, out_of_range, teacher_id, created_at, updated_at)
VALUES (:id, :school_id, :student_id, :subject, :term_id, :title, :kind,
        :score, :max_score, :coefficient, :out_of_range, :teacher_id, :created_at, :updated_at)
ON CONFLICT (school_id, student_id, subject, term_id, kind, title) DO UPDATE
    SET score        = EXCLUDED.score,
        max_score    = EXCLUDED.max_score,
        coefficient  = EXCLUDED.coefficient,
        out_of_range = EXCLUDED.out_of_range,
        teacher_id   = EXCLUDED.teacher_id,
        updated_at   = EXCLUDED.updated_at
RETURNING *`

func (repo *gradeEntryRepository) UpsertEntries(ctx context.Context, entries []grading.GradeEntry) ([]grading.GradeEntry, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning grade batch")
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]grading.GradeEntry, 0, len(entries))
	for _, entry := range entries {
		rows, err := tx.NamedQuery(upsertEntryQuery, entry)
		if err != nil {
			return nil, errors.Wrap(err, "upserting grade entry")
		}
		if rows.Next() {
			if err = rows.StructScan(&entry); err != nil {
				_ = rows.Close()
				return nil, errors.Wrap(err, "scanning grade entry")
			}
		}
		if err = rows.Close(); err != nil {
			return nil, errors.Wrap(err, "upserting grade entry")
		}
		stored = append(stored, entry)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing grade batch")
	}
	return stored, nil
}

func (repo *gradeEntryRepository) GetEntry(ctx context.Context, schoolID, id string) (grading.GradeEntry, error) {
	var entry grading.GradeEntry
	err := repo.db.GetContext(ctx, &entry,
		`SELECT * FROM grade_entry WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return grading.GradeEntry{}, trapNoRowsErr(err, grading.ErrNotFound, "getting grade entry")
	}
	return entry, nil
}

func (repo *gradeEntryRepository) UpdateEntry(ctx context.Context, entry grading.GradeEntry) (grading.GradeEntry, error) {
	rows, err := repo.db.NamedQueryContext(ctx, `
		UPDATE grade_entry
		SET score        = :score,
		    max_score    = :max_score,
		    coefficient  = :coefficient,
		    title        = :title,
		    out_of_range = :out_of_range,
		    updated_at   = :updated_at
		WHERE id = :id AND school_id = :school_id
		RETURNING *`, entry)
	if err != nil {
		if isPqErr(err, pqUniqueViolation) {
			return grading.GradeEntry{}, grading.ErrDuplicateEntry
		}
		return grading.GradeEntry{}, errors.Wrap(err, "updating grade entry")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return grading.GradeEntry{}, grading.ErrNotFound
	}
	if err = rows.StructScan(&entry); err != nil {
		return grading.GradeEntry{}, errors.Wrap(err, "scanning grade entry")
	}
	return entry, nil
}

func (repo *gradeEntryRepository) FilterEntries(ctx context.Context, schoolID string, filter grading.QueryFilter, ordering ...core.DBOrdering) ([]grading.GradeEntry, error) {
	query := `SELECT * FROM grade_entry WHERE school_id = $1`
	args := []interface{}{schoolID}

	add := func(field, val string) {
		if val != "" {
			args = append(args, val)
			query += fmt.Sprintf(" AND %s = $%d", field, len(args))
		}
	}
	add("student_id", filter.StudentID)
	add("subject", filter.Subject)
	add("term_id", filter.TermID)
	add("kind", filter.Kind)
	add("teacher_id", filter.TeacherID)

	query += " ORDER BY " + orderBy(ordering, "subject ASC, created_at ASC")

	var entries []grading.GradeEntry
	if err := repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering grade entries")
	}
	return entries, nil
}
