package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pensezy/edutrack/core/guardian"
)

type guardianRepository struct {
	db *sqlx.DB
}

var _ guardian.Repository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(db *sqlx.DB) *guardianRepository {
	return &guardianRepository{db: db}
}

func (repo *guardianRepository) GetGuardianByID(ctx context.Context, id string) (guardian.GuardianIdentity, error) {
	var g guardian.GuardianIdentity
	err := repo.db.GetContext(ctx, &g, `SELECT * FROM guardian WHERE id = $1`, id)
	if err != nil {
		return guardian.GuardianIdentity{}, trapNoRowsErr(err, guardian.ErrNotFound, "getting guardian")
	}
	return g, nil
}

func (repo *guardianRepository) GetGuardianByDedupKey(ctx context.Context, key string) (guardian.GuardianIdentity, error) {
	var g guardian.GuardianIdentity
	err := repo.db.GetContext(ctx, &g, `SELECT * FROM guardian WHERE dedup_key = $1`, key)
	if err != nil {
		return guardian.GuardianIdentity{}, trapNoRowsErr(err, guardian.ErrNotFound, "getting guardian by dedup key")
	}
	return g, nil
}

func (repo *guardianRepository) CreateGuardian(ctx context.Context, g guardian.GuardianIdentity) (guardian.GuardianIdentity, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO guardian (id, display_name, email, phone, address, profession, dedup_key, created_at, updated_at)
		VALUES (:id, :display_name, :email, :phone, :address, :profession, :dedup_key, :created_at, :updated_at)`, g)
	if err != nil {
		if isPqErr(err, pqUniqueViolation) {
			return guardian.GuardianIdentity{}, guardian.ErrGuardianExists
		}
		return guardian.GuardianIdentity{}, errors.Wrap(err, "inserting guardian")
	}
	return g, nil
}

func (repo *guardianRepository) QueryAllGuardians(ctx context.Context) ([]guardian.GuardianIdentity, error) {
	var guardians []guardian.GuardianIdentity
	err := repo.db.SelectContext(ctx, &guardians, `SELECT * FROM guardian ORDER BY display_name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardians")
	}
	return guardians, nil
}

func (repo *guardianRepository) DeleteGuardian(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM guardian WHERE id = $1`, id)
	if err != nil {
		// ON DELETE RESTRICT backs the service's cascade-protect check
		if isPqErr(err, pqForeignKeyViolation) {
			return guardian.ErrGuardianInUse
		}
		return errors.Wrap(err, "deleting guardian")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return guardian.ErrNotFound
	}
	return nil
}

func (repo *guardianRepository) UpsertRelationship(ctx context.Context, rel guardian.GuardianRelationship) (guardian.GuardianRelationship, error) {
	rows, err := repo.db.NamedQueryContext(ctx, `
		INSERT INTO guardian_relationship (id, guardian_id, student_id, school_id, kind,
		                                   primary_contact, pickup_authorized, emergency_contact, created_at, updated_at)
		VALUES (:id, :guardian_id, :student_id, :school_id, :kind,
		        :primary_contact, :pickup_authorized, :emergency_contact, :created_at, :updated_at)
		ON CONFLICT (guardian_id, student_id, school_id) DO UPDATE
		    SET kind              = EXCLUDED.kind,
		        primary_contact   = EXCLUDED.primary_contact,
		        pickup_authorized = EXCLUDED.pickup_authorized,
		        emergency_contact = EXCLUDED.emergency_contact,
		        updated_at        = EXCLUDED.updated_at
		RETURNING *`, rel)
	if err != nil {
		return guardian.GuardianRelationship{}, errors.Wrap(err, "upserting guardian relationship")
	}
	defer func() { _ = rows.Close() }()

	if rows.Next() {
		if err = rows.StructScan(&rel); err != nil {
			return guardian.GuardianRelationship{}, errors.Wrap(err, "scanning guardian relationship")
		}
	}
	return rel, nil
}

func (repo *guardianRepository) GetRelationship(ctx context.Context, id string) (guardian.GuardianRelationship, error) {
	var rel guardian.GuardianRelationship
	err := repo.db.GetContext(ctx, &rel, `SELECT * FROM guardian_relationship WHERE id = $1`, id)
	if err != nil {
		return guardian.GuardianRelationship{}, trapNoRowsErr(err, guardian.ErrRelationshipNotFound, "getting guardian relationship")
	}
	return rel, nil
}

func (repo *guardianRepository) ListRelationshipsForStudent(ctx context.Context, schoolID, studentID string) ([]guardian.GuardianRelationship, error) {
	var rels []guardian.GuardianRelationship
	err := repo.db.SelectContext(ctx, &rels, `
		SELECT * FROM guardian_relationship
		WHERE school_id = $1 AND student_id = $2
		ORDER BY created_at`, schoolID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing guardian relationships")
	}
	return rels, nil
}

func (repo *guardianRepository) ListChildLinks(ctx context.Context, guardianID string) ([]guardian.ChildLink, error) {
	var links []guardian.ChildLink
	err := repo.db.SelectContext(ctx, &links, `
		SELECT student_id, school_id, kind FROM guardian_relationship
		WHERE guardian_id = $1
		ORDER BY school_id, created_at`, guardianID)
	if err != nil {
		return nil, errors.Wrap(err, "listing child links")
	}
	return links, nil
}

func (repo *guardianRepository) DeleteRelationship(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM guardian_relationship WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting guardian relationship")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return guardian.ErrRelationshipNotFound
	}
	return nil
}

func (repo *guardianRepository) CountRelationships(ctx context.Context, guardianID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM guardian_relationship WHERE guardian_id = $1`, guardianID)
	if err != nil {
		return 0, errors.Wrap(err, "counting guardian relationships")
	}
	return count, nil
}
