package guardian

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	"github.com/pensezy/edutrack/core"
)

var (
	// errors
	ErrNotFound             = errors.New("guardian not found")
	ErrRelationshipNotFound = errors.New("guardian relationship not found")
	ErrGuardianExists       = errors.New("a guardian with this contact already exists")
	ErrGuardianInUse        = errors.New("guardian is still linked to students")
)

// duplicate-audit similarity threshold on display names
const matchMinRatio = .85

type (
	Repository interface {
		GetGuardianByID(ctx context.Context, id string) (GuardianIdentity, error)
		GetGuardianByDedupKey(ctx context.Context, key string) (GuardianIdentity, error)
		// CreateGuardian returns ErrGuardianExists when the dedup key is taken.
		CreateGuardian(ctx context.Context, g GuardianIdentity) (GuardianIdentity, error)
		QueryAllGuardians(ctx context.Context) ([]GuardianIdentity, error)
		// DeleteGuardian removes an identity; the storage layer rejects it
		// while any relationship still references it.
		DeleteGuardian(ctx context.Context, id string) error

		// UpsertRelationship is keyed by (guardian, student, school): an
		// existing link has its attribute flags updated in place.
		UpsertRelationship(ctx context.Context, rel GuardianRelationship) (GuardianRelationship, error)
		GetRelationship(ctx context.Context, id string) (GuardianRelationship, error)
		ListRelationshipsForStudent(ctx context.Context, schoolID, studentID string) ([]GuardianRelationship, error)
		// ListChildLinks reads across schools; each school's rows come from
		// one consistent snapshot. Only the portal path may call it.
		ListChildLinks(ctx context.Context, guardianID string) ([]ChildLink, error)
		DeleteRelationship(ctx context.Context, id string) error
		CountRelationships(ctx context.Context, guardianID string) (int, error)
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, log core.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateOrGet returns the existing identity for the contact's dedup key
// or creates one. Idempotent by business key; a concurrent create of
// the same key resolves to the row that won.
func (svc *Service) CreateOrGet(ctx context.Context, ng NewGuardian) (GuardianIdentity, error) {
	if err := ng.Validate(); err != nil {
		return GuardianIdentity{}, err
	}
	key := ng.Contact.DedupKey()

	g, err := svc.repo.GetGuardianByDedupKey(ctx, key)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return GuardianIdentity{}, err
	}

	now := time.Now().UTC()
	g = GuardianIdentity{
		ID:          uuid.New().String(),
		DisplayName: ng.DisplayName,
		Email:       null.NewString(ng.Contact.Email, ng.Contact.Email != ""),
		Phone:       null.NewString(ng.Contact.Phone, ng.Contact.Phone != ""),
		Address:     null.NewString(ng.Contact.Address, ng.Contact.Address != ""),
		Profession:  null.NewString(ng.Contact.Profession, ng.Contact.Profession != ""),
		DedupKey:    key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	g, err = svc.repo.CreateGuardian(ctx, g)
	if errors.Is(err, ErrGuardianExists) {
		// lost the create race; the winner's row is the identity
		return svc.repo.GetGuardianByDedupKey(ctx, key)
	}
	return g, err
}

// Link binds a guardian to a student inside the scope's school.
// Linking the same pair again upserts the attribute flags.
func (svc *Service) Link(ctx context.Context, scope core.SchoolScope, nr NewRelationship) (GuardianRelationship, error) {
	if !scope.Valid() {
		return GuardianRelationship{}, core.ErrTenantIsolation
	}
	if err := nr.Validate(); err != nil {
		return GuardianRelationship{}, err
	}
	if _, err := svc.repo.GetGuardianByID(ctx, nr.GuardianID); err != nil {
		return GuardianRelationship{}, err
	}

	now := time.Now().UTC()
	rel := GuardianRelationship{
		ID:               uuid.New().String(),
		GuardianID:       nr.GuardianID,
		StudentID:        nr.StudentID,
		SchoolID:         scope.SchoolID(),
		Kind:             nr.Kind,
		PrimaryContact:   nr.PrimaryContact,
		PickupAuthorized: nr.PickupAuthorized,
		EmergencyContact: nr.EmergencyContact,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.UpsertRelationship(ctx, rel)
}

// ListChildren is the one whitelisted cross-tenant read: a guardian's
// own portal view of their children across all schools.
func (svc *Service) ListChildren(ctx context.Context, scope core.PortalScope) ([]ChildLink, error) {
	if !scope.Valid() {
		return nil, core.ErrTenantIsolation
	}
	return svc.repo.ListChildLinks(ctx, scope.GuardianID())
}

// ListGuardians lists a student's guardian relationships strictly within
// the scope's school; rows from other schools never appear, even for
// the same guardian identity.
func (svc *Service) ListGuardians(ctx context.Context, scope core.SchoolScope, studentID string) ([]GuardianRelationship, error) {
	if !scope.Valid() {
		return nil, core.ErrTenantIsolation
	}
	return svc.repo.ListRelationshipsForStudent(ctx, scope.SchoolID(), studentID)
}

// getScoped fetches a relationship and enforces the tenant boundary:
// touching another school's row fails, it does not come back empty.
func (svc *Service) getScoped(ctx context.Context, scope core.SchoolScope, relID string) (GuardianRelationship, error) {
	rel, err := svc.repo.GetRelationship(ctx, relID)
	if err != nil {
		return GuardianRelationship{}, err
	}
	if rel.SchoolID != scope.SchoolID() {
		return GuardianRelationship{}, core.ErrTenantIsolation
	}
	return rel, nil
}

// Unlink removes one relationship within the scope's school. The
// guardian identity itself is cascade-protected and survives.
func (svc *Service) Unlink(ctx context.Context, scope core.SchoolScope, relID string) error {
	if !scope.Valid() {
		return core.ErrTenantIsolation
	}
	rel, err := svc.getScoped(ctx, scope, relID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteRelationship(ctx, rel.ID)
}

// Delete removes a guardian identity, refusing while any relationship
// still references it.
func (svc *Service) Delete(ctx context.Context, guardianID string) error {
	count, err := svc.repo.CountRelationships(ctx, guardianID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrGuardianInUse
	}
	return svc.repo.DeleteGuardian(ctx, guardianID)
}

// SimilarGuardians flags identities whose display names closely match
// the given one but whose dedup keys differ; an audit aid for spotting
// manually created duplicates.
func (svc *Service) SimilarGuardians(ctx context.Context, g GuardianIdentity) ([]GuardianMatch, error) {
	all, err := svc.repo.QueryAllGuardians(ctx)
	if err != nil {
		return nil, err
	}
	name := core.CleanString(g.DisplayName, true /* lower */)
	var matches []GuardianMatch
	for _, other := range all {
		if other.ID == g.ID || other.DedupKey == g.DedupKey {
			continue
		}
		otherName := core.CleanString(other.DisplayName, true /* lower */)
		ratio := difflib.NewMatcher(strings.Split(name, ""), strings.Split(otherName, "")).QuickRatio()
		if ratio >= matchMinRatio {
			matches = append(matches, GuardianMatch{Guardian: other, Ratio: ratio})
		}
	}
	return matches, nil
}
