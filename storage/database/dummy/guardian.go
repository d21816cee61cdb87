package dummydb

import (
	"context"
	"sort"

	"github.com/pensezy/edutrack/core/guardian"
)

type guardianRepository struct {
	db *guardianTable
}

var _ guardian.Repository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(db *DB) *guardianRepository {
	return &guardianRepository{db: db.guardians}
}

func (repo *guardianRepository) GetGuardianByID(_ context.Context, id string) (guardian.GuardianIdentity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.identities[id]; ok {
		return *g, nil
	}
	return guardian.GuardianIdentity{}, guardian.ErrNotFound
}

func (repo *guardianRepository) GetGuardianByDedupKey(_ context.Context, key string) (guardian.GuardianIdentity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, g := range repo.db.identities {
		if g.DedupKey == key {
			return *g, nil
		}
	}
	return guardian.GuardianIdentity{}, guardian.ErrNotFound
}

func (repo *guardianRepository) CreateGuardian(_ context.Context, g guardian.GuardianIdentity) (guardian.GuardianIdentity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.identities {
		if existing.DedupKey == g.DedupKey {
			return guardian.GuardianIdentity{}, guardian.ErrGuardianExists
		}
	}
	repo.db.identities[g.ID] = &g
	return g, nil
}

func (repo *guardianRepository) QueryAllGuardians(_ context.Context) ([]guardian.GuardianIdentity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	guardians := make([]guardian.GuardianIdentity, 0, len(repo.db.identities))
	for _, g := range repo.db.identities {
		guardians = append(guardians, *g)
	}
	sort.Slice(guardians, func(i, j int) bool { return guardians[i].DisplayName < guardians[j].DisplayName })
	return guardians, nil
}

func (repo *guardianRepository) DeleteGuardian(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.identities[id]; !ok {
		return guardian.ErrNotFound
	}
	for _, rel := range repo.db.relationships {
		if rel.GuardianID == id {
			return guardian.ErrGuardianInUse
		}
	}
	delete(repo.db.identities, id)
	return nil
}

func (repo *guardianRepository) UpsertRelationship(_ context.Context, rel guardian.GuardianRelationship) (guardian.GuardianRelationship, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.relationships {
		if existing.GuardianID == rel.GuardianID &&
			existing.StudentID == rel.StudentID &&
			existing.SchoolID == rel.SchoolID {
			rel.ID = existing.ID
			rel.CreatedAt = existing.CreatedAt
			break
		}
	}
	repo.db.relationships[rel.ID] = &rel
	return rel, nil
}

func (repo *guardianRepository) GetRelationship(_ context.Context, id string) (guardian.GuardianRelationship, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rel, ok := repo.db.relationships[id]; ok {
		return *rel, nil
	}
	return guardian.GuardianRelationship{}, guardian.ErrRelationshipNotFound
}

func (repo *guardianRepository) ListRelationshipsForStudent(_ context.Context, schoolID, studentID string) ([]guardian.GuardianRelationship, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rels := make([]guardian.GuardianRelationship, 0)
	for _, rel := range repo.db.relationships {
		if rel.SchoolID == schoolID && rel.StudentID == studentID {
			rels = append(rels, *rel)
		}
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].CreatedAt.Before(rels[j].CreatedAt) })
	return rels, nil
}

func (repo *guardianRepository) ListChildLinks(_ context.Context, guardianID string) ([]guardian.ChildLink, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	links := make([]guardian.ChildLink, 0)
	for _, rel := range repo.db.relationships {
		if rel.GuardianID == guardianID {
			links = append(links, guardian.ChildLink{
				StudentID: rel.StudentID,
				SchoolID:  rel.SchoolID,
				Kind:      rel.Kind,
			})
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].SchoolID != links[j].SchoolID {
			return links[i].SchoolID < links[j].SchoolID
		}
		return links[i].StudentID < links[j].StudentID
	})
	return links, nil
}

func (repo *guardianRepository) DeleteRelationship(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.relationships[id]; !ok {
		return guardian.ErrRelationshipNotFound
	}
	delete(repo.db.relationships, id)
	return nil
}

func (repo *guardianRepository) CountRelationships(_ context.Context, guardianID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, rel := range repo.db.relationships {
		if rel.GuardianID == guardianID {
			count++
		}
	}
	return count, nil
}
