package dummydb

import (
	"context"
	"sort"

	"github.com/pensezy/edutrack/core"
	"github.com/pensezy/edutrack/core/grading"
)

type gradeEntryRepository struct {
	db *gradeTable
}

var _ grading.Repository = (*gradeEntryRepository)(nil) // interface compliance check

func NewGradeEntryRepository(db *DB) *gradeEntryRepository {
	return &gradeEntryRepository{db: db.grades}
}

func naturalKey(e grading.GradeEntry) [6]string {
	return [6]string{e.SchoolID, e.StudentID, e.Subject, e.TermID, e.Kind, e.Title}
}

func (repo *gradeEntryRepository) UpsertEntries(_ context.Context, entries []grading.GradeEntry) ([]grading.GradeEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := make([]grading.GradeEntry, 0, len(entries))
	for _, entry := range entries {
		// an existing natural-key match keeps its id and creation time
		for _, existing := range repo.db.table {
			if naturalKey(*existing) == naturalKey(entry) {
				entry.ID = existing.ID
				entry.CreatedAt = existing.CreatedAt
				break
			}
		}
		e := entry
		repo.db.table[e.ID] = &e
		stored = append(stored, e)
	}
	return stored, nil
}

func (repo *gradeEntryRepository) GetEntry(_ context.Context, schoolID, id string) (grading.GradeEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if entry, ok := repo.db.table[id]; ok && entry.SchoolID == schoolID {
		return *entry, nil
	}
	return grading.GradeEntry{}, grading.ErrNotFound
}

func (repo *gradeEntryRepository) UpdateEntry(_ context.Context, entry grading.GradeEntry) (grading.GradeEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.table[entry.ID]
	if !ok || existing.SchoolID != entry.SchoolID {
		return grading.GradeEntry{}, grading.ErrNotFound
	}
	for _, other := range repo.db.table {
		if other.ID != entry.ID && naturalKey(*other) == naturalKey(entry) {
			return grading.GradeEntry{}, grading.ErrDuplicateEntry
		}
	}
	entry.CreatedAt = existing.CreatedAt
	repo.db.table[entry.ID] = &entry
	return entry, nil
}

func (repo *gradeEntryRepository) FilterEntries(_ context.Context, schoolID string, filter grading.QueryFilter, _ ...core.DBOrdering) ([]grading.GradeEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]grading.GradeEntry, 0)
	for _, entry := range repo.db.table {
		if entry.SchoolID != schoolID {
			continue
		}
		if filter.StudentID != "" && entry.StudentID != filter.StudentID {
			continue
		}
		if filter.Subject != "" && entry.Subject != filter.Subject {
			continue
		}
		if filter.TermID != "" && entry.TermID != filter.TermID {
			continue
		}
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		if filter.TeacherID != "" && entry.TeacherID != filter.TeacherID {
			continue
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Subject != entries[j].Subject {
			return entries[i].Subject < entries[j].Subject
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Title < entries[j].Title
	})
	return entries, nil
}
