// Package dummydb provides in-memory repositories for tests and local
// hacking. Semantics mirror the sqlx repos, including the enrollment
// compare-and-swap guard.
package dummydb

import (
	"sync"

	"github.com/pensezy/edutrack/core/enrollment"
	"github.com/pensezy/edutrack/core/grading"
	"github.com/pensezy/edutrack/core/guardian"
)

type (
	DB struct {
		grades      *gradeTable
		guardians   *guardianTable
		enrollments *enrollmentTable
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grading.GradeEntry
	}

	guardianTable struct {
		sync.RWMutex
		identities    map[string]*guardian.GuardianIdentity
		relationships map[string]*guardian.GuardianRelationship
	}

	enrollmentTable struct {
		sync.RWMutex
		requests map[string]*enrollment.Request
		students map[string]*enrollment.Student
	}
)

func Open() (*DB, error) {
	db := &DB{
		grades: &gradeTable{table: make(map[string]*grading.GradeEntry)},
		guardians: &guardianTable{
			identities:    make(map[string]*guardian.GuardianIdentity),
			relationships: make(map[string]*guardian.GuardianRelationship),
		},
		enrollments: &enrollmentTable{
			requests: make(map[string]*enrollment.Request),
			students: make(map[string]*enrollment.Student),
		},
	}
	return db, nil
}
