package core

import "errors"

// ErrTenantIsolation is returned whenever an operation would touch rows
// belonging to another school's tenant. It is never downgraded to an
// empty result: callers must be able to tell "nothing there" apart from
// "not yours".
var ErrTenantIsolation = errors.New("operation crosses a school tenant boundary")

// SchoolScope carries the school and acting user an operation runs under.
// It is built by the caller's auth layer and passed explicitly into every
// service call; there is no ambient current-school state.
type SchoolScope struct {
	schoolID string
	userID   string
}

func NewSchoolScope(schoolID, userID string) SchoolScope {
	return SchoolScope{schoolID: schoolID, userID: userID}
}

func (s SchoolScope) SchoolID() string { return s.schoolID }
func (s SchoolScope) UserID() string   { return s.userID }

func (s SchoolScope) Valid() bool {
	return s.schoolID != "" && s.userID != ""
}

// PortalScope authorizes the single whitelisted cross-tenant read path:
// a guardian reading their own records through the self-service portal.
// School operators never hold a PortalScope.
type PortalScope struct {
	guardianID string
}

func NewPortalScope(guardianID string) PortalScope {
	return PortalScope{guardianID: guardianID}
}

func (s PortalScope) GuardianID() string { return s.guardianID }

func (s PortalScope) Valid() bool {
	return s.guardianID != ""
}
