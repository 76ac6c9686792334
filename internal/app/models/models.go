package models

// RoleType defines the user role type
type RoleType string

const (
	RoleSuperAdmin     RoleType = "SUPER_ADMIN"
	RoleAdmin          RoleType = "ADMIN"
	RoleProgramManager RoleType = "PROGRAM_MANAGER"
	RoleStudent        RoleType = "STUDENT"
)

// Valid reports whether r is a known role
func (r RoleType) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleProgramManager, RoleStudent:
		return true
	}
	return false
}

// LandingPath is the dashboard a role is redirected to after login
func (r RoleType) LandingPath() string {
	switch r {
	case RoleSuperAdmin:
		return "/super-admin/dashboard"
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleProgramManager:
		return "/manager/dashboard"
	case RoleStudent:
		return "/student/dashboard"
	default:
		return "/login"
	}
}

// Semester of an academic year
type Semester string

const (
	SemesterFall   Semester = "FALL"
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
)

// Valid reports whether s is a known semester
func (s Semester) Valid() bool {
	return s == SemesterFall || s == SemesterSpring || s == SemesterSummer
}

// CatalogStatus is the lifecycle of a course or partner university
type CatalogStatus string

const (
	CatalogActive   CatalogStatus = "ACTIVE"
	CatalogArchived CatalogStatus = "ARCHIVED"
)

// OfferingStatus is the lifecycle of an elective pack or exchange program
type OfferingStatus string

const (
	OfferingDraft     OfferingStatus = "DRAFT"
	OfferingPublished OfferingStatus = "PUBLISHED"
	OfferingClosed    OfferingStatus = "CLOSED"
	OfferingArchived  OfferingStatus = "ARCHIVED"
)

var offeringTransitions = map[OfferingStatus][]OfferingStatus{
	OfferingDraft:     {OfferingPublished, OfferingArchived},
	OfferingPublished: {OfferingClosed, OfferingDraft},
	OfferingClosed:    {OfferingPublished, OfferingArchived},
	OfferingArchived:  {},
}

// StudentVisibleStatuses are the offering states students can browse
var StudentVisibleStatuses = []OfferingStatus{OfferingPublished, OfferingClosed}

// VisibleToStudents reports whether students may see an offering in state s
func (s OfferingStatus) VisibleToStudents() bool {
	return s == OfferingPublished || s == OfferingClosed
}

// CanTransitionTo reports whether an offering may move from s to next
func (s OfferingStatus) CanTransitionTo(next OfferingStatus) bool {
	for _, allowed := range offeringTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SelectionStatus is the approval state of a student selection
type SelectionStatus string

const (
	SelectionPending  SelectionStatus = "PENDING"
	SelectionApproved SelectionStatus = "APPROVED"
	SelectionRejected SelectionStatus = "REJECTED"
)

// Valid reports whether s is a known selection status
func (s SelectionStatus) Valid() bool {
	return s == SelectionPending || s == SelectionApproved || s == SelectionRejected
}

// CanReviewTo reports whether a manager may move a selection from s to next
func (s SelectionStatus) CanReviewTo(next SelectionStatus) bool {
	if s == next {
		return false
	}
	if s == SelectionPending {
		return next == SelectionApproved || next == SelectionRejected
	}
	// reviewed selections can only be reopened
	return next == SelectionPending
}
