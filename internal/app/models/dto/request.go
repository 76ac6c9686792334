package dto

// UserListQuery filters the user list
type UserListQuery struct {
	Role   string `form:"role" binding:"omitempty,oneof=ADMIN PROGRAM_MANAGER STUDENT"`
	Search string `form:"search" binding:"max=100"`
	Active *bool  `form:"active"`
}

// CatalogListQuery filters courses and partner universities
type CatalogListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE ARCHIVED"`
	Search string `form:"search" binding:"max=100"`
}

// OfferingListQuery filters packs and programs
type OfferingListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED CLOSED ARCHIVED"`
}

// SelectionListQuery filters the selections of an offering
type SelectionListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
}
