package models

import "time"

// Course is an elective course in an institution catalog
type Course struct {
	ID            int64         `json:"id" db:"id"`
	InstitutionID int64         `json:"institutionId" db:"institution_id"`
	Code          string        `json:"code" db:"code"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description" db:"description"`
	Credits       int           `json:"credits" db:"credits"`
	Instructor    string        `json:"instructor" db:"instructor"`
	MaxStudents   int           `json:"maxStudents" db:"max_students"`
	Status        CatalogStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// PartnerUniversity is an exchange destination of an institution
type PartnerUniversity struct {
	ID            int64         `json:"id" db:"id"`
	InstitutionID int64         `json:"institutionId" db:"institution_id"`
	Name          string        `json:"name" db:"name"`
	Country       string        `json:"country" db:"country"`
	City          string        `json:"city" db:"city"`
	Website       string        `json:"website" db:"website"`
	MaxStudents   int           `json:"maxStudents" db:"max_students"`
	Status        CatalogStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// CatalogFilter narrows course and university listings
type CatalogFilter struct {
	Status CatalogStatus
	Search string
	Page   int
	Size   int
}
