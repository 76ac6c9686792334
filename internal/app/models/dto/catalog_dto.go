package dto

import "github.com/yigit/electivepro/internal/app/models"

// CourseRequest creates or updates a course
type CourseRequest struct {
	Code        string `json:"code" binding:"required,max=32"`
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=4000"`
	Credits     int    `json:"credits" binding:"min=0,max=60"`
	Instructor  string `json:"instructor" binding:"max=200"`
	MaxStudents int    `json:"maxStudents" binding:"min=0"`
}

// ToModel builds a course from the request
func (r *CourseRequest) ToModel() *models.Course {
	return &models.Course{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Credits:     r.Credits,
		Instructor:  r.Instructor,
		MaxStudents: r.MaxStudents,
		Status:      models.CatalogActive,
	}
}

// UniversityRequest creates or updates a partner university
type UniversityRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Country     string `json:"country" binding:"required,max=100"`
	City        string `json:"city" binding:"max=100"`
	Website     string `json:"website" binding:"omitempty,url"`
	MaxStudents int    `json:"maxStudents" binding:"min=0"`
}

// ToModel builds a university from the request
func (r *UniversityRequest) ToModel() *models.PartnerUniversity {
	return &models.PartnerUniversity{
		Name:        r.Name,
		Country:     r.Country,
		City:        r.City,
		Website:     r.Website,
		MaxStudents: r.MaxStudents,
		Status:      models.CatalogActive,
	}
}

// CatalogStatusRequest archives or restores a catalog entry
type CatalogStatusRequest struct {
	Status models.CatalogStatus `json:"status" binding:"required,oneof=ACTIVE ARCHIVED"`
}
