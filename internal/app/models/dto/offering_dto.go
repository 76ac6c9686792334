package dto

import (
	"time"

	"github.com/yigit/electivepro/internal/app/models"
)

// OfferingRequest creates or updates an elective pack or exchange program
type OfferingRequest struct {
	Name          string          `json:"name" binding:"required,max=200"`
	Description   string          `json:"description" binding:"max=4000"`
	Semester      models.Semester `json:"semester" binding:"required,oneof=FALL SPRING SUMMER"`
	AcademicYear  string          `json:"academicYear" binding:"required,max=16"`
	Deadline      time.Time       `json:"deadline" binding:"required"`
	MaxSelections int             `json:"maxSelections" binding:"required,min=1"`
}

// ToModel builds an offering of kind from the request
func (r *OfferingRequest) ToModel(kind models.OfferingKind) *models.Offering {
	return &models.Offering{
		Kind:          kind,
		Name:          r.Name,
		Description:   r.Description,
		Semester:      r.Semester,
		AcademicYear:  r.AcademicYear,
		Deadline:      r.Deadline,
		MaxSelections: r.MaxSelections,
		Status:        models.OfferingDraft,
	}
}

// SetOptionsRequest replaces the options of a draft offering
type SetOptionsRequest struct {
	OptionIDs []int64 `json:"optionIds" binding:"required,min=1,unique,dive,min=1"`
}

// OfferingStatusRequest moves an offering through its lifecycle
type OfferingStatusRequest struct {
	Status models.OfferingStatus `json:"status" binding:"required,oneof=DRAFT PUBLISHED CLOSED ARCHIVED"`
}

// OptionView is one selectable option with live counts
type OptionView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	MaxStudents int    `json:"maxStudents"`
	Approved    int    `json:"approved"`
	Pending     int    `json:"pending"`
	IsFull      bool   `json:"isFull"`
}

// OfferingDetail is an offering with its options
type OfferingDetail struct {
	*models.Offering
	IsOpen      bool              `json:"isOpen"`
	Options     []OptionView      `json:"options"`
	MySelection *models.Selection `json:"mySelection,omitempty"`
}
