package models

import "time"

// OfferingKind distinguishes the two selectable bundles
type OfferingKind string

const (
	KindElective OfferingKind = "ELECTIVE"
	KindExchange OfferingKind = "EXCHANGE"
)

// SeatOptions returns the options a selection occupies once approved:
// every course of an elective selection, only the first choice of an exchange one.
func (k OfferingKind) SeatOptions(optionIDs []int64) []int64 {
	if k == KindExchange && len(optionIDs) > 1 {
		return optionIDs[:1]
	}
	return optionIDs
}

// Slug names the kind in URLs and file names
func (k OfferingKind) Slug() string {
	if k == KindExchange {
		return "program"
	}
	return "pack"
}

// Offering is an elective pack (options are courses) or an exchange program
// (options are partner universities). Both share deadline and limit rules.
type Offering struct {
	ID            int64          `json:"id" db:"id"`
	InstitutionID int64          `json:"institutionId" db:"institution_id"`
	Kind          OfferingKind   `json:"kind" db:"kind"`
	Name          string         `json:"name" db:"name"`
	Description   string         `json:"description" db:"description"`
	Semester      Semester       `json:"semester" db:"semester"`
	AcademicYear  string         `json:"academicYear" db:"academic_year"`
	Deadline      time.Time      `json:"deadline" db:"deadline"`
	MaxSelections int            `json:"maxSelections" db:"max_selections"`
	Status        OfferingStatus `json:"status" db:"status"`
	CreatedBy     int64          `json:"createdBy" db:"created_by"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
	OptionIDs     []int64        `json:"optionIds,omitempty" db:"-"`
}

// IsOpen reports whether students can submit selections at now
func (o *Offering) IsOpen(now time.Time) bool {
	return o.Status == OfferingPublished && now.Before(o.Deadline)
}

// HasOption reports whether id is one of the offering options
func (o *Offering) HasOption(id int64) bool {
	for _, opt := range o.OptionIDs {
		if opt == id {
			return true
		}
	}
	return false
}

// OfferingFilter narrows pack and program listings
type OfferingFilter struct {
	Status OfferingStatus
	// Statuses is used when Status is empty
	Statuses []OfferingStatus
	Page     int
	Size     int
}

// OptionUsage counts selections referencing an option
type OptionUsage struct {
	OptionID    int64 `json:"optionId"`
	Pending     int   `json:"pending"`
	Approved    int   `json:"approved"`
	MaxStudents int   `json:"maxStudents"`
}

// HasCapacity reports whether one more approval fits
func (u OptionUsage) HasCapacity() bool {
	return u.MaxStudents == 0 || u.Approved < u.MaxStudents
}
