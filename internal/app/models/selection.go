package models

import "time"

// Selection is a student's submitted choice for an offering. For exchange
// programs OptionIDs are ordered by priority.
type Selection struct {
	ID            int64           `json:"id" db:"id"`
	InstitutionID int64           `json:"institutionId" db:"institution_id"`
	OfferingID    int64           `json:"offeringId" db:"offering_id"`
	StudentID     int64           `json:"studentId" db:"student_id"`
	Status        SelectionStatus `json:"status" db:"status"`
	Statement     string          `json:"statement" db:"statement"`
	ReviewerID    *int64          `json:"reviewerId,omitempty" db:"reviewer_id"`
	ReviewComment *string         `json:"reviewComment,omitempty" db:"review_comment"`
	ReviewedAt    *time.Time      `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	OptionIDs     []int64         `json:"optionIds" db:"-"`

	Student *User `json:"student,omitempty" db:"-"`
}

// SelectionFilter narrows selection listings
type SelectionFilter struct {
	Status SelectionStatus
	Page   int
	Size   int
}
