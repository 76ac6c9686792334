package dto

import "github.com/yigit/electivepro/internal/app/models"

// SubmitSelectionRequest submits or replaces a student's choice
type SubmitSelectionRequest struct {
	OptionIDs []int64 `json:"optionIds" binding:"required,min=1,unique,dive,min=1"`
	Statement string  `json:"statement" binding:"max=2000"`
}

// ReviewSelectionRequest approves, rejects or reopens a selection
type ReviewSelectionRequest struct {
	Status  models.SelectionStatus `json:"status" binding:"required,oneof=APPROVED REJECTED PENDING"`
	Comment string                 `json:"comment" binding:"max=2000"`
}

// DashboardStats summarises an institution for staff dashboards
type DashboardStats struct {
	Students          int `json:"students"`
	ActivePacks       int `json:"activePacks"`
	ActivePrograms    int `json:"activePrograms"`
	PendingSelections int `json:"pendingSelections"`
}
