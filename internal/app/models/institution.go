package models

import "time"

// Institution is a tenant: a university with its own subdomain and data scope
type Institution struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Subdomain    string    `json:"subdomain" db:"subdomain"`
	PrimaryColor string    `json:"primaryColor" db:"primary_color"`
	LogoURL      *string   `json:"logoUrl,omitempty" db:"logo_url"`
	PlanID       *int64    `json:"planId,omitempty" db:"plan_id"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// InstitutionUsage is the consumption of an institution against its plan
type InstitutionUsage struct {
	InstitutionID     int64             `json:"institutionId"`
	Students          int               `json:"students"`
	Staff             int               `json:"staff"`
	ActivePacks       int               `json:"activePacks"`
	PendingSelections int               `json:"pendingSelections"`
	Plan              *SubscriptionPlan `json:"plan,omitempty"`
}
