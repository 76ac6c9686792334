package models

import "time"

// SubscriptionPlan is a tier of limits assigned to institutions
type SubscriptionPlan struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	PriceCents     int64     `json:"priceCents" db:"price_cents"`
	Currency       string    `json:"currency" db:"currency"`
	MaxStudents    int       `json:"maxStudents" db:"max_students"`
	MaxActivePacks int       `json:"maxActivePacks" db:"max_active_packs"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// AllowsStudents reports whether current students leave room for one more.
// A zero limit means unlimited.
func (p *SubscriptionPlan) AllowsStudents(current int) bool {
	return p.MaxStudents == 0 || current < p.MaxStudents
}

// AllowsActivePacks reports whether one more published offering fits the plan
func (p *SubscriptionPlan) AllowsActivePacks(current int) bool {
	return p.MaxActivePacks == 0 || current < p.MaxActivePacks
}
