package dto

import "github.com/yigit/electivepro/internal/app/models"

// CreateInstitutionRequest creates a tenant together with its first admin
type CreateInstitutionRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=200"`
	Subdomain      string `json:"subdomain" binding:"required,subdomain"`
	PrimaryColor   string `json:"primaryColor" binding:"omitempty,hexcolor"`
	PlanID         *int64 `json:"planId" binding:"omitempty,min=1"`
	AdminEmail     string `json:"adminEmail" binding:"required,email"`
	AdminPassword  string `json:"adminPassword" binding:"required,min=8,max=72"`
	AdminFirstName string `json:"adminFirstName" binding:"required"`
	AdminLastName  string `json:"adminLastName" binding:"required"`
}

// UpdateInstitutionRequest updates tenant settings as a super admin.
// The subdomain is fixed at creation.
type UpdateInstitutionRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=200"`
	PrimaryColor string `json:"primaryColor" binding:"omitempty,hexcolor"`
}

// UpdateBrandingRequest is the subset of settings a tenant admin controls
type UpdateBrandingRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=200"`
	PrimaryColor string `json:"primaryColor" binding:"omitempty,hexcolor"`
}

// AssignPlanRequest attaches a plan to an institution; nil detaches it
type AssignPlanRequest struct {
	PlanID *int64 `json:"planId" binding:"omitempty,min=1"`
}

// SetActiveRequest toggles an active flag
type SetActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// BrandingResponse is the public face of a tenant
type BrandingResponse struct {
	Name         string  `json:"name"`
	Subdomain    string  `json:"subdomain"`
	PrimaryColor string  `json:"primaryColor"`
	LogoURL      *string `json:"logoUrl,omitempty"`
}

// FromInstitutionBranding extracts branding
func FromInstitutionBranding(inst *models.Institution) BrandingResponse {
	return BrandingResponse{
		Name:         inst.Name,
		Subdomain:    inst.Subdomain,
		PrimaryColor: inst.PrimaryColor,
		LogoURL:      inst.LogoURL,
	}
}

// InstitutionCreatedResponse is returned after provisioning a tenant
type InstitutionCreatedResponse struct {
	Institution *models.Institution `json:"institution"`
	Admin       UserResponse        `json:"admin"`
	URL         string              `json:"url"`
}

// PlanRequest creates or updates a subscription plan
type PlanRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=100"`
	Description    string `json:"description" binding:"max=1000"`
	PriceCents     int64  `json:"priceCents" binding:"min=0"`
	Currency       string `json:"currency" binding:"required,len=3"`
	MaxStudents    int    `json:"maxStudents" binding:"min=0"`
	MaxActivePacks int    `json:"maxActivePacks" binding:"min=0"`
	IsActive       *bool  `json:"isActive"`
}

// ToModel builds a plan from the request
func (r *PlanRequest) ToModel() *models.SubscriptionPlan {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.SubscriptionPlan{
		Name:           r.Name,
		Description:    r.Description,
		PriceCents:     r.PriceCents,
		Currency:       r.Currency,
		MaxStudents:    r.MaxStudents,
		MaxActivePacks: r.MaxActivePacks,
		IsActive:       active,
	}
}
