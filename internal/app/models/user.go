package models

import "time"

// User is an account. InstitutionID is nil only for super admins.
type User struct {
	ID            int64      `json:"id" db:"id"`
	InstitutionID *int64     `json:"institutionId,omitempty" db:"institution_id"`
	Email         string     `json:"email" db:"email"`
	Password      string     `json:"-" db:"password"`
	FirstName     string     `json:"firstName" db:"first_name"`
	LastName      string     `json:"lastName" db:"last_name"`
	RoleType      RoleType   `json:"roleType" db:"role_type"`
	StudentNumber *string    `json:"studentNumber,omitempty" db:"student_number"`
	GroupName     *string    `json:"groupName,omitempty" db:"group_name"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// TenantID returns the institution id or 0 for platform users
func (u *User) TenantID() int64 {
	if u.InstitutionID == nil {
		return 0
	}
	return *u.InstitutionID
}

// UserFilter narrows user listings
type UserFilter struct {
	Role     RoleType
	Search   string
	IsActive *bool
	Page     int
	Size     int
}
