package dto

import "github.com/yigit/electivepro/internal/app/models"

// CreateUserRequest creates a user inside the caller's institution
type CreateUserRequest struct {
	Email         string          `json:"email" binding:"required,email"`
	Password      string          `json:"password" binding:"required,min=8,max=72"`
	FirstName     string          `json:"firstName" binding:"required,max=100"`
	LastName      string          `json:"lastName" binding:"required,max=100"`
	Role          models.RoleType `json:"role" binding:"required,oneof=ADMIN PROGRAM_MANAGER STUDENT"`
	StudentNumber string          `json:"studentNumber" binding:"required_if=Role STUDENT,max=32"`
	GroupName     string          `json:"groupName" binding:"max=64"`
}

// UpdateUserRequest updates profile fields of a user
type UpdateUserRequest struct {
	FirstName     string `json:"firstName" binding:"required,max=100"`
	LastName      string `json:"lastName" binding:"required,max=100"`
	StudentNumber string `json:"studentNumber" binding:"max=32"`
	GroupName     string `json:"groupName" binding:"max=64"`
}

// ImportRowError reports a rejected line of a bulk import
type ImportRowError struct {
	Line  int    `json:"line"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

// ImportResult summarises a bulk student import
type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors"`
}
