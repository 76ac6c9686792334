package dto

import (
	"github.com/yigit/electivepro/internal/app/models"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// RefreshTokenRequest carries a refresh token for rotation or logout
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ChangePasswordRequest changes the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// UserResponse represents user information returned to clients
type UserResponse struct {
	ID            int64           `json:"id"`
	InstitutionID *int64          `json:"institutionId,omitempty"`
	Email         string          `json:"email"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	Role          models.RoleType `json:"role"`
	StudentNumber *string         `json:"studentNumber,omitempty"`
	GroupName     *string         `json:"groupName,omitempty"`
	IsActive      bool            `json:"isActive"`
}

// AuthResponse represents successful authentication
type AuthResponse struct {
	Token      TokenResponse `json:"token"`
	User       UserResponse  `json:"user"`
	RedirectTo string        `json:"redirectTo"`
}

// LandingResponse tells a client where the caller's dashboard lives
type LandingResponse struct {
	Role       models.RoleType `json:"role"`
	RedirectTo string          `json:"redirectTo"`
}

// FromUser converts a user model to its response
func FromUser(u *models.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:            u.ID,
		InstitutionID: u.InstitutionID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.RoleType,
		StudentNumber: u.StudentNumber,
		GroupName:     u.GroupName,
		IsActive:      u.IsActive,
	}
}

// FromUsers converts a slice of users
func FromUsers(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}
