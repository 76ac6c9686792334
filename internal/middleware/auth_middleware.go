package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized,
				dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").WithDetails("Authorization header missing"))
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized,
				dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").WithDetails("Invalid token format"))
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			errorCode := dto.ErrorCodeInvalidToken
			errorDetails := "Invalid token"
			switch {
			case errors.Is(err, apperrors.ErrTokenExpired):
				errorCode = dto.ErrorCodeExpiredToken
				errorDetails = "Token has expired"
			case errors.Is(err, auth.ErrInvalidFormat):
				errorDetails = "Invalid token format"
			}
			abortWithError(c, http.StatusUnauthorized,
				dto.NewErrorDetail(errorCode, "Authentication failed").WithDetails(errorDetails))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextInstitutionID, claims.InstitutionID)

		c.Next()
	}
}

// TenantMatch requires the token to belong to the resolved institution.
// Super admins may act on any institution.
func (m *AuthMiddleware) TenantMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) == models.RoleSuperAdmin {
			c.Next()
			return
		}

		tenant := GetTenant(c)
		if tenant == nil || tenant.ID != c.GetInt64(ContextInstitutionID) {
			abortWithError(c, http.StatusForbidden,
				dto.NewErrorDetail(dto.ErrorCodeTenantMismatch, "Token does not belong to this institution"))
			return
		}
		c.Next()
	}
}

// RoleRequired allows only the listed roles. Super admins always pass.
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return roleGuard(true, roles)
}

// StudentOnly admits students of the tenant and nobody else. Selections are
// recorded against the caller, so super admins are refused here.
func (m *AuthMiddleware) StudentOnly() gin.HandlerFunc {
	return roleGuard(false, []models.RoleType{models.RoleStudent})
}

func roleGuard(superAdminPasses bool, roles []models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			abortWithError(c, http.StatusUnauthorized,
				dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").WithDetails("User role not found"))
			return
		}
		if superAdminPasses && role == models.RoleSuperAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden,
			dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("You don't have sufficient permissions for this operation"))
	}
}

// SuperAdminOnly allows only platform super admins
func (m *AuthMiddleware) SuperAdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != models.RoleSuperAdmin {
			abortWithError(c, http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied"))
			return
		}
		c.Next()
	}
}
