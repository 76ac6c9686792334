package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/tenancy"
)

// Context keys set by the middleware chain
const (
	ContextUserID        = "userID"
	ContextEmail         = "email"
	ContextRole          = "roleType"
	ContextInstitutionID = "institutionID"
	ContextTenant        = "tenant"
	ContextHostKind      = "hostKind"
)

// GetUserID returns the authenticated user id, or 0
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// GetRole returns the authenticated user's role
func GetRole(c *gin.Context) models.RoleType {
	role, _ := c.Get(ContextRole)
	r, _ := role.(models.RoleType)
	return r
}

// GetTenant returns the institution resolved from the host, or nil on the
// root and admin hosts
func GetTenant(c *gin.Context) *models.Institution {
	v, ok := c.Get(ContextTenant)
	if !ok {
		return nil
	}
	inst, _ := v.(*models.Institution)
	return inst
}

// GetHostKind returns how the request host was classified
func GetHostKind(c *gin.Context) tenancy.HostKind {
	v, ok := c.Get(ContextHostKind)
	if !ok {
		return tenancy.HostUnknown
	}
	kind, _ := v.(tenancy.HostKind)
	return kind
}
