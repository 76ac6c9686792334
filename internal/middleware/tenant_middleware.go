package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/tenancy"
)

// TenantResolver looks institutions up by subdomain
type TenantResolver interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error)
}

// TenantConfig controls host resolution
type TenantConfig struct {
	RootDomain string
	// DevHeader names a header that selects a tenant directly; empty disables it
	DevHeader string
}

// TenantMiddleware resolves the institution a request is addressed to
type TenantMiddleware struct {
	resolver TenantResolver
	cfg      TenantConfig
	logger   zerolog.Logger
}

// NewTenantMiddleware creates a new TenantMiddleware
func NewTenantMiddleware(resolver TenantResolver, cfg TenantConfig, logger zerolog.Logger) *TenantMiddleware {
	return &TenantMiddleware{resolver: resolver, cfg: cfg, logger: logger}
}

// ResolveTenant classifies the host and loads the institution for tenant
// hosts. Root and admin hosts continue without a tenant.
func (m *TenantMiddleware) ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := tenancy.ParseHost(c.Request.Host, m.cfg.RootDomain)

		if m.cfg.DevHeader != "" {
			if sub := strings.ToLower(strings.TrimSpace(c.GetHeader(m.cfg.DevHeader))); sub != "" {
				info = tenancy.HostInfo{Host: info.Host, Kind: tenancy.HostTenant, Subdomain: sub}
			}
		}

		c.Set(ContextHostKind, info.Kind)

		switch info.Kind {
		case tenancy.HostRoot, tenancy.HostAdmin:
			c.Next()
			return
		case tenancy.HostUnknown:
			abortWithError(c, http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeTenantNotFound, "Unknown host"))
			return
		}

		inst, err := m.resolver.GetBySubdomain(c.Request.Context(), info.Subdomain)
		if err != nil {
			if errors.Is(err, apperrors.ErrTenantNotFound) {
				abortWithError(c, http.StatusNotFound,
					dto.NewErrorDetail(dto.ErrorCodeTenantNotFound, "Institution not found").WithField("subdomain"))
				return
			}
			m.logger.Error().Err(err).Str("subdomain", info.Subdomain).Msg("Failed to resolve tenant")
			abortWithError(c, http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"))
			return
		}

		if !inst.IsActive {
			abortWithError(c, http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeTenantInactive, "Institution is inactive"))
			return
		}

		c.Set(ContextTenant, inst)
		c.Next()
	}
}

// TenantRequired rejects requests that were not resolved to an institution
func (m *TenantMiddleware) TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetTenant(c) == nil {
			abortWithError(c, http.StatusBadRequest,
				dto.NewErrorDetail(dto.ErrorCodeTenantRequired, "This endpoint must be called on an institution subdomain"))
			return
		}
		c.Next()
	}
}

// AdminHostRequired hides platform administration outside the admin host
func (m *TenantMiddleware) AdminHostRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetHostKind(c) != tenancy.HostAdmin {
			abortWithError(c, http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Not found"))
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, detail *dto.ErrorDetail) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
