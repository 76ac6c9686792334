package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/app/services"
	"github.com/yigit/electivepro/internal/middleware"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
)

// InstitutionController handles tenant provisioning and branding
type InstitutionController struct {
	institutionService *services.InstitutionService
	logger             zerolog.Logger
}

// NewInstitutionController creates a new InstitutionController
func NewInstitutionController(institutionService *services.InstitutionService, logger zerolog.Logger) *InstitutionController {
	return &InstitutionController{institutionService: institutionService, logger: logger}
}

// Create provisions an institution and its first admin
func (c *InstitutionController) Create(ctx *gin.Context) {
	var req dto.CreateInstitutionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.institutionService.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("institutionID", resp.Institution.ID).
		Str("subdomain", resp.Institution.Subdomain).
		Int64("createdBy", middleware.GetUserID(ctx)).
		Msg("Institution created")
	respondCreated(ctx, resp, "Institution created")
}

// List pages through institutions, optionally filtered by ?search=
func (c *InstitutionController) List(ctx *gin.Context) {
	page, size := pageParams(ctx)

	items, pagination, err := c.institutionService.List(ctx.Request.Context(), ctx.Query("search"), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, pagination)
}

// Get returns one institution
func (c *InstitutionController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	inst, err := c.institutionService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, inst, "")
}

// Update changes the name and colour of an institution
func (c *InstitutionController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateInstitutionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	inst, err := c.institutionService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, inst, "Institution updated")
}

// SetActive activates or suspends an institution
func (c *InstitutionController) SetActive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	inst, err := c.institutionService.SetActive(ctx.Request.Context(), id, *req.IsActive)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("institutionID", id).Bool("active", inst.IsActive).Msg("Institution status changed")
	respondOK(ctx, inst, "Institution status updated")
}

// AssignPlan attaches or detaches a subscription plan
func (c *InstitutionController) AssignPlan(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.AssignPlanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	inst, err := c.institutionService.AssignPlan(ctx.Request.Context(), id, req.PlanID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, inst, "Plan assigned")
}

// Delete removes a deactivated institution with all its data
func (c *InstitutionController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.institutionService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Warn().Int64("institutionID", id).Int64("deletedBy", middleware.GetUserID(ctx)).Msg("Institution deleted")
	ctx.Status(http.StatusNoContent)
}

// Usage reports consumption against the plan
func (c *InstitutionController) Usage(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	usage, err := c.institutionService.Usage(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, usage, "")
}

// Branding is the public, unauthenticated view of the resolved tenant
func (c *InstitutionController) Branding(ctx *gin.Context) {
	inst := middleware.GetTenant(ctx)
	if inst == nil {
		middleware.HandleAPIError(ctx, apperrors.ErrTenantRequired)
		return
	}
	respondOK(ctx, dto.FromInstitutionBranding(inst), "")
}

// CurrentUsage reports the caller's institution usage
func (c *InstitutionController) CurrentUsage(ctx *gin.Context) {
	usage, err := c.institutionService.Usage(ctx.Request.Context(), tenantID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, usage, "")
}

// UpdateBranding lets a tenant admin rename or recolour the institution
func (c *InstitutionController) UpdateBranding(ctx *gin.Context) {
	var req dto.UpdateBrandingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	inst, err := c.institutionService.UpdateBranding(ctx.Request.Context(), tenantID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.FromInstitutionBranding(inst), "Branding updated")
}

// UploadLogo stores the multipart "logo" file as the institution logo
func (c *InstitutionController) UploadLogo(ctx *gin.Context) {
	header, err := ctx.FormFile("logo")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Logo file is required").WithField("logo")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	file, err := header.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer file.Close()

	inst, err := c.institutionService.UploadLogo(ctx.Request.Context(), tenantID(ctx), header.Filename, header.Size, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.FromInstitutionBranding(inst), "Logo uploaded")
}
