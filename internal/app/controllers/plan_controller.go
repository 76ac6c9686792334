package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/app/services"
	"github.com/yigit/electivepro/internal/middleware"
)

// PlanController manages subscription plans on the admin host
type PlanController struct {
	planService *services.PlanService
	logger      zerolog.Logger
}

// NewPlanController creates a new PlanController
func NewPlanController(planService *services.PlanService, logger zerolog.Logger) *PlanController {
	return &PlanController{planService: planService, logger: logger}
}

// Create adds a plan
func (c *PlanController) Create(ctx *gin.Context) {
	var req dto.PlanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	plan, err := c.planService.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("planID", plan.ID).Str("name", plan.Name).Msg("Subscription plan created")
	respondCreated(ctx, plan, "Plan created")
}

// List returns every plan
func (c *PlanController) List(ctx *gin.Context) {
	plans, err := c.planService.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, plans, "")
}

// Get returns one plan
func (c *PlanController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	plan, err := c.planService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, plan, "")
}

// Update replaces a plan's settings
func (c *PlanController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.PlanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	plan, err := c.planService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, plan, "Plan updated")
}

// Delete removes a plan no institution uses
func (c *PlanController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.planService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("planID", id).Msg("Subscription plan deleted")
	ctx.Status(http.StatusNoContent)
}
