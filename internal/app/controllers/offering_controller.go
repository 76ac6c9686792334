package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/app/services"
	"github.com/yigit/electivepro/internal/middleware"
)

// OfferingController serves one offering kind: elective packs or exchange
// programs share every handler and differ only in the services they use.
type OfferingController struct {
	offeringService  *services.OfferingService
	selectionService *services.SelectionService
	logger           zerolog.Logger
}

// NewOfferingController creates a new OfferingController
func NewOfferingController(offeringService *services.OfferingService, selectionService *services.SelectionService, logger zerolog.Logger) *OfferingController {
	return &OfferingController{
		offeringService:  offeringService,
		selectionService: selectionService,
		logger:           logger.With().Str("kind", string(offeringService.Kind())).Logger(),
	}
}

// Create adds a draft offering
func (c *OfferingController) Create(ctx *gin.Context) {
	var req dto.OfferingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	o, err := c.offeringService.Create(ctx.Request.Context(), tenantID(ctx), middleware.GetUserID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("offeringID", o.ID).Int64("institutionID", o.InstitutionID).Msg("Offering created")
	respondCreated(ctx, o, "Created")
}

// List pages through offerings for staff
func (c *OfferingController) List(ctx *gin.Context) {
	var q dto.OfferingListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	page, size := pageParams(ctx)

	items, pagination, err := c.offeringService.List(ctx.Request.Context(), tenantID(ctx), models.OfferingFilter{
		Status: models.OfferingStatus(q.Status),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, pagination)
}

// Get returns an offering with its options and counts
func (c *OfferingController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.offeringService.Get(ctx.Request.Context(), tenantID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, detail, "")
}

// Update edits the offering settings
func (c *OfferingController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.OfferingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	o, err := c.offeringService.Update(ctx.Request.Context(), tenantID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, o, "Updated")
}

// SetOptions replaces the options of a draft offering
func (c *OfferingController) SetOptions(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SetOptionsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	o, err := c.offeringService.SetOptions(ctx.Request.Context(), tenantID(ctx), id, req.OptionIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, o, "Options updated")
}

// ChangeStatus publishes, closes, archives or reverts an offering
func (c *OfferingController) ChangeStatus(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.OfferingStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	o, err := c.offeringService.ChangeStatus(ctx.Request.Context(), tenantID(ctx), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("offeringID", id).Str("status", string(o.Status)).Msg("Offering status changed")
	respondOK(ctx, o, "Status updated")
}

// Delete removes a draft offering
func (c *OfferingController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.offeringService.Delete(ctx.Request.Context(), tenantID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Selections lists the selections made for an offering
func (c *OfferingController) Selections(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var q dto.SelectionListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	page, size := pageParams(ctx)

	items, pagination, err := c.selectionService.ListForOffering(ctx.Request.Context(), tenantID(ctx), id, models.SelectionFilter{
		Status: models.SelectionStatus(q.Status),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, pagination)
}

// Export downloads the selections of an offering as CSV
func (c *OfferingController) Export(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := c.selectionService.Export(ctx.Request.Context(), tenantID(ctx), id, &buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	filename := fmt.Sprintf("%s-%d-selections.csv", c.offeringService.Kind().Slug(), id)
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Review approves, rejects or reopens a selection
func (c *OfferingController) Review(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "selectionId")
	if !ok {
		return
	}
	var req dto.ReviewSelectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	reviewerID := middleware.GetUserID(ctx)
	sel, err := c.selectionService.Review(ctx.Request.Context(), tenantID(ctx), reviewerID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("selectionID", id).Int64("reviewerID", reviewerID).Str("status", string(sel.Status)).Msg("Selection reviewed")
	respondOK(ctx, sel, "Selection reviewed")
}

// StudentList shows the student the offerings open to them
func (c *OfferingController) StudentList(ctx *gin.Context) {
	page, size := pageParams(ctx)

	items, pagination, err := c.offeringService.ListForStudent(ctx.Request.Context(), tenantID(ctx), middleware.GetUserID(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, items, pagination)
}

// StudentGet shows one offering with the student's own selection
func (c *OfferingController) StudentGet(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.offeringService.GetForStudent(ctx.Request.Context(), tenantID(ctx), middleware.GetUserID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, detail, "")
}

// Submit creates or replaces the student's selection
func (c *OfferingController) Submit(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SubmitSelectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	studentID := middleware.GetUserID(ctx)
	sel, err := c.selectionService.Submit(ctx.Request.Context(), tenantID(ctx), studentID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("offeringID", id).Int64("studentID", studentID).Ints64("options", sel.OptionIDs).Msg("Selection submitted")
	respondOK(ctx, sel, "Selection submitted")
}

// Withdraw deletes the student's pending selection
func (c *OfferingController) Withdraw(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.selectionService.Withdraw(ctx.Request.Context(), tenantID(ctx), middleware.GetUserID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// MySelections lists the student's selections of this kind
func (c *OfferingController) MySelections(ctx *gin.Context) {
	list, err := c.selectionService.Mine(ctx.Request.Context(), tenantID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, list, "")
}
