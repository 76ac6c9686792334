package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/app/services"
	"github.com/yigit/electivepro/internal/middleware"
)

// CourseController manages the course catalog
type CourseController struct {
	courseService *services.CourseService
	logger        zerolog.Logger
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService *services.CourseService, logger zerolog.Logger) *CourseController {
	return &CourseController{courseService: courseService, logger: logger}
}

func catalogFilter(ctx *gin.Context) (models.CatalogFilter, bool) {
	var q dto.CatalogListQuery
	if !middleware.BindQuery(ctx, &q) {
		return models.CatalogFilter{}, false
	}
	page, size := pageParams(ctx)
	return models.CatalogFilter{Status: models.CatalogStatus(q.Status), Search: q.Search, Page: page, Size: size}, true
}

// Create adds a course
func (c *CourseController) Create(ctx *gin.Context) {
	var req dto.CourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.Create(ctx.Request.Context(), tenantID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, course, "Course created")
}

// List pages through courses
func (c *CourseController) List(ctx *gin.Context) {
	f, ok := catalogFilter(ctx)
	if !ok {
		return
	}

	courses, pagination, err := c.courseService.List(ctx.Request.Context(), tenantID(ctx), f)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, courses, pagination)
}

// Get returns one course
func (c *CourseController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.courseService.Get(ctx.Request.Context(), tenantID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course, "")
}

// Update edits a course
func (c *CourseController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.CourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.Update(ctx.Request.Context(), tenantID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course, "Course updated")
}

// SetStatus archives or restores a course
func (c *CourseController) SetStatus(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.CatalogStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.SetStatus(ctx.Request.Context(), tenantID(ctx), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, course, "Course status updated")
}

// Delete removes a course no offering references
func (c *CourseController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.courseService.Delete(ctx.Request.Context(), tenantID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UniversityController manages partner universities
type UniversityController struct {
	universityService *services.UniversityService
	logger            zerolog.Logger
}

// NewUniversityController creates a new UniversityController
func NewUniversityController(universityService *services.UniversityService, logger zerolog.Logger) *UniversityController {
	return &UniversityController{universityService: universityService, logger: logger}
}

// Create adds a partner university
func (c *UniversityController) Create(ctx *gin.Context) {
	var req dto.UniversityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	uni, err := c.universityService.Create(ctx.Request.Context(), tenantID(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, uni, "Partner university created")
}

// List pages through partner universities
func (c *UniversityController) List(ctx *gin.Context) {
	f, ok := catalogFilter(ctx)
	if !ok {
		return
	}

	unis, pagination, err := c.universityService.List(ctx.Request.Context(), tenantID(ctx), f)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, unis, pagination)
}

// Get returns one partner university
func (c *UniversityController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	uni, err := c.universityService.Get(ctx.Request.Context(), tenantID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, uni, "")
}

// Update edits a partner university
func (c *UniversityController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UniversityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	uni, err := c.universityService.Update(ctx.Request.Context(), tenantID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, uni, "Partner university updated")
}

// SetStatus archives or restores a partner university
func (c *UniversityController) SetStatus(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.CatalogStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	uni, err := c.universityService.SetStatus(ctx.Request.Context(), tenantID(ctx), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, uni, "Partner university status updated")
}

// Delete removes a partner university no program references
func (c *UniversityController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.universityService.Delete(ctx.Request.Context(), tenantID(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
