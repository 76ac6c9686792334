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

// maxImportSize caps the uploaded student CSV
const maxImportSize = 5 << 20

// UserController manages the users of an institution
type UserController struct {
	userService *services.UserService
	logger      zerolog.Logger
}

// NewUserController creates a new UserController
func NewUserController(userService *services.UserService, logger zerolog.Logger) *UserController {
	return &UserController{userService: userService, logger: logger}
}

// Create adds a staff member or student
func (c *UserController) Create(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.Create(ctx.Request.Context(), middleware.GetTenant(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("userID", user.ID).Str("role", string(user.RoleType)).Int64("institutionID", tenantID(ctx)).Msg("User created")
	respondCreated(ctx, dto.FromUser(user), "User created")
}

// List pages through the institution's users
func (c *UserController) List(ctx *gin.Context) {
	var q dto.UserListQuery
	if !middleware.BindQuery(ctx, &q) {
		return
	}
	page, size := pageParams(ctx)

	users, pagination, err := c.userService.List(ctx.Request.Context(), tenantID(ctx), models.UserFilter{
		Role:     models.RoleType(q.Role),
		Search:   q.Search,
		IsActive: q.Active,
		Page:     page,
		Size:     size,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondPage(ctx, dto.FromUsers(users), pagination)
}

// Get returns one user
func (c *UserController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	user, err := c.userService.Get(ctx.Request.Context(), tenantID(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.FromUser(user), "")
}

// Update edits a user's profile
func (c *UserController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.Update(ctx.Request.Context(), tenantID(ctx), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.FromUser(user), "User updated")
}

// SetActive enables or disables an account
func (c *UserController) SetActive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.SetActive(ctx.Request.Context(), tenantID(ctx), middleware.GetUserID(ctx), id, *req.IsActive)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("userID", id).Bool("active", user.IsActive).Msg("User status changed")
	respondOK(ctx, dto.FromUser(user), "User status updated")
}

// ImportStudents creates students from the multipart "file" CSV
func (c *UserController) ImportStudents(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxImportSize)

	header, err := ctx.FormFile("file")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "CSV file is required").
			WithField("file").
			WithDetails(err.Error())
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	file, err := header.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer file.Close()

	result, err := c.userService.ImportStudents(ctx.Request.Context(), middleware.GetTenant(ctx), file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("institutionID", tenantID(ctx)).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Student import finished")
	respondOK(ctx, result, "Import finished")
}
