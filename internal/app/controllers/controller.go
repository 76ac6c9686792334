// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/middleware"
	"github.com/yigit/electivepro/internal/pkg/helpers"
)

// parseIDParam reads a positive int64 path parameter, writing a 400 when it is malformed
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails(name + " must be a positive number")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// tenantID returns the id of the institution the request resolved to
func tenantID(ctx *gin.Context) int64 {
	if inst := middleware.GetTenant(ctx); inst != nil {
		return inst.ID
	}
	return 0
}

func respondOK(ctx *gin.Context, data any, message string) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(data, message))
}

func respondCreated(ctx *gin.Context, data any, message string) {
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(data, message))
}

func respondPage(ctx *gin.Context, items any, pagination dto.PaginationInfo) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{Items: items, Pagination: pagination}, ""))
}

func pageParams(ctx *gin.Context) (int, int) {
	return helpers.ParsePaginationParams(ctx)
}
