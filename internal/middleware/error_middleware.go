package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/logger"
)

type errorMapping struct {
	errs    []error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; the first sentinel matched wins
var errorMappings = []errorMapping{
	{[]error{apperrors.ErrTenantNotFound}, http.StatusNotFound, dto.ErrorCodeTenantNotFound, "Institution not found"},
	{[]error{apperrors.ErrTenantInactive}, http.StatusForbidden, dto.ErrorCodeTenantInactive, "Institution is inactive"},
	{[]error{apperrors.ErrTenantRequired}, http.StatusBadRequest, dto.ErrorCodeTenantRequired, "Institution required"},
	{[]error{apperrors.ErrTenantMismatch}, http.StatusForbidden, dto.ErrorCodeTenantMismatch, "Token does not belong to this institution"},

	{[]error{apperrors.ErrInvalidCredentials}, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{[]error{apperrors.ErrTokenExpired}, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{[]error{apperrors.ErrTokenInvalid, apperrors.ErrTokenRevoked}, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{[]error{apperrors.ErrTokenNotFound}, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{[]error{apperrors.ErrAccountDisabled}, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},
	{[]error{apperrors.ErrTooManyRequests}, http.StatusTooManyRequests, dto.ErrorCodeTooManyRequests, "Too many requests"},
	{[]error{apperrors.ErrPermissionDenied}, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{[]error{apperrors.ErrInvalidPassword}, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},

	{[]error{apperrors.ErrPlanLimitReached, apperrors.ErrNoPlanAssigned}, http.StatusForbidden, dto.ErrorCodePlanLimit, "Subscription plan limit reached"},
	{[]error{apperrors.ErrPlanInactive}, http.StatusBadRequest, dto.ErrorCodeResourceInvalid, "Subscription plan is inactive"},

	{[]error{apperrors.ErrPackNotOpen, apperrors.ErrDeadlinePassed}, http.StatusConflict, dto.ErrorCodeSelectionClosed, "Selection is closed"},
	{[]error{
		apperrors.ErrSelectionLimit, apperrors.ErrSelectionEmpty, apperrors.ErrSelectionDuplicate, apperrors.ErrOptionNotInOffering,
	}, http.StatusBadRequest, dto.ErrorCodeSelectionInvalid, "Invalid selection"},
	{[]error{apperrors.ErrCapacityReached}, http.StatusConflict, dto.ErrorCodeCapacityReached, "No remaining capacity"},
	{[]error{apperrors.ErrSelectionFinalized}, http.StatusConflict, dto.ErrorCodeSelectionReviewed, "Selection has already been reviewed"},

	{[]error{
		apperrors.ErrResourceNotFound, apperrors.ErrUserNotFound, apperrors.ErrPlanNotFound, apperrors.ErrCourseNotFound,
		apperrors.ErrUniversityNotFound, apperrors.ErrPackNotFound, apperrors.ErrProgramNotFound, apperrors.ErrSelectionNotFound,
	}, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{[]error{
		apperrors.ErrResourceAlreadyExists, apperrors.ErrEmailAlreadyExists, apperrors.ErrStudentNumberExists,
		apperrors.ErrSubdomainTaken, apperrors.ErrPlanAlreadyExists, apperrors.ErrCourseAlreadyExists,
		apperrors.ErrUniversityAlreadyExists,
	}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{[]error{
		apperrors.ErrConflict, apperrors.ErrPlanInUse, apperrors.ErrInstitutionIsActive,
		apperrors.ErrInvalidStatusChange, apperrors.ErrPackNotEditable, apperrors.ErrOfferingHasSelections,
	}, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
	{[]error{apperrors.ErrValidationFailed, apperrors.ErrBadRequest, apperrors.ErrInvalidSelectionLimit},
		http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorDetailFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Str("method", c.Request.Method).Msg("Unhandled error")
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

// ErrorDetailFor maps err onto an HTTP status and error detail
func ErrorDetailFor(err error) (int, *dto.ErrorDetail) {
	for _, m := range errorMappings {
		for _, target := range m.errs {
			if !errors.Is(err, target) {
				continue
			}
			detail := dto.NewErrorDetail(m.code, m.message)
			decorate(detail, err)
			return m.status, detail
		}
	}
	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}

// decorate copies the specific message and details of err onto detail
func decorate(detail *dto.ErrorDetail, err error) {
	detail.Message = err.Error()

	var custom *apperrors.CustomError
	if !errors.As(err, &custom) || len(custom.Details) == 0 {
		return
	}
	if field, ok := custom.Details["field"].(string); ok {
		detail.Field = field
	}
	detail.Details = custom.Details
}
