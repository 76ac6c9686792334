package apperrors

import "errors"

// Common errors
var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTooManyRequests    = errors.New("too many requests")

	ErrPermissionDenied = errors.New("permission denied")

	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrBadRequest       = errors.New("bad request")

	ErrUserNotFound        = errors.New("user not found")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrStudentNumberExists = errors.New("student number already exists")
)

// Tenant errors
var (
	ErrTenantNotFound      = errors.New("institution not found")
	ErrTenantInactive      = errors.New("institution is inactive")
	ErrTenantRequired      = errors.New("request is not scoped to an institution")
	ErrTenantMismatch      = errors.New("token does not belong to this institution")
	ErrSubdomainTaken      = errors.New("subdomain already in use")
	ErrInstitutionIsActive = errors.New("institution must be deactivated before deletion")
)

// Plan errors
var (
	ErrPlanNotFound      = errors.New("subscription plan not found")
	ErrPlanAlreadyExists = errors.New("subscription plan with this name already exists")
	ErrPlanInUse         = errors.New("subscription plan is assigned to institutions")
	ErrPlanLimitReached  = errors.New("subscription plan limit reached")
	ErrNoPlanAssigned    = errors.New("institution has no subscription plan")
	ErrPlanInactive      = errors.New("subscription plan is inactive")
)

// Catalog errors
var (
	ErrCourseNotFound          = errors.New("course not found")
	ErrCourseAlreadyExists     = errors.New("course with this code already exists")
	ErrUniversityNotFound      = errors.New("partner university not found")
	ErrUniversityAlreadyExists = errors.New("partner university with this name already exists")
)

// Pack and program errors
var (
	ErrPackNotFound          = errors.New("elective pack not found")
	ErrProgramNotFound       = errors.New("exchange program not found")
	ErrInvalidStatusChange   = errors.New("status transition not allowed")
	ErrPackNotEditable       = errors.New("only draft offerings can change their options")
	ErrOfferingHasSelections = errors.New("options cannot change once students have made selections")
	ErrPackNotOpen           = errors.New("offering is not open for selection")
	ErrDeadlinePassed        = errors.New("selection deadline has passed")
	ErrInvalidSelectionLimit = errors.New("selection limit must be between 1 and the number of options")
)

// Selection errors
var (
	ErrSelectionNotFound   = errors.New("selection not found")
	ErrSelectionLimit      = errors.New("too many options selected")
	ErrSelectionEmpty      = errors.New("at least one option must be selected")
	ErrSelectionDuplicate  = errors.New("an option was selected more than once")
	ErrOptionNotInOffering = errors.New("selected option does not belong to this offering")
	ErrCapacityReached     = errors.New("option has no remaining capacity")
	ErrSelectionFinalized  = errors.New("selection has already been reviewed")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrPermissionDenied, Message: message}
}

// NewValidationError wraps ErrValidationFailed with a field-level message
func NewValidationError(field, message string) *CustomError {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]any{"field": field},
	}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]any
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{Err: err, Message: message}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]any) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
