package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
	"github.com/yigit/electivepro/internal/pkg/helpers"
)

// importColumns is the header a student CSV must start with; a sixth
// password column is optional
var importColumns = []string{"email", "first_name", "last_name", "student_number", "group_name"}

// studentRow is one parsed line of a student import
type studentRow struct {
	Email         string `validate:"required,email"`
	FirstName     string `validate:"required,max=100"`
	LastName      string `validate:"required,max=100"`
	StudentNumber string `validate:"required,max=32"`
	GroupName     string `validate:"max=64"`
	Password      string `validate:"omitempty,min=8,max=72"`

	generated bool
}

// UserService manages the accounts of an institution
type UserService struct {
	userRepo UserRepository
	limits   planLimits
	notifier Notifier
	urls     func(*models.Institution) string
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewUserService creates a new UserService. loginURL builds the sign-in link
// put in welcome emails.
func NewUserService(
	userRepo UserRepository,
	instRepo InstitutionRepository,
	planRepo PlanRepository,
	notifier Notifier,
	loginURL func(*models.Institution) string,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		limits:   planLimits{institutions: instRepo, plans: planRepo},
		notifier: notifier,
		urls:     loginURL,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create adds a user to tenant
func (s *UserService) Create(ctx context.Context, tenant *models.Institution, req *dto.CreateUserRequest) (*models.User, error) {
	if req.Role == models.RoleSuperAdmin || !req.Role.Valid() {
		return nil, apperrors.NewValidationError("role", "role must be ADMIN, PROGRAM_MANAGER or STUDENT")
	}
	if req.Role == models.RoleStudent {
		if strings.TrimSpace(req.StudentNumber) == "" {
			return nil, apperrors.NewValidationError("studentNumber", "students require a student number")
		}
		if err := s.checkStudentLimit(ctx, tenant.ID, 1); err != nil {
			return nil, err
		}
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		InstitutionID: &tenant.ID,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Password:      hash,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		RoleType:      req.Role,
		StudentNumber: optional(req.StudentNumber),
		GroupName:     optional(req.GroupName),
		IsActive:      true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.welcome(ctx, tenant, u, "")
	s.logger.Info().Int64("institutionID", tenant.ID).Int64("userID", u.ID).Str("role", string(u.RoleType)).Msg("User created")
	return u, nil
}

// checkStudentLimit fails when adding n students would exceed the plan
func (s *UserService) checkStudentLimit(ctx context.Context, institutionID int64, n int) error {
	plan, err := s.limits.forInstitution(ctx, institutionID)
	if err != nil {
		return err
	}
	if plan.MaxStudents == 0 {
		return nil
	}
	current, err := s.userRepo.CountByRole(ctx, institutionID, models.RoleStudent)
	if err != nil {
		return fmt.Errorf("error counting students: %w", err)
	}
	if current+n > plan.MaxStudents {
		return limitError("students", plan.MaxStudents)
	}
	return nil
}

func (s *UserService) welcome(ctx context.Context, tenant *models.Institution, u *models.User, tempPassword string) {
	if err := s.notifier.Welcome(ctx, u.Email, u.FullName(), tenant.Name, s.urls(tenant), tempPassword); err != nil {
		s.logger.Warn().Err(err).Int64("userID", u.ID).Msg("Failed to send welcome email")
	}
}

// List returns a page of users of an institution
func (s *UserService) List(ctx context.Context, institutionID int64, f models.UserFilter) ([]*models.User, dto.PaginationInfo, error) {
	offset, limit := helpers.CalculateOffsetLimit(f.Page, f.Size)
	f.Search = strings.TrimSpace(f.Search)
	users, total, err := s.userRepo.List(ctx, institutionID, f, offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return users, helpers.NewPaginationInfo(total, f.Page, f.Size), nil
}

// Get returns one user of an institution
func (s *UserService) Get(ctx context.Context, institutionID, id int64) (*models.User, error) {
	return s.userRepo.GetInInstitution(ctx, institutionID, id)
}

// Update changes profile fields
func (s *UserService) Update(ctx context.Context, institutionID, id int64, req *dto.UpdateUserRequest) (*models.User, error) {
	u, err := s.userRepo.GetInInstitution(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	if u.RoleType == models.RoleStudent && strings.TrimSpace(req.StudentNumber) == "" {
		return nil, apperrors.NewValidationError("studentNumber", "students require a student number")
	}

	u.FirstName = strings.TrimSpace(req.FirstName)
	u.LastName = strings.TrimSpace(req.LastName)
	u.StudentNumber = optional(req.StudentNumber)
	u.GroupName = optional(req.GroupName)

	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetActive enables or disables an account. Admins cannot disable themselves.
func (s *UserService) SetActive(ctx context.Context, institutionID, callerID, id int64, active bool) (*models.User, error) {
	if id == callerID && !active {
		return nil, apperrors.NewForbiddenError("you cannot deactivate your own account")
	}
	u, err := s.userRepo.GetInInstitution(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive == active {
		return u, nil
	}
	u.IsActive = active
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ImportStudents creates students from CSV. Invalid or duplicate rows are
// reported and skipped; the rest are inserted. The plan limit is checked
// against the number of valid rows before anything is written.
func (s *UserService) ImportStudents(ctx context.Context, tenant *models.Institution, r io.Reader) (*dto.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewValidationError("file", "csv file is empty")
		}
		return nil, apperrors.NewValidationError("file", "could not read csv header: "+err.Error())
	}
	if err := checkImportHeader(header); err != nil {
		return nil, err
	}

	result := &dto.ImportResult{Errors: []dto.ImportRowError{}}
	var rows []studentRow
	var lines []int
	seen := map[string]bool{}
	line := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Line: line, Error: err.Error()})
			continue
		}

		row := parseStudentRow(record)
		if err := s.validate.Struct(row); err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Line: line, Email: row.Email, Error: describeRowError(err)})
			continue
		}
		if seen[row.Email] {
			result.Errors = append(result.Errors, dto.ImportRowError{Line: line, Email: row.Email, Error: "duplicate email in file"})
			continue
		}
		if row.Password == "" {
			row.Password = auth.TemporaryPassword()
			row.generated = true
		} else if err := auth.ValidatePassword(row.Password); err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Line: line, Email: row.Email, Error: err.Error()})
			continue
		}
		seen[row.Email] = true
		rows = append(rows, row)
		lines = append(lines, line)
	}

	if len(rows) > 0 {
		if err := s.checkStudentLimit(ctx, tenant.ID, len(rows)); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		hash, err := auth.HashPassword(row.Password)
		if err != nil {
			return nil, err
		}
		u := &models.User{
			InstitutionID: &tenant.ID,
			Email:         row.Email,
			Password:      hash,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			RoleType:      models.RoleStudent,
			StudentNumber: optional(row.StudentNumber),
			GroupName:     optional(row.GroupName),
			IsActive:      true,
		}
		if err := s.userRepo.Create(ctx, u); err != nil {
			if apperrors.Is(err, apperrors.ErrEmailAlreadyExists, apperrors.ErrStudentNumberExists) {
				result.Skipped++
				result.Errors = append(result.Errors, dto.ImportRowError{Line: lines[i], Email: row.Email, Error: err.Error()})
				continue
			}
			return nil, err
		}
		result.Created++
		temp := ""
		if row.generated {
			temp = row.Password
		}
		s.welcome(ctx, tenant, u, temp)
	}

	s.logger.Info().Int64("institutionID", tenant.ID).Int("created", result.Created).
		Int("skipped", result.Skipped).Int("invalid", len(result.Errors)-result.Skipped).Msg("Student import finished")
	return result, nil
}

func checkImportHeader(header []string) error {
	if len(header) < len(importColumns) {
		return apperrors.NewValidationError("file", "csv header must be: "+strings.Join(importColumns, ",")+"[,password]")
	}
	for i, col := range importColumns {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")), col) {
			return apperrors.NewValidationError("file", fmt.Sprintf("csv column %d must be %q", i+1, col))
		}
	}
	if len(header) > len(importColumns) && !strings.EqualFold(strings.TrimSpace(header[len(importColumns)]), "password") {
		return apperrors.NewValidationError("file", fmt.Sprintf("csv column %d must be %q", len(importColumns)+1, "password"))
	}
	return nil
}

func parseStudentRow(record []string) studentRow {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	return studentRow{
		Email:         strings.ToLower(field(0)),
		FirstName:     field(1),
		LastName:      field(2),
		StudentNumber: field(3),
		GroupName:     field(4),
		Password:      field(5),
	}
}

func describeRowError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
