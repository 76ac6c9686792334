package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
	"github.com/yigit/electivepro/internal/pkg/filestorage"
	"github.com/yigit/electivepro/internal/pkg/helpers"
	"github.com/yigit/electivepro/internal/pkg/tenancy"
)

const defaultPrimaryColor = "#1E40AF"

// InstitutionConfig carries the settings needed to build tenant URLs
type InstitutionConfig struct {
	RootDomain string
	Scheme     string
}

// InstitutionService provisions and manages tenants
type InstitutionService struct {
	instRepo InstitutionRepository
	planRepo PlanRepository
	cache    TenantCache
	storage  LogoStorage
	notifier Notifier
	cfg      InstitutionConfig
	logger   zerolog.Logger
}

// NewInstitutionService creates a new InstitutionService
func NewInstitutionService(
	instRepo InstitutionRepository,
	planRepo PlanRepository,
	cache TenantCache,
	storage LogoStorage,
	notifier Notifier,
	cfg InstitutionConfig,
	logger zerolog.Logger,
) *InstitutionService {
	return &InstitutionService{
		instRepo: instRepo,
		planRepo: planRepo,
		cache:    cache,
		storage:  storage,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// URL returns the public origin of an institution
func (s *InstitutionService) URL(inst *models.Institution) string {
	return tenancy.TenantURL(s.cfg.Scheme, inst.Subdomain, s.cfg.RootDomain)
}

func (s *InstitutionService) checkPlan(ctx context.Context, planID *int64) error {
	if planID == nil {
		return nil
	}
	plan, err := s.planRepo.GetByID(ctx, *planID)
	if err != nil {
		return err
	}
	if !plan.IsActive {
		return apperrors.ErrPlanInactive
	}
	return nil
}

// Create provisions an institution with its first admin
func (s *InstitutionService) Create(ctx context.Context, req *dto.CreateInstitutionRequest) (*dto.InstitutionCreatedResponse, error) {
	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if !tenancy.IsValidSubdomain(subdomain) {
		return nil, apperrors.NewValidationError("subdomain", "subdomain must be 3-63 lowercase letters, digits or hyphens and not reserved")
	}
	if err := s.checkPlan(ctx, req.PlanID); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(req.AdminPassword); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.AdminPassword)
	if err != nil {
		return nil, err
	}

	color := req.PrimaryColor
	if color == "" {
		color = defaultPrimaryColor
	}
	inst := &models.Institution{
		Name:         strings.TrimSpace(req.Name),
		Subdomain:    subdomain,
		PrimaryColor: color,
		PlanID:       req.PlanID,
		IsActive:     true,
	}
	admin := &models.User{
		Email:     strings.ToLower(req.AdminEmail),
		Password:  hash,
		FirstName: req.AdminFirstName,
		LastName:  req.AdminLastName,
		RoleType:  models.RoleAdmin,
		IsActive:  true,
	}

	if err := s.instRepo.CreateWithAdmin(ctx, inst, admin); err != nil {
		return nil, err
	}

	// an earlier lookup may have cached the miss path; make sure the new tenant is visible
	s.invalidate(ctx, inst.Subdomain)

	url := s.URL(inst)
	if err := s.notifier.Welcome(ctx, admin.Email, admin.FullName(), inst.Name, url+"/login", ""); err != nil {
		s.logger.Warn().Err(err).Int64("institutionID", inst.ID).Msg("Failed to send admin welcome email")
	}

	s.logger.Info().Int64("institutionID", inst.ID).Str("subdomain", inst.Subdomain).Msg("Institution provisioned")
	return &dto.InstitutionCreatedResponse{Institution: inst, Admin: dto.FromUser(admin), URL: url}, nil
}

// List returns a page of institutions
func (s *InstitutionService) List(ctx context.Context, search string, page, size int) ([]*models.Institution, dto.PaginationInfo, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	list, total, err := s.instRepo.List(ctx, strings.TrimSpace(search), offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return list, helpers.NewPaginationInfo(total, page, size), nil
}

// Get returns one institution
func (s *InstitutionService) Get(ctx context.Context, id int64) (*models.Institution, error) {
	return s.instRepo.GetByID(ctx, id)
}

// Update changes name and color
func (s *InstitutionService) Update(ctx context.Context, id int64, req *dto.UpdateInstitutionRequest) (*models.Institution, error) {
	inst, err := s.instRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.Name = strings.TrimSpace(req.Name)
	if req.PrimaryColor != "" {
		inst.PrimaryColor = req.PrimaryColor
	}
	return inst, s.save(ctx, inst)
}

// SetActive activates or suspends an institution
func (s *InstitutionService) SetActive(ctx context.Context, id int64, active bool) (*models.Institution, error) {
	inst, err := s.instRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.IsActive = active
	if err := s.save(ctx, inst); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("institutionID", id).Bool("active", active).Msg("Institution activation changed")
	return inst, nil
}

// AssignPlan attaches a plan, or detaches it when planID is nil
func (s *InstitutionService) AssignPlan(ctx context.Context, id int64, planID *int64) (*models.Institution, error) {
	if err := s.checkPlan(ctx, planID); err != nil {
		return nil, err
	}
	inst, err := s.instRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inst.PlanID = planID
	return inst, s.save(ctx, inst)
}

// Delete removes a suspended institution with all of its data
func (s *InstitutionService) Delete(ctx context.Context, id int64) error {
	inst, err := s.instRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inst.IsActive {
		return apperrors.ErrInstitutionIsActive
	}

	if err := s.instRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, inst.Subdomain)

	if inst.LogoURL != nil {
		if err := s.storage.Delete(*inst.LogoURL); err != nil {
			s.logger.Warn().Err(err).Int64("institutionID", id).Msg("Failed to delete logo of removed institution")
		}
	}
	s.logger.Info().Int64("institutionID", id).Str("subdomain", inst.Subdomain).Msg("Institution deleted")
	return nil
}

// Usage reports consumption against the assigned plan
func (s *InstitutionService) Usage(ctx context.Context, id int64) (*models.InstitutionUsage, error) {
	inst, err := s.instRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	usage, err := s.instRepo.Usage(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.PlanID != nil {
		plan, err := s.planRepo.GetByID(ctx, *inst.PlanID)
		if err != nil && !errors.Is(err, apperrors.ErrPlanNotFound) {
			return nil, err
		}
		usage.Plan = plan
	}
	return usage, nil
}

// UpdateBranding lets a tenant admin rename and recolor the institution
func (s *InstitutionService) UpdateBranding(ctx context.Context, institutionID int64, req *dto.UpdateBrandingRequest) (*models.Institution, error) {
	inst, err := s.instRepo.GetByID(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	inst.Name = strings.TrimSpace(req.Name)
	if req.PrimaryColor != "" {
		inst.PrimaryColor = req.PrimaryColor
	}
	return inst, s.save(ctx, inst)
}

// UploadLogo stores a new logo and removes the previous one
func (s *InstitutionService) UploadLogo(ctx context.Context, institutionID int64, filename string, size int64, r io.Reader) (*models.Institution, error) {
	inst, err := s.instRepo.GetByID(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.SaveLogo(inst.ID, filename, size, r)
	if err != nil {
		if errors.Is(err, filestorage.ErrUnsupportedType) || errors.Is(err, filestorage.ErrFileTooLarge) {
			return nil, apperrors.NewValidationError("logo", err.Error())
		}
		return nil, fmt.Errorf("error saving logo: %w", err)
	}

	previous := inst.LogoURL
	inst.LogoURL = &url
	if err := s.save(ctx, inst); err != nil {
		_ = s.storage.Delete(url)
		return nil, err
	}

	if previous != nil {
		if err := s.storage.Delete(*previous); err != nil {
			s.logger.Warn().Err(err).Str("url", *previous).Msg("Failed to delete previous logo")
		}
	}
	return inst, nil
}

func (s *InstitutionService) save(ctx context.Context, inst *models.Institution) error {
	if err := s.instRepo.Update(ctx, inst); err != nil {
		return err
	}
	s.invalidate(ctx, inst.Subdomain)
	return nil
}

func (s *InstitutionService) invalidate(ctx context.Context, subdomain string) {
	if err := s.cache.Invalidate(ctx, subdomain); err != nil {
		s.logger.Warn().Err(err).Str("subdomain", subdomain).Msg("Failed to invalidate tenant cache")
	}
}
