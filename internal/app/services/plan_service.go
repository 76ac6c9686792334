package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
)

// PlanService manages subscription plans
type PlanService struct {
	planRepo PlanRepository
	logger   zerolog.Logger
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo PlanRepository, logger zerolog.Logger) *PlanService {
	return &PlanService{planRepo: planRepo, logger: logger}
}

// Create adds a plan
func (s *PlanService) Create(ctx context.Context, req *dto.PlanRequest) (*models.SubscriptionPlan, error) {
	p := req.ToModel()
	p.Currency = strings.ToUpper(p.Currency)
	if err := s.planRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("planID", p.ID).Str("name", p.Name).Msg("Subscription plan created")
	return p, nil
}

// List returns all plans
func (s *PlanService) List(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	return s.planRepo.List(ctx)
}

// Get returns one plan
func (s *PlanService) Get(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	return s.planRepo.GetByID(ctx, id)
}

// Update replaces a plan's fields
func (s *PlanService) Update(ctx context.Context, id int64, req *dto.PlanRequest) (*models.SubscriptionPlan, error) {
	existing, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := req.ToModel()
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.Currency = strings.ToUpper(p.Currency)
	if req.IsActive == nil {
		p.IsActive = existing.IsActive
	}

	if err := s.planRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a plan that no institution uses
func (s *PlanService) Delete(ctx context.Context, id int64) error {
	n, err := s.planRepo.CountInstitutions(ctx, id)
	if err != nil {
		return fmt.Errorf("error checking plan usage: %w", err)
	}
	if n > 0 {
		return apperrors.NewCustomError(apperrors.ErrPlanInUse,
			fmt.Sprintf("subscription plan is assigned to %d institution(s)", n))
	}
	return s.planRepo.Delete(ctx, id)
}

// planLimits resolves the plan of an institution for limit checks
type planLimits struct {
	institutions InstitutionRepository
	plans        PlanRepository
}

// forInstitution returns the institution's plan. Institutions without a plan
// cannot grow: they get ErrNoPlanAssigned.
func (l planLimits) forInstitution(ctx context.Context, institutionID int64) (*models.SubscriptionPlan, error) {
	inst, err := l.institutions.GetByID(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	if inst.PlanID == nil {
		return nil, apperrors.ErrNoPlanAssigned
	}
	return l.plans.GetByID(ctx, *inst.PlanID)
}

func limitError(what string, limit int) error {
	return apperrors.NewCustomError(apperrors.ErrPlanLimitReached,
		fmt.Sprintf("subscription plan allows at most %d %s", limit, what)).
		WithDetails(map[string]any{"limit": limit, "resource": what})
}
