// Package seed creates the data a fresh installation needs to be usable.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
)

// DefaultPlanName names the plan assigned to the demo institution
const DefaultPlanName = "Standard"

// PlanStore is the plan persistence the seeder needs
type PlanStore interface {
	List(ctx context.Context) ([]*models.SubscriptionPlan, error)
	Create(ctx context.Context, p *models.SubscriptionPlan) error
}

// InstitutionStore is the institution persistence the seeder needs
type InstitutionStore interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error)
	CreateWithAdmin(ctx context.Context, inst *models.Institution, admin *models.User) error
}

// UserStore is the user persistence the seeder needs
type UserStore interface {
	GetByEmail(ctx context.Context, institutionID *int64, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// Options selects what gets seeded
type Options struct {
	SuperAdminEmail    string
	SuperAdminPassword string
	DemoSubdomain      string
	DemoAdminEmail     string
	DemoAdminPassword  string
}

// Seeder creates default data idempotently
type Seeder struct {
	plans        PlanStore
	institutions InstitutionStore
	users        UserStore
	logger       zerolog.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(plans PlanStore, institutions InstitutionStore, users UserStore, logger zerolog.Logger) *Seeder {
	return &Seeder{plans: plans, institutions: institutions, users: users, logger: logger}
}

// CreateDefaultData ensures the default plan, the super admin and the demo
// institution exist. Each step runs even if an earlier one failed.
func (s *Seeder) CreateDefaultData(ctx context.Context, opts Options) error {
	s.logger.Info().Msg("Checking/Creating default data...")

	var finalErr error

	plan, err := s.ensurePlan(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating default plan")
		finalErr = errors.Join(finalErr, err)
	}

	if err := s.ensureSuperAdmin(ctx, opts); err != nil {
		s.logger.Error().Err(err).Msg("Error creating super admin")
		finalErr = errors.Join(finalErr, err)
	}

	if err := s.ensureDemoInstitution(ctx, opts, plan); err != nil {
		s.logger.Error().Err(err).Msg("Error creating demo institution")
		finalErr = errors.Join(finalErr, err)
	}

	return finalErr
}

func (s *Seeder) ensurePlan(ctx context.Context) (*models.SubscriptionPlan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing plans: %w", err)
	}
	for _, p := range plans {
		if p.Name == DefaultPlanName {
			return p, nil
		}
	}

	plan := &models.SubscriptionPlan{
		Name:           DefaultPlanName,
		Description:    "Default plan for new institutions",
		Currency:       "USD",
		MaxStudents:    1000,
		MaxActivePacks: 10,
		IsActive:       true,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		if errors.Is(err, apperrors.ErrPlanAlreadyExists) {
			return nil, nil
		}
		return nil, err
	}
	s.logger.Info().Int64("planID", plan.ID).Msg("Default plan created")
	return plan, nil
}

func (s *Seeder) ensureSuperAdmin(ctx context.Context, opts Options) error {
	if opts.SuperAdminEmail == "" || opts.SuperAdminPassword == "" {
		s.logger.Warn().Msg("Super admin credentials not configured, skipping")
		return nil
	}

	_, err := s.users.GetByEmail(ctx, nil, opts.SuperAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(opts.SuperAdminPassword)
	if err != nil {
		return err
	}
	admin := &models.User{
		Email:     opts.SuperAdminEmail,
		Password:  hash,
		FirstName: "Super",
		LastName:  "Admin",
		RoleType:  models.RoleSuperAdmin,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil
		}
		return err
	}
	s.logger.Info().Str("email", admin.Email).Msg("Super admin created")
	return nil
}

func (s *Seeder) ensureDemoInstitution(ctx context.Context, opts Options, plan *models.SubscriptionPlan) error {
	if opts.DemoSubdomain == "" || opts.DemoAdminEmail == "" || opts.DemoAdminPassword == "" {
		return nil
	}

	_, err := s.institutions.GetBySubdomain(ctx, opts.DemoSubdomain)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrTenantNotFound) {
		return err
	}

	hash, err := auth.HashPassword(opts.DemoAdminPassword)
	if err != nil {
		return err
	}

	inst := &models.Institution{
		Name:         "Demo University",
		Subdomain:    opts.DemoSubdomain,
		PrimaryColor: "#1E40AF",
		IsActive:     true,
	}
	if plan != nil {
		inst.PlanID = &plan.ID
	}
	admin := &models.User{
		Email:     opts.DemoAdminEmail,
		Password:  hash,
		FirstName: "Demo",
		LastName:  "Admin",
		RoleType:  models.RoleAdmin,
		IsActive:  true,
	}

	if err := s.institutions.CreateWithAdmin(ctx, inst, admin); err != nil {
		if errors.Is(err, apperrors.ErrSubdomainTaken) {
			return nil
		}
		return err
	}
	s.logger.Info().Int64("institutionID", inst.ID).Str("subdomain", inst.Subdomain).Msg("Demo institution created")
	return nil
}
