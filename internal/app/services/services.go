// Package services holds the business rules of ElectivePRO. Services depend
// on the small repository interfaces below rather than on concrete stores.
package services

import (
	"context"
	"io"
	"time"

	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/repositories"
)

// PlanRepository persists subscription plans
type PlanRepository interface {
	Create(ctx context.Context, p *models.SubscriptionPlan) error
	GetByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error)
	List(ctx context.Context) ([]*models.SubscriptionPlan, error)
	Update(ctx context.Context, p *models.SubscriptionPlan) error
	Delete(ctx context.Context, id int64) error
	CountInstitutions(ctx context.Context, planID int64) (int, error)
}

// InstitutionRepository persists tenants
type InstitutionRepository interface {
	CreateWithAdmin(ctx context.Context, inst *models.Institution, admin *models.User) error
	GetByID(ctx context.Context, id int64) (*models.Institution, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error)
	List(ctx context.Context, search string, offset, limit uint64) ([]*models.Institution, int64, error)
	Update(ctx context.Context, inst *models.Institution) error
	Delete(ctx context.Context, id int64) error
	Usage(ctx context.Context, id int64) (*models.InstitutionUsage, error)
}

// UserRepository persists accounts
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetInInstitution(ctx context.Context, institutionID, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, institutionID *int64, email string) (*models.User, error)
	List(ctx context.Context, institutionID int64, f models.UserFilter, offset, limit uint64) ([]*models.User, int64, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	CountByRole(ctx context.Context, institutionID int64, role models.RoleType) (int, error)
}

// TokenRepository persists refresh tokens
type TokenRepository interface {
	Create(ctx context.Context, token string, userID int64, expiryDate time.Time) error
	Get(ctx context.Context, token string) (*repositories.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// CourseRepository persists the course catalog
type CourseRepository interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, institutionID, id int64) (*models.Course, error)
	GetByIDs(ctx context.Context, institutionID int64, ids []int64) ([]*models.Course, error)
	List(ctx context.Context, institutionID int64, f models.CatalogFilter, offset, limit uint64) ([]*models.Course, int64, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, institutionID, id int64) error
}

// UniversityRepository persists partner universities
type UniversityRepository interface {
	Create(ctx context.Context, u *models.PartnerUniversity) error
	GetByID(ctx context.Context, institutionID, id int64) (*models.PartnerUniversity, error)
	GetByIDs(ctx context.Context, institutionID int64, ids []int64) ([]*models.PartnerUniversity, error)
	List(ctx context.Context, institutionID int64, f models.CatalogFilter, offset, limit uint64) ([]*models.PartnerUniversity, int64, error)
	Update(ctx context.Context, u *models.PartnerUniversity) error
	Delete(ctx context.Context, institutionID, id int64) error
}

// OfferingRepository persists elective packs and exchange programs
type OfferingRepository interface {
	Create(ctx context.Context, o *models.Offering) error
	GetByID(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) (*models.Offering, error)
	List(ctx context.Context, institutionID int64, kind models.OfferingKind, f models.OfferingFilter, offset, limit uint64) ([]*models.Offering, int64, error)
	Update(ctx context.Context, o *models.Offering) error
	SetOptions(ctx context.Context, o *models.Offering, optionIDs []int64) error
	HasSelections(ctx context.Context, offeringID int64) (bool, error)
	SetStatus(ctx context.Context, o *models.Offering, status models.OfferingStatus) error
	Delete(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) error
	CountPublished(ctx context.Context, institutionID int64, kind models.OfferingKind) (int, error)
	OptionUsage(ctx context.Context, o *models.Offering) (map[int64]models.OptionUsage, error)
}

// SelectionRepository persists student selections
type SelectionRepository interface {
	Upsert(ctx context.Context, s *models.Selection) error
	GetByID(ctx context.Context, institutionID, id int64) (*models.Selection, error)
	GetByStudent(ctx context.Context, offeringID, studentID int64) (*models.Selection, error)
	ListByOffering(ctx context.Context, institutionID, offeringID int64, f models.SelectionFilter, offset, limit uint64) ([]*models.Selection, int64, error)
	ListByStudent(ctx context.Context, institutionID, studentID int64, kind models.OfferingKind) ([]*models.Selection, error)
	DeletePending(ctx context.Context, institutionID, id int64) error
	Review(ctx context.Context, s *models.Selection, kind models.OfferingKind, from models.SelectionStatus, at time.Time) error
	CountPending(ctx context.Context, institutionID int64) (int, error)
}

// TenantCache drops cached institutions after they change
type TenantCache interface {
	Invalidate(ctx context.Context, subdomain string) error
}

// Notifier sends user-facing emails
type Notifier interface {
	SelectionReviewed(ctx context.Context, toEmail, toName, offeringName, status, comment string) error
	// Welcome announces a new account; tempPassword is empty when the user chose their own
	Welcome(ctx context.Context, toEmail, toName, institutionName, loginURL, tempPassword string) error
}

// LogoStorage stores institution logos
type LogoStorage interface {
	SaveLogo(institutionID int64, filename string, size int64, r io.Reader) (string, error)
	Delete(fileURL string) error
}
