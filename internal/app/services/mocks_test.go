package services

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/repositories"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

var testLogger = zerolog.Nop()

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type mockPlanRepo struct {
	createFn            func(ctx context.Context, p *models.SubscriptionPlan) error
	getByIDFn           func(ctx context.Context, id int64) (*models.SubscriptionPlan, error)
	listFn              func(ctx context.Context) ([]*models.SubscriptionPlan, error)
	updateFn            func(ctx context.Context, p *models.SubscriptionPlan) error
	deleteFn            func(ctx context.Context, id int64) error
	countInstitutionsFn func(ctx context.Context, planID int64) (int, error)
}

func (m *mockPlanRepo) Create(ctx context.Context, p *models.SubscriptionPlan) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = 1
	return nil
}

func (m *mockPlanRepo) GetByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, apperrors.ErrPlanNotFound
}

func (m *mockPlanRepo) List(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPlanRepo) Update(ctx context.Context, p *models.SubscriptionPlan) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockPlanRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPlanRepo) CountInstitutions(ctx context.Context, planID int64) (int, error) {
	if m.countInstitutionsFn != nil {
		return m.countInstitutionsFn(ctx, planID)
	}
	return 0, nil
}

type mockInstitutionRepo struct {
	createWithAdminFn func(ctx context.Context, inst *models.Institution, admin *models.User) error
	getByIDFn         func(ctx context.Context, id int64) (*models.Institution, error)
	getBySubdomainFn  func(ctx context.Context, subdomain string) (*models.Institution, error)
	listFn            func(ctx context.Context, search string, offset, limit uint64) ([]*models.Institution, int64, error)
	updateFn          func(ctx context.Context, inst *models.Institution) error
	deleteFn          func(ctx context.Context, id int64) error
	usageFn           func(ctx context.Context, id int64) (*models.InstitutionUsage, error)
}

func (m *mockInstitutionRepo) CreateWithAdmin(ctx context.Context, inst *models.Institution, admin *models.User) error {
	if m.createWithAdminFn != nil {
		return m.createWithAdminFn(ctx, inst, admin)
	}
	inst.ID = 1
	admin.ID = 1
	admin.InstitutionID = &inst.ID
	return nil
}

func (m *mockInstitutionRepo) GetByID(ctx context.Context, id int64) (*models.Institution, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, apperrors.ErrTenantNotFound
}

func (m *mockInstitutionRepo) GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error) {
	if m.getBySubdomainFn != nil {
		return m.getBySubdomainFn(ctx, subdomain)
	}
	return nil, apperrors.ErrTenantNotFound
}

func (m *mockInstitutionRepo) List(ctx context.Context, search string, offset, limit uint64) ([]*models.Institution, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, search, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockInstitutionRepo) Update(ctx context.Context, inst *models.Institution) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, inst)
	}
	return nil
}

func (m *mockInstitutionRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockInstitutionRepo) Usage(ctx context.Context, id int64) (*models.InstitutionUsage, error) {
	if m.usageFn != nil {
		return m.usageFn(ctx, id)
	}
	return &models.InstitutionUsage{InstitutionID: id}, nil
}

type mockUserRepo struct {
	createFn           func(ctx context.Context, u *models.User) error
	getByIDFn          func(ctx context.Context, id int64) (*models.User, error)
	getInInstitutionFn func(ctx context.Context, institutionID, id int64) (*models.User, error)
	getByEmailFn       func(ctx context.Context, institutionID *int64, email string) (*models.User, error)
	listFn             func(ctx context.Context, institutionID int64, f models.UserFilter, offset, limit uint64) ([]*models.User, int64, error)
	updateFn           func(ctx context.Context, u *models.User) error
	updatePasswordFn   func(ctx context.Context, id int64, hash string) error
	touchLastLoginFn   func(ctx context.Context, id int64, at time.Time) error
	countByRoleFn      func(ctx context.Context, institutionID int64, role models.RoleType) (int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *models.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *mockUserRepo) GetInInstitution(ctx context.Context, institutionID, id int64) (*models.User, error) {
	if m.getInInstitutionFn != nil {
		return m.getInInstitutionFn(ctx, institutionID, id)
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, institutionID *int64, email string) (*models.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, institutionID, email)
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *mockUserRepo) List(ctx context.Context, institutionID int64, f models.UserFilter, offset, limit uint64) ([]*models.User, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, institutionID, f, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *models.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	if m.touchLastLoginFn != nil {
		return m.touchLastLoginFn(ctx, id, at)
	}
	return nil
}

func (m *mockUserRepo) CountByRole(ctx context.Context, institutionID int64, role models.RoleType) (int, error) {
	if m.countByRoleFn != nil {
		return m.countByRoleFn(ctx, institutionID, role)
	}
	return 0, nil
}

// mockTokenRepo keeps tokens in memory
type mockTokenRepo struct {
	tokens       map[string]*repositories.RefreshToken
	revokedUsers []int64
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: map[string]*repositories.RefreshToken{}}
}

func (m *mockTokenRepo) Create(_ context.Context, token string, userID int64, expiryDate time.Time) error {
	m.tokens[token] = &repositories.RefreshToken{UserID: userID, ExpiryDate: expiryDate}
	return nil
}

func (m *mockTokenRepo) Get(_ context.Context, token string) (*repositories.RefreshToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockTokenRepo) Revoke(_ context.Context, token string) error {
	t, ok := m.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	t.IsRevoked = true
	return nil
}

func (m *mockTokenRepo) RevokeAllForUser(_ context.Context, userID int64) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

type mockCourseRepo struct {
	courses  map[int64]*models.Course
	deleteFn func(ctx context.Context, institutionID, id int64) error
}

func (m *mockCourseRepo) Create(_ context.Context, c *models.Course) error {
	if m.courses == nil {
		m.courses = map[int64]*models.Course{}
	}
	c.ID = int64(len(m.courses) + 1)
	m.courses[c.ID] = c
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, institutionID, id int64) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok || c.InstitutionID != institutionID {
		return nil, apperrors.ErrCourseNotFound
	}
	return c, nil
}

func (m *mockCourseRepo) GetByIDs(_ context.Context, institutionID int64, ids []int64) ([]*models.Course, error) {
	var out []*models.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok && c.InstitutionID == institutionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) List(_ context.Context, institutionID int64, _ models.CatalogFilter, _, _ uint64) ([]*models.Course, int64, error) {
	var out []*models.Course
	for _, c := range m.courses {
		if c.InstitutionID == institutionID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockCourseRepo) Update(_ context.Context, c *models.Course) error {
	m.courses[c.ID] = c
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, institutionID, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, institutionID, id)
	}
	delete(m.courses, id)
	return nil
}

type mockUniversityRepo struct {
	universities map[int64]*models.PartnerUniversity
}

func (m *mockUniversityRepo) Create(_ context.Context, u *models.PartnerUniversity) error {
	if m.universities == nil {
		m.universities = map[int64]*models.PartnerUniversity{}
	}
	u.ID = int64(len(m.universities) + 1)
	m.universities[u.ID] = u
	return nil
}

func (m *mockUniversityRepo) GetByID(_ context.Context, institutionID, id int64) (*models.PartnerUniversity, error) {
	u, ok := m.universities[id]
	if !ok || u.InstitutionID != institutionID {
		return nil, apperrors.ErrUniversityNotFound
	}
	return u, nil
}

func (m *mockUniversityRepo) GetByIDs(_ context.Context, institutionID int64, ids []int64) ([]*models.PartnerUniversity, error) {
	var out []*models.PartnerUniversity
	for _, id := range ids {
		if u, ok := m.universities[id]; ok && u.InstitutionID == institutionID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUniversityRepo) List(_ context.Context, _ int64, _ models.CatalogFilter, _, _ uint64) ([]*models.PartnerUniversity, int64, error) {
	return nil, 0, nil
}

func (m *mockUniversityRepo) Update(_ context.Context, u *models.PartnerUniversity) error {
	m.universities[u.ID] = u
	return nil
}

func (m *mockUniversityRepo) Delete(_ context.Context, _, id int64) error {
	delete(m.universities, id)
	return nil
}

type mockOfferingRepo struct {
	createFn         func(ctx context.Context, o *models.Offering) error
	getByIDFn        func(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) (*models.Offering, error)
	listFn           func(ctx context.Context, institutionID int64, kind models.OfferingKind, f models.OfferingFilter, offset, limit uint64) ([]*models.Offering, int64, error)
	updateFn         func(ctx context.Context, o *models.Offering) error
	setOptionsFn     func(ctx context.Context, o *models.Offering, optionIDs []int64) error
	hasSelectionsFn  func(ctx context.Context, offeringID int64) (bool, error)
	setStatusFn      func(ctx context.Context, o *models.Offering, status models.OfferingStatus) error
	deleteFn         func(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) error
	countPublishedFn func(ctx context.Context, institutionID int64, kind models.OfferingKind) (int, error)
	optionUsageFn    func(ctx context.Context, o *models.Offering) (map[int64]models.OptionUsage, error)
}

func (m *mockOfferingRepo) Create(ctx context.Context, o *models.Offering) error {
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	o.ID = 1
	return nil
}

func (m *mockOfferingRepo) GetByID(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) (*models.Offering, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, institutionID, kind, id)
	}
	return nil, apperrors.ErrPackNotFound
}

func (m *mockOfferingRepo) List(ctx context.Context, institutionID int64, kind models.OfferingKind, f models.OfferingFilter, offset, limit uint64) ([]*models.Offering, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, institutionID, kind, f, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockOfferingRepo) Update(ctx context.Context, o *models.Offering) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, o)
	}
	return nil
}

func (m *mockOfferingRepo) SetOptions(ctx context.Context, o *models.Offering, optionIDs []int64) error {
	if m.setOptionsFn != nil {
		return m.setOptionsFn(ctx, o, optionIDs)
	}
	return nil
}

func (m *mockOfferingRepo) HasSelections(ctx context.Context, offeringID int64) (bool, error) {
	if m.hasSelectionsFn != nil {
		return m.hasSelectionsFn(ctx, offeringID)
	}
	return false, nil
}

func (m *mockOfferingRepo) SetStatus(ctx context.Context, o *models.Offering, status models.OfferingStatus) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, o, status)
	}
	o.Status = status
	return nil
}

func (m *mockOfferingRepo) Delete(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, institutionID, kind, id)
	}
	return nil
}

func (m *mockOfferingRepo) CountPublished(ctx context.Context, institutionID int64, kind models.OfferingKind) (int, error) {
	if m.countPublishedFn != nil {
		return m.countPublishedFn(ctx, institutionID, kind)
	}
	return 0, nil
}

func (m *mockOfferingRepo) OptionUsage(ctx context.Context, o *models.Offering) (map[int64]models.OptionUsage, error) {
	if m.optionUsageFn != nil {
		return m.optionUsageFn(ctx, o)
	}
	return map[int64]models.OptionUsage{}, nil
}

type mockSelectionRepo struct {
	upsertFn         func(ctx context.Context, s *models.Selection) error
	getByIDFn        func(ctx context.Context, institutionID, id int64) (*models.Selection, error)
	getByStudentFn   func(ctx context.Context, offeringID, studentID int64) (*models.Selection, error)
	listByOfferingFn func(ctx context.Context, institutionID, offeringID int64, f models.SelectionFilter, offset, limit uint64) ([]*models.Selection, int64, error)
	listByStudentFn  func(ctx context.Context, institutionID, studentID int64, kind models.OfferingKind) ([]*models.Selection, error)
	deletePendingFn  func(ctx context.Context, institutionID, id int64) error
	reviewFn         func(ctx context.Context, s *models.Selection, kind models.OfferingKind, from models.SelectionStatus, at time.Time) error
	countPendingFn   func(ctx context.Context, institutionID int64) (int, error)
}

func (m *mockSelectionRepo) Upsert(ctx context.Context, s *models.Selection) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, s)
	}
	s.ID = 1
	return nil
}

func (m *mockSelectionRepo) GetByID(ctx context.Context, institutionID, id int64) (*models.Selection, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, institutionID, id)
	}
	return nil, apperrors.ErrSelectionNotFound
}

func (m *mockSelectionRepo) GetByStudent(ctx context.Context, offeringID, studentID int64) (*models.Selection, error) {
	if m.getByStudentFn != nil {
		return m.getByStudentFn(ctx, offeringID, studentID)
	}
	return nil, apperrors.ErrSelectionNotFound
}

func (m *mockSelectionRepo) ListByOffering(ctx context.Context, institutionID, offeringID int64, f models.SelectionFilter, offset, limit uint64) ([]*models.Selection, int64, error) {
	if m.listByOfferingFn != nil {
		return m.listByOfferingFn(ctx, institutionID, offeringID, f, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockSelectionRepo) ListByStudent(ctx context.Context, institutionID, studentID int64, kind models.OfferingKind) ([]*models.Selection, error) {
	if m.listByStudentFn != nil {
		return m.listByStudentFn(ctx, institutionID, studentID, kind)
	}
	return []*models.Selection{}, nil
}

func (m *mockSelectionRepo) DeletePending(ctx context.Context, institutionID, id int64) error {
	if m.deletePendingFn != nil {
		return m.deletePendingFn(ctx, institutionID, id)
	}
	return nil
}

func (m *mockSelectionRepo) Review(ctx context.Context, s *models.Selection, kind models.OfferingKind, from models.SelectionStatus, at time.Time) error {
	if m.reviewFn != nil {
		return m.reviewFn(ctx, s, kind, from, at)
	}
	s.ReviewedAt = &at
	return nil
}

func (m *mockSelectionRepo) CountPending(ctx context.Context, institutionID int64) (int, error) {
	if m.countPendingFn != nil {
		return m.countPendingFn(ctx, institutionID)
	}
	return 0, nil
}

type mockTenantCache struct {
	invalidated []string
}

func (m *mockTenantCache) Invalidate(_ context.Context, subdomain string) error {
	m.invalidated = append(m.invalidated, subdomain)
	return nil
}

type sentMail struct {
	kind, to, subject, tempPassword string
}

type mockNotifier struct {
	sent []sentMail
	err  error
}

func (m *mockNotifier) SelectionReviewed(_ context.Context, toEmail, _, offeringName, status, _ string) error {
	m.sent = append(m.sent, sentMail{kind: "review", to: toEmail, subject: offeringName + ":" + status})
	return m.err
}

func (m *mockNotifier) Welcome(_ context.Context, toEmail, _, institutionName, _, tempPassword string) error {
	m.sent = append(m.sent, sentMail{kind: "welcome", to: toEmail, subject: institutionName, tempPassword: tempPassword})
	return m.err
}

type mockLogoStorage struct {
	saved   []string
	deleted []string
	saveErr error
}

func (m *mockLogoStorage) SaveLogo(_ int64, filename string, _ int64, _ io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	url := "/uploads/logos/" + filename
	m.saved = append(m.saved, url)
	return url, nil
}

func (m *mockLogoStorage) Delete(fileURL string) error {
	m.deleted = append(m.deleted, fileURL)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }
