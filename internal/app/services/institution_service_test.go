package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
	"github.com/yigit/electivepro/internal/pkg/filestorage"
)

type institutionFixture struct {
	svc      *InstitutionService
	insts    *mockInstitutionRepo
	plans    *mockPlanRepo
	cache    *mockTenantCache
	storage  *mockLogoStorage
	notifier *mockNotifier
	stored   *models.Institution
}

func newInstitutionFixture() *institutionFixture {
	f := &institutionFixture{
		cache:    &mockTenantCache{},
		storage:  &mockLogoStorage{},
		notifier: &mockNotifier{},
		stored:   &models.Institution{ID: 3, Name: "HSE", Subdomain: "hse", PrimaryColor: "#000000", IsActive: true},
	}
	f.insts = &mockInstitutionRepo{
		getByIDFn: func(_ context.Context, id int64) (*models.Institution, error) {
			if id == f.stored.ID {
				cp := *f.stored
				return &cp, nil
			}
			return nil, apperrors.ErrTenantNotFound
		},
		updateFn: func(_ context.Context, inst *models.Institution) error {
			f.stored = inst
			return nil
		},
	}
	f.plans = &mockPlanRepo{
		getByIDFn: func(_ context.Context, id int64) (*models.SubscriptionPlan, error) {
			switch id {
			case 1:
				return &models.SubscriptionPlan{ID: 1, Name: "Basic", MaxStudents: 100, IsActive: true}, nil
			case 2:
				return &models.SubscriptionPlan{ID: 2, Name: "Legacy", IsActive: false}, nil
			}
			return nil, apperrors.ErrPlanNotFound
		},
	}
	f.svc = NewInstitutionService(f.insts, f.plans, f.cache, f.storage, f.notifier,
		InstitutionConfig{RootDomain: "electivepro.test", Scheme: "https"}, testLogger)
	return f
}

func validCreateRequest() *dto.CreateInstitutionRequest {
	return &dto.CreateInstitutionRequest{
		Name: "Tech University", Subdomain: "Tech-U", PlanID: int64Ptr(1),
		AdminEmail: "Admin@Tech.test", AdminPassword: "secret123", AdminFirstName: "Ada", AdminLastName: "L",
	}
}

func TestCreateInstitution(t *testing.T) {
	f := newInstitutionFixture()
	var admin *models.User
	f.insts.createWithAdminFn = func(_ context.Context, inst *models.Institution, u *models.User) error {
		inst.ID = 9
		u.ID = 90
		admin = u
		return nil
	}

	resp, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "tech-u", resp.Institution.Subdomain)
	assert.Equal(t, defaultPrimaryColor, resp.Institution.PrimaryColor)
	assert.Equal(t, "https://tech-u.electivepro.test", resp.URL)
	assert.Equal(t, models.RoleAdmin, admin.RoleType)
	assert.Equal(t, "admin@tech.test", admin.Email)
	assert.True(t, auth.CheckPassword(admin.Password, "secret123"))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "welcome", f.notifier.sent[0].kind)
}

func TestCreateInstitution_Rejects(t *testing.T) {
	f := newInstitutionFixture()
	ctx := context.Background()

	req := validCreateRequest()
	req.Subdomain = "admin"
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	req = validCreateRequest()
	req.PlanID = int64Ptr(2)
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrPlanInactive)

	req = validCreateRequest()
	req.PlanID = int64Ptr(99)
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrPlanNotFound)

	req = validCreateRequest()
	f.insts.createWithAdminFn = func(context.Context, *models.Institution, *models.User) error {
		return apperrors.ErrSubdomainTaken
	}
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrSubdomainTaken)
}

func TestSetActive_InvalidatesCache(t *testing.T) {
	f := newInstitutionFixture()

	inst, err := f.svc.SetActive(context.Background(), 3, false)
	require.NoError(t, err)
	assert.False(t, inst.IsActive)
	assert.Equal(t, []string{"hse"}, f.cache.invalidated)
}

func TestAssignPlan(t *testing.T) {
	f := newInstitutionFixture()
	ctx := context.Background()

	inst, err := f.svc.AssignPlan(ctx, 3, int64Ptr(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), *inst.PlanID)

	_, err = f.svc.AssignPlan(ctx, 3, int64Ptr(2))
	assert.ErrorIs(t, err, apperrors.ErrPlanInactive)

	inst, err = f.svc.AssignPlan(ctx, 3, nil)
	require.NoError(t, err)
	assert.Nil(t, inst.PlanID)
}

func TestDeleteInstitution(t *testing.T) {
	f := newInstitutionFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, 3), apperrors.ErrInstitutionIsActive)

	f.stored.IsActive = false
	f.stored.LogoURL = strPtr("/uploads/logos/old.png")
	var deleted int64
	f.insts.deleteFn = func(_ context.Context, id int64) error {
		deleted = id
		return nil
	}
	require.NoError(t, f.svc.Delete(ctx, 3))
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, []string{"/uploads/logos/old.png"}, f.storage.deleted)
	assert.Equal(t, []string{"hse"}, f.cache.invalidated)
}

func TestUsage_IncludesPlan(t *testing.T) {
	f := newInstitutionFixture()
	f.stored.PlanID = int64Ptr(1)
	f.insts.usageFn = func(_ context.Context, id int64) (*models.InstitutionUsage, error) {
		return &models.InstitutionUsage{InstitutionID: id, Students: 12}, nil
	}

	usage, err := f.svc.Usage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 12, usage.Students)
	require.NotNil(t, usage.Plan)
	assert.Equal(t, 100, usage.Plan.MaxStudents)
}

func TestUploadLogo_ReplacesPrevious(t *testing.T) {
	f := newInstitutionFixture()
	f.stored.LogoURL = strPtr("/uploads/logos/old.png")

	inst, err := f.svc.UploadLogo(context.Background(), 3, "new.png", 10, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/logos/new.png", *inst.LogoURL)
	assert.Equal(t, []string{"/uploads/logos/old.png"}, f.storage.deleted)
}

func TestUploadLogo_RejectsType(t *testing.T) {
	f := newInstitutionFixture()
	f.storage.saveErr = filestorage.ErrUnsupportedType

	_, err := f.svc.UploadLogo(context.Background(), 3, "logo.exe", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Nil(t, f.stored.LogoURL)
}

func TestPlanDelete_InUse(t *testing.T) {
	plans := &mockPlanRepo{
		countInstitutionsFn: func(context.Context, int64) (int, error) { return 2, nil },
	}
	svc := NewPlanService(plans, testLogger)

	err := svc.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrPlanInUse)
}

func TestPlanUpdate_KeepsActiveFlag(t *testing.T) {
	var saved *models.SubscriptionPlan
	plans := &mockPlanRepo{
		getByIDFn: func(context.Context, int64) (*models.SubscriptionPlan, error) {
			return &models.SubscriptionPlan{ID: 4, Name: "Pro", IsActive: false}, nil
		},
		updateFn: func(_ context.Context, p *models.SubscriptionPlan) error {
			saved = p
			return nil
		},
	}
	svc := NewPlanService(plans, testLogger)

	_, err := svc.Update(context.Background(), 4, &dto.PlanRequest{Name: "Pro+", Currency: "usd", MaxStudents: 10})
	require.NoError(t, err)
	assert.False(t, saved.IsActive)
	assert.Equal(t, "USD", saved.Currency)
	assert.Equal(t, int64(4), saved.ID)
}
