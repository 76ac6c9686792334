package seed

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type memStore struct {
	plans        []*models.SubscriptionPlan
	institutions map[string]*models.Institution
	users        map[string]*models.User
	listErr      error
}

func newMemStore() *memStore {
	return &memStore{institutions: map[string]*models.Institution{}, users: map[string]*models.User{}}
}

func (m *memStore) List(context.Context) ([]*models.SubscriptionPlan, error) {
	return m.plans, m.listErr
}

func (m *memStore) Create(_ context.Context, p *models.SubscriptionPlan) error {
	p.ID = int64(len(m.plans) + 1)
	m.plans = append(m.plans, p)
	return nil
}

func (m *memStore) GetBySubdomain(_ context.Context, subdomain string) (*models.Institution, error) {
	if inst, ok := m.institutions[subdomain]; ok {
		return inst, nil
	}
	return nil, apperrors.ErrTenantNotFound
}

func (m *memStore) CreateWithAdmin(_ context.Context, inst *models.Institution, admin *models.User) error {
	inst.ID = int64(len(m.institutions) + 100)
	m.institutions[inst.Subdomain] = inst
	admin.InstitutionID = &inst.ID
	m.users[admin.Email] = admin
	return nil
}

type userStore struct{ *memStore }

func (u userStore) GetByEmail(_ context.Context, _ *int64, email string) (*models.User, error) {
	if user, ok := u.users[email]; ok {
		return user, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (u userStore) Create(_ context.Context, user *models.User) error {
	user.ID = int64(len(u.users) + 1)
	u.users[user.Email] = user
	return nil
}

var testOptions = Options{
	SuperAdminEmail:    "root@electivepro.test",
	SuperAdminPassword: "RootPass123",
	DemoSubdomain:      "demo",
	DemoAdminEmail:     "admin@demo.test",
	DemoAdminPassword:  "DemoPass123",
}

func TestCreateDefaultData(t *testing.T) {
	store := newMemStore()
	s := NewSeeder(store, store, userStore{store}, zerolog.Nop())

	require.NoError(t, s.CreateDefaultData(context.Background(), testOptions))

	require.Len(t, store.plans, 1)
	assert.Equal(t, DefaultPlanName, store.plans[0].Name)

	root := store.users["root@electivepro.test"]
	require.NotNil(t, root)
	assert.Equal(t, models.RoleSuperAdmin, root.RoleType)
	assert.Nil(t, root.InstitutionID)
	assert.True(t, auth.CheckPassword(root.Password, "RootPass123"))

	demo := store.institutions["demo"]
	require.NotNil(t, demo)
	require.NotNil(t, demo.PlanID)
	assert.Equal(t, store.plans[0].ID, *demo.PlanID)
	assert.Equal(t, models.RoleAdmin, store.users["admin@demo.test"].RoleType)
}

func TestCreateDefaultData_Idempotent(t *testing.T) {
	store := newMemStore()
	s := NewSeeder(store, store, userStore{store}, zerolog.Nop())

	require.NoError(t, s.CreateDefaultData(context.Background(), testOptions))
	require.NoError(t, s.CreateDefaultData(context.Background(), testOptions))

	assert.Len(t, store.plans, 1)
	assert.Len(t, store.institutions, 1)
	assert.Len(t, store.users, 2)
}

func TestCreateDefaultData_ContinuesAfterFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db down")
	s := NewSeeder(store, store, userStore{store}, zerolog.Nop())

	err := s.CreateDefaultData(context.Background(), testOptions)
	require.Error(t, err)

	assert.Contains(t, store.users, "root@electivepro.test")
	demo := store.institutions["demo"]
	require.NotNil(t, demo)
	assert.Nil(t, demo.PlanID)
}

func TestCreateDefaultData_SkipsWithoutCredentials(t *testing.T) {
	store := newMemStore()
	s := NewSeeder(store, store, userStore{store}, zerolog.Nop())

	require.NoError(t, s.CreateDefaultData(context.Background(), Options{}))
	assert.Empty(t, store.users)
	assert.Empty(t, store.institutions)
}
