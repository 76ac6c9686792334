//go:build integration

package repositories

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yigit/electivepro/internal/app/migrations"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("electivepro"),
		postgres.WithUsername("electivepro"),
		postgres.WithPassword("electivepro"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		return 1
	}

	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := migrations.NewMigrator(testPool).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to migrate: %v\n", err)
		return 1
	}
	return m.Run()
}

// dbFixture is one institution with an admin, students and a small catalog
type dbFixture struct {
	repos        *Repositories
	inst         *models.Institution
	admin        *models.User
	students     []*models.User
	courses      []*models.Course
	universities []*models.PartnerUniversity
}

func newDBFixture(t *testing.T) *dbFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Cleanup(func() {
		_, err := testPool.Exec(context.Background(),
			"TRUNCATE subscription_plans, institutions, users, refresh_tokens, courses, partner_universities, offerings, offering_options, selections, selection_options RESTART IDENTITY CASCADE")
		if err != nil {
			t.Logf("Failed to truncate tables: %v", err)
		}
	})

	ctx := context.Background()
	f := &dbFixture{repos: NewRepositories(testPool)}

	f.inst = &models.Institution{Name: "HSE", Subdomain: "hse", PrimaryColor: "#1E40AF", IsActive: true}
	f.admin = &models.User{Email: "admin@hse.test", Password: "x", FirstName: "Ada", RoleType: models.RoleAdmin, IsActive: true}
	require.NoError(t, f.repos.InstitutionRepository.CreateWithAdmin(ctx, f.inst, f.admin))

	for i := 1; i <= 3; i++ {
		number := fmt.Sprintf("S-%d", i)
		st := &models.User{
			InstitutionID: &f.inst.ID,
			Email:         fmt.Sprintf("student%d@hse.test", i),
			Password:      "x",
			FirstName:     fmt.Sprintf("Student%d", i),
			RoleType:      models.RoleStudent,
			StudentNumber: &number,
			IsActive:      true,
		}
		require.NoError(t, f.repos.UserRepository.Create(ctx, st))
		f.students = append(f.students, st)
	}

	for i, seats := range []int{1, 0} {
		c := &models.Course{InstitutionID: f.inst.ID, Code: fmt.Sprintf("C%d", i+1), Name: fmt.Sprintf("Course %d", i+1),
			MaxStudents: seats, Status: models.CatalogActive}
		require.NoError(t, f.repos.CourseRepository.Create(ctx, c))
		f.courses = append(f.courses, c)
	}
	for i, seats := range []int{1, 2} {
		u := &models.PartnerUniversity{InstitutionID: f.inst.ID, Name: fmt.Sprintf("University %d", i+1), Country: "NL",
			MaxStudents: seats, Status: models.CatalogActive}
		require.NoError(t, f.repos.UniversityRepository.Create(ctx, u))
		f.universities = append(f.universities, u)
	}
	return f
}

func (f *dbFixture) offering(t *testing.T, kind models.OfferingKind, status models.OfferingStatus, optionIDs ...int64) *models.Offering {
	t.Helper()
	o := &models.Offering{
		InstitutionID: f.inst.ID,
		Kind:          kind,
		Name:          string(kind) + " offering",
		Semester:      models.SemesterFall,
		AcademicYear:  "2026/2027",
		Deadline:      time.Now().Add(24 * time.Hour),
		MaxSelections: 2,
		Status:        status,
		CreatedBy:     f.admin.ID,
		OptionIDs:     optionIDs,
	}
	require.NoError(t, f.repos.OfferingRepository.Create(context.Background(), o))
	return o
}

func (f *dbFixture) submit(t *testing.T, o *models.Offering, student *models.User, optionIDs ...int64) *models.Selection {
	t.Helper()
	sel := &models.Selection{InstitutionID: f.inst.ID, OfferingID: o.ID, StudentID: student.ID, OptionIDs: optionIDs}
	require.NoError(t, f.repos.SelectionRepository.Upsert(context.Background(), sel))
	return sel
}

func (f *dbFixture) decide(sel *models.Selection, status models.SelectionStatus) *models.Selection {
	cp := *sel
	cp.Status = status
	cp.ReviewerID = &f.admin.ID
	return &cp
}

func TestOptionUsage_ExchangeCountsFirstChoiceOnly(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	u1, u2 := f.universities[0].ID, f.universities[1].ID

	program := f.offering(t, models.KindExchange, models.OfferingPublished, u1, u2)
	f.submit(t, program, f.students[0], u1, u2)
	f.submit(t, program, f.students[1], u2, u1)

	usage, err := f.repos.OfferingRepository.OptionUsage(ctx, program)
	require.NoError(t, err)
	assert.Equal(t, 1, usage[u1].Pending)
	assert.Equal(t, 1, usage[u2].Pending)
	assert.Equal(t, 2, usage[u2].MaxStudents)

	c1, c2 := f.courses[0].ID, f.courses[1].ID
	pack := f.offering(t, models.KindElective, models.OfferingPublished, c1, c2)
	f.submit(t, pack, f.students[0], c2, c1)

	usage, err = f.repos.OfferingRepository.OptionUsage(ctx, pack)
	require.NoError(t, err)
	assert.Equal(t, 1, usage[c1].Pending, "every course of an elective selection counts")
	assert.Equal(t, 1, usage[c2].Pending)
}

func TestSelectionUpsert_ReplacesPendingOnly(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	c1, c2 := f.courses[0].ID, f.courses[1].ID
	pack := f.offering(t, models.KindElective, models.OfferingPublished, c1, c2)

	first := f.submit(t, pack, f.students[0], c1)
	second := f.submit(t, pack, f.students[0], c2, c1)
	assert.Equal(t, first.ID, second.ID)

	stored, err := f.repos.SelectionRepository.GetByStudent(ctx, pack.ID, f.students[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c2, c1}, stored.OptionIDs)

	require.NoError(t, f.repos.SelectionRepository.Review(ctx, f.decide(stored, models.SelectionRejected),
		models.KindElective, models.SelectionPending, time.Now()))

	err = f.repos.SelectionRepository.Upsert(ctx, &models.Selection{
		InstitutionID: f.inst.ID, OfferingID: pack.ID, StudentID: f.students[0].ID, OptionIDs: []int64{c1},
	})
	assert.ErrorIs(t, err, apperrors.ErrSelectionFinalized)

	stored, err = f.repos.SelectionRepository.GetByStudent(ctx, pack.ID, f.students[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SelectionRejected, stored.Status)
	assert.Equal(t, []int64{c2, c1}, stored.OptionIDs, "reviewed selections keep their options")
}

func TestSelectionReview_CapacityAndStaleStatus(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	c1 := f.courses[0].ID
	pack := f.offering(t, models.KindElective, models.OfferingPublished, c1)

	a := f.submit(t, pack, f.students[0], c1)
	b := f.submit(t, pack, f.students[1], c1)

	require.NoError(t, f.repos.SelectionRepository.Review(ctx, f.decide(a, models.SelectionApproved),
		models.KindElective, models.SelectionPending, time.Now()))

	err := f.repos.SelectionRepository.Review(ctx, f.decide(b, models.SelectionApproved),
		models.KindElective, models.SelectionPending, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrCapacityReached)

	err = f.repos.SelectionRepository.Review(ctx, f.decide(a, models.SelectionRejected),
		models.KindElective, models.SelectionPending, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrConflict, "a is no longer pending")

	require.NoError(t, f.repos.SelectionRepository.Review(ctx, f.decide(b, models.SelectionRejected),
		models.KindElective, models.SelectionPending, time.Now()))
}

func TestSelectionReview_ConcurrentApprovalsRespectCapacity(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	u1 := f.universities[0].ID
	program := f.offering(t, models.KindExchange, models.OfferingPublished, u1)

	var sels []*models.Selection
	for _, st := range f.students {
		sels = append(sels, f.submit(t, program, st, u1))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(sels))
	for i, sel := range sels {
		wg.Add(1)
		go func(i int, sel *models.Selection) {
			defer wg.Done()
			errs[i] = f.repos.SelectionRepository.Review(ctx, f.decide(sel, models.SelectionApproved),
				models.KindExchange, models.SelectionPending, time.Now())
		}(i, sel)
	}
	wg.Wait()

	approved := 0
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrCapacityReached)
	}
	assert.Equal(t, 1, approved)

	usage, err := f.repos.OfferingRepository.OptionUsage(ctx, program)
	require.NoError(t, err)
	assert.Equal(t, 1, usage[u1].Approved)
}

func TestOfferingSetOptions_RefusedOnceSelected(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	c1, c2 := f.courses[0].ID, f.courses[1].ID
	pack := f.offering(t, models.KindElective, models.OfferingDraft, c1)

	has, err := f.repos.OfferingRepository.HasSelections(ctx, pack.ID)
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, f.repos.OfferingRepository.SetOptions(ctx, pack, []int64{c1, c2}))

	f.submit(t, pack, f.students[0], c1)

	has, err = f.repos.OfferingRepository.HasSelections(ctx, pack.ID)
	require.NoError(t, err)
	assert.True(t, has)

	err = f.repos.OfferingRepository.SetOptions(ctx, pack, []int64{c2})
	assert.ErrorIs(t, err, apperrors.ErrOfferingHasSelections)

	stored, err := f.repos.OfferingRepository.GetByID(ctx, f.inst.ID, models.KindElective, pack.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c1, c2}, stored.OptionIDs)
}

func TestSelectionListByStudent_FiltersByKind(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	pack := f.offering(t, models.KindElective, models.OfferingPublished, f.courses[0].ID)
	program := f.offering(t, models.KindExchange, models.OfferingPublished, f.universities[0].ID)

	f.submit(t, pack, f.students[0], f.courses[0].ID)
	f.submit(t, program, f.students[0], f.universities[0].ID)

	packs, err := f.repos.SelectionRepository.ListByStudent(ctx, f.inst.ID, f.students[0].ID, models.KindElective)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, pack.ID, packs[0].OfferingID)

	programs, err := f.repos.SelectionRepository.ListByStudent(ctx, f.inst.ID, f.students[0].ID, models.KindExchange)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, program.ID, programs[0].OfferingID)
}

func TestOfferingList_Statuses(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	c1 := f.courses[0].ID
	f.offering(t, models.KindElective, models.OfferingDraft, c1)
	f.offering(t, models.KindElective, models.OfferingPublished, c1)
	f.offering(t, models.KindElective, models.OfferingClosed, c1)
	f.offering(t, models.KindElective, models.OfferingArchived, c1)

	list, total, err := f.repos.OfferingRepository.List(ctx, f.inst.ID, models.KindElective,
		models.OfferingFilter{Statuses: models.StudentVisibleStatuses}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, o := range list {
		assert.True(t, o.Status.VisibleToStudents(), o.Status)
	}
}

func TestSelectionDeletePending(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()
	c1 := f.courses[1].ID
	pack := f.offering(t, models.KindElective, models.OfferingPublished, c1)

	pending := f.submit(t, pack, f.students[0], c1)
	approved := f.submit(t, pack, f.students[1], c1)
	require.NoError(t, f.repos.SelectionRepository.Review(ctx, f.decide(approved, models.SelectionApproved),
		models.KindElective, models.SelectionPending, time.Now()))

	require.NoError(t, f.repos.SelectionRepository.DeletePending(ctx, f.inst.ID, pending.ID))
	_, err := f.repos.SelectionRepository.GetByID(ctx, f.inst.ID, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrSelectionNotFound)

	err = f.repos.SelectionRepository.DeletePending(ctx, f.inst.ID, approved.ID)
	assert.ErrorIs(t, err, apperrors.ErrSelectionFinalized)
}
