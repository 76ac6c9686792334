package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
)

func publishedFixture(kind models.OfferingKind) *offeringFixture {
	f := newOfferingFixture()
	f.offering.Kind = kind
	f.offering.Status = models.OfferingPublished
	return f
}

func TestSubmit(t *testing.T) {
	f := publishedFixture(models.KindElective)
	var saved *models.Selection
	f.selections.upsertFn = func(_ context.Context, s *models.Selection) error {
		s.ID = 1
		saved = s
		return nil
	}
	svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)

	sel, err := svc.Submit(context.Background(), 5, 42, 10, &dto.SubmitSelectionRequest{OptionIDs: []int64{2, 1}, Statement: " hi "})
	require.NoError(t, err)
	assert.Equal(t, models.SelectionPending, sel.Status)
	assert.Equal(t, "hi", saved.Statement)
	assert.Equal(t, []int64{2, 1}, saved.OptionIDs)
	assert.Equal(t, int64(42), saved.StudentID)
}

func TestSubmit_Rules(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		prepare func(f *offeringFixture)
		options []int64
		wantErr error
	}{
		{"draft offering", func(f *offeringFixture) { f.offering.Status = models.OfferingDraft }, []int64{1}, apperrors.ErrPackNotOpen},
		{"closed offering", func(f *offeringFixture) { f.offering.Status = models.OfferingClosed }, []int64{1}, apperrors.ErrPackNotOpen},
		{"deadline passed", func(f *offeringFixture) { f.clock.Advance(49 * time.Hour) }, []int64{1}, apperrors.ErrDeadlinePassed},
		{"empty", nil, []int64{}, apperrors.ErrSelectionEmpty},
		{"over limit", func(f *offeringFixture) { f.offering.MaxSelections = 1 }, []int64{1, 2}, apperrors.ErrSelectionLimit},
		{"duplicate", nil, []int64{1, 1}, apperrors.ErrSelectionDuplicate},
		{"foreign option", nil, []int64{3}, apperrors.ErrOptionNotInOffering},
		{"full course", func(f *offeringFixture) {
			f.offerings.optionUsageFn = func(context.Context, *models.Offering) (map[int64]models.OptionUsage, error) {
				return map[int64]models.OptionUsage{1: {OptionID: 1, Approved: 2, MaxStudents: 2}}, nil
			}
		}, []int64{2, 1}, apperrors.ErrCapacityReached},
		{"reviewed selection", func(f *offeringFixture) {
			f.selections.upsertFn = func(context.Context, *models.Selection) error { return apperrors.ErrSelectionFinalized }
		}, []int64{1}, apperrors.ErrSelectionFinalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := publishedFixture(models.KindElective)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)
			_, err := svc.Submit(ctx, 5, 42, 10, &dto.SubmitSelectionRequest{OptionIDs: tt.options})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubmit_ExchangeOnlyFirstChoiceNeedsSeat(t *testing.T) {
	f := publishedFixture(models.KindExchange)
	f.offering.OptionIDs = []int64{1, 2}
	f.offerings.optionUsageFn = func(context.Context, *models.Offering) (map[int64]models.OptionUsage, error) {
		return map[int64]models.OptionUsage{1: {OptionID: 1, Approved: 1, MaxStudents: 1}}, nil
	}
	svc := NewSelectionService(models.KindExchange, f.deps(), &mockNotifier{}, f.clock, testLogger)

	_, err := svc.Submit(context.Background(), 5, 42, 10, &dto.SubmitSelectionRequest{OptionIDs: []int64{2, 1}})
	assert.NoError(t, err, "full university as second priority is allowed")

	_, err = svc.Submit(context.Background(), 5, 42, 10, &dto.SubmitSelectionRequest{OptionIDs: []int64{1, 2}})
	assert.ErrorIs(t, err, apperrors.ErrCapacityReached)
}

func TestWithdraw(t *testing.T) {
	f := publishedFixture(models.KindElective)
	sel := &models.Selection{ID: 8, OfferingID: 10, StudentID: 42, Status: models.SelectionPending}
	f.selections.getByStudentFn = func(context.Context, int64, int64) (*models.Selection, error) { return sel, nil }
	var deleted int64
	f.selections.deletePendingFn = func(_ context.Context, _ int64, id int64) error {
		deleted = id
		return nil
	}
	svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)

	require.NoError(t, svc.Withdraw(context.Background(), 5, 42, 10))
	assert.Equal(t, int64(8), deleted)

	sel.Status = models.SelectionApproved
	assert.ErrorIs(t, svc.Withdraw(context.Background(), 5, 42, 10), apperrors.ErrSelectionFinalized)

	sel.Status = models.SelectionPending
	f.clock.Advance(49 * time.Hour)
	assert.ErrorIs(t, svc.Withdraw(context.Background(), 5, 42, 10), apperrors.ErrDeadlinePassed)
}

func reviewFixture(status models.SelectionStatus) (*offeringFixture, *models.Selection) {
	f := publishedFixture(models.KindElective)
	sel := &models.Selection{
		ID: 8, InstitutionID: 5, OfferingID: 10, StudentID: 42, Status: status, OptionIDs: []int64{1},
		Student: &models.User{ID: 42, Email: "ann@hse.test", FirstName: "Ann"},
	}
	f.selections.getByIDFn = func(_ context.Context, _ int64, id int64) (*models.Selection, error) {
		if id != sel.ID {
			return nil, apperrors.ErrSelectionNotFound
		}
		cp := *sel
		return &cp, nil
	}
	return f, sel
}

func TestReview_ApproveNotifies(t *testing.T) {
	f, _ := reviewFixture(models.SelectionPending)
	var from models.SelectionStatus
	var at time.Time
	f.selections.reviewFn = func(_ context.Context, s *models.Selection, _ models.OfferingKind, prev models.SelectionStatus, when time.Time) error {
		from, at = prev, when
		return nil
	}
	notifier := &mockNotifier{}
	svc := NewSelectionService(models.KindElective, f.deps(), notifier, f.clock, testLogger)

	sel, err := svc.Review(context.Background(), 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionApproved, Comment: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, models.SelectionApproved, sel.Status)
	assert.Equal(t, int64(3), *sel.ReviewerID)
	assert.Equal(t, "welcome", *sel.ReviewComment)
	assert.Equal(t, models.SelectionPending, from)
	assert.Equal(t, testNow, at)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Spring electives:APPROVED", notifier.sent[0].subject)
}

func TestReview_Transitions(t *testing.T) {
	ctx := context.Background()

	f, _ := reviewFixture(models.SelectionApproved)
	svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)
	_, err := svc.Review(ctx, 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionRejected})
	assert.ErrorIs(t, err, apperrors.ErrSelectionFinalized)

	notifier := &mockNotifier{}
	svc = NewSelectionService(models.KindElective, f.deps(), notifier, f.clock, testLogger)
	sel, err := svc.Review(ctx, 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionPending})
	require.NoError(t, err)
	assert.Equal(t, models.SelectionPending, sel.Status)
	assert.Empty(t, notifier.sent, "reopening does not email the student")

	f, _ = reviewFixture(models.SelectionPending)
	svc = NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)
	_, err = svc.Review(ctx, 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionPending})
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusChange)
}

func TestReview_CapacityAndNotifierFailure(t *testing.T) {
	f, _ := reviewFixture(models.SelectionPending)
	f.selections.reviewFn = func(context.Context, *models.Selection, models.OfferingKind, models.SelectionStatus, time.Time) error {
		return apperrors.ErrCapacityReached
	}
	svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)
	_, err := svc.Review(context.Background(), 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionApproved})
	assert.ErrorIs(t, err, apperrors.ErrCapacityReached)

	f, _ = reviewFixture(models.SelectionPending)
	svc = NewSelectionService(models.KindElective, f.deps(), &mockNotifier{err: errors.New("smtp down")}, f.clock, testLogger)
	_, err = svc.Review(context.Background(), 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionRejected})
	assert.NoError(t, err)
}

func TestReview_ApproveRechecksOptions(t *testing.T) {
	f, sel := reviewFixture(models.SelectionPending)
	sel.OptionIDs = []int64{1, 99}
	f.selections.reviewFn = func(context.Context, *models.Selection, models.OfferingKind, models.SelectionStatus, time.Time) error {
		t.Fatal("a selection with a dropped option must not be approved")
		return nil
	}
	svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)

	_, err := svc.Review(context.Background(), 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionApproved})
	assert.ErrorIs(t, err, apperrors.ErrOptionNotInOffering)

	f.selections.reviewFn = nil
	_, err = svc.Review(context.Background(), 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionRejected})
	assert.NoError(t, err, "rejecting is still possible")
}

func TestReview_WrongKindIsNotFound(t *testing.T) {
	f, _ := reviewFixture(models.SelectionPending)
	svc := NewSelectionService(models.KindExchange, f.deps(), &mockNotifier{}, f.clock, testLogger)

	_, err := svc.Review(context.Background(), 5, 3, 8, &dto.ReviewSelectionRequest{Status: models.SelectionApproved})
	assert.ErrorIs(t, err, apperrors.ErrSelectionNotFound)
}

func TestMine_FiltersByKind(t *testing.T) {
	f := publishedFixture(models.KindExchange)
	var asked models.OfferingKind
	f.selections.listByStudentFn = func(_ context.Context, institutionID, studentID int64, kind models.OfferingKind) ([]*models.Selection, error) {
		assert.Equal(t, int64(5), institutionID)
		assert.Equal(t, int64(42), studentID)
		asked = kind
		return []*models.Selection{{ID: 3, OfferingID: 10}}, nil
	}
	f.offerings.getByIDFn = func(context.Context, int64, models.OfferingKind, int64) (*models.Offering, error) {
		t.Fatal("no per-selection offering lookups")
		return nil, nil
	}
	svc := NewSelectionService(models.KindExchange, f.deps(), &mockNotifier{}, f.clock, testLogger)

	list, err := svc.Mine(context.Background(), 5, 42)
	require.NoError(t, err)
	assert.Equal(t, models.KindExchange, asked)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].ID)
}

func TestExport(t *testing.T) {
	f := publishedFixture(models.KindElective)
	reviewed := testNow.Add(time.Hour)
	f.selections.listByOfferingFn = func(_ context.Context, _, _ int64, _ models.SelectionFilter, _, limit uint64) ([]*models.Selection, int64, error) {
		assert.Equal(t, uint64(0), limit)
		return []*models.Selection{
			{
				ID: 1, Status: models.SelectionApproved, OptionIDs: []int64{2, 1}, CreatedAt: testNow, ReviewedAt: &reviewed,
				Student: &models.User{FirstName: "Ann", LastName: "Lee", Email: "ann@hse.test", StudentNumber: strPtr("S-1"), GroupName: strPtr("G1")},
			},
		}, 1, nil
	}
	svc := NewSelectionService(models.KindElective, f.deps(), &mockNotifier{}, f.clock, testLogger)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), 5, 10, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ExportColumns, records[0])
	assert.Equal(t, []string{
		"S-1", "Ann", "Lee", "ann@hse.test", "G1", "APPROVED", "Databases; Algorithms",
		"2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z",
	}, records[1])
}

func TestDashboardStats(t *testing.T) {
	users := &mockUserRepo{countByRoleFn: func(context.Context, int64, models.RoleType) (int, error) { return 120, nil }}
	offerings := &mockOfferingRepo{countPublishedFn: func(_ context.Context, _ int64, kind models.OfferingKind) (int, error) {
		if kind == models.KindExchange {
			return 1, nil
		}
		return 4, nil
	}}
	selections := &mockSelectionRepo{countPendingFn: func(context.Context, int64) (int, error) { return 9, nil }}

	stats, err := NewDashboardService(users, offerings, selections).Stats(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardStats{Students: 120, ActivePacks: 4, ActivePrograms: 1, PendingSelections: 9}, *stats)
}
