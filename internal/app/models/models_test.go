package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfferingStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OfferingStatus
		allowed  bool
	}{
		{OfferingDraft, OfferingPublished, true},
		{OfferingDraft, OfferingClosed, false},
		{OfferingPublished, OfferingClosed, true},
		{OfferingPublished, OfferingDraft, true},
		{OfferingPublished, OfferingArchived, false},
		{OfferingClosed, OfferingPublished, true},
		{OfferingClosed, OfferingArchived, true},
		{OfferingArchived, OfferingDraft, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOfferingStatus_VisibleToStudents(t *testing.T) {
	for _, st := range StudentVisibleStatuses {
		assert.True(t, st.VisibleToStudents(), st)
	}
	assert.False(t, OfferingDraft.VisibleToStudents())
	assert.False(t, OfferingArchived.VisibleToStudents())
}

func TestSelectionStatus_CanReviewTo(t *testing.T) {
	assert.True(t, SelectionPending.CanReviewTo(SelectionApproved))
	assert.True(t, SelectionPending.CanReviewTo(SelectionRejected))
	assert.False(t, SelectionPending.CanReviewTo(SelectionPending))
	assert.True(t, SelectionApproved.CanReviewTo(SelectionPending))
	assert.False(t, SelectionApproved.CanReviewTo(SelectionRejected))
	assert.False(t, SelectionRejected.CanReviewTo(SelectionApproved))
}

func TestOffering_IsOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := &Offering{Status: OfferingPublished, Deadline: now.Add(time.Hour)}
	assert.True(t, o.IsOpen(now))
	assert.False(t, o.IsOpen(now.Add(time.Hour)), "deadline is exclusive")

	o.Status = OfferingClosed
	assert.False(t, o.IsOpen(now))
}

func TestOfferingKind_SeatOptions(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, KindElective.SeatOptions([]int64{3, 1, 2}))
	assert.Equal(t, []int64{3}, KindExchange.SeatOptions([]int64{3, 1, 2}))
	assert.Empty(t, KindExchange.SeatOptions(nil))
}

func TestOfferingKind_Slug(t *testing.T) {
	assert.Equal(t, "pack", KindElective.Slug())
	assert.Equal(t, "program", KindExchange.Slug())
}

func TestPlanLimits(t *testing.T) {
	p := &SubscriptionPlan{MaxStudents: 2, MaxActivePacks: 0}
	assert.True(t, p.AllowsStudents(1))
	assert.False(t, p.AllowsStudents(2))
	assert.True(t, p.AllowsActivePacks(1000), "zero means unlimited")
}

func TestRoleLandingPath(t *testing.T) {
	assert.Equal(t, "/super-admin/dashboard", RoleSuperAdmin.LandingPath())
	assert.Equal(t, "/admin/dashboard", RoleAdmin.LandingPath())
	assert.Equal(t, "/manager/dashboard", RoleProgramManager.LandingPath())
	assert.Equal(t, "/student/dashboard", RoleStudent.LandingPath())
	assert.False(t, RoleType("GUEST").Valid())
}

func TestOptionUsage_HasCapacity(t *testing.T) {
	assert.True(t, OptionUsage{MaxStudents: 0, Approved: 99}.HasCapacity())
	assert.True(t, OptionUsage{MaxStudents: 2, Approved: 1}.HasCapacity())
	assert.False(t, OptionUsage{MaxStudents: 2, Approved: 2}.HasCapacity())
}
