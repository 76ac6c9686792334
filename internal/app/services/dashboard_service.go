package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
)

// DashboardService aggregates counts for staff dashboards
type DashboardService struct {
	userRepo      UserRepository
	offeringRepo  OfferingRepository
	selectionRepo SelectionRepository
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(userRepo UserRepository, offeringRepo OfferingRepository, selectionRepo SelectionRepository) *DashboardService {
	return &DashboardService{userRepo: userRepo, offeringRepo: offeringRepo, selectionRepo: selectionRepo}
}

// Stats returns the summary of an institution
func (s *DashboardService) Stats(ctx context.Context, institutionID int64) (*dto.DashboardStats, error) {
	var stats dto.DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Students, err = s.userRepo.CountByRole(ctx, institutionID, models.RoleStudent)
		return err
	})
	g.Go(func() (err error) {
		stats.ActivePacks, err = s.offeringRepo.CountPublished(ctx, institutionID, models.KindElective)
		return err
	})
	g.Go(func() (err error) {
		stats.ActivePrograms, err = s.offeringRepo.CountPublished(ctx, institutionID, models.KindExchange)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingSelections, err = s.selectionRepo.CountPending(ctx, institutionID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
