package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/helpers"
)

// ExportColumns is the header of a selection export
var ExportColumns = []string{
	"student_number", "first_name", "last_name", "email", "group", "status", "options", "submitted_at", "reviewed_at",
}

// SelectionService handles student choices for one offering kind
type SelectionService struct {
	kind          models.OfferingKind
	offeringRepo  OfferingRepository
	selectionRepo SelectionRepository
	catalog       optionCatalog
	notifier      Notifier
	clock         clockwork.Clock
	logger        zerolog.Logger
}

// NewSelectionService creates a new SelectionService for kind
func NewSelectionService(kind models.OfferingKind, deps OfferingDeps, notifier Notifier, clock clockwork.Clock, logger zerolog.Logger) *SelectionService {
	return &SelectionService{
		kind:          kind,
		offeringRepo:  deps.Offerings,
		selectionRepo: deps.Selections,
		catalog:       optionCatalog{courses: deps.Courses, universities: deps.Universities},
		notifier:      notifier,
		clock:         clock,
		logger:        logger.With().Str("kind", string(kind)).Logger(),
	}
}

// Submit creates or replaces the student's pending selection. For exchange
// programs the order of optionIDs is the priority order.
func (s *SelectionService) Submit(ctx context.Context, institutionID, studentID, offeringID int64, req *dto.SubmitSelectionRequest) (*models.Selection, error) {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, offeringID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOpen(o); err != nil {
		return nil, err
	}
	if err := validateChoice(o, req.OptionIDs); err != nil {
		return nil, err
	}

	usage, err := s.offeringRepo.OptionUsage(ctx, o)
	if err != nil {
		return nil, err
	}
	for _, id := range s.kind.SeatOptions(req.OptionIDs) {
		if u, ok := usage[id]; ok && !u.HasCapacity() {
			return nil, apperrors.NewCustomError(apperrors.ErrCapacityReached,
				fmt.Sprintf("option %d has no remaining capacity", id)).
				WithDetails(map[string]any{"optionId": id})
		}
	}

	sel := &models.Selection{
		InstitutionID: institutionID,
		OfferingID:    o.ID,
		StudentID:     studentID,
		Status:        models.SelectionPending,
		Statement:     strings.TrimSpace(req.Statement),
		OptionIDs:     req.OptionIDs,
	}
	if err := s.selectionRepo.Upsert(ctx, sel); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("offeringID", o.ID).Int64("studentID", studentID).Ints64("options", req.OptionIDs).Msg("Selection submitted")
	return sel, nil
}

func (s *SelectionService) checkOpen(o *models.Offering) error {
	if o.Status != models.OfferingPublished {
		return apperrors.ErrPackNotOpen
	}
	if !s.clock.Now().Before(o.Deadline) {
		return apperrors.ErrDeadlinePassed
	}
	return nil
}

func validateChoice(o *models.Offering, optionIDs []int64) error {
	if len(optionIDs) == 0 {
		return apperrors.ErrSelectionEmpty
	}
	if len(optionIDs) > o.MaxSelections {
		return apperrors.NewCustomError(apperrors.ErrSelectionLimit,
			fmt.Sprintf("at most %d options can be selected", o.MaxSelections))
	}
	if hasDuplicates(optionIDs) {
		return apperrors.ErrSelectionDuplicate
	}
	for _, id := range optionIDs {
		if !o.HasOption(id) {
			return apperrors.NewCustomError(apperrors.ErrOptionNotInOffering,
				fmt.Sprintf("option %d does not belong to this offering", id))
		}
	}
	return nil
}

// Withdraw deletes the student's pending selection before the deadline
func (s *SelectionService) Withdraw(ctx context.Context, institutionID, studentID, offeringID int64) error {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, offeringID)
	if err != nil {
		return err
	}
	if err := s.checkOpen(o); err != nil {
		return err
	}

	sel, err := s.selectionRepo.GetByStudent(ctx, o.ID, studentID)
	if err != nil {
		return err
	}
	if sel.Status != models.SelectionPending {
		return apperrors.ErrSelectionFinalized
	}
	if err := s.selectionRepo.DeletePending(ctx, institutionID, sel.ID); err != nil {
		return err
	}
	s.logger.Info().Int64("offeringID", o.ID).Int64("studentID", studentID).Msg("Selection withdrawn")
	return nil
}

// Mine returns all of the student's selections of this kind
func (s *SelectionService) Mine(ctx context.Context, institutionID, studentID int64) ([]*models.Selection, error) {
	return s.selectionRepo.ListByStudent(ctx, institutionID, studentID, s.kind)
}

// ListForOffering returns a page of selections of an offering for staff
func (s *SelectionService) ListForOffering(ctx context.Context, institutionID, offeringID int64, f models.SelectionFilter) ([]*models.Selection, dto.PaginationInfo, error) {
	if _, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, offeringID); err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	offset, limit := helpers.CalculateOffsetLimit(f.Page, f.Size)
	list, total, err := s.selectionRepo.ListByOffering(ctx, institutionID, offeringID, f, offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return list, helpers.NewPaginationInfo(total, f.Page, f.Size), nil
}

// Review approves, rejects or reopens a selection and notifies the student
func (s *SelectionService) Review(ctx context.Context, institutionID, reviewerID, selectionID int64, req *dto.ReviewSelectionRequest) (*models.Selection, error) {
	sel, err := s.selectionRepo.GetByID(ctx, institutionID, selectionID)
	if err != nil {
		return nil, err
	}
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, sel.OfferingID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPackNotFound) || errors.Is(err, apperrors.ErrProgramNotFound) {
			return nil, apperrors.ErrSelectionNotFound
		}
		return nil, err
	}

	if !sel.Status.CanReviewTo(req.Status) {
		if sel.Status != models.SelectionPending && req.Status != models.SelectionPending {
			return nil, apperrors.NewCustomError(apperrors.ErrSelectionFinalized,
				fmt.Sprintf("selection is already %s; reopen it first", sel.Status))
		}
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidStatusChange,
			fmt.Sprintf("cannot change selection from %s to %s", sel.Status, req.Status))
	}

	if req.Status == models.SelectionApproved {
		for _, id := range sel.OptionIDs {
			if !o.HasOption(id) {
				return nil, apperrors.NewCustomError(apperrors.ErrOptionNotInOffering,
					fmt.Sprintf("option %d is no longer part of %s", id, o.Name))
			}
		}
	}

	from := sel.Status
	sel.Status = req.Status
	sel.ReviewerID = &reviewerID
	sel.ReviewComment = optional(req.Comment)

	if err := s.selectionRepo.Review(ctx, sel, o.Kind, from, s.clock.Now()); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("selectionID", sel.ID).Int64("reviewerID", reviewerID).
		Str("from", string(from)).Str("to", string(sel.Status)).Msg("Selection reviewed")

	if sel.Student != nil && sel.Status != models.SelectionPending {
		err := s.notifier.SelectionReviewed(ctx, sel.Student.Email, sel.Student.FullName(), o.Name, string(sel.Status), req.Comment)
		if err != nil {
			s.logger.Warn().Err(err).Int64("selectionID", sel.ID).Msg("Failed to send review notification")
		}
	}
	return sel, nil
}

// Export writes all selections of an offering as CSV
func (s *SelectionService) Export(ctx context.Context, institutionID, offeringID int64, w io.Writer) error {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, offeringID)
	if err != nil {
		return err
	}
	list, _, err := s.selectionRepo.ListByOffering(ctx, institutionID, o.ID, models.SelectionFilter{}, 0, 0)
	if err != nil {
		return err
	}
	items, err := s.catalog.load(ctx, institutionID, o.Kind, o.OptionIDs)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("error writing export header: %w", err)
	}
	for _, sel := range list {
		if err := cw.Write(exportRow(sel, items)); err != nil {
			return fmt.Errorf("error writing export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(sel *models.Selection, items map[int64]catalogItem) []string {
	var number, group, first, last, email string
	if st := sel.Student; st != nil {
		first, last, email = st.FirstName, st.LastName, st.Email
		if st.StudentNumber != nil {
			number = *st.StudentNumber
		}
		if st.GroupName != nil {
			group = *st.GroupName
		}
	}

	options := make([]string, 0, len(sel.OptionIDs))
	for _, id := range sel.OptionIDs {
		if item, ok := items[id]; ok {
			options = append(options, item.Title)
		} else {
			options = append(options, fmt.Sprintf("#%d", id))
		}
	}

	reviewed := ""
	if sel.ReviewedAt != nil {
		reviewed = sel.ReviewedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		number, first, last, email, group, string(sel.Status),
		strings.Join(options, "; "), sel.CreatedAt.UTC().Format(time.RFC3339), reviewed,
	}
}
