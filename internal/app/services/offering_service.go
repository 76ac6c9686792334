package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/helpers"
)

// OfferingService manages elective packs or exchange programs. One instance
// serves a single kind.
type OfferingService struct {
	kind          models.OfferingKind
	offeringRepo  OfferingRepository
	selectionRepo SelectionRepository
	catalog       optionCatalog
	limits        planLimits
	clock         clockwork.Clock
	logger        zerolog.Logger
}

// OfferingDeps groups the stores an OfferingService reads
type OfferingDeps struct {
	Offerings    OfferingRepository
	Selections   SelectionRepository
	Courses      CourseRepository
	Universities UniversityRepository
	Institutions InstitutionRepository
	Plans        PlanRepository
}

// NewOfferingService creates a new OfferingService for kind
func NewOfferingService(kind models.OfferingKind, deps OfferingDeps, clock clockwork.Clock, logger zerolog.Logger) *OfferingService {
	return &OfferingService{
		kind:          kind,
		offeringRepo:  deps.Offerings,
		selectionRepo: deps.Selections,
		catalog:       optionCatalog{courses: deps.Courses, universities: deps.Universities},
		limits:        planLimits{institutions: deps.Institutions, plans: deps.Plans},
		clock:         clock,
		logger:        logger.With().Str("kind", string(kind)).Logger(),
	}
}

// Kind returns the offering kind this service manages
func (s *OfferingService) Kind() models.OfferingKind {
	return s.kind
}

// Create adds a draft offering
func (s *OfferingService) Create(ctx context.Context, institutionID, creatorID int64, req *dto.OfferingRequest) (*models.Offering, error) {
	o := req.ToModel(s.kind)
	o.InstitutionID = institutionID
	o.CreatedBy = creatorID
	o.Name = strings.TrimSpace(o.Name)
	o.OptionIDs = []int64{}
	if err := s.offeringRepo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("offeringID", o.ID).Int64("institutionID", institutionID).Msg("Offering created")
	return o, nil
}

// List returns a page of offerings for staff
func (s *OfferingService) List(ctx context.Context, institutionID int64, f models.OfferingFilter) ([]*models.Offering, dto.PaginationInfo, error) {
	offset, limit := helpers.CalculateOffsetLimit(f.Page, f.Size)
	list, total, err := s.offeringRepo.List(ctx, institutionID, s.kind, f, offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return list, helpers.NewPaginationInfo(total, f.Page, f.Size), nil
}

// Get returns an offering with its options and live counts
func (s *OfferingService) Get(ctx context.Context, institutionID, id int64) (*dto.OfferingDetail, error) {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, o)
}

// Update changes the descriptive fields of an offering that is not archived
func (s *OfferingService) Update(ctx context.Context, institutionID, id int64, req *dto.OfferingRequest) (*models.Offering, error) {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.OfferingArchived {
		return nil, apperrors.NewConflictError("archived offerings cannot be edited")
	}

	o.Name = strings.TrimSpace(req.Name)
	o.Description = req.Description
	o.Semester = req.Semester
	o.AcademicYear = req.AcademicYear
	o.Deadline = req.Deadline
	o.MaxSelections = req.MaxSelections

	if o.Status == models.OfferingPublished {
		if err := s.checkPublishable(o); err != nil {
			return nil, err
		}
	}

	if err := s.offeringRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// SetOptions replaces the options of a draft offering nobody has chosen from yet
func (s *OfferingService) SetOptions(ctx context.Context, institutionID, id int64, optionIDs []int64) (*models.Offering, error) {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, id)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OfferingDraft {
		return nil, apperrors.ErrPackNotEditable
	}
	has, err := s.offeringRepo.HasSelections(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if has {
		return nil, apperrors.ErrOfferingHasSelections
	}
	if hasDuplicates(optionIDs) {
		return nil, apperrors.NewValidationError("optionIds", "options must not repeat")
	}
	if err := s.catalog.requireActive(ctx, institutionID, s.kind, optionIDs); err != nil {
		return nil, err
	}

	if err := s.offeringRepo.SetOptions(ctx, o, optionIDs); err != nil {
		return nil, err
	}
	o.OptionIDs = optionIDs
	return o, nil
}

// ChangeStatus moves an offering through DRAFT, PUBLISHED, CLOSED and ARCHIVED
func (s *OfferingService) ChangeStatus(ctx context.Context, institutionID, id int64, next models.OfferingStatus) (*models.Offering, error) {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidStatusChange,
			fmt.Sprintf("cannot change status from %s to %s", o.Status, next))
	}

	if next == models.OfferingPublished {
		if err := s.checkPublishable(o); err != nil {
			return nil, err
		}
		if err := s.checkActiveLimit(ctx, institutionID); err != nil {
			return nil, err
		}
	}

	from := o.Status
	if err := s.offeringRepo.SetStatus(ctx, o, next); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("offeringID", o.ID).Str("from", string(from)).Str("to", string(next)).Msg("Offering status changed")
	return o, nil
}

func (s *OfferingService) checkPublishable(o *models.Offering) error {
	if len(o.OptionIDs) == 0 {
		return apperrors.NewValidationError("optionIds", "an offering needs at least one option before it can be published")
	}
	if !s.clock.Now().Before(o.Deadline) {
		return apperrors.NewValidationError("deadline", "deadline must be in the future")
	}
	if o.MaxSelections < 1 || o.MaxSelections > len(o.OptionIDs) {
		return apperrors.NewCustomError(apperrors.ErrInvalidSelectionLimit,
			fmt.Sprintf("max selections must be between 1 and %d", len(o.OptionIDs)))
	}
	return nil
}

// checkActiveLimit counts packs and programs together against the plan
func (s *OfferingService) checkActiveLimit(ctx context.Context, institutionID int64) error {
	plan, err := s.limits.forInstitution(ctx, institutionID)
	if err != nil {
		return err
	}
	if plan.MaxActivePacks == 0 {
		return nil
	}
	n, err := s.offeringRepo.CountPublished(ctx, institutionID, "")
	if err != nil {
		return fmt.Errorf("error counting published offerings: %w", err)
	}
	if !plan.AllowsActivePacks(n) {
		return limitError("active packs", plan.MaxActivePacks)
	}
	return nil
}

// Delete removes a draft offering
func (s *OfferingService) Delete(ctx context.Context, institutionID, id int64) error {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, id)
	if err != nil {
		return err
	}
	if o.Status != models.OfferingDraft {
		return apperrors.NewConflictError("only draft offerings can be deleted; archive it instead")
	}
	return s.offeringRepo.Delete(ctx, institutionID, s.kind, id)
}

// ListForStudent returns published and closed offerings with the student's own selection
func (s *OfferingService) ListForStudent(ctx context.Context, institutionID, studentID int64, page, size int) ([]*dto.OfferingDetail, dto.PaginationInfo, error) {
	f := models.OfferingFilter{Statuses: models.StudentVisibleStatuses, Page: page, Size: size}
	list, pagination, err := s.List(ctx, institutionID, f)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}

	mine, err := s.selectionRepo.ListByStudent(ctx, institutionID, studentID, s.kind)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	byOffering := make(map[int64]*models.Selection, len(mine))
	for _, sel := range mine {
		byOffering[sel.OfferingID] = sel
	}

	now := s.clock.Now()
	out := make([]*dto.OfferingDetail, 0, len(list))
	for _, o := range list {
		out = append(out, &dto.OfferingDetail{
			Offering:    o,
			IsOpen:      o.IsOpen(now),
			MySelection: byOffering[o.ID],
		})
	}
	return out, pagination, nil
}

// GetForStudent returns a published or closed offering with option counts
func (s *OfferingService) GetForStudent(ctx context.Context, institutionID, studentID, id int64) (*dto.OfferingDetail, error) {
	o, err := s.offeringRepo.GetByID(ctx, institutionID, s.kind, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.VisibleToStudents() {
		return nil, s.notFound()
	}

	d, err := s.detail(ctx, o)
	if err != nil {
		return nil, err
	}

	mine, err := s.selectionRepo.GetByStudent(ctx, o.ID, studentID)
	if err != nil && !errors.Is(err, apperrors.ErrSelectionNotFound) {
		return nil, err
	}
	d.MySelection = mine
	return d, nil
}

func (s *OfferingService) detail(ctx context.Context, o *models.Offering) (*dto.OfferingDetail, error) {
	items, err := s.catalog.load(ctx, o.InstitutionID, o.Kind, o.OptionIDs)
	if err != nil {
		return nil, err
	}
	usage, err := s.offeringRepo.OptionUsage(ctx, o)
	if err != nil {
		return nil, err
	}

	options := make([]dto.OptionView, 0, len(o.OptionIDs))
	for _, id := range o.OptionIDs {
		item := items[id]
		u := usage[id]
		options = append(options, dto.OptionView{
			ID:          id,
			Title:       item.Title,
			Subtitle:    item.Subtitle,
			Description: item.Description,
			MaxStudents: item.MaxStudents,
			Approved:    u.Approved,
			Pending:     u.Pending,
			IsFull:      item.MaxStudents > 0 && u.Approved >= item.MaxStudents,
		})
	}

	return &dto.OfferingDetail{
		Offering: o,
		IsOpen:   o.IsOpen(s.clock.Now()),
		Options:  options,
	}, nil
}

func (s *OfferingService) notFound() error {
	if s.kind == models.KindExchange {
		return apperrors.ErrProgramNotFound
	}
	return apperrors.ErrPackNotFound
}

func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
