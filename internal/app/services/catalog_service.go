package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/helpers"
)

// CourseService manages the course catalog of an institution
type CourseService struct {
	courseRepo CourseRepository
	logger     zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(courseRepo CourseRepository, logger zerolog.Logger) *CourseService {
	return &CourseService{courseRepo: courseRepo, logger: logger}
}

// Create adds a course
func (s *CourseService) Create(ctx context.Context, institutionID int64, req *dto.CourseRequest) (*models.Course, error) {
	c := req.ToModel()
	c.InstitutionID = institutionID
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Name = strings.TrimSpace(c.Name)
	if err := s.courseRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns a page of courses
func (s *CourseService) List(ctx context.Context, institutionID int64, f models.CatalogFilter) ([]*models.Course, dto.PaginationInfo, error) {
	offset, limit := helpers.CalculateOffsetLimit(f.Page, f.Size)
	list, total, err := s.courseRepo.List(ctx, institutionID, f, offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return list, helpers.NewPaginationInfo(total, f.Page, f.Size), nil
}

// Get returns one course
func (s *CourseService) Get(ctx context.Context, institutionID, id int64) (*models.Course, error) {
	return s.courseRepo.GetByID(ctx, institutionID, id)
}

// Update replaces the editable fields of a course
func (s *CourseService) Update(ctx context.Context, institutionID, id int64, req *dto.CourseRequest) (*models.Course, error) {
	c, err := s.courseRepo.GetByID(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	c.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	c.Credits = req.Credits
	c.Instructor = req.Instructor
	c.MaxStudents = req.MaxStudents
	if err := s.courseRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus archives or restores a course
func (s *CourseService) SetStatus(ctx context.Context, institutionID, id int64, status models.CatalogStatus) (*models.Course, error) {
	c, err := s.courseRepo.GetByID(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	c.Status = status
	if err := s.courseRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a course no pack references
func (s *CourseService) Delete(ctx context.Context, institutionID, id int64) error {
	return s.courseRepo.Delete(ctx, institutionID, id)
}

// UniversityService manages the partner universities of an institution
type UniversityService struct {
	universityRepo UniversityRepository
	logger         zerolog.Logger
}

// NewUniversityService creates a new UniversityService
func NewUniversityService(universityRepo UniversityRepository, logger zerolog.Logger) *UniversityService {
	return &UniversityService{universityRepo: universityRepo, logger: logger}
}

// Create adds a partner university
func (s *UniversityService) Create(ctx context.Context, institutionID int64, req *dto.UniversityRequest) (*models.PartnerUniversity, error) {
	u := req.ToModel()
	u.InstitutionID = institutionID
	u.Name = strings.TrimSpace(u.Name)
	if err := s.universityRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns a page of partner universities
func (s *UniversityService) List(ctx context.Context, institutionID int64, f models.CatalogFilter) ([]*models.PartnerUniversity, dto.PaginationInfo, error) {
	offset, limit := helpers.CalculateOffsetLimit(f.Page, f.Size)
	list, total, err := s.universityRepo.List(ctx, institutionID, f, offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}
	return list, helpers.NewPaginationInfo(total, f.Page, f.Size), nil
}

// Get returns one partner university
func (s *UniversityService) Get(ctx context.Context, institutionID, id int64) (*models.PartnerUniversity, error) {
	return s.universityRepo.GetByID(ctx, institutionID, id)
}

// Update replaces the editable fields of a partner university
func (s *UniversityService) Update(ctx context.Context, institutionID, id int64, req *dto.UniversityRequest) (*models.PartnerUniversity, error) {
	u, err := s.universityRepo.GetByID(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(req.Name)
	u.Country = req.Country
	u.City = req.City
	u.Website = req.Website
	u.MaxStudents = req.MaxStudents
	if err := s.universityRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetStatus archives or restores a partner university
func (s *UniversityService) SetStatus(ctx context.Context, institutionID, id int64, status models.CatalogStatus) (*models.PartnerUniversity, error) {
	u, err := s.universityRepo.GetByID(ctx, institutionID, id)
	if err != nil {
		return nil, err
	}
	u.Status = status
	if err := s.universityRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes a partner university no program references
func (s *UniversityService) Delete(ctx context.Context, institutionID, id int64) error {
	return s.universityRepo.Delete(ctx, institutionID, id)
}

// optionCatalog resolves offering option ids to catalog entries of the
// matching kind: courses for packs, universities for programs.
type optionCatalog struct {
	courses      CourseRepository
	universities UniversityRepository
}

// catalogItem is the part of a course or university an offering shows
type catalogItem struct {
	ID          int64
	Title       string
	Subtitle    string
	Description string
	MaxStudents int
	Active      bool
}

func (c optionCatalog) load(ctx context.Context, institutionID int64, kind models.OfferingKind, ids []int64) (map[int64]catalogItem, error) {
	items := make(map[int64]catalogItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	if kind == models.KindExchange {
		list, err := c.universities.GetByIDs(ctx, institutionID, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range list {
			subtitle := u.Country
			if u.City != "" {
				subtitle = u.City + ", " + u.Country
			}
			items[u.ID] = catalogItem{
				ID:          u.ID,
				Title:       u.Name,
				Subtitle:    subtitle,
				Description: u.Website,
				MaxStudents: u.MaxStudents,
				Active:      u.Status == models.CatalogActive,
			}
		}
		return items, nil
	}

	list, err := c.courses.GetByIDs(ctx, institutionID, ids)
	if err != nil {
		return nil, err
	}
	for _, co := range list {
		subtitle := co.Code
		if co.Instructor != "" {
			subtitle = co.Code + " · " + co.Instructor
		}
		items[co.ID] = catalogItem{
			ID:          co.ID,
			Title:       co.Name,
			Subtitle:    subtitle,
			Description: co.Description,
			MaxStudents: co.MaxStudents,
			Active:      co.Status == models.CatalogActive,
		}
	}
	return items, nil
}

// requireActive checks that every id is an active catalog entry of kind
func (c optionCatalog) requireActive(ctx context.Context, institutionID int64, kind models.OfferingKind, ids []int64) error {
	items, err := c.load(ctx, institutionID, kind, ids)
	if err != nil {
		return err
	}
	what := "course"
	if kind == models.KindExchange {
		what = "partner university"
	}
	for _, id := range ids {
		item, ok := items[id]
		if !ok {
			return apperrors.NewValidationError("optionIds", fmt.Sprintf("%s %d does not exist", what, id))
		}
		if !item.Active {
			return apperrors.NewValidationError("optionIds", fmt.Sprintf("%s %d is archived", what, id))
		}
	}
	return nil
}
