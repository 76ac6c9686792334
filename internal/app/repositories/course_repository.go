package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/dberrors"
	"github.com/yigit/electivepro/internal/pkg/logger"
)

var courseColumns = []string{
	"id", "institution_id", "code", "name", "description", "credits", "instructor",
	"max_students", "status", "created_at", "updated_at",
}

// CourseRepository handles the course catalog
type CourseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{db: db, sb: newBuilder()}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.InstitutionID, &c.Code, &c.Name, &c.Description, &c.Credits, &c.Instructor,
		&c.MaxStudents, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a course
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	sql, args, err := r.sb.Insert("courses").
		Columns("institution_id", "code", "name", "description", "credits", "instructor", "max_students", "status").
		Values(c.InstitutionID, c.Code, c.Name, c.Description, c.Credits, c.Instructor, c.MaxStudents, c.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrCourseAlreadyExists
		}
		logger.Error().Err(err).Str("code", c.Code).Msg("Error creating course")
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

// GetByID returns a course of the institution
func (r *CourseRepository) GetByID(ctx context.Context, institutionID, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		logger.Error().Err(err).Int64("courseID", id).Msg("Error getting course")
		return nil, fmt.Errorf("error getting course: %w", err)
	}
	return c, nil
}

// GetByIDs returns the institution courses among ids, in id order
func (r *CourseRepository) GetByIDs(ctx context.Context, institutionID int64, ids []int64) ([]*models.Course, error) {
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}
	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"institution_id": institutionID, "id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get courses query: %w", err)
	}
	return r.query(ctx, sql, args)
}

// List returns a page of courses
func (r *CourseRepository) List(ctx context.Context, institutionID int64, f models.CatalogFilter, offset, limit uint64) ([]*models.Course, int64, error) {
	where := squirrel.And{squirrel.Eq{"institution_id": institutionID}}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"status": f.Status})
	}
	if f.Search != "" {
		p := searchPattern(f.Search)
		where = append(where, squirrel.Or{squirrel.ILike{"code": p}, squirrel.ILike{"name": p}, squirrel.ILike{"instructor": p}})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("courses").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count courses query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting courses: %w", err)
	}

	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(where).
		OrderBy("code").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list courses query: %w", err)
	}
	list, err := r.query(ctx, sql, args)
	return list, total, err
}

func (r *CourseRepository) query(ctx context.Context, sql string, args []any) ([]*models.Course, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying courses")
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer rows.Close()

	list := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Update saves all mutable course fields
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	sql, args, err := r.sb.Update("courses").
		Set("code", c.Code).
		Set("name", c.Name).
		Set("description", c.Description).
		Set("credits", c.Credits).
		Set("instructor", c.Instructor).
		Set("max_students", c.MaxStudents).
		Set("status", c.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID, "institution_id": c.InstitutionID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.ErrCourseNotFound
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrCourseAlreadyExists
		}
		logger.Error().Err(err).Int64("courseID", c.ID).Msg("Error updating course")
		return fmt.Errorf("error updating course: %w", err)
	}
	return nil
}

// Delete removes a course. Courses used by an offering must be archived instead.
func (r *CourseRepository) Delete(ctx context.Context, institutionID, id int64) error {
	sql, args, err := r.sb.Delete("courses").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete course query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError("course is used by an elective pack; archive it instead")
		}
		logger.Error().Err(err).Int64("courseID", id).Msg("Error deleting course")
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}
