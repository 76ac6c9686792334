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

var universityColumns = []string{
	"id", "institution_id", "name", "country", "city", "website", "max_students", "status", "created_at", "updated_at",
}

// UniversityRepository handles partner universities
type UniversityRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUniversityRepository creates a new UniversityRepository
func NewUniversityRepository(db *pgxpool.Pool) *UniversityRepository {
	return &UniversityRepository{db: db, sb: newBuilder()}
}

func scanUniversity(row pgx.Row) (*models.PartnerUniversity, error) {
	var u models.PartnerUniversity
	err := row.Scan(&u.ID, &u.InstitutionID, &u.Name, &u.Country, &u.City, &u.Website,
		&u.MaxStudents, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a partner university
func (r *UniversityRepository) Create(ctx context.Context, u *models.PartnerUniversity) error {
	sql, args, err := r.sb.Insert("partner_universities").
		Columns("institution_id", "name", "country", "city", "website", "max_students", "status").
		Values(u.InstitutionID, u.Name, u.Country, u.City, u.Website, u.MaxStudents, u.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create university query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrUniversityAlreadyExists
		}
		logger.Error().Err(err).Str("name", u.Name).Msg("Error creating partner university")
		return fmt.Errorf("error creating university: %w", err)
	}
	return nil
}

// GetByID returns a partner university of the institution
func (r *UniversityRepository) GetByID(ctx context.Context, institutionID, id int64) (*models.PartnerUniversity, error) {
	sql, args, err := r.sb.Select(universityColumns...).
		From("partner_universities").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get university query: %w", err)
	}

	u, err := scanUniversity(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUniversityNotFound
		}
		logger.Error().Err(err).Int64("universityID", id).Msg("Error getting university")
		return nil, fmt.Errorf("error getting university: %w", err)
	}
	return u, nil
}

// GetByIDs returns the institution universities among ids
func (r *UniversityRepository) GetByIDs(ctx context.Context, institutionID int64, ids []int64) ([]*models.PartnerUniversity, error) {
	if len(ids) == 0 {
		return []*models.PartnerUniversity{}, nil
	}
	sql, args, err := r.sb.Select(universityColumns...).
		From("partner_universities").
		Where(squirrel.Eq{"institution_id": institutionID, "id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get universities query: %w", err)
	}
	return r.query(ctx, sql, args)
}

// List returns a page of partner universities
func (r *UniversityRepository) List(ctx context.Context, institutionID int64, f models.CatalogFilter, offset, limit uint64) ([]*models.PartnerUniversity, int64, error) {
	where := squirrel.And{squirrel.Eq{"institution_id": institutionID}}
	if f.Status != "" {
		where = append(where, squirrel.Eq{"status": f.Status})
	}
	if f.Search != "" {
		p := searchPattern(f.Search)
		where = append(where, squirrel.Or{squirrel.ILike{"name": p}, squirrel.ILike{"country": p}, squirrel.ILike{"city": p}})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("partner_universities").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count universities query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting universities: %w", err)
	}

	sql, args, err := r.sb.Select(universityColumns...).
		From("partner_universities").
		Where(where).
		OrderBy("country", "name").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list universities query: %w", err)
	}
	list, err := r.query(ctx, sql, args)
	return list, total, err
}

func (r *UniversityRepository) query(ctx context.Context, sql string, args []any) ([]*models.PartnerUniversity, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying universities")
		return nil, fmt.Errorf("error querying universities: %w", err)
	}
	defer rows.Close()

	list := []*models.PartnerUniversity{}
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning university: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Update saves all mutable university fields
func (r *UniversityRepository) Update(ctx context.Context, u *models.PartnerUniversity) error {
	sql, args, err := r.sb.Update("partner_universities").
		Set("name", u.Name).
		Set("country", u.Country).
		Set("city", u.City).
		Set("website", u.Website).
		Set("max_students", u.MaxStudents).
		Set("status", u.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": u.ID, "institution_id": u.InstitutionID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update university query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.ErrUniversityNotFound
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrUniversityAlreadyExists
		}
		logger.Error().Err(err).Int64("universityID", u.ID).Msg("Error updating university")
		return fmt.Errorf("error updating university: %w", err)
	}
	return nil
}

// Delete removes a partner university not used by any exchange program
func (r *UniversityRepository) Delete(ctx context.Context, institutionID, id int64) error {
	sql, args, err := r.sb.Delete("partner_universities").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete university query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError("university is used by an exchange program; archive it instead")
		}
		logger.Error().Err(err).Int64("universityID", id).Msg("Error deleting university")
		return fmt.Errorf("error deleting university: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUniversityNotFound
	}
	return nil
}
