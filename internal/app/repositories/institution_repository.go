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

var institutionColumns = []string{
	"id", "name", "subdomain", "primary_color", "logo_url", "plan_id", "is_active", "created_at", "updated_at",
}

// InstitutionRepository handles tenant persistence
type InstitutionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewInstitutionRepository creates a new InstitutionRepository
func NewInstitutionRepository(db *pgxpool.Pool) *InstitutionRepository {
	return &InstitutionRepository{db: db, sb: newBuilder()}
}

func scanInstitution(row pgx.Row) (*models.Institution, error) {
	var i models.Institution
	err := row.Scan(&i.ID, &i.Name, &i.Subdomain, &i.PrimaryColor, &i.LogoURL, &i.PlanID, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateWithAdmin inserts an institution and its first admin in one transaction
func (r *InstitutionRepository) CreateWithAdmin(ctx context.Context, inst *models.Institution, admin *models.User) error {
	instSQL, instArgs, err := r.sb.Insert("institutions").
		Columns("name", "subdomain", "primary_color", "logo_url", "plan_id", "is_active").
		Values(inst.Name, inst.Subdomain, inst.PrimaryColor, inst.LogoURL, inst.PlanID, inst.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create institution query: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, instSQL, instArgs...).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrSubdomainTaken
			}
			if dberrors.IsForeignKeyViolation(err) {
				return apperrors.ErrPlanNotFound
			}
			return fmt.Errorf("error creating institution: %w", err)
		}

		if admin == nil {
			return nil
		}
		admin.InstitutionID = &inst.ID
		userSQL, userArgs, err := insertUserQuery(r.sb, admin)
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, userSQL, userArgs...).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
			if dberrors.IsUniqueViolation(err) {
				return apperrors.ErrEmailAlreadyExists
			}
			return fmt.Errorf("error creating institution admin: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("subdomain", inst.Subdomain).Msg("Error creating institution")
		return err
	}
	return nil
}

func (r *InstitutionRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Institution, error) {
	sql, args, err := r.sb.Select(institutionColumns...).From("institutions").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get institution query: %w", err)
	}

	inst, err := scanInstitution(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTenantNotFound
		}
		logger.Error().Err(err).Msg("Error getting institution")
		return nil, fmt.Errorf("error getting institution: %w", err)
	}
	return inst, nil
}

// GetByID returns an institution or ErrTenantNotFound
func (r *InstitutionRepository) GetByID(ctx context.Context, id int64) (*models.Institution, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetBySubdomain returns an institution or ErrTenantNotFound
func (r *InstitutionRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Institution, error) {
	return r.getOne(ctx, squirrel.Eq{"subdomain": subdomain})
}

// List returns a page of institutions matching search on name or subdomain
func (r *InstitutionRepository) List(ctx context.Context, search string, offset, limit uint64) ([]*models.Institution, int64, error) {
	where := squirrel.And{}
	if search != "" {
		p := searchPattern(search)
		where = append(where, squirrel.Or{squirrel.ILike{"name": p}, squirrel.ILike{"subdomain": p}})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("institutions").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count institutions query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting institutions: %w", err)
	}

	sql, args, err := r.sb.Select(institutionColumns...).
		From("institutions").
		Where(where).
		OrderBy("name").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list institutions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing institutions")
		return nil, 0, fmt.Errorf("error listing institutions: %w", err)
	}
	defer rows.Close()

	list := []*models.Institution{}
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning institution: %w", err)
		}
		list = append(list, inst)
	}
	return list, total, rows.Err()
}

// Update saves name, branding and plan
func (r *InstitutionRepository) Update(ctx context.Context, inst *models.Institution) error {
	sql, args, err := r.sb.Update("institutions").
		Set("name", inst.Name).
		Set("primary_color", inst.PrimaryColor).
		Set("logo_url", inst.LogoURL).
		Set("plan_id", inst.PlanID).
		Set("is_active", inst.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": inst.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update institution query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&inst.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.ErrTenantNotFound
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrPlanNotFound
		}
		logger.Error().Err(err).Int64("institutionID", inst.ID).Msg("Error updating institution")
		return fmt.Errorf("error updating institution: %w", err)
	}
	return nil
}

// Delete removes an institution and, by cascade, all of its data
func (r *InstitutionRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("institutions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete institution query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("institutionID", id).Msg("Error deleting institution")
		return fmt.Errorf("error deleting institution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTenantNotFound
	}
	return nil
}

// Usage counts students, staff, published offerings and pending selections
func (r *InstitutionRepository) Usage(ctx context.Context, id int64) (*models.InstitutionUsage, error) {
	const q = `
	SELECT
		(SELECT COUNT(*) FROM users WHERE institution_id = $1 AND role_type = 'STUDENT'),
		(SELECT COUNT(*) FROM users WHERE institution_id = $1 AND role_type <> 'STUDENT'),
		(SELECT COUNT(*) FROM offerings WHERE institution_id = $1 AND status = 'PUBLISHED'),
		(SELECT COUNT(*) FROM selections WHERE institution_id = $1 AND status = 'PENDING')`

	u := &models.InstitutionUsage{InstitutionID: id}
	if err := r.db.QueryRow(ctx, q, id).Scan(&u.Students, &u.Staff, &u.ActivePacks, &u.PendingSelections); err != nil {
		logger.Error().Err(err).Int64("institutionID", id).Msg("Error computing institution usage")
		return nil, fmt.Errorf("error computing usage: %w", err)
	}
	return u, nil
}
