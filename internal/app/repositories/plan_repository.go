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

var planColumns = []string{
	"id", "name", "description", "price_cents", "currency",
	"max_students", "max_active_packs", "is_active", "created_at", "updated_at",
}

// PlanRepository handles subscription plan persistence
type PlanRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db, sb: newBuilder()}
}

func scanPlan(row pgx.Row) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Currency,
		&p.MaxStudents, &p.MaxActivePacks, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a plan and fills its id and timestamps
func (r *PlanRepository) Create(ctx context.Context, p *models.SubscriptionPlan) error {
	sql, args, err := r.sb.Insert("subscription_plans").
		Columns("name", "description", "price_cents", "currency", "max_students", "max_active_packs", "is_active").
		Values(p.Name, p.Description, p.PriceCents, p.Currency, p.MaxStudents, p.MaxActivePacks, p.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create plan query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrPlanAlreadyExists
		}
		logger.Error().Err(err).Str("name", p.Name).Msg("Error creating plan")
		return fmt.Errorf("error creating plan: %w", err)
	}
	return nil
}

// GetByID returns a plan or ErrPlanNotFound
func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	sql, args, err := r.sb.Select(planColumns...).
		From("subscription_plans").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get plan query: %w", err)
	}

	p, err := scanPlan(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPlanNotFound
		}
		logger.Error().Err(err).Int64("planID", id).Msg("Error getting plan")
		return nil, fmt.Errorf("error getting plan: %w", err)
	}
	return p, nil
}

// List returns all plans ordered by price
func (r *PlanRepository) List(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	sql, args, err := r.sb.Select(planColumns...).
		From("subscription_plans").
		OrderBy("price_cents", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list plans query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing plans")
		return nil, fmt.Errorf("error listing plans: %w", err)
	}
	defer rows.Close()

	plans := []*models.SubscriptionPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Update saves all mutable plan fields
func (r *PlanRepository) Update(ctx context.Context, p *models.SubscriptionPlan) error {
	sql, args, err := r.sb.Update("subscription_plans").
		Set("name", p.Name).
		Set("description", p.Description).
		Set("price_cents", p.PriceCents).
		Set("currency", p.Currency).
		Set("max_students", p.MaxStudents).
		Set("max_active_packs", p.MaxActivePacks).
		Set("is_active", p.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update plan query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.ErrPlanNotFound
		case dberrors.IsUniqueViolation(err):
			return apperrors.ErrPlanAlreadyExists
		}
		logger.Error().Err(err).Int64("planID", p.ID).Msg("Error updating plan")
		return fmt.Errorf("error updating plan: %w", err)
	}
	return nil
}

// Delete removes a plan. Plans referenced by institutions yield ErrPlanInUse.
func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("subscription_plans").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete plan query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrPlanInUse
		}
		logger.Error().Err(err).Int64("planID", id).Msg("Error deleting plan")
		return fmt.Errorf("error deleting plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPlanNotFound
	}
	return nil
}

// CountInstitutions returns how many institutions use the plan
func (r *PlanRepository) CountInstitutions(ctx context.Context, planID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("institutions").
		Where(squirrel.Eq{"plan_id": planID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count institutions query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting plan institutions: %w", err)
	}
	return n, nil
}
