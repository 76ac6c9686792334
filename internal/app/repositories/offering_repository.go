package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/dberrors"
	"github.com/yigit/electivepro/internal/pkg/logger"
)

var offeringColumns = []string{
	"id", "institution_id", "kind", "name", "description", "semester", "academic_year",
	"deadline", "max_selections", "status", "COALESCE(created_by, 0)", "created_at", "updated_at",
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OfferingRepository persists elective packs and exchange programs
type OfferingRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewOfferingRepository creates a new OfferingRepository
func NewOfferingRepository(db *pgxpool.Pool) *OfferingRepository {
	return &OfferingRepository{db: db, sb: newBuilder()}
}

func offeringNotFound(kind models.OfferingKind) error {
	if kind == models.KindExchange {
		return apperrors.ErrProgramNotFound
	}
	return apperrors.ErrPackNotFound
}

func optionColumn(kind models.OfferingKind) string {
	if kind == models.KindExchange {
		return "university_id"
	}
	return "course_id"
}

func scanOffering(row pgx.Row) (*models.Offering, error) {
	var o models.Offering
	err := row.Scan(&o.ID, &o.InstitutionID, &o.Kind, &o.Name, &o.Description, &o.Semester, &o.AcademicYear,
		&o.Deadline, &o.MaxSelections, &o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.OptionIDs = []int64{}
	return &o, nil
}

// Create inserts an offering with its options
func (r *OfferingRepository) Create(ctx context.Context, o *models.Offering) error {
	var createdBy *int64
	if o.CreatedBy > 0 {
		createdBy = &o.CreatedBy
	}
	sql, args, err := r.sb.Insert("offerings").
		Columns("institution_id", "kind", "name", "description", "semester", "academic_year",
			"deadline", "max_selections", "status", "created_by").
		Values(o.InstitutionID, o.Kind, o.Name, o.Description, o.Semester, o.AcademicYear,
			o.Deadline, o.MaxSelections, o.Status, createdBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create offering query: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, sql, args...).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return fmt.Errorf("error creating offering: %w", err)
		}
		return r.replaceOptions(ctx, tx, o.ID, o.Kind, o.OptionIDs)
	})
	if err != nil {
		logger.Error().Err(err).Str("kind", string(o.Kind)).Str("name", o.Name).Msg("Error creating offering")
		return err
	}
	return nil
}

// GetByID returns an offering of the given kind with its option ids
func (r *OfferingRepository) GetByID(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) (*models.Offering, error) {
	sql, args, err := r.sb.Select(offeringColumns...).
		From("offerings").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID, "kind": kind}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get offering query: %w", err)
	}

	o, err := scanOffering(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offeringNotFound(kind)
		}
		logger.Error().Err(err).Int64("offeringID", id).Msg("Error getting offering")
		return nil, fmt.Errorf("error getting offering: %w", err)
	}

	if err := r.attachOptions(ctx, []*models.Offering{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns a page of offerings of one kind
func (r *OfferingRepository) List(ctx context.Context, institutionID int64, kind models.OfferingKind, f models.OfferingFilter, offset, limit uint64) ([]*models.Offering, int64, error) {
	where := squirrel.Eq{"institution_id": institutionID, "kind": kind}
	switch {
	case f.Status != "":
		where["status"] = f.Status
	case len(f.Statuses) > 0:
		where["status"] = f.Statuses
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("offerings").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count offerings query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting offerings: %w", err)
	}

	sql, args, err := r.sb.Select(offeringColumns...).
		From("offerings").
		Where(where).
		OrderBy("deadline DESC", "id DESC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list offerings query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("institutionID", institutionID).Msg("Error listing offerings")
		return nil, 0, fmt.Errorf("error listing offerings: %w", err)
	}
	defer rows.Close()

	list := []*models.Offering{}
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning offering: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachOptions(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *OfferingRepository) attachOptions(ctx context.Context, list []*models.Offering) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Offering, len(list))
	ids := make([]int64, 0, len(list))
	for _, o := range list {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	sql, args, err := r.sb.Select("offering_id", "COALESCE(course_id, university_id)").
		From("offering_options").
		Where(squirrel.Eq{"offering_id": ids}).
		OrderBy("offering_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build offering options query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error loading offering options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var offeringID, optionID int64
		if err := rows.Scan(&offeringID, &optionID); err != nil {
			return fmt.Errorf("error scanning offering option: %w", err)
		}
		o := byID[offeringID]
		o.OptionIDs = append(o.OptionIDs, optionID)
	}
	return rows.Err()
}

// Update saves descriptive fields, deadline and limit
func (r *OfferingRepository) Update(ctx context.Context, o *models.Offering) error {
	sql, args, err := r.sb.Update("offerings").
		Set("name", o.Name).
		Set("description", o.Description).
		Set("semester", o.Semester).
		Set("academic_year", o.AcademicYear).
		Set("deadline", o.Deadline).
		Set("max_selections", o.MaxSelections).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": o.ID, "institution_id": o.InstitutionID, "kind": o.Kind}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update offering query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return offeringNotFound(o.Kind)
		}
		logger.Error().Err(err).Int64("offeringID", o.ID).Msg("Error updating offering")
		return fmt.Errorf("error updating offering: %w", err)
	}
	return nil
}

// SetOptions replaces the option list of an offering
func (r *OfferingRepository) SetOptions(ctx context.Context, o *models.Offering, optionIDs []int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT id FROM offerings WHERE id = $1 FOR UPDATE`, o.ID); err != nil {
			return fmt.Errorf("error locking offering: %w", err)
		}
		has, err := hasSelections(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if has {
			return apperrors.ErrOfferingHasSelections
		}
		return r.replaceOptions(ctx, tx, o.ID, o.Kind, optionIDs)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrOfferingHasSelections) {
			logger.Error().Err(err).Int64("offeringID", o.ID).Msg("Error setting offering options")
		}
		return err
	}
	o.OptionIDs = optionIDs
	return nil
}

// HasSelections reports whether any student has a selection for the offering
func (r *OfferingRepository) HasSelections(ctx context.Context, offeringID int64) (bool, error) {
	return hasSelections(ctx, r.db, offeringID)
}

func hasSelections(ctx context.Context, q querier, offeringID int64) (bool, error) {
	var has bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM selections WHERE offering_id = $1)`, offeringID).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("error checking offering selections: %w", err)
	}
	return has, nil
}

func (r *OfferingRepository) replaceOptions(ctx context.Context, q querier, offeringID int64, kind models.OfferingKind, optionIDs []int64) error {
	delSQL, delArgs, err := r.sb.Delete("offering_options").Where(squirrel.Eq{"offering_id": offeringID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build clear options query: %w", err)
	}
	if _, err := q.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("error clearing offering options: %w", err)
	}
	if len(optionIDs) == 0 {
		return nil
	}

	ins := r.sb.Insert("offering_options").Columns("offering_id", optionColumn(kind), "position")
	for i, id := range optionIDs {
		ins = ins.Values(offeringID, id, i+1)
	}
	insSQL, insArgs, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert options query: %w", err)
	}
	if _, err := q.Exec(ctx, insSQL, insArgs...); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			if kind == models.KindExchange {
				return apperrors.ErrUniversityNotFound
			}
			return apperrors.ErrCourseNotFound
		}
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrSelectionDuplicate
		}
		return fmt.Errorf("error inserting offering options: %w", err)
	}
	return nil
}

// SetStatus moves an offering to status
func (r *OfferingRepository) SetStatus(ctx context.Context, o *models.Offering, status models.OfferingStatus) error {
	sql, args, err := r.sb.Update("offerings").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": o.ID, "institution_id": o.InstitutionID, "kind": o.Kind}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set status query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return offeringNotFound(o.Kind)
		}
		logger.Error().Err(err).Int64("offeringID", o.ID).Msg("Error setting offering status")
		return fmt.Errorf("error setting offering status: %w", err)
	}
	o.Status = status
	return nil
}

// Delete removes an offering together with its options and selections
func (r *OfferingRepository) Delete(ctx context.Context, institutionID int64, kind models.OfferingKind, id int64) error {
	sql, args, err := r.sb.Delete("offerings").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID, "kind": kind}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete offering query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("offeringID", id).Msg("Error deleting offering")
		return fmt.Errorf("error deleting offering: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return offeringNotFound(kind)
	}
	return nil
}

// CountPublished counts published offerings; an empty kind counts both kinds
func (r *OfferingRepository) CountPublished(ctx context.Context, institutionID int64, kind models.OfferingKind) (int, error) {
	where := squirrel.Eq{"institution_id": institutionID, "status": models.OfferingPublished}
	if kind != "" {
		where["kind"] = kind
	}
	sql, args, err := r.sb.Select("COUNT(*)").From("offerings").Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count published query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting published offerings: %w", err)
	}
	return n, nil
}

// OptionUsage returns pending and approved counts per option of an offering
func (r *OfferingRepository) OptionUsage(ctx context.Context, o *models.Offering) (map[int64]models.OptionUsage, error) {
	usage, err := loadOptionUsage(ctx, r.db, o.ID, o.Kind)
	if err != nil {
		logger.Error().Err(err).Int64("offeringID", o.ID).Msg("Error loading option usage")
		return nil, err
	}
	return usage, nil
}

// Only the first choice of an exchange selection occupies a seat; every
// course of an elective selection does.
const optionUsageSQL = `
SELECT opts.option_id, opts.max_students,
       COALESCE(cnt.pending, 0), COALESCE(cnt.approved, 0)
FROM (
    SELECT COALESCE(oo.course_id, oo.university_id) AS option_id,
           COALESCE(c.max_students, pu.max_students, 0) AS max_students
    FROM offering_options oo
    LEFT JOIN courses c ON c.id = oo.course_id
    LEFT JOIN partner_universities pu ON pu.id = oo.university_id
    WHERE oo.offering_id = $1
) opts
LEFT JOIN LATERAL (
    SELECT COUNT(*) FILTER (WHERE s.status = 'PENDING') AS pending,
           COUNT(*) FILTER (WHERE s.status = 'APPROVED') AS approved
    FROM selection_options so
    JOIN selections s ON s.id = so.selection_id
    WHERE s.offering_id = $1
      AND so.option_id = opts.option_id
      AND ($2::text = 'ELECTIVE' OR so.priority = 1)
) cnt ON TRUE`

func loadOptionUsage(ctx context.Context, q querier, offeringID int64, kind models.OfferingKind) (map[int64]models.OptionUsage, error) {
	rows, err := q.Query(ctx, optionUsageSQL, offeringID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("error loading option usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[int64]models.OptionUsage)
	for rows.Next() {
		var u models.OptionUsage
		if err := rows.Scan(&u.OptionID, &u.MaxStudents, &u.Pending, &u.Approved); err != nil {
			return nil, fmt.Errorf("error scanning option usage: %w", err)
		}
		usage[u.OptionID] = u
	}
	return usage, rows.Err()
}
