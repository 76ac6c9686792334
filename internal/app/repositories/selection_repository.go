package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/logger"
)

var selectionColumns = []string{
	"s.id", "s.institution_id", "s.offering_id", "s.student_id", "s.status", "s.statement",
	"s.reviewer_id", "s.review_comment", "s.reviewed_at", "s.created_at", "s.updated_at",
	"u.email", "u.first_name", "u.last_name", "u.student_number", "u.group_name",
}

// SelectionRepository persists student selections
type SelectionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSelectionRepository creates a new SelectionRepository
func NewSelectionRepository(db *pgxpool.Pool) *SelectionRepository {
	return &SelectionRepository{db: db, sb: newBuilder()}
}

func scanSelection(row pgx.Row) (*models.Selection, error) {
	var s models.Selection
	st := &models.User{RoleType: models.RoleStudent, IsActive: true}
	err := row.Scan(&s.ID, &s.InstitutionID, &s.OfferingID, &s.StudentID, &s.Status, &s.Statement,
		&s.ReviewerID, &s.ReviewComment, &s.ReviewedAt, &s.CreatedAt, &s.UpdatedAt,
		&st.Email, &st.FirstName, &st.LastName, &st.StudentNumber, &st.GroupName)
	if err != nil {
		return nil, err
	}
	st.ID = s.StudentID
	st.InstitutionID = &s.InstitutionID
	s.Student = st
	s.OptionIDs = []int64{}
	return &s, nil
}

func (r *SelectionRepository) selectBase() squirrel.SelectBuilder {
	return r.sb.Select(selectionColumns...).
		From("selections s").
		Join("users u ON u.id = s.student_id")
}

// Upsert creates the student's selection or replaces a pending one.
// Reviewed selections are left untouched and yield ErrSelectionFinalized.
func (r *SelectionRepository) Upsert(ctx context.Context, s *models.Selection) error {
	sql, args, err := r.sb.Insert("selections").
		Columns("institution_id", "offering_id", "student_id", "status", "statement").
		Values(s.InstitutionID, s.OfferingID, s.StudentID, models.SelectionPending, s.Statement).
		Suffix(`ON CONFLICT (offering_id, student_id) DO UPDATE
			SET statement = EXCLUDED.statement, updated_at = NOW()
			WHERE selections.status = 'PENDING'
			RETURNING id, status, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert selection query: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrSelectionFinalized
			}
			return fmt.Errorf("error saving selection: %w", err)
		}
		return r.replaceOptions(ctx, tx, s.ID, s.OptionIDs)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrSelectionFinalized) {
			logger.Error().Err(err).Int64("offeringID", s.OfferingID).Int64("studentID", s.StudentID).Msg("Error saving selection")
		}
		return err
	}
	return nil
}

func (r *SelectionRepository) replaceOptions(ctx context.Context, tx pgx.Tx, selectionID int64, optionIDs []int64) error {
	delSQL, delArgs, err := r.sb.Delete("selection_options").Where(squirrel.Eq{"selection_id": selectionID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build clear selection options query: %w", err)
	}
	if _, err := tx.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("error clearing selection options: %w", err)
	}

	ins := r.sb.Insert("selection_options").Columns("selection_id", "option_id", "priority")
	for i, id := range optionIDs {
		ins = ins.Values(selectionID, id, i+1)
	}
	insSQL, insArgs, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert selection options query: %w", err)
	}
	if _, err := tx.Exec(ctx, insSQL, insArgs...); err != nil {
		return fmt.Errorf("error inserting selection options: %w", err)
	}
	return nil
}

func (r *SelectionRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Selection, error) {
	sql, args, err := r.selectBase().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get selection query: %w", err)
	}

	s, err := scanSelection(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSelectionNotFound
		}
		logger.Error().Err(err).Msg("Error getting selection")
		return nil, fmt.Errorf("error getting selection: %w", err)
	}
	if err := r.attachOptions(ctx, []*models.Selection{s}); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID returns a selection of the institution
func (r *SelectionRepository) GetByID(ctx context.Context, institutionID, id int64) (*models.Selection, error) {
	return r.getOne(ctx, squirrel.Eq{"s.id": id, "s.institution_id": institutionID})
}

// GetByStudent returns the student's selection for an offering
func (r *SelectionRepository) GetByStudent(ctx context.Context, offeringID, studentID int64) (*models.Selection, error) {
	return r.getOne(ctx, squirrel.Eq{"s.offering_id": offeringID, "s.student_id": studentID})
}

// ListByOffering returns a page of selections for an offering. A zero limit returns all rows.
func (r *SelectionRepository) ListByOffering(ctx context.Context, institutionID, offeringID int64, f models.SelectionFilter, offset, limit uint64) ([]*models.Selection, int64, error) {
	where := squirrel.Eq{"s.institution_id": institutionID, "s.offering_id": offeringID}
	if f.Status != "" {
		where["s.status"] = f.Status
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("selections s").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count selections query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting selections: %w", err)
	}

	q := r.selectBase().Where(where).OrderBy("s.created_at", "s.id")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	list, err := r.query(ctx, q)
	return list, total, err
}

// ListByStudent returns every selection a student made for offerings of kind
func (r *SelectionRepository) ListByStudent(ctx context.Context, institutionID, studentID int64, kind models.OfferingKind) ([]*models.Selection, error) {
	q := r.selectBase().
		Join("offerings o ON o.id = s.offering_id").
		Where(squirrel.Eq{"s.institution_id": institutionID, "s.student_id": studentID, "o.kind": kind}).
		OrderBy("s.updated_at DESC")
	return r.query(ctx, q)
}

func (r *SelectionRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Selection, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list selections query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing selections")
		return nil, fmt.Errorf("error listing selections: %w", err)
	}
	defer rows.Close()

	list := []*models.Selection{}
	for rows.Next() {
		s, err := scanSelection(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning selection: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, r.attachOptions(ctx, list)
}

func (r *SelectionRepository) attachOptions(ctx context.Context, list []*models.Selection) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Selection, len(list))
	ids := make([]int64, 0, len(list))
	for _, s := range list {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	sql, args, err := r.sb.Select("selection_id", "option_id").
		From("selection_options").
		Where(squirrel.Eq{"selection_id": ids}).
		OrderBy("selection_id", "priority").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build selection options query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error loading selection options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var selectionID, optionID int64
		if err := rows.Scan(&selectionID, &optionID); err != nil {
			return fmt.Errorf("error scanning selection option: %w", err)
		}
		s := byID[selectionID]
		s.OptionIDs = append(s.OptionIDs, optionID)
	}
	return rows.Err()
}

// DeletePending withdraws a selection that has not been reviewed
func (r *SelectionRepository) DeletePending(ctx context.Context, institutionID, id int64) error {
	sql, args, err := r.sb.Delete("selections").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID, "status": models.SelectionPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete selection query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("selectionID", id).Msg("Error deleting selection")
		return fmt.Errorf("error deleting selection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSelectionFinalized
	}
	return nil
}

// Review stores a review decision. The offering row is locked so concurrent
// approvals cannot overfill an option; approving re-checks capacity.
func (r *SelectionRepository) Review(ctx context.Context, s *models.Selection, kind models.OfferingKind, from models.SelectionStatus, at time.Time) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT id FROM offerings WHERE id = $1 FOR UPDATE`, s.OfferingID); err != nil {
			return fmt.Errorf("error locking offering: %w", err)
		}

		if s.Status == models.SelectionApproved {
			usage, err := loadOptionUsage(ctx, tx, s.OfferingID, kind)
			if err != nil {
				return err
			}
			for _, id := range kind.SeatOptions(s.OptionIDs) {
				if u, ok := usage[id]; ok && !u.HasCapacity() {
					return apperrors.ErrCapacityReached
				}
			}
		}

		sql, args, err := r.sb.Update("selections").
			Set("status", s.Status).
			Set("reviewer_id", s.ReviewerID).
			Set("review_comment", s.ReviewComment).
			Set("reviewed_at", at).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": s.ID, "institution_id": s.InstitutionID, "status": from}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build review selection query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&s.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewConflictError("selection was changed by someone else")
			}
			return fmt.Errorf("error reviewing selection: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ReviewedAt = &at
	return nil
}

// CountPending counts pending selections of an institution
func (r *SelectionRepository) CountPending(ctx context.Context, institutionID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("selections").
		Where(squirrel.Eq{"institution_id": institutionID, "status": models.SelectionPending}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count pending query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting pending selections: %w", err)
	}
	return n, nil
}
