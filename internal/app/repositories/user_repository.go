package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/dberrors"
	"github.com/yigit/electivepro/internal/pkg/logger"
)

const studentNumberIndex = "users_student_number_per_institution"

var userColumns = []string{
	"id", "institution_id", "email", "password", "first_name", "last_name", "role_type",
	"student_number", "group_name", "is_active", "last_login_at", "created_at", "updated_at",
}

// UserRepository handles user persistence
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db, sb: newBuilder()}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.InstitutionID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.RoleType,
		&u.StudentNumber, &u.GroupName, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func insertUserQuery(sb squirrel.StatementBuilderType, u *models.User) (string, []any, error) {
	sql, args, err := sb.Insert("users").
		Columns("institution_id", "email", "password", "first_name", "last_name", "role_type",
			"student_number", "group_name", "is_active").
		Values(u.InstitutionID, strings.ToLower(u.Email), u.Password, u.FirstName, u.LastName, u.RoleType,
			u.StudentNumber, u.GroupName, u.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build create user query: %w", err)
	}
	return sql, args, nil
}

// uniqueUserError maps unique violations on users to domain errors
func uniqueUserError(err error) error {
	if dberrors.IsDuplicateConstraintError(err, studentNumberIndex) {
		return apperrors.ErrStudentNumberExists
	}
	if dberrors.IsUniqueViolation(err) {
		return apperrors.ErrEmailAlreadyExists
	}
	return nil
}

// Create inserts a user and fills its id and timestamps
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	sql, args, err := insertUserQuery(r.sb, u)
	if err != nil {
		return err
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if mapped := uniqueUserError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("email", u.Email).Msg("Error creating user")
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error getting user")
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return u, nil
}

// GetByID returns any user by id, regardless of institution
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetInInstitution returns a user only if it belongs to institutionID
func (r *UserRepository) GetInInstitution(ctx context.Context, institutionID, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id, "institution_id": institutionID})
}

// GetByEmail finds a login candidate. A nil institutionID searches platform users.
func (r *UserRepository) GetByEmail(ctx context.Context, institutionID *int64, email string) (*models.User, error) {
	where := squirrel.And{squirrel.Expr("LOWER(email) = ?", strings.ToLower(email))}
	if institutionID == nil {
		where = append(where, squirrel.Eq{"institution_id": nil})
	} else {
		where = append(where, squirrel.Eq{"institution_id": *institutionID})
	}
	return r.getOne(ctx, where)
}

func userFilterWhere(institutionID int64, f models.UserFilter) squirrel.And {
	where := squirrel.And{squirrel.Eq{"institution_id": institutionID}}
	if f.Role != "" {
		where = append(where, squirrel.Eq{"role_type": f.Role})
	}
	if f.IsActive != nil {
		where = append(where, squirrel.Eq{"is_active": *f.IsActive})
	}
	if f.Search != "" {
		p := searchPattern(f.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"email": p},
			squirrel.ILike{"first_name": p},
			squirrel.ILike{"last_name": p},
			squirrel.ILike{"student_number": p},
		})
	}
	return where
}

// List returns a page of institution users
func (r *UserRepository) List(ctx context.Context, institutionID int64, f models.UserFilter, offset, limit uint64) ([]*models.User, int64, error) {
	where := userFilterWhere(institutionID, f)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count users query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	sql, args, err := r.sb.Select(userColumns...).
		From("users").
		Where(where).
		OrderBy("last_name", "first_name", "id").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("institutionID", institutionID).Msg("Error listing users")
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update saves profile fields of an institution user
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	sql, args, err := r.sb.Update("users").
		Set("email", strings.ToLower(u.Email)).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("role_type", u.RoleType).
		Set("student_number", u.StudentNumber).
		Set("group_name", u.GroupName).
		Set("is_active", u.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": u.ID, "institution_id": u.InstitutionID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrUserNotFound
		}
		if mapped := uniqueUserError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Int64("userID", u.ID).Msg("Error updating user")
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	sql, args, err := r.sb.Update("users").
		Set("password", hash).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update password query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	sql, args, err := r.sb.Update("users").
		Set("last_login_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build touch login query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error recording login: %w", err)
	}
	return nil
}

// CountByRole counts institution users with a role
func (r *UserRepository) CountByRole(ctx context.Context, institutionID int64, role models.RoleType) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("users").
		Where(squirrel.Eq{"institution_id": institutionID, "role_type": role}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count users query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return n, nil
}

// Delete removes an institution user
func (r *UserRepository) Delete(ctx context.Context, institutionID, id int64) error {
	sql, args, err := r.sb.Delete("users").
		Where(squirrel.Eq{"id": id, "institution_id": institutionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete user query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", id).Msg("Error deleting user")
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
