package repositories

import (
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	PlanRepository        *PlanRepository
	InstitutionRepository *InstitutionRepository
	UserRepository        *UserRepository
	TokenRepository       *TokenRepository
	CourseRepository      *CourseRepository
	UniversityRepository  *UniversityRepository
	OfferingRepository    *OfferingRepository
	SelectionRepository   *SelectionRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		PlanRepository:        NewPlanRepository(db),
		InstitutionRepository: NewInstitutionRepository(db),
		UserRepository:        NewUserRepository(db),
		TokenRepository:       NewTokenRepository(db),
		CourseRepository:      NewCourseRepository(db),
		UniversityRepository:  NewUniversityRepository(db),
		OfferingRepository:    NewOfferingRepository(db),
		SelectionRepository:   NewSelectionRepository(db),
	}
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// searchPattern turns user input into a case-insensitive LIKE pattern
func searchPattern(s string) string {
	return "%" + s + "%"
}
