package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/yigit/electivepro/internal/app/models"
	"github.com/yigit/electivepro/internal/app/models/dto"
	"github.com/yigit/electivepro/internal/pkg/apperrors"
	"github.com/yigit/electivepro/internal/pkg/auth"
)

// AuthService handles login, token rotation and password changes
type AuthService struct {
	userRepo   UserRepository
	tokenRepo  TokenRepository
	jwtService *auth.JWTService
	clock      clockwork.Clock
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo UserRepository,
	tokenRepo TokenRepository,
	jwtService *auth.JWTService,
	clock clockwork.Clock,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		clock:      clock,
		logger:     logger,
	}
}

// Login authenticates a user of tenant. A nil tenant means the root or admin
// host, where only platform super admins can sign in.
func (s *AuthService) Login(ctx context.Context, tenant *models.Institution, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var institutionID *int64
	if tenant != nil {
		institutionID = &tenant.ID
	}

	user, err := s.userRepo.GetByEmail(ctx, institutionID, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Debug().Int64("userID", user.ID).Msg("Password mismatch on login")
		return nil, apperrors.ErrInvalidCredentials
	}

	if tenant == nil && user.RoleType != models.RoleSuperAdmin {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, s.clock.Now()); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to record last login")
	}

	return s.issue(ctx, user)
}

// Refresh rotates a refresh token. Presenting a revoked token revokes every
// session of its owner.
func (s *AuthService) Refresh(ctx context.Context, tenant *models.Institution, refreshToken string) (*dto.AuthResponse, error) {
	stored, err := s.tokenRepo.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if stored.IsRevoked {
		s.logger.Warn().Int64("userID", stored.UserID).Msg("Revoked refresh token reused; revoking all sessions")
		if err := s.tokenRepo.RevokeAllForUser(ctx, stored.UserID); err != nil {
			s.logger.Error().Err(err).Int64("userID", stored.UserID).Msg("Failed to revoke sessions")
		}
		return nil, apperrors.ErrTokenRevoked
	}

	if !s.clock.Now().Before(stored.ExpiryDate) {
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading token owner: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	if err := checkUserTenant(user, tenant); err != nil {
		return nil, err
	}

	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("error revoking old refresh token: %w", err)
	}

	return s.issue(ctx, user)
}

// checkUserTenant ensures a user may act on the host it called
func checkUserTenant(user *models.User, tenant *models.Institution) error {
	if user.RoleType == models.RoleSuperAdmin {
		return nil
	}
	if tenant == nil || user.TenantID() != tenant.ID {
		return apperrors.ErrTenantMismatch
	}
	return nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokenRepo.Revoke(ctx, refreshToken)
	if err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
		return err
	}
	return nil
}

// Me returns the caller's profile
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ChangePassword replaces the caller's password and ends other sessions
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword, "current password is incorrect")
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to revoke sessions after password change")
	}
	return nil
}

// Landing returns the dashboard path for role
func (s *AuthService) Landing(role models.RoleType) dto.LandingResponse {
	return dto.LandingResponse{Role: role, RedirectTo: role.LandingPath()}
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, pair.RefreshToken, user.ID, s.clock.Now().Add(s.jwtService.RefreshTTL())); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             pair.ExpiresIn,
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: pair.RefreshExpiresIn,
		},
		User:       dto.FromUser(user),
		RedirectTo: user.RoleType.LandingPath(),
	}, nil
}
