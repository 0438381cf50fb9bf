package service

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tolgaturan/authgate/internal/config"
	"github.com/tolgaturan/authgate/internal/database/models"
	"github.com/tolgaturan/authgate/internal/database/repository"
	"github.com/tolgaturan/authgate/internal/token"
)

// bcryptCost is the work factor applied to new password hashes
const bcryptCost = 12

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(email, password, name string) (*models.User, *TokenPair, error)
	Login(email, password string) (*models.User, *TokenPair, error)
	Refresh(refreshToken string) (*TokenPair, error)
	Logout(refreshToken string) error
	LogoutAll(userID uuid.UUID) error
	Me(userID uuid.UUID) (*models.User, error)
	ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error
	ValidateAccessToken(tokenString string) (*token.Claims, error)
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type authService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           *token.Manager
	cfg              *config.Config
	logger           *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens *token.Manager,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		cfg:              cfg,
		logger:           logger,
	}
}

func (s *authService) Register(email, password, name string) (*models.User, *TokenPair, error) {
	s.logger.Info("📝 [AuthService] Registration attempt", "email", email)

	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	if existingUser != nil {
		s.logger.Warn("⚠️ [AuthService] Email already registered", "email", email)
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// Lost the race against a concurrent registration of the same
			// email; same outcome as the pre-check.
			s.logger.Warn("⚠️ [AuthService] Email already registered", "email", email)
			return nil, nil, ErrEmailAlreadyExists
		}
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		return nil, nil, err
	}

	tokens, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID)
	return user, tokens, nil
}

func (s *authService) Login(email, password string) (*models.User, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "email", email)

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same error as a wrong password so responses cannot be used to
			// probe which emails are registered.
			s.logger.Warn("⚠️ [AuthService] Unknown email", "email", email)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "email", email)
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate tokens", "error", err)
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh rotates the presented refresh token: the old ledger record is
// revoked atomically and a fresh access/refresh pair is issued. Replay of an
// already-rotated token revokes every session the user holds.
func (s *authService) Refresh(refreshToken string) (*TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token refresh attempt")

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Refresh token failed verification", "error", err)
		return nil, ErrInvalidToken
	}

	userID, err := s.refreshTokenRepo.VerifyAndRotate(refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrTokenReuseDetected) {
			s.logger.Warn("🚨 [AuthService] Refresh token reuse detected, all sessions revoked",
				"user_id", claims.UserID,
			)
			return nil, err
		}
		s.logger.Warn("⚠️ [AuthService] Refresh token rejected by ledger", "error", err)
		return nil, ErrInvalidToken
	}

	if userID != claims.UserID {
		// The ledger record and the signed claims disagree about who owns
		// this token. Trust neither.
		s.logger.Error("❌ [AuthService] Refresh token subject mismatch",
			"ledger_user_id", userID,
			"claims_user_id", claims.UserID,
		)
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Refresh for missing user", "user_id", userID)
		return nil, ErrInvalidToken
	}

	tokens, err := s.issueTokenPair(user)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate new tokens", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] Token refreshed successfully", "user_id", userID)
	return tokens, nil
}

func (s *authService) Logout(refreshToken string) error {
	s.logger.Info("👋 [AuthService] Logout attempt")

	if err := s.refreshTokenRepo.Revoke(refreshToken); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke token", "error", err)
		return err
	}

	s.logger.Info("✅ [AuthService] User logged out successfully")
	return nil
}

func (s *authService) LogoutAll(userID uuid.UUID) error {
	s.logger.Info("👋 [AuthService] Logout-all attempt", "user_id", userID)

	if err := s.refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke user tokens", "error", err)
		return err
	}

	s.logger.Info("✅ [AuthService] All sessions revoked", "user_id", userID)
	return nil
}

func (s *authService) Me(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Authenticated user no longer exists", "user_id", userID)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) ChangePassword(userID uuid.UUID, currentPassword, newPassword string) error {
	s.logger.Info("🔑 [AuthService] Password change attempt", "user_id", userID)

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Current password mismatch", "user_id", userID)
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return err
	}

	if err := s.userRepo.UpdatePassword(userID, string(hashedPassword)); err != nil {
		s.logger.Error("❌ [AuthService] Failed to update password", "error", err)
		return err
	}

	// A changed password invalidates every open session.
	if err := s.refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke sessions after password change", "error", err)
		return err
	}

	s.logger.Info("✅ [AuthService] Password changed, sessions revoked", "user_id", userID)
	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*token.Claims, error) {
	claims, err := s.tokens.VerifyAccess(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// issueTokenPair mints an access/refresh pair and records the refresh token
// in the ledger before either is handed out
func (s *authService) issueTokenPair(user *models.User) (*TokenPair, error) {
	accessToken, err := s.tokens.SignAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.SignRefresh(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Issue(user.ID, refreshToken); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.AccessTokenExpiration,
	}, nil
}

// Service errors
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
