package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/domain/shared"
	"github.com/bapx/backend/internal/infrastructure/auth"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errInvalidCredentials = shared.NewDomainError(shared.CodeUnauthorized, "Invalid username or password")

// AuthService handles authentication operations. Identity ends here:
// everything past the HTTP middleware only sees an identity.Actor.
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Login verifies a username and password and issues an access token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	log := logger.L(ctx, s.logger)
	log.Info("Login attempt", zap.String("username", username), zap.String("ip", input.IP))

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("User not found during login", zap.String("username", username))
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		log.Warn("Login attempt for deactivated account", zap.String("username", username))
		return nil, shared.NewForbiddenError("Account has been deactivated")
	}

	if !user.VerifyPassword(input.Password) {
		log.Warn("Invalid password attempt", zap.String("username", username))
		return nil, errInvalidCredentials
	}

	token, err := s.jwtService.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		log.Error("Failed to issue access token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	log.Info("User logged in successfully",
		zap.String("username", username),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	return &LoginResult{
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   "Bearer",
		User:        ToUserInfo(user),
	}, nil
}

// Logout revokes the presented token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	log := logger.L(ctx, s.logger)
	log.Info("User logout", zap.String("user_id", input.UserID.String()))

	if s.blacklist == nil || input.TokenJTI == "" {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, input.TokenJTI, input.TokenTTL); err != nil {
		log.Error("Failed to revoke token", zap.Error(err))
		return shared.NewStorageError("revoke token", err)
	}
	return nil
}

// GetCurrentUser retrieves the caller's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}
