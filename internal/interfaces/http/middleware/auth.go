package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bapx/backend/internal/domain/identity"
	"github.com/bapx/backend/internal/infrastructure/auth"
	"github.com/bapx/backend/internal/infrastructure/logger"
	"github.com/bapx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auth context keys
const (
	ActorKey      = "actor"
	ClaimsKey     = "jwt_claims"
	UserIDKey     = "user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// Development-only identity headers
	DevUserIDHeader   = "X-User-ID"
	DevUserRoleHeader = "X-User-Role"
)

// errMissingCredentials means the request carried no identity at all
var errMissingCredentials = errors.New("no credentials presented")

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional; when set, revoked tokens are rejected
	TokenBlacklist auth.TokenBlacklist
	// AllowDevHeaders accepts X-User-ID / X-User-Role when no bearer token is sent
	AllowDevHeaders bool
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultAuthConfig returns default authentication configuration
func DefaultAuthConfig(jwtService *auth.JWTService) AuthConfig {
	return AuthConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/v1/auth/login",
		},
	}
}

// Authenticate resolves the caller into an identity.Actor. Requests without a
// valid identity are answered with 401 and never reach the handler.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" && cfg.AllowDevHeaders && c.GetHeader(DevUserIDHeader) != "" {
			actor, err := actorFromDevHeaders(c)
			if err != nil {
				abortUnauthorized(c, log, err, "Invalid development identity headers")
				return
			}
			setActor(c, actor)
			c.Next()
			return
		}

		if authHeader == "" {
			abortUnauthorized(c, log, errMissingCredentials, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := cfg.JWTService.Validate(tokenString)
		if err != nil {
			abortUnauthorized(c, log, err, "Token validation failed")
			return
		}

		if cfg.TokenBlacklist != nil && claims.ID != "" {
			revoked, err := cfg.TokenBlacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Fail open: a blacklist outage must not lock every user out.
				log.Error("Failed to check token blacklist",
					zap.String("jti", claims.ID),
					zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, log, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		actor, err := claims.Actor()
		if err != nil {
			abortUnauthorized(c, log, err, "Invalid token subject")
			return
		}

		c.Set(ClaimsKey, claims)
		setActor(c, actor)
		c.Next()
	}
}

func actorFromDevHeaders(c *gin.Context) (identity.Actor, error) {
	id, err := uuid.Parse(c.GetHeader(DevUserIDHeader))
	if err != nil {
		return identity.Actor{}, auth.ErrMissingUserID
	}
	role, ok := identity.ParseRole(c.GetHeader(DevUserRoleHeader))
	if !ok {
		return identity.Actor{}, auth.ErrUnknownRole
	}
	return identity.NewActor(id, role), nil
}

func setActor(c *gin.Context, actor identity.Actor) {
	c.Set(ActorKey, actor)
	c.Set(UserIDKey, actor.UserID.String())

	ctx := logger.WithActor(c.Request.Context(), actor.UserID.String(), actor.Role.String())
	c.Request = c.Request.WithContext(ctx)
}

// abortUnauthorized answers 401 with the standard error envelope
func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Debug("Authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code := dto.ErrCodeUnauthorized
	msg := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, msg = dto.ErrCodeTokenInvalid, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	case errors.Is(err, auth.ErrUnknownRole), errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrInvalidClaims):
		msg = "Invalid identity"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, msg, c.GetString(RequestIDContextKey)))
}

// GetActor retrieves the authenticated actor from gin.Context
func GetActor(c *gin.Context) (identity.Actor, bool) {
	if v, exists := c.Get(ActorKey); exists {
		if actor, ok := v.(identity.Actor); ok && !actor.IsZero() {
			return actor, true
		}
	}
	return identity.Actor{}, false
}

// GetClaims retrieves the validated token claims, nil for dev-header identities
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
