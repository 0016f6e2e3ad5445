package handler

import (
	appidentity "github.com/bapx/backend/internal/application/identity"
	"github.com/bapx/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest is the body of POST /auth/login. Usernames are matched
// case-insensitively after trimming.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginResponse carries the bearer token and the caller's profile
type LoginResponse = appidentity.LoginResult

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *appidentity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *appidentity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login authenticates a user with username and password.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Logout revokes the caller's access token.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	input := appidentity.LogoutInput{UserID: actor.UserID}
	// Dev header sessions carry no token to revoke.
	if claims := middleware.GetClaims(c); claims != nil {
		input.TokenJTI = claims.ID
		input.TokenTTL = claims.RemainingTTL()
	}

	if err := h.authService.Logout(c.Request.Context(), input); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "Logged out successfully"})
}

// GetCurrentUser returns the caller's profile.
// GET /auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}
