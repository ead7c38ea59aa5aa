package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/backend-go/internal/database/repository"
	"github.com/taskdeck/backend-go/internal/database/service"
	"github.com/taskdeck/backend-go/internal/idp"
	"github.com/taskdeck/backend-go/internal/middleware"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	verifier idp.Verifier
	users    service.UserService
	logger   *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(verifier idp.Verifier, users service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

type VerifyRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// Verify handles POST /api/auth/verify: checks a provider token carried
// in the body and syncs the user row, without requiring a bearer header.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": bindingErrorMessage(err)})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		h.handleVerifierError(c, err)
		return
	}

	var displayName *string
	if claims.Name != "" {
		displayName = &claims.Name
	}

	user, err := h.users.FindOrCreate(claims.Subject, claims.Email, displayName)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Token verified successfully",
		"user":    user,
	})
}

// Me handles GET /api/auth/me for the authenticated caller.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	user, err := h.users.GetUser(userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *AuthHandler) handleVerifierError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, idp.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "session expired, please log in again"})
	case errors.Is(err, idp.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
	case errors.Is(err, idp.ErrTokenRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "token required"})
	case errors.Is(err, idp.ErrIncompleteClaims):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication failed"})
	default:
		h.logger.Error("❌ [Handler] Token verification failed unexpectedly", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
	case errors.Is(err, service.ErrUserIDRequired),
		errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
