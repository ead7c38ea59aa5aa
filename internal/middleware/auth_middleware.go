package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/backend-go/internal/database/service"
	"github.com/taskdeck/backend-go/internal/idp"
)

// Context keys set by the auth middleware for downstream handlers.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextClaims    = "claims"
)

// AuthMiddleware verifies bearer tokens against the identity provider
// and resolves them to stored users.
type AuthMiddleware struct {
	verifier idp.Verifier
	users    service.UserService
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(verifier idp.Verifier, users service.UserService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

// RequireAuth rejects requests without a valid token and attaches the
// resolved identity to the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			m.logger.Warn("⚠️ [Middleware] Missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header required"})
			c.Abort()
			return
		}

		claims, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			status, message := classifyVerifierError(err)
			if status == http.StatusInternalServerError {
				m.logger.Error("❌ [Middleware] Token verification failed unexpectedly", "error", err)
			} else {
				m.logger.Warn("⚠️ [Middleware] Token rejected", "error", err)
			}
			c.JSON(status, gin.H{"success": false, "error": message})
			c.Abort()
			return
		}

		user, err := m.users.FindOrCreate(claims.Subject, claims.Email, optionalName(claims.Name))
		if err != nil {
			if isDirectoryValidationError(err) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			} else {
				m.logger.Error("❌ [Middleware] Failed to resolve user", "error", err, "subject", claims.Subject)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
			}
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserEmail, user.Email)
		c.Set(ContextClaims, claims)
		m.logger.Debug("✅ [Middleware] Token validated", "user_id", user.ID)

		c.Next()
	}
}

// OptionalAuth runs the same verification steps but never fails the
// request; on any failure the handler runs with no identity attached.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			m.logger.Debug("🔎 [Middleware] Optional auth skipped", "error", err)
			c.Next()
			return
		}

		user, err := m.users.FindOrCreate(claims.Subject, claims.Email, optionalName(claims.Name))
		if err != nil {
			m.logger.Debug("🔎 [Middleware] Optional auth could not resolve user", "error", err)
			c.Next()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserEmail, user.Email)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header of the
// exact form "Bearer <token>". A header whose token part is blank is
// treated the same as a missing header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsRune(token, ' ') {
		return "", false
	}
	return token, true
}

func classifyVerifierError(err error) (int, string) {
	switch {
	case errors.Is(err, idp.ErrTokenExpired):
		return http.StatusUnauthorized, "session expired, please log in again"
	case errors.Is(err, idp.ErrTokenInvalid):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, idp.ErrTokenRequired):
		return http.StatusUnauthorized, "token required"
	case errors.Is(err, idp.ErrIncompleteClaims):
		return http.StatusUnauthorized, "authentication failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func isDirectoryValidationError(err error) bool {
	return errors.Is(err, service.ErrUserIDRequired) ||
		errors.Is(err, service.ErrEmailRequired) ||
		errors.Is(err, service.ErrInvalidEmail)
}

func optionalName(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}
