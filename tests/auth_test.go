package tests

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/backend-go/internal/database/repository"
	"github.com/taskdeck/backend-go/internal/database/service"
	"github.com/taskdeck/backend-go/internal/middleware"
	"github.com/taskdeck/backend-go/tests/testutil"
)

// ==================== AUTH MIDDLEWARE TESTS ====================

func TestRequireAuth_HeaderExtraction(t *testing.T) {
	env := testutil.SetupEnv(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "scheme only", header: "Bearer"},
		{name: "blank token", header: "Bearer    "},
		{name: "wrong scheme", header: "Basic abc123"},
		{name: "lowercase scheme", header: "bearer abc123"},
		{name: "token with embedded space", header: "Bearer abc 123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/api/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			env.Router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
			assert.Contains(t, w.Body.String(), "Authorization header required")
		})
	}
}

func TestRequireAuth_TokenClassification(t *testing.T) {
	env := testutil.SetupEnv(t)

	expired := testutil.MintToken(t, "sub-1", "a@example.com",
		testutil.WithClaim("exp", time.Now().Add(-time.Hour).Unix()))
	noEmail := testutil.MintToken(t, "sub-1", "a@example.com", testutil.WithoutClaim("email"))
	wrongIssuer := testutil.MintToken(t, "sub-1", "a@example.com",
		testutil.WithClaim("iss", "https://somewhere-else.test"))
	wrongAudience := testutil.MintToken(t, "sub-1", "a@example.com",
		testutil.WithClaim("aud", "other-api"))

	tests := []struct {
		name        string
		token       string
		wantMessage string
	}{
		{name: "garbage token", token: "not-a-jwt", wantMessage: "invalid token"},
		{name: "expired token", token: expired, wantMessage: "session expired, please log in again"},
		{name: "missing email claim", token: noEmail, wantMessage: "authentication failed"},
		{name: "wrong issuer", token: wrongIssuer, wantMessage: "invalid token"},
		{name: "wrong audience", token: wrongAudience, wantMessage: "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/api/todos", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()

			env.Router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMessage)
		})
	}
}

func TestRequireAuth_CreatesUserOnFirstSight(t *testing.T) {
	env := testutil.SetupEnv(t)

	token := testutil.MintToken(t, "sub-new", "new@example.com")
	req, _ := http.NewRequest("GET", "/api/todos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	env.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	user, err := env.UserRepo.FindByID("sub-new")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	require.NotNil(t, user.DisplayName)
	assert.Equal(t, "Test User", *user.DisplayName)
}

func TestRequireAuth_UnexpectedVerifierFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := new(testutil.MockVerifier)
	verifier.On("Verify", "sometoken").Return(nil, errors.New("jwks backend on fire"))

	db := testutil.SetupTestDB(t)
	users := service.NewUserService(repository.NewUserRepository(db), testutil.Logger())
	authMiddleware := middleware.NewAuthMiddleware(verifier, users, testutil.Logger())

	r := gin.New()
	r.GET("/protected", authMiddleware.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Not the caller's fault: provider trouble is a 500, not a 401
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	verifier.AssertExpectations(t)
}

func TestOptionalAuth(t *testing.T) {
	env := testutil.SetupEnv(t)
	gin.SetMode(gin.TestMode)

	authMiddleware := middleware.NewAuthMiddleware(env.Verifier, env.UserService, testutil.Logger())

	r := gin.New()
	r.GET("/whoami", authMiddleware.OptionalAuth(), func(c *gin.Context) {
		userID := c.GetString(middleware.ContextUserID)
		if userID == "" {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"anonymous": false, "user_id": userID})
	})

	t.Run("no token continues anonymously", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/whoami", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"anonymous":true`)
	})

	t.Run("bad token continues anonymously", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"anonymous":true`)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		token := testutil.MintToken(t, "sub-opt", "opt@example.com")
		req, _ := http.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"anonymous":false`)
		assert.Contains(t, w.Body.String(), "sub-opt")
	})
}
