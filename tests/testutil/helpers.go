package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskdeck/backend-go/internal/api"
	"github.com/taskdeck/backend-go/internal/config"
	"github.com/taskdeck/backend-go/internal/database/models"
	"github.com/taskdeck/backend-go/internal/database/repository"
	"github.com/taskdeck/backend-go/internal/database/service"
	"github.com/taskdeck/backend-go/internal/handler"
	"github.com/taskdeck/backend-go/internal/idp"
	"github.com/taskdeck/backend-go/internal/middleware"
)

const (
	TestSecret   = "test-secret"
	TestIssuer   = "https://idp.test"
	TestAudience = "taskdeck-api"
)

// Silent logger for code under test.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDB creates a new in-memory SQLite database with the schema
// migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A pooled in-memory sqlite would hand each connection its own
	// empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Todo{})
	require.NoError(t, err)

	return db
}

// TokenOption mutates the claim set before signing.
type TokenOption func(jwt.MapClaims)

func WithClaim(key string, value interface{}) TokenOption {
	return func(claims jwt.MapClaims) {
		claims[key] = value
	}
}

func WithoutClaim(key string) TokenOption {
	return func(claims jwt.MapClaims) {
		delete(claims, key)
	}
}

// MintToken signs an HS256 token with the shared test secret and a
// complete claim set; options override or drop individual claims.
func MintToken(t *testing.T, subject, email string, opts ...TokenOption) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"name":  "Test User",
		"iss":   TestIssuer,
		"aud":   TestAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	for _, opt := range opts {
		opt(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(TestSecret))
	require.NoError(t, err)
	return signed
}

// TestEnv bundles a fully wired router plus the layers beneath it, all
// backed by an in-memory database and the HS256 test verifier.
type TestEnv struct {
	Router      *gin.Engine
	DB          *gorm.DB
	UserRepo    repository.UserRepository
	TodoRepo    repository.TodoRepository
	UserService service.UserService
	TodoService service.TodoService
	Verifier    idp.Verifier
}

// SetupEnv wires the full handler chain the way cmd/server does,
// substituting sqlite, the HS verifier, and a no-op rate limiter.
func SetupEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := Logger()
	db := SetupTestDB(t)

	userRepo := repository.NewUserRepository(db)
	todoRepo := repository.NewTodoRepository(db)
	userService := service.NewUserService(userRepo, log)
	todoService := service.NewTodoService(todoRepo, log)
	verifier := idp.NewHSVerifier(TestSecret, TestIssuer, TestAudience)

	cfg := &config.Config{AppVersion: "test"}
	authMiddleware := middleware.NewAuthMiddleware(verifier, userService, log)
	authHandler := handler.NewAuthHandler(verifier, userService, log)
	todoHandler := handler.NewTodoHandler(todoService, log)
	rateLimiter := middleware.NewNoOpRateLimiter(log)

	router := api.SetupRouter(cfg, authHandler, todoHandler, authMiddleware, rateLimiter, log)

	return &TestEnv{
		Router:      router,
		DB:          db,
		UserRepo:    userRepo,
		TodoRepo:    todoRepo,
		UserService: userService,
		TodoService: todoService,
		Verifier:    verifier,
	}
}
