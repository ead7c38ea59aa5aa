package tests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taskdeck/backend-go/internal/database/models"
	"github.com/taskdeck/backend-go/internal/database/repository"
	"github.com/taskdeck/backend-go/tests/testutil"
)

// ==================== USER REPOSITORY TESTS ====================

func TestUserRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)

	tests := []struct {
		name    string
		user    *models.User
		wantErr error
	}{
		{
			name: "success",
			user: &models.User{ID: "sub-1", Email: "test@example.com"},
		},
		{
			name:    "duplicate id",
			user:    &models.User{ID: "sub-1", Email: "other@example.com"},
			wantErr: repository.ErrUserAlreadyExists,
		},
		{
			name:    "duplicate email",
			user:    &models.User{ID: "sub-2", Email: "test@example.com"},
			wantErr: repository.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.CreatedAt)
			}
		})
	}
}

func TestUserRepository_FindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)

	displayName := "Jordan"
	require.NoError(t, repo.Create(&models.User{ID: "sub-1", Email: "find@example.com", DisplayName: &displayName}))

	user, err := repo.FindByID("sub-1")
	require.NoError(t, err)
	assert.Equal(t, "find@example.com", user.Email)
	require.NotNil(t, user.DisplayName)
	assert.Equal(t, "Jordan", *user.DisplayName)

	_, err = repo.FindByID("missing")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)

	require.NoError(t, repo.Create(&models.User{ID: "sub-1", Email: "find@example.com"}))

	user, err := repo.FindByEmail("find@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", user.ID)

	_, err = repo.FindByEmail("missing@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_Delete_CascadesTodos(t *testing.T) {
	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)
	todoRepo := repository.NewTodoRepository(db)

	require.NoError(t, userRepo.Create(&models.User{ID: "sub-1", Email: "a@example.com"}))
	require.NoError(t, todoRepo.Create(&models.Todo{
		ID: uuid.New(), UserID: "sub-1", Title: "t", DueDate: time.Now(), Slug: "t",
	}))

	require.NoError(t, userRepo.Delete("sub-1"))

	var count int64
	require.NoError(t, db.Model(&models.Todo{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, userRepo.Delete("sub-1"), repository.ErrUserNotFound)
}

// ==================== TODO REPOSITORY TESTS ====================

func seedTodo(t *testing.T, db *gorm.DB, userID, title, slug string, completed bool, due time.Time, created time.Time) *models.Todo {
	t.Helper()
	todo := &models.Todo{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Completed: completed,
		DueDate:   due,
		CreatedAt: created,
		UpdatedAt: created,
		Slug:      slug,
	}
	require.NoError(t, db.Create(todo).Error)
	return todo
}

func setupTodoFixtures(t *testing.T) (*gorm.DB, repository.TodoRepository) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, repository.NewUserRepository(db).Create(&models.User{ID: "sub-1", Email: "a@example.com"}))
	require.NoError(t, repository.NewUserRepository(db).Create(&models.User{ID: "sub-2", Email: "b@example.com"}))
	return db, repository.NewTodoRepository(db)
}

func TestTodoRepository_Create_GlobalSlugConflict(t *testing.T) {
	db, repo := setupTodoFixtures(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedTodo(t, db, "sub-1", "Same Title", "same-title", false, base, base)

	err := repo.Create(&models.Todo{
		ID:      uuid.New(),
		UserID:  "sub-2",
		Title:   "Same Title",
		DueDate: base,
		Slug:    "same-title",
	})
	assert.ErrorIs(t, err, repository.ErrSlugTaken)
}

func TestTodoRepository_List_Filters(t *testing.T) {
	db, repo := setupTodoFixtures(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedTodo(t, db, "sub-1", "Buy milk", "buy-milk", false, base, base)
	seedTodo(t, db, "sub-1", "Pay rent", "pay-rent", true, base.AddDate(0, 0, 5), base.Add(time.Hour))
	seedTodo(t, db, "sub-1", "Read 100% of the book", "read-book", false, base.AddDate(0, 0, 10), base.Add(2*time.Hour))
	seedTodo(t, db, "sub-2", "Other user task", "other", true, base, base)

	deleted := seedTodo(t, db, "sub-1", "Old chore", "old-chore", true, base, base.Add(3*time.Hour))
	now := time.Now().UTC()
	deleted.DeletedAt = &now
	require.NoError(t, db.Save(deleted).Error)

	t.Run("base predicate scopes user and excludes deleted", func(t *testing.T) {
		items, total, err := repo.List("sub-1", repository.TodoFilter{}, repository.TodoSort{}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 3)
	})

	t.Run("completed filter", func(t *testing.T) {
		completed := true
		items, total, err := repo.List("sub-1", repository.TodoFilter{Completed: &completed}, repository.TodoSort{}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "pay-rent", items[0].Slug)
	})

	t.Run("due date range is inclusive", func(t *testing.T) {
		from := base.AddDate(0, 0, 5)
		to := base.AddDate(0, 0, 10)
		items, total, err := repo.List("sub-1", repository.TodoFilter{DueFrom: &from, DueTo: &to}, repository.TodoSort{}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})

	t.Run("search matches title", func(t *testing.T) {
		items, total, err := repo.List("sub-1", repository.TodoFilter{Search: "milk"}, repository.TodoSort{}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "buy-milk", items[0].Slug)
	})

	t.Run("search escapes LIKE wildcards", func(t *testing.T) {
		// "100%" must match literally, not as a wildcard
		items, total, err := repo.List("sub-1", repository.TodoFilter{Search: "100%"}, repository.TodoSort{}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "read-book", items[0].Slug)

		_, total, err = repo.List("sub-1", repository.TodoFilter{Search: "100_"}, repository.TodoSort{}, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("sort by due date ascending", func(t *testing.T) {
		items, _, err := repo.List("sub-1", repository.TodoFilter{}, repository.TodoSort{Column: "due_date", Ascending: true}, 0, 10)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "buy-milk", items[0].Slug)
		assert.Equal(t, "read-book", items[2].Slug)
	})

	t.Run("default sort is created_at descending", func(t *testing.T) {
		items, _, err := repo.List("sub-1", repository.TodoFilter{}, repository.TodoSort{Column: "not-a-column"}, 0, 10)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "read-book", items[0].Slug)
		assert.Equal(t, "buy-milk", items[2].Slug)
	})

	t.Run("count ignores the page window", func(t *testing.T) {
		items, total, err := repo.List("sub-1", repository.TodoFilter{}, repository.TodoSort{}, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 1)
	})
}

func TestTodoRepository_DeletedScoping(t *testing.T) {
	db, repo := setupTodoFixtures(t)

	base := time.Now().UTC()
	active := seedTodo(t, db, "sub-1", "Active", "active", false, base, base)
	trashed := seedTodo(t, db, "sub-1", "Trashed", "trashed", false, base, base)
	trashed.DeletedAt = &base
	require.NoError(t, db.Save(trashed).Error)

	t.Run("active lookups exclude deleted rows", func(t *testing.T) {
		_, err := repo.FindBySlug("sub-1", "trashed")
		assert.ErrorIs(t, err, repository.ErrTodoNotFound)

		_, err = repo.FindByID("sub-1", trashed.ID)
		assert.ErrorIs(t, err, repository.ErrTodoNotFound)
	})

	t.Run("deleted lookups exclude active rows", func(t *testing.T) {
		_, err := repo.FindDeletedByID("sub-1", active.ID)
		assert.ErrorIs(t, err, repository.ErrTodoNotFound)

		found, err := repo.FindDeletedBySlug("sub-1", "trashed")
		require.NoError(t, err)
		assert.Equal(t, trashed.ID, found.ID)
	})

	t.Run("lookups are scoped to the owner", func(t *testing.T) {
		_, err := repo.FindBySlug("sub-2", "active")
		assert.ErrorIs(t, err, repository.ErrTodoNotFound)
	})

	t.Run("deleted listing sorts by deletion time", func(t *testing.T) {
		items, total, err := repo.ListDeleted("sub-1", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "trashed", items[0].Slug)
	})
}

func TestTodoRepository_SlugsForUser_IncludesDeleted(t *testing.T) {
	db, repo := setupTodoFixtures(t)

	base := time.Now().UTC()
	seedTodo(t, db, "sub-1", "One", "one", false, base, base)
	trashed := seedTodo(t, db, "sub-1", "Two", "two", false, base, base)
	trashed.DeletedAt = &base
	require.NoError(t, db.Save(trashed).Error)
	seedTodo(t, db, "sub-2", "Three", "three", false, base, base)

	slugs, err := repo.SlugsForUser("sub-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, slugs)
}
