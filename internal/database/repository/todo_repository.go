package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskdeck/backend-go/internal/database/models"
)

// TodoFilter holds the optional list predicates. Nil pointers / empty
// strings mean the filter is not applied. DueFrom/DueTo are inclusive
// bounds; Search matches title or description, case pattern per the
// database collation.
type TodoFilter struct {
	Completed *bool
	DueFrom   *time.Time
	DueTo     *time.Time
	Search    string
}

// TodoSort selects the list ordering. Column must be one of the
// whitelisted names; anything else falls back to the default.
type TodoSort struct {
	Column    string
	Ascending bool
}

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	Create(todo *models.Todo) error
	FindByID(userID string, id uuid.UUID) (*models.Todo, error)
	FindBySlug(userID, slug string) (*models.Todo, error)
	FindDeletedByID(userID string, id uuid.UUID) (*models.Todo, error)
	FindDeletedBySlug(userID, slug string) (*models.Todo, error)
	Update(todo *models.Todo) error
	List(userID string, filter TodoFilter, sort TodoSort, offset, limit int) ([]models.Todo, int64, error)
	ListDeleted(userID string, offset, limit int) ([]models.Todo, int64, error)
	SlugsForUser(userID string) ([]string, error)
}

type todoRepository struct {
	db *gorm.DB
}

// NewTodoRepository creates a new todo repository instance
func NewTodoRepository(db *gorm.DB) TodoRepository {
	return &todoRepository{db: db}
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"due_date":   "due_date",
	"title":      "title",
	"completed":  "completed",
}

func (r *todoRepository) Create(todo *models.Todo) error {
	err := r.db.Create(todo).Error
	if err != nil && isUniqueViolation(err) {
		// The slug index is global, so a different user can already
		// hold the slug even after per-user de-duplication.
		return ErrSlugTaken
	}
	return err
}

func (r *todoRepository) FindByID(userID string, id uuid.UUID) (*models.Todo, error) {
	var todo models.Todo
	err := r.db.Where("user_id = ? AND id = ? AND deleted_at IS NULL", userID, id).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) FindBySlug(userID, slug string) (*models.Todo, error) {
	var todo models.Todo
	err := r.db.Where("user_id = ? AND slug = ? AND deleted_at IS NULL", userID, slug).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) FindDeletedByID(userID string, id uuid.UUID) (*models.Todo, error) {
	var todo models.Todo
	err := r.db.Where("user_id = ? AND id = ? AND deleted_at IS NOT NULL", userID, id).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) FindDeletedBySlug(userID, slug string) (*models.Todo, error) {
	var todo models.Todo
	err := r.db.Where("user_id = ? AND slug = ? AND deleted_at IS NOT NULL", userID, slug).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

func (r *todoRepository) Update(todo *models.Todo) error {
	result := r.db.Save(todo)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func (r *todoRepository) List(userID string, filter TodoFilter, sort TodoSort, offset, limit int) ([]models.Todo, int64, error) {
	var todos []models.Todo
	var total int64

	query := r.applyFilter(r.db.Model(&models.Todo{}).Where("user_id = ? AND deleted_at IS NULL", userID), filter)

	// Total is counted against the same predicate, independent of the
	// page window.
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[sort.Column]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if sort.Ascending {
		direction = "ASC"
	}

	err := r.applyFilter(r.db.Where("user_id = ? AND deleted_at IS NULL", userID), filter).
		Order(column + " " + direction).
		Offset(offset).
		Limit(limit).
		Find(&todos).Error

	return todos, total, err
}

func (r *todoRepository) ListDeleted(userID string, offset, limit int) ([]models.Todo, int64, error) {
	var todos []models.Todo
	var total int64

	baseQuery := r.db.Model(&models.Todo{}).Where("user_id = ? AND deleted_at IS NOT NULL", userID)

	if err := baseQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("user_id = ? AND deleted_at IS NOT NULL", userID).
		Order("deleted_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&todos).Error

	return todos, total, err
}

func (r *todoRepository) SlugsForUser(userID string) ([]string, error) {
	var slugs []string
	err := r.db.Model(&models.Todo{}).
		Where("user_id = ?", userID).
		Pluck("slug", &slugs).Error
	return slugs, err
}

func (r *todoRepository) applyFilter(query *gorm.DB, filter TodoFilter) *gorm.DB {
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		query = query.Where("(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	return query
}

// escapeLike neutralizes LIKE metacharacters in a user-supplied search
// term so they match literally.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

// Repository errors
var (
	ErrTodoNotFound = errors.New("todo not found")
	ErrSlugTaken    = errors.New("a todo with a similar title already exists")
)
