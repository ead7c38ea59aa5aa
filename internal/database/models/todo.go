package models

import (
	"time"

	"github.com/google/uuid"
)

// Todo represents a single task on a user's list.
//
// DeletedAt is a plain nullable column rather than gorm.DeletedAt: deleted
// rows must stay reachable through the trash listing and the restore flow,
// so the repositories scope the column explicitly instead of letting gorm
// hide the rows everywhere.
type Todo struct {
	ID          uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	UserID      string     `gorm:"not null;index;uniqueIndex:idx_todos_user_slug" json:"userId"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	DueDate     time.Time  `gorm:"not null" json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `gorm:"index" json:"deletedAt,omitempty"`
	Slug        string     `gorm:"not null;uniqueIndex;uniqueIndex:idx_todos_user_slug" json:"slug"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (Todo) TableName() string {
	return "todos"
}

// IsDeleted reports whether the todo is in the trash.
func (t *Todo) IsDeleted() bool {
	return t.DeletedAt != nil
}
