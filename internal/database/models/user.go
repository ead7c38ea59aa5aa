package models

import (
	"time"
)

// User represents an account mirrored from the identity provider. The
// primary key is the provider's opaque subject identifier, not a
// locally generated id.
type User struct {
	ID          string    `gorm:"primarykey" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName *string   `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Relationships
	Todos []Todo `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"todos,omitempty"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}
