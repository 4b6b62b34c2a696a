package users

import (
	"time"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/google/uuid"
)

// User is the devserver's account row.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name         string     `gorm:"not null"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         enums.Role `gorm:"not null;default:customer"`
	AvatarURL    *string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }
