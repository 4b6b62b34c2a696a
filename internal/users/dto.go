package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/google/uuid"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Role         enums.Role
}

func (c CreateUserDTO) ToModel() *User {
	role := c.Role
	if !role.IsValid() {
		role = enums.RoleCustomer
	}
	return &User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(c.Name),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Role:         role,
	}
}

// FromModel is the wire shape, without credentials.
func FromModel(u *User) *gateway.User {
	if u == nil {
		return nil
	}
	updated := u.UpdatedAt
	return &gateway.User{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt.UTC().Truncate(time.Second),
		UpdatedAt: &updated,
	}
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
