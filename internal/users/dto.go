package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
	"github.com/luismarin-dev/ordena-backend/pkg/enums"
)

// UserDTO is the transport shape for worker accounts.
type UserDTO struct {
	ID         uuid.UUID      `json:"id"`
	Email      string         `json:"email"`
	FullName   string         `json:"full_name"`
	Role       enums.UserRole `json:"role"`
	Active     bool           `json:"active"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new worker.
type CreateUserDTO struct {
	Email    string
	FullName string
	Role     enums.UserRole
	Active   *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		Active:     u.Active,
		LastSeenAt: u.LastSeenAt,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	active := true
	if c.Active != nil {
		active = *c.Active
	}
	role := c.Role
	if role == "" {
		role = enums.UserRoleWorker
	}
	return &models.User{
		Email:    c.Email,
		FullName: c.FullName,
		Role:     role,
		Active:   active,
	}
}
