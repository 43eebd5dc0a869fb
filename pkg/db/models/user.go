package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luismarin-dev/ordena-backend/pkg/enums"
)

// User represents a member of the fulfillment team.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string         `gorm:"type:text;not null;uniqueIndex"`
	FullName    string         `gorm:"column:full_name;not null"`
	Role        enums.UserRole `gorm:"column:role;type:text;not null;default:'worker'"`
	Active      bool           `gorm:"column:active;not null;default:true"`
	LastSeenAt  *time.Time     `gorm:"column:last_seen_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	Assignments []Assignment   `gorm:"foreignKey:UserID"`
}
