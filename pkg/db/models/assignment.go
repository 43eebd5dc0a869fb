package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luismarin-dev/ordena-backend/pkg/enums"
	"github.com/luismarin-dev/ordena-backend/pkg/types"
)

// Assignment is one worker-order claim. The migrations add a partial unique
// index on (merchant_id, order_id) over non-terminal rows and a plain unique
// index on (user_id, order_id); those constraints, not application locks,
// serialize concurrent claims.
type Assignment struct {
	ID           uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID   string                 `gorm:"column:merchant_id;type:text;not null;index:ix_assignments_merchant_order"`
	OrderID      string                 `gorm:"column:order_id;type:text;not null;index:ix_assignments_merchant_order;uniqueIndex:ux_assignments_user_order"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_assignments_user_order;index:ix_assignments_user_status"`
	Status       enums.AssignmentStatus `gorm:"column:status;type:text;not null;default:'assigned';index:ix_assignments_user_status"`
	RemoteStatus string                 `gorm:"column:remote_status;type:text"`
	RemoteSynced bool                   `gorm:"column:remote_synced;not null;default:false"`
	OrderNumber  string                 `gorm:"column:order_number;type:text"`
	// OrderSnapshot keeps the remote payload at claim time for the
	// preparation screens; it is never re-fetched.
	OrderSnapshot types.JSONMap `gorm:"column:order_snapshot;type:jsonb;serializer:json"`
	AssignedAt    time.Time     `gorm:"column:assigned_at;autoCreateTime"`
	StartedAt     *time.Time    `gorm:"column:started_at"`
	CompletedAt   *time.Time    `gorm:"column:completed_at"`
	Notes         *string       `gorm:"column:notes"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
