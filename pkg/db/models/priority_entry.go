package models

import (
	"time"

	"github.com/google/uuid"
)

// PriorityEntry flags a remote order as urgent. Entries are append-only and
// ranked by insertion order: the earliest flagged order wins.
type PriorityEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID string    `gorm:"column:merchant_id;type:text;not null;uniqueIndex:ux_priority_merchant_order"`
	OrderID    string    `gorm:"column:order_id;type:text;not null;uniqueIndex:ux_priority_merchant_order"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
