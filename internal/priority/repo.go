package priority

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
)

// Repository persists the merchant's priority registry. Entries are ranked by
// insertion time: the earliest appended order wins first.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a priority repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append registers an order as prioritized. Appending an order that is
// already registered surfaces the unique violation to the caller.
func (r *Repository) Append(ctx context.Context, merchantID, orderID string) (*models.PriorityEntry, error) {
	entry := &models.PriorityEntry{
		ID:         uuid.New(),
		MerchantID: strings.TrimSpace(merchantID),
		OrderID:    strings.TrimSpace(orderID),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ListRanked returns the merchant's registry oldest-insertion-first.
func (r *Repository) ListRanked(ctx context.Context, merchantID string) ([]models.PriorityEntry, error) {
	var entries []models.PriorityEntry
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// RankMap flattens the registry into order_id -> rank, rank 0 being the most
// urgent. Orders absent from the map carry no priority.
func (r *Repository) RankMap(ctx context.Context, merchantID string) (map[string]int, error) {
	entries, err := r.ListRanked(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	ranks := make(map[string]int, len(entries))
	for i, entry := range entries {
		ranks[entry.OrderID] = i
	}
	return ranks, nil
}

// DeleteClaimedBefore prunes registry entries appended before the cutoff
// whose order already carries an assignment. Unclaimed entries are kept
// regardless of age so they stay eligible for ranking.
func (r *Repository) DeleteClaimedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	result := conn.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("EXISTS (SELECT 1 FROM assignments a WHERE a.merchant_id = priority_entries.merchant_id AND a.order_id = priority_entries.order_id)").
		Delete(&models.PriorityEntry{})
	return result.RowsAffected, result.Error
}

// Remove drops an order from the registry. Removing an absent order is a
// no-op.
func (r *Repository) Remove(ctx context.Context, merchantID, orderID string) error {
	return r.db.WithContext(ctx).
		Where("merchant_id = ? AND order_id = ?", merchantID, orderID).
		Delete(&models.PriorityEntry{}).Error
}
