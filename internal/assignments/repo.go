package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
	"github.com/luismarin-dev/ordena-backend/pkg/enums"
	"github.com/luismarin-dev/ordena-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *repository) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Assignment{}).Error
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("user_id = ? AND status IN ?", userID, activeStatusValues()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, activeStatusValues()).
		Order("assigned_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Assignment, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(query.Limit)
	normalized := pagination.NormalizeLimit(query.Limit)

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Assignment
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) DeleteStaleUnsynced(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	result := conn.WithContext(ctx).
		Where("status = ? AND remote_synced = ? AND assigned_at < ?", enums.AssignmentStatusAssigned, false, cutoff).
		Delete(&models.Assignment{})
	return result.RowsAffected, result.Error
}

func (r *repository) ClaimedOrderIDs(ctx context.Context, merchantID string, userID uuid.UUID) (map[string]struct{}, error) {
	var merchantOrders []string
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("merchant_id = ? AND status IN ?", merchantID, activeStatusValues()).
		Pluck("order_id", &merchantOrders).Error
	if err != nil {
		return nil, err
	}

	// Terminal rows still block the requesting worker: re-claiming an order
	// they once held would trip the (user_id, order_id) unique index.
	var workerOrders []string
	err = r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("user_id = ?", userID).
		Pluck("order_id", &workerOrders).Error
	if err != nil {
		return nil, err
	}

	claimed := make(map[string]struct{}, len(merchantOrders)+len(workerOrders))
	for _, id := range merchantOrders {
		claimed[id] = struct{}{}
	}
	for _, id := range workerOrders {
		claimed[id] = struct{}{}
	}
	return claimed, nil
}

func activeStatusValues() []string {
	statuses := enums.ActiveAssignmentStatuses
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return values
}
