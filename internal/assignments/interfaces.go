package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
	"github.com/luismarin-dev/ordena-backend/pkg/pagination"
	"github.com/luismarin-dev/ordena-backend/pkg/storefront"
)

// listQuery carries the repo-level inputs for the paginated user listing.
type listQuery struct {
	Limit  int
	Cursor *pagination.Cursor
}

// Repository defines persistence operations for the claim ledger.
type Repository interface {
	CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
	UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Assignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Assignment, *pagination.Cursor, error)
	// ClaimedOrderIDs returns the dedup set for one engine run: every order
	// with a non-terminal row under the merchant, plus every order the
	// requesting worker has ever held in any status.
	ClaimedOrderIDs(ctx context.Context, merchantID string, userID uuid.UUID) (map[string]struct{}, error)
	// DeleteStaleUnsynced clears claims that never reached the remote
	// platform: still in the initial status, unsynced, older than the cutoff.
	DeleteStaleUnsynced(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OrderFetcher is the slice of the storefront client the engine calls.
type OrderFetcher interface {
	MerchantID() string
	ListOrders(ctx context.Context, status string, perPage int) ([]storefront.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]storefront.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, statusID int64) error
}

// StatusResolver maps a status slug to the platform's numeric status id.
type StatusResolver interface {
	ResolveStatusID(ctx context.Context, slug string) (int64, error)
}

// UserFinder loads worker accounts for the capacity gate's validation step.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PriorityRanker exposes the merchant's urgency registry as order_id -> rank.
type PriorityRanker interface {
	RankMap(ctx context.Context, merchantID string) (map[string]int, error)
}
