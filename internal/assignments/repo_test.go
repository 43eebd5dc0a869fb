package assignments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/db"
	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
	"github.com/luismarin-dev/ordena-backend/pkg/enums"
)

func setupAssignmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'assigned',
  remote_status TEXT,
  remote_synced INTEGER NOT NULL DEFAULT 0,
  order_number TEXT,
  order_snapshot TEXT,
  assigned_at DATETIME,
  started_at DATETIME,
  completed_at DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_assignments_merchant_order
  ON assignments (merchant_id, order_id)
  WHERE status NOT IN ('completed', 'removed');
CREATE UNIQUE INDEX IF NOT EXISTS ux_assignments_user_order
  ON assignments (user_id, order_id);
CREATE INDEX IF NOT EXISTS ix_assignments_user_status
  ON assignments (user_id, status);`
	require.NoError(t, conn.Exec(schema).Error)

	return conn
}

func newAssignment(userID uuid.UUID, orderID string, status enums.AssignmentStatus) *models.Assignment {
	return &models.Assignment{
		ID:         uuid.New(),
		MerchantID: "m1",
		OrderID:    orderID,
		UserID:     userID,
		Status:     status,
	}
}

func TestCreateAssignmentEnforcesMerchantOrderUniqueness(t *testing.T) {
	repo := NewRepository(setupAssignmentsTestDB(t))
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()

	_, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)

	// A second worker cannot claim the same order while the claim is active.
	_, err = repo.CreateAssignment(ctx, newAssignment(u2, "1001", enums.AssignmentStatusAssigned))
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""))
}

func TestCreateAssignmentAllowsReclaimAfterTerminalStatus(t *testing.T) {
	repo := NewRepository(setupAssignmentsTestDB(t))
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()

	first, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateAssignment(ctx, first.ID, map[string]any{"status": "removed"}))

	// The partial index only covers non-terminal rows, so another worker can
	// pick the order back up.
	_, err = repo.CreateAssignment(ctx, newAssignment(u2, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
}

func TestCreateAssignmentBlocksSameWorkerSameOrderForever(t *testing.T) {
	repo := NewRepository(setupAssignmentsTestDB(t))
	ctx := context.Background()
	u1 := uuid.New()

	first, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateAssignment(ctx, first.ID, map[string]any{"status": "completed"}))

	_, err = repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""))
}

func TestCountActiveByUserTreatsShippedAsActive(t *testing.T) {
	repo := NewRepository(setupAssignmentsTestDB(t))
	ctx := context.Background()
	u1 := uuid.New()

	_, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusShipped))
	require.NoError(t, err)
	done := newAssignment(u1, "1002", enums.AssignmentStatusCompleted)
	_, err = repo.CreateAssignment(ctx, done)
	require.NoError(t, err)

	count, err := repo.CountActiveByUser(ctx, u1)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestClaimedOrderIDsIncludesWorkersTerminalRows(t *testing.T) {
	repo := NewRepository(setupAssignmentsTestDB(t))
	ctx := context.Background()
	u1, u2 := uuid.New(), uuid.New()

	// Active claim by another worker blocks the order tenant-wide.
	_, err := repo.CreateAssignment(ctx, newAssignment(u2, "2001", enums.AssignmentStatusPreparing))
	require.NoError(t, err)

	// Terminal claim by the requester still blocks re-claiming for them.
	_, err = repo.CreateAssignment(ctx, newAssignment(u1, "2002", enums.AssignmentStatusCompleted))
	require.NoError(t, err)

	// Terminal claim by another worker does not block anyone.
	_, err = repo.CreateAssignment(ctx, newAssignment(u2, "2003", enums.AssignmentStatusRemoved))
	require.NoError(t, err)

	claimed, err := repo.ClaimedOrderIDs(ctx, "m1", u1)
	require.NoError(t, err)
	require.Contains(t, claimed, "2001")
	require.Contains(t, claimed, "2002")
	require.NotContains(t, claimed, "2003")
}

func TestDeleteAssignmentRemovesRow(t *testing.T) {
	repo := NewRepository(setupAssignmentsTestDB(t))
	ctx := context.Background()
	u1 := uuid.New()

	created, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAssignment(ctx, created.ID))

	count, err := repo.CountActiveByUser(ctx, u1)
	require.NoError(t, err)
	require.Zero(t, count)

	// Compensated claims free the order for everyone, requester included.
	_, err = repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
}

func TestListByUserNewestFirst(t *testing.T) {
	conn := setupAssignmentsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	u1 := uuid.New()

	a, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusCompleted))
	require.NoError(t, err)
	b, err := repo.CreateAssignment(ctx, newAssignment(u1, "1002", enums.AssignmentStatusPreparing))
	require.NoError(t, err)

	// Force distinct created_at values; sqlite DATETIME precision can
	// collapse back-to-back inserts.
	require.NoError(t, conn.Exec(`UPDATE assignments SET created_at = '2026-01-01 09:00:00' WHERE id = ?`, a.ID).Error)
	require.NoError(t, conn.Exec(`UPDATE assignments SET created_at = '2026-01-01 10:00:00' WHERE id = ?`, b.ID).Error)

	rows, next, err := repo.ListByUser(ctx, u1, listQuery{})
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, rows, 2)
	require.Equal(t, "1002", rows[0].OrderID)
	require.Equal(t, "1001", rows[1].OrderID)
}

func TestListByUserPaginates(t *testing.T) {
	conn := setupAssignmentsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	u1 := uuid.New()

	for i, orderID := range []string{"1001", "1002", "1003"} {
		row, err := repo.CreateAssignment(ctx, newAssignment(u1, orderID, enums.AssignmentStatusCompleted))
		require.NoError(t, err)
		createdAt := fmt.Sprintf("2026-01-01 0%d:00:00", i+1)
		require.NoError(t, conn.Exec(`UPDATE assignments SET created_at = ? WHERE id = ?`, createdAt, row.ID).Error)
	}

	first, next, err := repo.ListByUser(ctx, u1, listQuery{Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Len(t, first, 2)
	require.Equal(t, "1003", first[0].OrderID)
	require.Equal(t, "1002", first[1].OrderID)

	second, last, err := repo.ListByUser(ctx, u1, listQuery{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Nil(t, last)
	require.Len(t, second, 1)
	require.Equal(t, "1001", second[0].OrderID)
}

func TestDeleteStaleUnsyncedOnlySweepsOrphanedClaims(t *testing.T) {
	conn := setupAssignmentsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	u1 := uuid.New()

	stale, err := repo.CreateAssignment(ctx, newAssignment(u1, "1001", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
	fresh, err := repo.CreateAssignment(ctx, newAssignment(u1, "1002", enums.AssignmentStatusAssigned))
	require.NoError(t, err)
	synced, err := repo.CreateAssignment(ctx, newAssignment(u1, "1003", enums.AssignmentStatusPreparing))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, conn.Exec(`UPDATE assignments SET assigned_at = ? WHERE id = ?`, now.Add(-time.Hour), stale.ID).Error)
	require.NoError(t, conn.Exec(`UPDATE assignments SET assigned_at = ? WHERE id = ?`, now, fresh.ID).Error)
	require.NoError(t, conn.Exec(`UPDATE assignments SET assigned_at = ?, remote_synced = 1 WHERE id = ?`, now.Add(-time.Hour), synced.ID).Error)

	deleted, err := repo.DeleteStaleUnsynced(ctx, nil, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = repo.FindByID(ctx, stale.ID)
	require.Error(t, err)
	_, err = repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, synced.ID)
	require.NoError(t, err)
}
