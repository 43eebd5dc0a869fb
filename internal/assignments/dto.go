package assignments

import (
	"time"

	"github.com/google/uuid"

	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
	"github.com/luismarin-dev/ordena-backend/pkg/enums"
	"github.com/luismarin-dev/ordena-backend/pkg/storefront"
	"github.com/luismarin-dev/ordena-backend/pkg/types"
)

// CandidateOrder is one remote order considered for claiming during a single
// engine run. Never persisted; the snapshot moves onto the Assignment row
// when a claim succeeds.
type CandidateOrder struct {
	OrderID     string
	OrderNumber string
	PlacedAt    time.Time
	// FetchIndex is the candidate's position in the merged oldest-first
	// fetch order, used as the ranking tiebreaker.
	FetchIndex int
	Snapshot   types.JSONMap
}

func newCandidate(order storefront.Order, index int) CandidateOrder {
	return CandidateOrder{
		OrderID:     order.ResolvedID(),
		OrderNumber: string(order.Number),
		PlacedAt:    order.BestTimestamp(),
		FetchIndex:  index,
		Snapshot:    types.JSONMap(order.Snapshot()),
	}
}

// AssignmentDTO is the transport shape for one claim.
type AssignmentDTO struct {
	ID           uuid.UUID              `json:"id"`
	OrderID      string                 `json:"order_id"`
	OrderNumber  string                 `json:"order_number"`
	Status       enums.AssignmentStatus `json:"status"`
	RemoteStatus string                 `json:"remote_status,omitempty"`
	RemoteSynced bool                   `json:"remote_synced"`
	AssignedAt   time.Time              `json:"assigned_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	Notes        *string                `json:"notes,omitempty"`
}

// FromModel converts a persisted assignment into its transport shape.
func FromModel(a *models.Assignment) *AssignmentDTO {
	if a == nil {
		return nil
	}
	return &AssignmentDTO{
		ID:           a.ID,
		OrderID:      a.OrderID,
		OrderNumber:  a.OrderNumber,
		Status:       a.Status,
		RemoteStatus: a.RemoteStatus,
		RemoteSynced: a.RemoteSynced,
		AssignedAt:   a.AssignedAt,
		StartedAt:    a.StartedAt,
		CompletedAt:  a.CompletedAt,
		Notes:        a.Notes,
	}
}

func fromModels(rows []models.Assignment) []AssignmentDTO {
	dtos := make([]AssignmentDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos
}

// ListParams configures the paginated assignment listing for one worker.
type ListParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// AssignmentList is one page of a worker's claims, newest first.
type AssignmentList struct {
	Assignments []AssignmentDTO `json:"assignments"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

// AssignResult is the outcome of one engine run.
type AssignResult struct {
	Assigned         int             `json:"assigned"`
	TotalAssignments int64           `json:"total_assignments"`
	Assignments      []AssignmentDTO `json:"assignments"`
}

// AdvanceStatusInput carries a preparation-workflow status transition.
type AdvanceStatusInput struct {
	AssignmentID uuid.UUID
	Status       enums.AssignmentStatus
	Notes        *string
}
