package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/config"
	"github.com/luismarin-dev/ordena-backend/pkg/db"
	"github.com/luismarin-dev/ordena-backend/pkg/db/models"
	"github.com/luismarin-dev/ordena-backend/pkg/enums"
	pkgerrors "github.com/luismarin-dev/ordena-backend/pkg/errors"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
	"github.com/luismarin-dev/ordena-backend/pkg/metrics"
	"github.com/luismarin-dev/ordena-backend/pkg/pagination"
	"github.com/luismarin-dev/ordena-backend/pkg/storefront"
	"github.com/luismarin-dev/ordena-backend/pkg/types"
)

// Service is the auto-assignment engine plus the assignment read/advance
// surface the preparation workflow consumes.
type Service interface {
	Assign(ctx context.Context, userID uuid.UUID) (*AssignResult, error)
	ListForUser(ctx context.Context, params ListParams) (*AssignmentList, error)
	AdvanceStatus(ctx context.Context, input AdvanceStatusInput) (*AssignmentDTO, error)
}

type service struct {
	repo       Repository
	users      UserFinder
	priorities PriorityRanker
	fetcher    OrderFetcher
	statuses   StatusResolver
	cfg        config.AssignConfig
	logger     *logger.Logger
	metrics    *metrics.AssignMetrics
}

// NewService builds the assignment service with the required dependencies.
func NewService(
	repo Repository,
	users UserFinder,
	priorities PriorityRanker,
	fetcher OrderFetcher,
	statuses StatusResolver,
	cfg config.AssignConfig,
	logg *logger.Logger,
	assignMetrics *metrics.AssignMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if priorities == nil {
		return nil, fmt.Errorf("priority ranker required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("order fetcher required")
	}
	if statuses == nil {
		return nil, fmt.Errorf("status resolver required")
	}
	return &service{
		repo:       repo,
		users:      users,
		priorities: priorities,
		fetcher:    fetcher,
		statuses:   statuses,
		cfg:        cfg,
		logger:     logg,
		metrics:    assignMetrics,
	}, nil
}

// Assign runs one engine pass for the worker: capacity gate, fetch, dedup,
// rank, then the claim/compensate loop. At most one order is claimed per
// call. Concurrent runs racing for the same candidate are serialized by the
// claim ledger's unique indexes, never by an application lock.
func (s *service) Assign(ctx context.Context, userID uuid.UUID) (*AssignResult, error) {
	start := time.Now()
	result, err := s.assign(ctx, userID)
	s.metrics.ObserveRun(runOutcome(result, err), time.Since(start))
	return result, err
}

func runOutcome(result *AssignResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result.Assigned > 0:
		return "assigned"
	case result.TotalAssignments > 0:
		return "capacity_full"
	default:
		return "no_candidates"
	}
}

func (s *service) assign(ctx context.Context, userID uuid.UUID) (*AssignResult, error) {
	ctx = s.logger.WithUserID(ctx, userID.String())

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if !user.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is inactive")
	}

	// Fast path only. The unique indexes, not this count, guarantee the
	// one-active-claim invariant under concurrency.
	activeCount, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting active assignments")
	}
	if activeCount > 0 {
		active, err := s.repo.ListActiveByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing active assignments")
		}
		s.logger.Info(ctx, "capacity slot already filled, skipping fetch")
		return &AssignResult{
			Assigned:         0,
			TotalAssignments: activeCount,
			Assignments:      fromModels(active),
		}, nil
	}

	candidates, err := s.fetchCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &AssignResult{Assignments: []AssignmentDTO{}}, nil
	}

	merchantID := s.fetcher.MerchantID()
	claimed, err := s.repo.ClaimedOrderIDs(ctx, merchantID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading claimed order ids")
	}
	ranks, err := s.priorities.RankMap(ctx, merchantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading priority registry")
	}

	ranked := rankCandidates(candidates, ranks, claimed)
	if len(ranked) == 0 {
		return &AssignResult{Assignments: []AssignmentDTO{}}, nil
	}

	preparingID, err := s.statuses.ResolveStatusID(ctx, s.cfg.PreparingStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving preparing status id")
	}

	claimedRow, err := s.claimLoop(ctx, userID, merchantID, ranked, preparingID)
	if err != nil {
		return nil, err
	}
	if claimedRow == nil {
		return &AssignResult{Assignments: []AssignmentDTO{}}, nil
	}
	return &AssignResult{
		Assigned:         1,
		TotalAssignments: 1,
		Assignments:      []AssignmentDTO{*FromModel(claimedRow)},
	}, nil
}

// fetchCandidates pulls one oldest-first page per configured status filter.
// A filter whose request fails after retries is skipped with a warning; the
// fetch is fatal only when every filter fails.
func (s *service) fetchCandidates(ctx context.Context) ([]CandidateOrder, error) {
	filters := s.cfg.StatusFilters
	if len(filters) == 0 {
		filters = []string{"pending"}
	}
	limit := s.cfg.FetchLimit
	if limit <= 0 {
		limit = 25
	}

	var pages [][]storefront.Order
	var fetchErr error
	for _, filter := range filters {
		orders, err := s.fetcher.ListOrders(ctx, filter, limit)
		if err != nil {
			fetchErr = multierr.Append(fetchErr, fmt.Errorf("filter %q: %w", filter, err))
			s.logger.Warn(s.logger.WithField(ctx, "status_filter", filter), "order fetch failed, skipping filter")
			continue
		}
		pages = append(pages, orders)
	}
	if len(pages) == 0 && fetchErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, fetchErr, "fetching remote orders failed for every filter")
	}

	return mergeCandidates(pages), nil
}

// claimLoop walks the ranked candidates and fills at most one slot. Each
// candidate gets exactly one attempt: insert the claim, then sync the remote
// status; a lost insert race skips forward, a failed sync deletes the claim
// and skips forward. Returns nil when the pool is exhausted.
func (s *service) claimLoop(ctx context.Context, userID uuid.UUID, merchantID string, ranked []CandidateOrder, preparingID int64) (*models.Assignment, error) {
	for _, candidate := range ranked {
		candCtx := s.logger.WithOrderID(ctx, candidate.OrderID)

		row := &models.Assignment{
			ID:            uuid.New(),
			MerchantID:    merchantID,
			OrderID:       candidate.OrderID,
			UserID:        userID,
			Status:        enums.AssignmentStatusAssigned,
			OrderNumber:   candidate.OrderNumber,
			OrderSnapshot: types.JSONMap(s.snapshotFor(candCtx, candidate)),
			AssignedAt:    time.Now().UTC(),
		}

		created, err := s.repo.CreateAssignment(candCtx, row)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				s.metrics.IncRaceLost()
				s.logger.Info(candCtx, "claim race lost, trying next candidate")
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating assignment")
		}

		// The remote transition is deliberately unretried here: a duplicate
		// POST could double-transition the order. Compensate instead.
		if err := s.fetcher.UpdateOrderStatus(candCtx, candidate.OrderID, preparingID); err != nil {
			s.metrics.IncSyncFailure()
			s.logger.Error(candCtx, "remote status sync failed, compensating claim", err)
			if delErr := s.repo.DeleteAssignment(candCtx, created.ID); delErr != nil {
				// An orphaned claim would block this order for everyone.
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, delErr, "deleting assignment after failed remote sync")
			}
			continue
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":        string(enums.AssignmentStatusPreparing),
			"remote_status": s.cfg.PreparingStatus,
			"remote_synced": true,
			"started_at":    now,
		}
		if err := s.repo.UpdateAssignment(candCtx, created.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording remote sync")
		}
		created.Status = enums.AssignmentStatusPreparing
		created.RemoteStatus = s.cfg.PreparingStatus
		created.RemoteSynced = true
		created.StartedAt = &now

		s.metrics.IncClaimWon()
		s.logger.Info(candCtx, "order claimed and synced")
		return created, nil
	}
	return nil, nil
}

// snapshotFor returns the claim-time payload, optionally enriched with line
// items. An item fetch failure degrades to the summary snapshot.
func (s *service) snapshotFor(ctx context.Context, candidate CandidateOrder) map[string]any {
	snapshot := map[string]any(candidate.Snapshot)
	if !s.cfg.SnapshotLineItems {
		return snapshot
	}
	if _, ok := snapshot["items"]; ok {
		return snapshot
	}

	items, err := s.fetcher.ListOrderItems(ctx, candidate.OrderID)
	if err != nil {
		s.logger.Warn(ctx, "line item fetch failed, snapshotting summary only")
		return snapshot
	}
	if len(items) == 0 {
		return snapshot
	}

	enriched := make(map[string]any, len(snapshot)+1)
	for k, v := range snapshot {
		enriched[k] = v
	}
	encoded := make([]map[string]any, 0, len(items))
	for _, item := range items {
		encoded = append(encoded, map[string]any{
			"id":       item.ID,
			"sku":      string(item.SKU),
			"name":     item.Name,
			"quantity": item.Quantity,
			"price":    item.Price.Amount.String(),
		})
	}
	enriched["items"] = encoded
	return enriched
}

// ListForUser returns one page of the worker's assignments, newest first.
func (s *service) ListForUser(ctx context.Context, params ListParams) (*AssignmentList, error) {
	if _, err := s.users.FindByID(ctx, params.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	query := listQuery{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByUser(ctx, params.UserID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing assignments")
	}

	list := &AssignmentList{Assignments: fromModels(rows)}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// AdvanceStatus applies one preparation-workflow transition, guarded by the
// assignment state machine.
func (s *service) AdvanceStatus(ctx context.Context, input AdvanceStatusInput) (*AssignmentDTO, error) {
	row, err := s.repo.FindByID(ctx, input.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading assignment")
	}

	if !row.Status.CanTransitionTo(input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition assignment from %s to %s", row.Status, input.Status))
	}

	now := time.Now().UTC()
	updates := map[string]any{"status": string(input.Status)}
	if input.Status == enums.AssignmentStatusPreparing && row.StartedAt == nil {
		updates["started_at"] = now
		row.StartedAt = &now
	}
	if input.Status.IsTerminal() {
		updates["completed_at"] = now
		row.CompletedAt = &now
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
		row.Notes = input.Notes
	}

	if err := s.repo.UpdateAssignment(ctx, row.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating assignment status")
	}
	row.Status = input.Status
	return FromModel(row), nil
}
