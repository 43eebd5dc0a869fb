package controllers

import (
	"net/http"

	"github.com/luismarin-dev/ordena-backend/api/responses"
	"github.com/luismarin-dev/ordena-backend/api/validators"
	"github.com/luismarin-dev/ordena-backend/internal/priority"
	"github.com/luismarin-dev/ordena-backend/pkg/db"
	pkgerrors "github.com/luismarin-dev/ordena-backend/pkg/errors"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

type flagPriorityRequest struct {
	OrderID string `json:"order_id" validate:"required,min=1,max=64"`
}

// FlagPriority appends an order to the merchant's urgency registry.
func FlagPriority(repo *priority.Repository, merchantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "priority repository unavailable"))
			return
		}

		var req flagPriorityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := repo.Append(r.Context(), merchantID, req.OrderID)
		if err != nil {
			if db.IsUniqueViolation(err, "ux_priority_merchant_order") {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "order is already flagged"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "appending priority entry"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// ListPriority returns the registry in rank order.
func ListPriority(repo *priority.Repository, merchantID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "priority repository unavailable"))
			return
		}

		entries, err := repo.ListRanked(r.Context(), merchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing priority entries"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}
