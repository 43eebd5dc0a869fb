package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/luismarin-dev/ordena-backend/api/responses"
	"github.com/luismarin-dev/ordena-backend/api/validators"
	"github.com/luismarin-dev/ordena-backend/internal/assignments"
	pkgerrors "github.com/luismarin-dev/ordena-backend/pkg/errors"
	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

type assignRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type assignResponse struct {
	Success          bool                        `json:"success"`
	Assigned         int                         `json:"assigned"`
	TotalAssignments int64                       `json:"total_assignments"`
	Assignments      []assignments.AssignmentDTO `json:"assignments"`
}

// Assign runs one auto-assignment pass for the requesting worker.
func Assign(service assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user_id must be a uuid"))
			return
		}

		result, err := service.Assign(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, assignResponse{
			Success:          true,
			Assigned:         result.Assigned,
			TotalAssignments: result.TotalAssignments,
			Assignments:      result.Assignments,
		})
	}
}
