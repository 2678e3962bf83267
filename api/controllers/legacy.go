package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk-backend/api/middleware"
	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/api/validators"
	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/internal/trips"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

type legacyAssignRequest struct {
	IndentID    uuid.UUID `json:"indent_id" validate:"required"`
	TruckID     uuid.UUID `json:"truck_id" validate:"required"`
	DriverPhone string    `json:"driver_phone" validate:"required,in_phone"`
}

type legacyStatusRequest struct {
	IndentID      uuid.UUID `json:"indent_id" validate:"required"`
	Status        string    `json:"status" validate:"required"`
	VehicleNumber *string   `json:"vehicle_number,omitempty"`
	DriverPhone   *string   `json:"driver_phone,omitempty"`
	Comment       *string   `json:"comment,omitempty"`
}

// LegacyAssignTruck keeps the `{success, data}` / `{error}` contract of the
// old server-side wrapper around truck assignment.
func LegacyAssignTruck(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trips service unavailable"))
			return
		}

		var body legacyAssignRequest
		if err := validators.DecodeJSONBodyLenient(r, &body); err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignTruck(r.Context(), trips.AssignInput{
			IndentID:    body.IndentID,
			TruckID:     body.TruckID,
			DriverPhone: body.DriverPhone,
			ActorID:     middleware.ActorID(r.Context()),
		})
		if err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}
		responses.WriteLegacySuccess(w, trips.AssignToDTO(result))
	}
}

// LegacyUpdateIndentStatus patches an indent's status. Older status names
// are accepted and mapped by the indent service.
func LegacyUpdateIndentStatus(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteLegacyError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		var body legacyStatusRequest
		if err := validators.DecodeJSONBodyLenient(r, &body); err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transition(r.Context(), indents.TransitionInput{
			IndentID:      body.IndentID,
			Status:        body.Status,
			ActorID:       middleware.ActorID(r.Context()),
			VehicleNumber: body.VehicleNumber,
			DriverPhone:   body.DriverPhone,
			Comment:       trimmed(body.Comment),
		})
		if err != nil {
			responses.WriteLegacyError(r.Context(), logg, w, err)
			return
		}
		responses.WriteLegacySuccess(w, indents.ToDTO(result.Indent))
	}
}
