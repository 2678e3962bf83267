package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/api/validators"
	"github.com/freightdesk/freightdesk-backend/internal/fleet"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

const maxSearchLen = 100

// Owners, trucks and clients share the same CRUD shape; these helpers keep the
// handlers below to their wiring.

func createEntity[In, M, D any](create func(context.Context, In) (*M, error), toDTO func(*M) D, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body In
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toDTO(row))
	}
}

func updateEntity[In, M, D any](param string, update func(context.Context, uuid.UUID, In) (*M, error), toDTO func(*M) D, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body In
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(row))
	}
}

func getEntity[M, D any](param string, get func(context.Context, uuid.UUID) (*M, error), toDTO func(*M) D, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDTO(row))
	}
}

func listDTOs[M, D any](rows []M, toDTO func(*M) D) []D {
	out := make([]D, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out
}

func searchParams(r *http.Request) (string, int, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return "", 0, err
	}
	return validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLen), limit, nil
}

func fleetUnavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fleet service unavailable"))
	}
}

func AdminCreateOwner(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return createEntity(svc.CreateOwner, fleet.OwnerToDTO, logg)
}

func AdminUpdateOwner(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return updateEntity("ownerId", svc.UpdateOwner, fleet.OwnerToDTO, logg)
}

func AdminGetOwner(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return getEntity("ownerId", svc.GetOwner, fleet.OwnerToDTO, logg)
}

// AdminListOwners searches owners by name or phone with ?q=.
func AdminListOwners(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, err := searchParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListOwners(r.Context(), search, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listDTOs(rows, fleet.OwnerToDTO))
	}
}

func AdminCreateTruck(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return createEntity(svc.CreateTruck, fleet.TruckToDTO, logg)
}

func AdminUpdateTruck(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return updateEntity("truckId", svc.UpdateTruck, fleet.TruckToDTO, logg)
}

func AdminGetTruck(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return getEntity("truckId", svc.GetTruck, fleet.TruckToDTO, logg)
}

// AdminListTrucks searches by vehicle number, optionally within one owner.
func AdminListTrucks(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, err := searchParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID, err := validators.ParseQueryUUID(r, "owner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListTrucks(r.Context(), ownerID, search, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listDTOs(rows, fleet.TruckToDTO))
	}
}

func AdminCreateClient(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return createEntity(svc.CreateClient, fleet.ClientToDTO, logg)
}

func AdminUpdateClient(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return updateEntity("clientId", svc.UpdateClient, fleet.ClientToDTO, logg)
}

func AdminGetClient(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return getEntity("clientId", svc.GetClient, fleet.ClientToDTO, logg)
}

func AdminListClients(svc fleet.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return fleetUnavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		search, limit, err := searchParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListClients(r.Context(), search, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listDTOs(rows, fleet.ClientToDTO))
	}
}

