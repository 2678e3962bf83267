package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freightdesk/freightdesk-backend/api/middleware"
	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/api/validators"
	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/internal/trips"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

// indentFields is the body shared by admin and client indent creation.
type indentFields struct {
	Origin       string          `json:"origin" validate:"required,max=200"`
	Destination  string          `json:"destination" validate:"required,max=200"`
	VehicleType  string          `json:"vehicle_type" validate:"required,max=100"`
	TripCost     decimal.Decimal `json:"trip_cost"`
	TATHours     int             `json:"tat_hours" validate:"min=0"`
	LoadMaterial string          `json:"load_material" validate:"max=200"`
	LoadWeightKg decimal.Decimal `json:"load_weight_kg"`
	PickupAt     time.Time       `json:"pickup_at" validate:"required"`
	ContactPhone string          `json:"contact_phone" validate:"required,in_phone"`
}

type indentCreateRequest struct {
	ClientID uuid.UUID `json:"client_id" validate:"required"`
	indentFields
}

func (req indentFields) input(clientID, actor uuid.UUID) indents.CreateInput {
	return indents.CreateInput{
		ClientID:     clientID,
		Origin:       req.Origin,
		Destination:  req.Destination,
		VehicleType:  req.VehicleType,
		TripCost:     req.TripCost,
		TATHours:     req.TATHours,
		LoadMaterial: req.LoadMaterial,
		LoadWeightKg: req.LoadWeightKg,
		PickupAt:     req.PickupAt,
		ContactPhone: req.ContactPhone,
		ActorID:      actor,
	}
}

type indentUpdateRequest struct {
	Origin       *string          `json:"origin,omitempty" validate:"omitempty,max=200"`
	Destination  *string          `json:"destination,omitempty" validate:"omitempty,max=200"`
	VehicleType  *string          `json:"vehicle_type,omitempty" validate:"omitempty,max=100"`
	TripCost     *decimal.Decimal `json:"trip_cost,omitempty"`
	TATHours     *int             `json:"tat_hours,omitempty" validate:"omitempty,min=0"`
	LoadMaterial *string          `json:"load_material,omitempty" validate:"omitempty,max=200"`
	LoadWeightKg *decimal.Decimal `json:"load_weight_kg,omitempty"`
	PickupAt     *time.Time       `json:"pickup_at,omitempty"`
	ContactPhone *string          `json:"contact_phone,omitempty" validate:"omitempty,in_phone"`
}

type indentTransitionRequest struct {
	Status        string  `json:"status" validate:"required"`
	VehicleNumber *string `json:"vehicle_number,omitempty"`
	DriverPhone   *string `json:"driver_phone,omitempty"`
	Comment       *string `json:"comment,omitempty"`
}

type assignRequest struct {
	TruckID     uuid.UUID `json:"truck_id" validate:"required"`
	DriverPhone string    `json:"driver_phone" validate:"required,in_phone"`
}

func AdminCreateIndent(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		var body indentCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		indent, err := svc.Create(r.Context(), body.input(body.ClientID, middleware.ActorID(r.Context())))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, indents.ToDTO(indent))
	}
}

// AdminListIndents lists indents newest first with optional status, client and
// created-at filters.
func AdminListIndents(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := indentFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.ParseQueryUUID(r, "client_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ClientID = clientID

		list, err := svc.List(r.Context(), indents.ListParams{Filters: filters, Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminGetIndent(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "indentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		indent, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, indents.ToDTO(indent))
	}
}

func AdminUpdateIndent(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "indentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body indentUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		indent, err := svc.Update(r.Context(), id, indents.UpdateInput{
			Origin:       body.Origin,
			Destination:  body.Destination,
			VehicleType:  body.VehicleType,
			TripCost:     body.TripCost,
			TATHours:     body.TATHours,
			LoadMaterial: body.LoadMaterial,
			LoadWeightKg: body.LoadWeightKg,
			PickupAt:     body.PickupAt,
			ContactPhone: body.ContactPhone,
			ActorID:      middleware.ActorID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, indents.ToDTO(indent))
	}
}

// AdminTransitionIndent moves an indent to a new status. Repeating the current
// status succeeds without writing anything.
func AdminTransitionIndent(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "indentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body indentTransitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transition(r.Context(), indents.TransitionInput{
			IndentID:      id,
			Status:        body.Status,
			ActorID:       middleware.ActorID(r.Context()),
			VehicleNumber: body.VehicleNumber,
			DriverPhone:   body.DriverPhone,
			Comment:       trimmed(body.Comment),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, indents.TransitionToDTO(result))
	}
}

func AdminIndentHistory(svc indents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "indentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]indents.HistoryDTO, 0, len(rows))
		for _, h := range rows {
			out = append(out, indents.HistoryToDTO(h))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminAssignTruck turns an indent into a trip on the given truck.
func AdminAssignTruck(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "trips service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "indentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AssignTruck(r.Context(), trips.AssignInput{
			IndentID:    id,
			TruckID:     body.TruckID,
			DriverPhone: body.DriverPhone,
			ActorID:     middleware.ActorID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trips.AssignToDTO(result))
	}
}

func indentFilters(r *http.Request) (indents.ListFilters, error) {
	var filters indents.ListFilters
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParseIndentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filters, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filters, err
	}
	filters.CreatedFrom = from
	filters.CreatedTo = to
	return filters, nil
}
