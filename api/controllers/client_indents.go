package controllers

import (
	"net/http"

	"github.com/freightdesk/freightdesk-backend/api/middleware"
	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/api/validators"
	"github.com/freightdesk/freightdesk-backend/internal/fleet"
	"github.com/freightdesk/freightdesk-backend/internal/indents"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

// ClientCreateIndent posts a load request on behalf of the caller's company.
func ClientCreateIndent(svc indents.Service, clients fleet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || clients == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		actor := middleware.ActorID(r.Context())
		client, err := clients.ClientForUser(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body indentFields
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		indent, err := svc.Create(r.Context(), body.input(client.ID, actor))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, indents.ToDTO(indent))
	}
}

// ClientListIndents lists only the indents owned by the caller's company.
func ClientListIndents(svc indents.Service, clients fleet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || clients == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "indents service unavailable"))
			return
		}

		client, err := clients.ClientForUser(r.Context(), middleware.ActorID(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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
		filters.ClientID = &client.ID

		list, err := svc.List(r.Context(), indents.ListParams{Filters: filters, Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
