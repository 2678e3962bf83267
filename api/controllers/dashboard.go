package controllers

import (
	"net/http"

	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/internal/dashboard"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

func AdminDashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
