package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freightdesk/freightdesk-backend/api/controllers"
	"github.com/freightdesk/freightdesk-backend/api/middleware"
	"github.com/freightdesk/freightdesk-backend/internal/auth"
	"github.com/freightdesk/freightdesk-backend/internal/dashboard"
	"github.com/freightdesk/freightdesk-backend/internal/fleet"
	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/internal/loadboard"
	"github.com/freightdesk/freightdesk-backend/internal/payments"
	"github.com/freightdesk/freightdesk-backend/internal/trips"
	"github.com/freightdesk/freightdesk-backend/pkg/auth/session"
	"github.com/freightdesk/freightdesk-backend/pkg/config"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	pkgredis "github.com/freightdesk/freightdesk-backend/pkg/redis"
)

type loadBoard interface {
	Snapshot() []loadboard.IndentCard
}

type viewerHub interface {
	Subscribe() (*loadboard.Viewer, func())
}

type requestObserver interface {
	Observe(method, route string, status int, d time.Duration)
}

// Params is everything the HTTP surface needs. Nil services answer 500 on
// their routes rather than panicking.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    *pkgredis.Client
	Ready    map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
	HTTP     requestObserver

	Auth      auth.Service
	Indents   indents.Service
	Trips     trips.Service
	Payments  payments.Service
	Fleet     fleet.Service
	Dashboard dashboard.Service
	Board     loadBoard
	Hub       viewerHub
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if p.HTTP != nil {
		r.Use(middleware.Metrics(p.HTTP))
	}

	// Left nil when redis is absent so the middleware passes everything through.
	var idem pkgredis.IdempotencyStore
	var limiter *pkgredis.Client
	if p.Redis != nil {
		idem = p.Redis
		limiter = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/loadboard", controllers.PublicLoadBoard(p.Board, logg))
		r.Get("/loadboard/stream", controllers.PublicLoadBoardStream(p.Board, p.Hub, cfg.Feed.HeartbeatInterval, logg))
	})

	authenticated := middleware.Auth(cfg.JWT, p.Sessions, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		if limiter != nil {
			r.With(middleware.LoginRateLimit(cfg.RateLimit, limiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		} else {
			r.Post("/login", controllers.AuthLogin(p.Auth, logg))
		}
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.With(authenticated).Post("/logout", controllers.AuthLogout(p.Auth, logg))
		r.With(authenticated).Get("/me", controllers.AuthMe(p.Auth, logg))
	})

	// Wrappers kept for the old UI, with their `{success, data}` / `{error}` bodies.
	r.Group(func(r chi.Router) {
		r.Use(authenticated, middleware.RequireRole(logg, enums.UserRoleAdmin), middleware.Idempotency(idem, logg))
		r.Post("/api/assign-truck", controllers.LegacyAssignTruck(p.Trips, logg))
		r.Post("/api/update-indent-status", controllers.LegacyUpdateIndentStatus(p.Indents, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authenticated, middleware.RequireRole(logg, enums.UserRoleAdmin), middleware.Idempotency(idem, logg))

		r.Get("/dashboard", controllers.AdminDashboard(p.Dashboard, logg))
		r.Post("/users", controllers.AdminRegisterUser(p.Auth, logg))

		r.Route("/indents", func(r chi.Router) {
			r.Get("/", controllers.AdminListIndents(p.Indents, logg))
			r.Post("/", controllers.AdminCreateIndent(p.Indents, logg))
			r.Get("/{indentId}", controllers.AdminGetIndent(p.Indents, logg))
			r.Patch("/{indentId}", controllers.AdminUpdateIndent(p.Indents, logg))
			r.Post("/{indentId}/transition", controllers.AdminTransitionIndent(p.Indents, logg))
			r.Get("/{indentId}/history", controllers.AdminIndentHistory(p.Indents, logg))
			r.Post("/{indentId}/assign", controllers.AdminAssignTruck(p.Trips, logg))
		})

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", controllers.AdminListTrips(p.Trips, logg))
			r.Get("/{tripId}", controllers.AdminGetTrip(p.Trips, logg))
			r.Post("/{tripId}/transition", controllers.AdminTransitionTrip(p.Trips, logg))
			r.Get("/{tripId}/history", controllers.AdminTripHistory(p.Trips, logg))
			r.Put("/{tripId}/location", controllers.AdminUpdateTripLocation(p.Trips, logg))

			r.Get("/{tripId}/payment", controllers.AdminGetPayment(p.Payments, logg))
			r.Put("/{tripId}/payment", controllers.AdminUpsertPayment(p.Payments, logg))
			r.Get("/{tripId}/payment/summary", controllers.AdminPaymentSummary(p.Payments, logg))
			r.Get("/{tripId}/payment/statement.pdf", controllers.AdminPaymentStatement(p.Payments, logg))
		})

		r.Route("/owners", func(r chi.Router) {
			r.Get("/", controllers.AdminListOwners(p.Fleet, logg))
			r.Post("/", controllers.AdminCreateOwner(p.Fleet, logg))
			r.Get("/{ownerId}", controllers.AdminGetOwner(p.Fleet, logg))
			r.Put("/{ownerId}", controllers.AdminUpdateOwner(p.Fleet, logg))
		})

		r.Route("/trucks", func(r chi.Router) {
			r.Get("/", controllers.AdminListTrucks(p.Fleet, logg))
			r.Post("/", controllers.AdminCreateTruck(p.Fleet, logg))
			r.Get("/{truckId}", controllers.AdminGetTruck(p.Fleet, logg))
			r.Put("/{truckId}", controllers.AdminUpdateTruck(p.Fleet, logg))
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.AdminListClients(p.Fleet, logg))
			r.Post("/", controllers.AdminCreateClient(p.Fleet, logg))
			r.Get("/{clientId}", controllers.AdminGetClient(p.Fleet, logg))
			r.Put("/{clientId}", controllers.AdminUpdateClient(p.Fleet, logg))
		})
	})

	r.Route("/api/client", func(r chi.Router) {
		r.Use(authenticated, middleware.RequireRole(logg, enums.UserRoleClient))
		r.Get("/indents", controllers.ClientListIndents(p.Indents, p.Fleet, logg))
		r.Post("/indents", controllers.ClientCreateIndent(p.Indents, p.Fleet, logg))
	})

	return r
}
