package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/internal/cache"
	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/internal/payments"
	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/formats"
	"github.com/freightdesk/freightdesk-backend/pkg/lifecycle"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
	"github.com/freightdesk/freightdesk-backend/pkg/shortid"
)

const createdRemark = "Trip created"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type entityCache interface {
	Get(ctx context.Context, kind string, id uuid.UUID, dst any) (bool, error)
	Set(ctx context.Context, kind string, id uuid.UUID, value any) error
	Invalidate(ctx context.Context, kind string, id uuid.UUID) error
}

// IndentTransitioner moves the assigned indent inside the trip transaction.
type IndentTransitioner interface {
	TransitionTx(ctx context.Context, tx *gorm.DB, input indents.TransitionInput) (*indents.TransitionResult, error)
	AfterTransition(ctx context.Context, result *indents.TransitionResult)
}

type truckLookup interface {
	GetTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error)
}

type ledgerSeeder interface {
	SeedTx(ctx context.Context, tx *gorm.DB, tripID uuid.UUID, tripCost decimal.Decimal) (*models.TripPayment, error)
}

type transitionRecorder interface {
	ObserveTransition(entity, from, to string)
	ObserveRejected(entity, from, to string)
}

// Service defines the trip lifecycle operations.
type Service interface {
	AssignTruck(ctx context.Context, input AssignInput) (*AssignResult, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	UpdateLocation(ctx context.Context, input LocationInput) (*models.Trip, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	History(ctx context.Context, id uuid.UUID) ([]models.TripStatusHistory, error)
	StatementHeader(ctx context.Context, tripID uuid.UUID) (*payments.StatementHeader, error)
}

// Deps are the collaborators AssignTruck composes.
type Deps struct {
	Indents  IndentTransitioner
	Trucks   truckLookup
	Payments ledgerSeeder
}

type Options struct {
	Policy  *lifecycle.Policy[enums.TripStatus]
	IDs     *shortid.Generator
	Cache   entityCache
	Metrics transitionRecorder
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	indents  IndentTransitioner
	trucks   truckLookup
	payments ledgerSeeder
	policy   lifecycle.Policy[enums.TripStatus]
	ids      *shortid.Generator
	cache    entityCache
	metrics  transitionRecorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, deps Deps, opts Options) (Service, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("trips repository required")
	case tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Indents == nil:
		return nil, fmt.Errorf("indent service required")
	case deps.Trucks == nil:
		return nil, fmt.Errorf("truck lookup required")
	case deps.Payments == nil:
		return nil, fmt.Errorf("payment seeder required")
	}
	s := &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		indents:  deps.Indents,
		trucks:   deps.Trucks,
		payments: deps.Payments,
		policy:   lifecycle.NewPolicy(lifecycle.DefaultTripTable()),
		ids:      opts.IDs,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logg:     opts.Logger,
		now:      opts.Now,
	}
	if opts.Policy != nil {
		s.policy = *opts.Policy
	}
	if s.ids == nil {
		s.ids = shortid.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// AssignTruck creates the trip of an indent, seeds its ledger and places the
// vehicle on the indent in one transaction.
func (s *service) AssignTruck(ctx context.Context, input AssignInput) (*AssignResult, error) {
	fields := map[string]string{}
	if input.IndentID == uuid.Nil {
		fields["indent_id"] = "required"
	}
	if input.TruckID == uuid.Nil {
		fields["truck_id"] = "required"
	}
	if !formats.Phone(input.DriverPhone) {
		fields["driver_phone"] = "must be a 10 digit phone number"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid assignment").WithDetails(fields)
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	truck, err := s.trucks.GetTruck(ctx, input.TruckID)
	if err != nil {
		return nil, err
	}
	short, err := s.ids.Trip()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate short id")
	}
	driver := formats.NormalizePhone(input.DriverPhone)

	result := &AssignResult{}
	var indentResult *indents.TransitionResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		indent, err := repo.LockIndent(ctx, input.IndentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "indent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load indent")
		}
		if indent.Status != enums.IndentStatusOpen && indent.Status != enums.IndentStatusConfirmation {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "indent is %s and cannot be assigned", indent.Status).
				WithDetails(map[string]any{"status": indent.Status})
		}
		existing, err := repo.FindByIndent(ctx, indent.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "indent already has a trip").
				WithDetails(map[string]any{"trip_id": existing.ID, "short_id": existing.ShortID})
		}

		now := s.clock()
		trip := &models.Trip{
			ShortID:     short,
			IndentID:    indent.ID,
			TruckID:     truck.ID,
			Status:      enums.TripStatusCreated,
			DriverPhone: driver,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, trip); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "indent already has a trip")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create trip")
		}
		if err := repo.InsertHistory(ctx, &models.TripStatusHistory{
			TripID:    trip.ID,
			ToStatus:  enums.TripStatusCreated,
			ChangedBy: input.ActorID,
			Remark:    createdRemark,
			ChangedAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert trip history")
		}

		payment, err := s.payments.SeedTx(ctx, tx, trip.ID, indent.TripCost)
		if err != nil {
			return err
		}

		comment := "Trip " + trip.ShortID
		indentResult, err = s.indents.TransitionTx(ctx, tx, indents.TransitionInput{
			IndentID:      indent.ID,
			Status:        string(enums.IndentStatusVehiclePlaced),
			ActorID:       input.ActorID,
			VehicleNumber: &truck.VehicleNumber,
			DriverPhone:   &driver,
			Comment:       &comment,
		})
		if err != nil {
			return err
		}

		result.Trip = trip
		result.Indent = indentResult.Indent
		result.Payment = payment
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripCreated,
			AggregateType: enums.AggregateTrip,
			AggregateID:   trip.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data: outbox.TripCreated{
				TripID:        trip.ID,
				ShortID:       trip.ShortID,
				IndentID:      indent.ID,
				TruckID:       truck.ID,
				VehicleNumber: truck.VehicleNumber,
				TripCost:      indent.TripCost.StringFixed(2),
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.indents.AfterTransition(ctx, indentResult)
	s.info(ctx, result.Trip, "trip created")
	return result, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.TripID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	target, err := enums.ParseTripStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown trip status").
			WithDetails(map[string]string{"status": "must be one of " + joinStatuses(enums.TripStatuses())})
	}

	var result *TransitionResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trip, err := repo.FindByIDForUpdate(ctx, input.TripID)
		if err != nil {
			return notFoundOr(err, "load trip")
		}
		from := trip.Status
		if from == target {
			result = &TransitionResult{Trip: trip, From: from}
			return nil
		}
		if err := s.policy.Check(from, target); err != nil {
			if s.metrics != nil {
				s.metrics.ObserveRejected("trip", string(from), string(target))
			}
			return stateConflict(err)
		}

		latest, err := repo.LatestHistory(ctx, trip.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip history")
		}
		now := s.clock()
		if latest != nil && !now.After(latest.ChangedAt) {
			now = latest.ChangedAt.Add(time.Microsecond)
		}

		updates := map[string]any{"status": target, "updated_at": now}
		if target == enums.TripStatusStarted && trip.StartTime == nil {
			updates["start_time"] = now
			trip.StartTime = &now
		}
		if target.Ends() {
			updates["end_time"] = now
			trip.EndTime = &now
		}
		location := strings.TrimSpace(deref(input.Location))
		if location != "" {
			updates["current_location"] = location
			trip.CurrentLocation = &location
		}
		if err := repo.Update(ctx, trip.ID, updates); err != nil {
			return notFoundOr(err, "update trip status")
		}
		trip.Status = target
		trip.UpdatedAt = now

		entry := &models.TripStatusHistory{
			TripID:    trip.ID,
			ToStatus:  target,
			ChangedBy: input.ActorID,
			Remark:    composeRemark(target, location, input.Comment),
			ChangedAt: now,
		}
		if err := repo.InsertHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert trip history")
		}
		result = &TransitionResult{Trip: trip, History: entry, From: from, Changed: true}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripStatusChanged,
			AggregateType: enums.AggregateTrip,
			AggregateID:   trip.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data: outbox.StatusChanged{
				ID:        trip.ID,
				ShortID:   trip.ShortID,
				From:      string(from),
				To:        string(target),
				Remark:    entry.Remark,
				ChangedAt: now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.invalidate(ctx, result.Trip.ID)
		if s.metrics != nil {
			s.metrics.ObserveTransition("trip", string(result.From), string(target))
		}
		s.info(ctx, result.Trip, "trip status changed")
	}
	return result, nil
}

// UpdateLocation patches current_location without touching the status.
func (s *service) UpdateLocation(ctx context.Context, input LocationInput) (*models.Trip, error) {
	location := strings.TrimSpace(input.Location)
	if input.TripID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid location").
			WithDetails(map[string]string{"location": "required"})
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Trip
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		trip, err := repo.FindByIDForUpdate(ctx, input.TripID)
		if err != nil {
			return notFoundOr(err, "load trip")
		}
		if trip.Status.Ends() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "trip is %s", trip.Status)
		}
		now := s.clock()
		if err := repo.Update(ctx, trip.ID, map[string]any{"current_location": location, "updated_at": now}); err != nil {
			return notFoundOr(err, "update trip location")
		}
		trip.CurrentLocation = &location
		trip.UpdatedAt = now
		updated = trip
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripLocationUpdated,
			AggregateType: enums.AggregateTrip,
			AggregateID:   trip.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data:          outbox.TripLocation{TripID: trip.ID, Location: location},
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.ID)
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}
	if s.cache != nil {
		var cached models.Trip
		if hit, err := s.cache.Get(ctx, cache.KindTrip, id, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	trip, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load trip")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.KindTrip, id, trip); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "trip_id", id.String()), "trip cache write failed")
		}
	}
	return trip, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{Filters: params.Filters, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trips")
	}
	result := &ListResult{Items: make([]TripDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, ToDTO(&rows[i]))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]models.TripStatusHistory, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "load trip")
	}
	rows, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trip history")
	}
	return rows, nil
}

// StatementHeader gathers the trip, indent and truck labels printed on a payment statement.
func (s *service) StatementHeader(ctx context.Context, tripID uuid.UUID) (*payments.StatementHeader, error) {
	trip, err := s.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	header := &payments.StatementHeader{
		TripID:      trip.ID,
		TripShortID: trip.ShortID,
		DriverPhone: trip.DriverPhone,
	}
	if indent, err := s.repo.FindIndent(ctx, trip.IndentID); err == nil {
		header.IndentShortID = indent.ShortID
		header.Route = indent.Origin + " to " + indent.Destination
	}
	if truck, err := s.trucks.GetTruck(ctx, trip.TruckID); err == nil {
		header.VehicleNumber = truck.VehicleNumber
	}
	return header, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KindTrip, id); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"trip_id": id.String(), "error": err.Error()}), "trip cache invalidate failed")
	}
}

func (s *service) info(ctx context.Context, trip *models.Trip, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"trip_id":   trip.ID.String(),
		"short_id":  trip.ShortID,
		"indent_id": trip.IndentID.String(),
		"status":    trip.Status,
	}), msg)
}

func composeRemark(status enums.TripStatus, location string, comment *string) string {
	parts := []string{"Status changed to " + string(status)}
	if location != "" {
		parts = append(parts, "Location: "+location)
	}
	if c := strings.TrimSpace(deref(comment)); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " | ")
}

func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func stateConflict(err error) error {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, te.Error()).WithDetails(map[string]any{
			"from":    te.From,
			"to":      te.To,
			"allowed": te.Allowed,
		})
	}
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "status transition not allowed")
}

func joinStatuses(statuses []enums.TripStatus) string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
