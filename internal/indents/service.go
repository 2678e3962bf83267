package indents

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

const createdRemark = "Indent created"

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

// FeedNotifier receives committed indent writes for the load board.
type FeedNotifier interface {
	IndentCreated(ctx context.Context, indent *models.Indent)
	IndentUpdated(ctx context.Context, indent *models.Indent)
}

type transitionRecorder interface {
	ObserveTransition(entity, from, to string)
	ObserveRejected(entity, from, to string)
}

// Service defines the indent lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Indent, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Indent, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Indent, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListBoard(ctx context.Context) ([]models.Indent, error)
	History(ctx context.Context, id uuid.UUID) ([]models.IndentStatusHistory, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput) (*TransitionResult, error)
	AfterTransition(ctx context.Context, result *TransitionResult)
}

// Options carries the optional collaborators of the service.
type Options struct {
	Policy  *lifecycle.Policy[enums.IndentStatus]
	IDs     *shortid.Generator
	Cache   entityCache
	Feed    FeedNotifier
	Metrics transitionRecorder
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	policy  lifecycle.Policy[enums.IndentStatus]
	ids     *shortid.Generator
	cache   entityCache
	feed    FeedNotifier
	metrics transitionRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the indent service. Without a policy the default transition table applies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("indents repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	s := &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		policy:  lifecycle.NewPolicy(lifecycle.DefaultIndentTable()),
		ids:     opts.IDs,
		cache:   opts.Cache,
		feed:    opts.Feed,
		metrics: opts.Metrics,
		logg:    opts.Logger,
		now:     opts.Now,
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

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Indent, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if fields := validateCreate(&input); len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid indent").WithDetails(fields)
	}
	short, err := s.ids.Indent()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate short id")
	}

	now := s.clock()
	indent := &models.Indent{
		ShortID:      short,
		ClientID:     input.ClientID,
		Origin:       strings.TrimSpace(input.Origin),
		Destination:  strings.TrimSpace(input.Destination),
		VehicleType:  strings.TrimSpace(input.VehicleType),
		TripCost:     input.TripCost,
		TATHours:     input.TATHours,
		LoadMaterial: strings.TrimSpace(input.LoadMaterial),
		LoadWeightKg: input.LoadWeightKg,
		PickupAt:     input.PickupAt.UTC(),
		ContactPhone: formats.NormalizePhone(input.ContactPhone),
		Status:       enums.IndentStatusOpen,
		CreatedBy:    input.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, indent); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "indent short id already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create indent")
		}
		entry := &models.IndentStatusHistory{
			IndentID:  indent.ID,
			ToStatus:  enums.IndentStatusOpen,
			ChangedBy: input.ActorID,
			Remark:    createdRemark,
			ChangedAt: now,
		}
		if err := repo.InsertHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert indent history")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventIndentCreated,
			AggregateType: enums.AggregateIndent,
			AggregateID:   indent.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data:          snapshot(indent),
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.IndentCreated(ctx, indent)
	}
	s.info(ctx, indent, "indent created")
	return indent, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Indent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "indent id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Indent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		indent, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "load indent")
		}
		if isClosed(indent.Status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "indent is %s and can no longer be edited", indent.Status)
		}

		updates, fields := applyUpdate(indent, input)
		if len(fields) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid indent").WithDetails(fields)
		}
		if len(updates) == 0 {
			updated = indent
			return nil
		}
		now := s.clock()
		updates["updated_at"] = now
		indent.UpdatedAt = now
		if err := repo.Update(ctx, indent.ID, updates); err != nil {
			return notFoundOr(err, "update indent")
		}
		updated = indent
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventIndentUpdated,
			AggregateType: enums.AggregateIndent,
			AggregateID:   indent.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data:          snapshot(indent),
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.ID)
	if s.feed != nil {
		s.feed.IndentUpdated(ctx, updated)
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Indent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "indent id required")
	}
	if s.cache != nil {
		var cached models.Indent
		hit, err := s.cache.Get(ctx, cache.KindIndent, id, &cached)
		if err == nil && hit {
			return &cached, nil
		}
		if err != nil {
			s.warn(ctx, id, "indent cache read failed", err)
		}
	}

	indent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load indent")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.KindIndent, id, indent); err != nil {
			s.warn(ctx, id, "indent cache write failed", err)
		}
	}
	return indent, nil
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list indents")
	}
	result := &ListResult{Items: make([]IndentDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, ToDTO(&rows[i]))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// ListBoard returns every indent currently visible on the load board.
func (s *service) ListBoard(ctx context.Context) ([]models.Indent, error) {
	rows, err := s.repo.ListByStatuses(ctx, []enums.IndentStatus{enums.IndentStatusOpen, enums.IndentStatusConfirmation})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list board indents")
	}
	return rows, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]models.IndentStatusHistory, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "indent id required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "load indent")
	}
	rows, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list indent history")
	}
	return rows, nil
}

// Transition moves an indent to a new status in its own transaction.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.TransitionTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.AfterTransition(ctx, result)
	return result, nil
}

// TransitionTx performs the transition inside tx. Callers must invoke
// AfterTransition once tx has committed.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput) (*TransitionResult, error) {
	if input.IndentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "indent id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	target, err := enums.ParseIndentStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown indent status").
			WithDetails(map[string]string{"status": "must be one of " + joinStatuses(enums.IndentStatuses())})
	}

	repo := s.repo.WithTx(tx)
	indent, err := repo.FindByIDForUpdate(ctx, input.IndentID)
	if err != nil {
		return nil, notFoundOr(err, "load indent")
	}
	from := indent.Status
	if from == target {
		return &TransitionResult{Indent: indent, From: from}, nil
	}

	vehicle, driver, fields := resolveVehicle(indent, target, input)
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle details required").WithDetails(fields)
	}
	if err := s.policy.Check(from, target); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveRejected("indent", string(from), string(target))
		}
		return nil, stateConflict(err)
	}

	latest, err := repo.LatestHistory(ctx, indent.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load indent history")
	}
	now := s.clock()
	if latest != nil && !now.After(latest.ChangedAt) {
		now = latest.ChangedAt.Add(time.Microsecond)
	}

	updates := map[string]any{"status": target, "updated_at": now}
	if vehicle != "" {
		updates["vehicle_number"] = vehicle
		indent.VehicleNumber = &vehicle
	}
	if driver != "" {
		updates["driver_phone"] = driver
		indent.DriverPhone = &driver
	}
	if err := repo.Update(ctx, indent.ID, updates); err != nil {
		return nil, notFoundOr(err, "update indent status")
	}
	indent.Status = target
	indent.UpdatedAt = now

	entry := &models.IndentStatusHistory{
		IndentID:  indent.ID,
		ToStatus:  target,
		ChangedBy: input.ActorID,
		Remark:    composeRemark(target, vehicle, driver, input.Comment),
		ChangedAt: now,
	}
	if err := repo.InsertHistory(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert indent history")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventIndentStatusChanged,
		AggregateType: enums.AggregateIndent,
		AggregateID:   indent.ID,
		Actor:         &outbox.ActorRef{UserID: input.ActorID},
		Data: outbox.StatusChanged{
			ID:        indent.ID,
			ShortID:   indent.ShortID,
			From:      string(from),
			To:        string(target),
			Remark:    entry.Remark,
			ChangedAt: now,
		},
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Indent: indent, History: entry, From: from, Changed: true}, nil
}

// AfterTransition runs the post-commit side effects of a transition.
func (s *service) AfterTransition(ctx context.Context, result *TransitionResult) {
	if result == nil || !result.Changed {
		return
	}
	s.invalidate(ctx, result.Indent.ID)
	if s.feed != nil {
		s.feed.IndentUpdated(ctx, result.Indent)
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition("indent", string(result.From), string(result.Indent.Status))
	}
	s.info(ctx, result.Indent, "indent status changed")
}

// clock returns now in UTC at the precision postgres stores.
func (s *service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KindIndent, id); err != nil {
		s.warn(ctx, id, "indent cache invalidate failed", err)
	}
}

func (s *service) info(ctx context.Context, indent *models.Indent, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"indent_id": indent.ID.String(),
		"short_id":  indent.ShortID,
		"status":    indent.Status,
	}), msg)
}

func (s *service) warn(ctx context.Context, id uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"indent_id": id.String(), "error": err.Error()}), msg)
}

// resolveVehicle normalizes the vehicle details of a transition. Statuses that
// need a vehicle fall back to the stored values when the request omits them.
func resolveVehicle(indent *models.Indent, target enums.IndentStatus, input TransitionInput) (string, string, map[string]string) {
	vehicle := formats.NormalizeVehicleNumber(deref(input.VehicleNumber))
	driver := formats.NormalizePhone(deref(input.DriverPhone))
	if target.RequiresVehicle() {
		if vehicle == "" {
			vehicle = formats.NormalizeVehicleNumber(deref(indent.VehicleNumber))
		}
		if driver == "" {
			driver = formats.NormalizePhone(deref(indent.DriverPhone))
		}
	}

	fields := map[string]string{}
	if (target.RequiresVehicle() || vehicle != "") && !formats.VehicleNumber(vehicle) {
		fields["vehicle_number"] = "must be a valid vehicle registration number"
	}
	if (target.RequiresVehicle() || driver != "") && !formats.Phone(driver) {
		fields["driver_phone"] = "must be a 10 digit phone number"
	}
	return vehicle, driver, fields
}

func composeRemark(status enums.IndentStatus, vehicle, driver string, comment *string) string {
	parts := []string{"Status changed to " + string(status)}
	if vehicle != "" {
		parts = append(parts, "Vehicle: "+vehicle)
	}
	if driver != "" {
		parts = append(parts, "Driver: "+driver)
	}
	if c := strings.TrimSpace(deref(comment)); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " | ")
}

func validateCreate(input *CreateInput) map[string]string {
	fields := map[string]string{}
	if input.ClientID == uuid.Nil {
		fields["client_id"] = "required"
	}
	if strings.TrimSpace(input.Origin) == "" {
		fields["origin"] = "required"
	}
	if strings.TrimSpace(input.Destination) == "" {
		fields["destination"] = "required"
	}
	if strings.TrimSpace(input.VehicleType) == "" {
		fields["vehicle_type"] = "required"
	}
	if input.TripCost.IsNegative() {
		fields["trip_cost"] = "must not be negative"
	}
	if input.TATHours < 0 {
		fields["tat_hours"] = "must not be negative"
	}
	if input.LoadWeightKg.IsNegative() {
		fields["load_weight_kg"] = "must not be negative"
	}
	if input.PickupAt.IsZero() {
		fields["pickup_at"] = "required"
	}
	if !formats.Phone(input.ContactPhone) {
		fields["contact_phone"] = "must be a 10 digit phone number"
	}
	return fields
}

// applyUpdate copies the set fields onto indent and returns the column patch.
func applyUpdate(indent *models.Indent, input UpdateInput) (map[string]any, map[string]string) {
	updates := map[string]any{}
	fields := map[string]string{}

	text := func(column string, value *string, dst *string) {
		if value == nil {
			return
		}
		v := strings.TrimSpace(*value)
		if v == "" {
			fields[column] = "required"
			return
		}
		*dst = v
		updates[column] = v
	}
	money := func(column string, value *decimal.Decimal, dst *decimal.Decimal) {
		if value == nil {
			return
		}
		if value.IsNegative() {
			fields[column] = "must not be negative"
			return
		}
		*dst = *value
		updates[column] = *value
	}

	text("origin", input.Origin, &indent.Origin)
	text("destination", input.Destination, &indent.Destination)
	text("vehicle_type", input.VehicleType, &indent.VehicleType)
	money("trip_cost", input.TripCost, &indent.TripCost)
	money("load_weight_kg", input.LoadWeightKg, &indent.LoadWeightKg)

	if input.LoadMaterial != nil {
		indent.LoadMaterial = strings.TrimSpace(*input.LoadMaterial)
		updates["load_material"] = indent.LoadMaterial
	}
	if input.TATHours != nil {
		if *input.TATHours < 0 {
			fields["tat_hours"] = "must not be negative"
		} else {
			indent.TATHours = *input.TATHours
			updates["tat_hours"] = *input.TATHours
		}
	}
	if input.PickupAt != nil {
		if input.PickupAt.IsZero() {
			fields["pickup_at"] = "required"
		} else {
			indent.PickupAt = input.PickupAt.UTC()
			updates["pickup_at"] = indent.PickupAt
		}
	}
	if input.ContactPhone != nil {
		if !formats.Phone(*input.ContactPhone) {
			fields["contact_phone"] = "must be a 10 digit phone number"
		} else {
			indent.ContactPhone = formats.NormalizePhone(*input.ContactPhone)
			updates["contact_phone"] = indent.ContactPhone
		}
	}
	return updates, fields
}

func snapshot(indent *models.Indent) outbox.IndentSnapshot {
	return outbox.IndentSnapshot{
		ID:          indent.ID,
		ShortID:     indent.ShortID,
		ClientID:    indent.ClientID,
		Origin:      indent.Origin,
		Destination: indent.Destination,
		Status:      indent.Status,
		TripCost:    indent.TripCost.StringFixed(2),
		PickupAt:    indent.PickupAt,
	}
}

func isClosed(status enums.IndentStatus) bool {
	switch status {
	case enums.IndentStatusCompleted, enums.IndentStatusCancelled, enums.IndentStatusFailed:
		return true
	}
	return false
}

func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "indent not found")
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

func joinStatuses(statuses []enums.IndentStatus) string {
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
