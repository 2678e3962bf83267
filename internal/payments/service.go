package payments

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
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
)

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

// Service owns the trip payment ledgers.
type Service interface {
	SeedTx(ctx context.Context, tx *gorm.DB, tripID uuid.UUID, tripCost decimal.Decimal) (*models.TripPayment, error)
	Upsert(ctx context.Context, tripID uuid.UUID, input UpsertInput) (*models.TripPayment, error)
	Get(ctx context.Context, tripID uuid.UUID) (*models.TripPayment, error)
	Summary(ctx context.Context, tripID uuid.UUID, halting string) (*SummaryDTO, error)
	Statement(ctx context.Context, tripID uuid.UUID, halting string) ([]byte, error)
	HaltingMode() ledger.HaltingMode
}

type Options struct {
	HaltingMode ledger.HaltingMode
	Cache       entityCache
	Trips       TripLookup
	Logger      *logger.Logger
	Now         func() time.Time
}

// TripLookup supplies the trip header printed on statements.
type TripLookup interface {
	StatementHeader(ctx context.Context, tripID uuid.UUID) (*StatementHeader, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	mode   ledger.HaltingMode
	cache  entityCache
	trips  TripLookup
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	mode := opts.HaltingMode
	if mode == "" {
		mode = ledger.HaltingAdd
	}
	if _, err := ledger.ParseHaltingMode(string(mode)); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		mode:   mode,
		cache:  opts.Cache,
		trips:  opts.Trips,
		logg:   opts.Logger,
		now:    now,
	}, nil
}

func (s *service) HaltingMode() ledger.HaltingMode {
	return s.mode
}

// SeedTx creates the ledger row of a new trip with its agreed trip cost.
func (s *service) SeedTx(ctx context.Context, tx *gorm.DB, tripID uuid.UUID, tripCost decimal.Decimal) (*models.TripPayment, error) {
	now := s.now().UTC()
	payment := &models.TripPayment{
		TripID:        tripID,
		TripCost:      tripCost,
		PaymentStatus: enums.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.WithTx(tx).Upsert(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed trip payment")
	}
	return payment, nil
}

func (s *service) Upsert(ctx context.Context, tripID uuid.UUID, input UpsertInput) (*models.TripPayment, error) {
	if tripID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	var manual *enums.PaymentStatus
	if input.PaymentStatus != nil && strings.TrimSpace(*input.PaymentStatus) != "" {
		parsed, err := enums.ParsePaymentStatus(*input.PaymentStatus)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		manual = &parsed
	}

	var saved *models.TripPayment
	var statusChanged bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.TripExists(ctx, tripID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}

		now := s.now().UTC()
		payment, err := repo.FindForUpdate(ctx, tripID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip payment")
		}
		if payment == nil {
			payment = &models.TripPayment{TripID: tripID, PaymentStatus: enums.PaymentStatusPending, CreatedAt: now}
		}
		previous := payment.PaymentStatus

		if fields := applyInput(payment, input); len(fields) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment").WithDetails(fields)
		}
		if manual != nil {
			payment.PaymentStatus = *manual
		} else {
			payment.PaymentStatus = ledger.DeriveStatus(payment.Ledger(), s.mode, payment.PaymentStatus)
		}
		payment.UpdatedAt = now

		if err := repo.Upsert(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert trip payment")
		}
		saved = payment
		statusChanged = previous != payment.PaymentStatus

		summary := ledger.Summarize(payment.Ledger(), s.mode)
		data := outbox.PaymentRecorded{
			TripID:        tripID,
			PaymentStatus: payment.PaymentStatus,
			Balance:       summary.Balance.StringFixed(2),
			Cleared:       summary.Cleared.StringFixed(2),
		}
		actor := &outbox.ActorRef{UserID: input.ActorID}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripPaymentRecorded,
			AggregateType: enums.AggregateTripPayment,
			AggregateID:   tripID,
			Actor:         actor,
			Data:          data,
			OccurredAt:    now,
		}); err != nil {
			return err
		}
		if !statusChanged {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripPaymentStatusSet,
			AggregateType: enums.AggregateTripPayment,
			AggregateID:   tripID,
			Actor:         actor,
			Data:          data,
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.KindPayment, tripID); err != nil {
			s.warn(ctx, tripID, "payment cache invalidate failed", err)
		}
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"trip_id":        tripID.String(),
			"payment_status": saved.PaymentStatus,
			"status_changed": statusChanged,
		}), "trip payment recorded")
	}
	return saved, nil
}

func (s *service) Get(ctx context.Context, tripID uuid.UUID) (*models.TripPayment, error) {
	if tripID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip id required")
	}
	if s.cache != nil {
		var cached models.TripPayment
		hit, err := s.cache.Get(ctx, cache.KindPayment, tripID, &cached)
		if err != nil {
			s.warn(ctx, tripID, "payment cache read failed", err)
		} else if hit {
			return &cached, nil
		}
	}
	payment, err := s.repo.Find(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip payment")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.KindPayment, tripID, payment); err != nil {
			s.warn(ctx, tripID, "payment cache write failed", err)
		}
	}
	return payment, nil
}

// Summary returns the ledger with derived figures. halting overrides the configured sign when set.
func (s *service) Summary(ctx context.Context, tripID uuid.UUID, halting string) (*SummaryDTO, error) {
	mode, err := s.resolveMode(halting)
	if err != nil {
		return nil, err
	}
	payment, err := s.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	dto := NewSummaryDTO(payment, mode)
	return &dto, nil
}

func (s *service) Statement(ctx context.Context, tripID uuid.UUID, halting string) ([]byte, error) {
	mode, err := s.resolveMode(halting)
	if err != nil {
		return nil, err
	}
	payment, err := s.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	header := &StatementHeader{TripID: tripID}
	if s.trips != nil {
		if h, err := s.trips.StatementHeader(ctx, tripID); err == nil && h != nil {
			header = h
		}
	}
	pdf, err := renderStatement(*header, payment, mode, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render statement")
	}
	return pdf, nil
}

func (s *service) warn(ctx context.Context, tripID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"trip_id": tripID.String(), "error": err.Error()}), msg)
}

func (s *service) resolveMode(halting string) (ledger.HaltingMode, error) {
	if strings.TrimSpace(halting) == "" {
		return s.mode, nil
	}
	mode, err := ledger.ParseHaltingMode(halting)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid halting mode")
	}
	return mode, nil
}

// applyInput copies the set fields onto p, rejecting negative amounts.
func applyInput(p *models.TripPayment, in UpsertInput) map[string]string {
	fields := map[string]string{}
	set := func(name string, src *decimal.Decimal, dst *decimal.Decimal) {
		if src == nil {
			return
		}
		if src.IsNegative() {
			fields[name] = "must not be negative"
			return
		}
		*dst = src.Round(2)
	}
	set("trip_cost", in.TripCost, &p.TripCost)
	set("client_cost", in.ClientCost, &p.ClientCost)
	set("advance_payment", in.AdvancePayment, &p.AdvancePayment)
	set("final_payment", in.FinalPayment, &p.FinalPayment)
	set("toll_charges", in.TollCharges, &p.TollCharges)
	set("halting_charges", in.HaltingCharges, &p.HaltingCharges)
	set("traffic_fines", in.TrafficFines, &p.TrafficFines)
	set("handling_charges", in.HandlingCharges, &p.HandlingCharges)
	set("platform_fees", in.PlatformFees, &p.PlatformFees)
	set("platform_fines", in.PlatformFines, &p.PlatformFines)

	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if notes == "" {
			p.Notes = nil
		} else {
			p.Notes = &notes
		}
	}
	return fields
}
