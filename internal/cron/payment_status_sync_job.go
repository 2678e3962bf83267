package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/internal/cache"
	"github.com/freightdesk/freightdesk-backend/internal/payments"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
)

const defaultSyncBatch = 200

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, kind string, id uuid.UUID) error
}

type PaymentStatusSyncJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  payments.Repository
	Outbox      outboxEmitter
	Cache       cacheInvalidator
	HaltingMode ledger.HaltingMode
	BatchSize   int
}

// NewPaymentStatusSyncJob re-derives payment_status for every ledger that is not
// Disputed and persists the rows whose status drifted from their figures.
func NewPaymentStatusSyncJob(params PaymentStatusSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	mode := params.HaltingMode
	if mode == "" {
		mode = ledger.HaltingAdd
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSyncBatch
	}
	return &paymentStatusSyncJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		cache:  params.Cache,
		mode:   mode,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type paymentStatusSyncJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   payments.Repository
	outbox outboxEmitter
	cache  cacheInvalidator
	mode   ledger.HaltingMode
	batch  int
	now    func() time.Time
}

func (j *paymentStatusSyncJob) Name() string { return "payment-status-sync" }

// Run walks the ledgers in trip_id order. A failing row is recorded and skipped.
func (j *paymentStatusSyncJob) Run(ctx context.Context) (Report, error) {
	var (
		errs    error
		scanned int
		changed int64
		after   = uuid.Nil
	)
	for {
		rows, err := j.repo.ListSyncable(ctx, after, j.batch)
		if err != nil {
			return Report{Rows: changed}, multierr.Append(errs, fmt.Errorf("list payments: %w", err))
		}
		for _, row := range rows {
			scanned++
			ok, err := j.sync(ctx, row)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("trip %s: %w", row.TripID, err))
				continue
			}
			if ok {
				changed++
			}
		}
		if len(rows) < j.batch {
			break
		}
		after = rows[len(rows)-1].TripID
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned": scanned,
		"changed": changed,
		"failed":  len(multierr.Errors(errs)),
	}), "payment status sync complete")
	return Report{Rows: changed}, errs
}

// sync re-reads the row under lock so a status set by an admin after the
// listing (Disputed in particular) is what the decision is made on.
func (j *paymentStatusSyncJob) sync(ctx context.Context, row models.TripPayment) (bool, error) {
	if ledger.DeriveStatus(row.Ledger(), j.mode, row.PaymentStatus) == row.PaymentStatus {
		return false, nil
	}
	var changed bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		current, err := repo.FindForUpdate(ctx, row.TripID)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		derived := ledger.DeriveStatus(current.Ledger(), j.mode, current.PaymentStatus)
		if derived == current.PaymentStatus {
			return nil
		}
		if err := repo.UpdateStatus(ctx, current.TripID, derived); err != nil {
			return err
		}
		changed = true
		summary := ledger.Summarize(current.Ledger(), j.mode)
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripPaymentStatusSet,
			AggregateType: enums.AggregateTripPayment,
			AggregateID:   current.TripID,
			Data: outbox.PaymentRecorded{
				TripID:        current.TripID,
				PaymentStatus: derived,
				Balance:       summary.Balance.StringFixed(2),
				Cleared:       summary.Cleared.StringFixed(2),
			},
			OccurredAt: j.now().UTC(),
		})
	})
	if err != nil || !changed {
		return false, err
	}
	if j.cache != nil {
		if err := j.cache.Invalidate(ctx, cache.KindPayment, row.TripID); err != nil {
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
				"trip_id": row.TripID.String(),
				"error":   err.Error(),
			}), "payment cache invalidate failed")
		}
	}
	return true, nil
}
