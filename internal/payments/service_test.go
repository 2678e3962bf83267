package payments

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/internal/dbtest"
	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type harness struct {
	svc  Service
	conn *gorm.DB
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), emitter, opts)
	require.NoError(t, err)
	return &harness{svc: svc, conn: conn}
}

// seedTrip inserts a trip and its ledger row the way trip assignment does.
func (h *harness) seedTrip(t *testing.T, tripCost int64) uuid.UUID {
	t.Helper()
	trip := models.Trip{
		ShortID:     "TRP-" + uuid.NewString()[:6],
		IndentID:    uuid.New(),
		TruckID:     uuid.New(),
		DriverPhone: "+919876543210",
	}
	require.NoError(t, h.conn.Create(&trip).Error)
	err := h.conn.Transaction(func(tx *gorm.DB) error {
		_, err := h.svc.SeedTx(context.Background(), tx, trip.ID, decimal.NewFromInt(tripCost))
		return err
	})
	require.NoError(t, err)
	return trip.ID
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func strPtr(v string) *string { return &v }

func TestSeedCreatesPendingLedger(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)

	payment, err := h.svc.Get(context.Background(), tripID)
	require.NoError(t, err)
	require.True(t, payment.TripCost.Equal(decimal.NewFromInt(10000)))
	require.Equal(t, enums.PaymentStatusPending, payment.PaymentStatus)

	summary, err := h.svc.Summary(context.Background(), tripID, "")
	require.NoError(t, err)
	require.True(t, summary.Summary.Balance.Equal(decimal.NewFromInt(10000)))
}

func TestUpsertAdvanceLeavesBalance(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)

	payment, err := h.svc.Upsert(context.Background(), tripID, UpsertInput{
		AdvancePayment: dec("3000"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPartial, payment.PaymentStatus)

	summary, err := h.svc.Summary(context.Background(), tripID, "")
	require.NoError(t, err)
	require.True(t, summary.Summary.Balance.Equal(decimal.NewFromInt(7000)), summary.Summary.Balance.String())
	require.True(t, summary.Summary.Cleared.Equal(decimal.NewFromInt(3000)))
	require.Equal(t, "₹7,000.00", summary.Formatted["balance"])

	var events []models.OutboxEvent
	require.NoError(t, h.conn.Find(&events).Error)
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	require.ElementsMatch(t, []enums.OutboxEventType{enums.EventTripPaymentRecorded, enums.EventTripPaymentStatusSet}, types)
}

func TestUpsertKeepsUnsetFields(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)
	ctx := context.Background()

	_, err := h.svc.Upsert(ctx, tripID, UpsertInput{ClientCost: dec("12500"), ActorID: uuid.New()})
	require.NoError(t, err)
	_, err = h.svc.Upsert(ctx, tripID, UpsertInput{TollCharges: dec("450.5"), ActorID: uuid.New()})
	require.NoError(t, err)

	payment, err := h.svc.Get(ctx, tripID)
	require.NoError(t, err)
	require.True(t, payment.TripCost.Equal(decimal.NewFromInt(10000)))
	require.True(t, payment.ClientCost.Equal(decimal.NewFromInt(12500)))
	require.True(t, payment.TollCharges.Equal(decimal.RequireFromString("450.50")))
}

func TestSummaryHaltingModes(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)
	ctx := context.Background()

	_, err := h.svc.Upsert(ctx, tripID, UpsertInput{
		AdvancePayment: dec("3000"),
		HaltingCharges: dec("500"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)

	added, err := h.svc.Summary(ctx, tripID, "")
	require.NoError(t, err)
	require.Equal(t, ledger.HaltingAdd, added.Summary.HaltingMode)
	require.True(t, added.Summary.Balance.Equal(decimal.NewFromInt(7500)))

	deducted, err := h.svc.Summary(ctx, tripID, "deduct")
	require.NoError(t, err)
	require.True(t, deducted.Summary.Balance.Equal(decimal.NewFromInt(6500)))

	_, err = h.svc.Summary(ctx, tripID, "sideways")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestConfiguredDeductModeSettles(t *testing.T) {
	h := newHarness(t, Options{HaltingMode: ledger.HaltingDeduct})
	tripID := h.seedTrip(t, 10000)

	payment, err := h.svc.Upsert(context.Background(), tripID, UpsertInput{
		AdvancePayment: dec("3000"),
		FinalPayment:   dec("6500"),
		HaltingCharges: dec("500"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSettled, payment.PaymentStatus)
}

func TestDisputedIsSticky(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)
	ctx := context.Background()

	payment, err := h.svc.Upsert(ctx, tripID, UpsertInput{PaymentStatus: strPtr("disputed"), ActorID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusDisputed, payment.PaymentStatus)

	payment, err = h.svc.Upsert(ctx, tripID, UpsertInput{AdvancePayment: dec("10000"), ActorID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusDisputed, payment.PaymentStatus)
}

func TestUpsertValidation(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)
	ctx := context.Background()

	_, err := h.svc.Upsert(ctx, tripID, UpsertInput{AdvancePayment: dec("-1"), ActorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, map[string]string{"advance_payment": "must not be negative"}, pkgerrors.As(err).Details())

	_, err = h.svc.Upsert(ctx, tripID, UpsertInput{PaymentStatus: strPtr("refunded"), ActorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Upsert(ctx, uuid.New(), UpsertInput{AdvancePayment: dec("1"), ActorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Upsert(ctx, tripID, UpsertInput{AdvancePayment: dec("1")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	payment, err := h.svc.Get(ctx, tripID)
	require.NoError(t, err)
	require.True(t, payment.AdvancePayment.IsZero())
}

func TestGetMissingLedger(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestStatementRendersPDF(t *testing.T) {
	h := newHarness(t, Options{})
	tripID := h.seedTrip(t, 10000)
	ctx := context.Background()

	_, err := h.svc.Upsert(ctx, tripID, UpsertInput{
		AdvancePayment: dec("3000"),
		Notes:          strPtr("advance paid at loading point"),
		ActorID:        uuid.New(),
	})
	require.NoError(t, err)

	pdf, err := h.svc.Statement(ctx, tripID, "")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestPDFAmount(t *testing.T) {
	require.Equal(t, "Rs. 1,23,456.00", pdfAmount(decimal.NewFromInt(123456)))
	require.Equal(t, "-Rs. 250.00", pdfAmount(decimal.NewFromInt(-250)))
}

func TestNewServiceRejectsUnknownHaltingMode(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewService(NewRepository(conn), db.NewFromConn(conn), outbox.NewService(outbox.NewRepository(conn), nil), Options{HaltingMode: "double"})
	require.Error(t, err)
}

type downCache struct{}

func (downCache) Get(context.Context, string, uuid.UUID, any) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (downCache) Set(context.Context, string, uuid.UUID, any) error {
	return errors.New("redis: connection refused")
}

func (downCache) Invalidate(context.Context, string, uuid.UUID) error {
	return errors.New("redis: connection refused")
}

func TestCacheFailuresAreLoggedNotReturned(t *testing.T) {
	var logs bytes.Buffer
	h := newHarness(t, Options{
		Cache:  downCache{},
		Logger: logger.New(logger.Options{ServiceName: "payments-test", Output: &logs}),
	})
	tripID := h.seedTrip(t, 10000)
	ctx := context.Background()

	payment, err := h.svc.Get(ctx, tripID)
	require.NoError(t, err)
	require.Equal(t, tripID, payment.TripID)

	_, err = h.svc.Upsert(ctx, tripID, UpsertInput{AdvancePayment: dec("1000"), ActorID: uuid.New()})
	require.NoError(t, err)

	out := logs.String()
	for _, msg := range []string{"payment cache read failed", "payment cache write failed", "payment cache invalidate failed"} {
		require.Contains(t, out, msg)
	}
	require.Contains(t, out, tripID.String())
}
