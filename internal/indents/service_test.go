package indents

import (
	"context"
	"sync"
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
	"github.com/freightdesk/freightdesk-backend/pkg/lifecycle"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
)

type feedRecorder struct {
	mu      sync.Mutex
	created []uuid.UUID
	updated []enums.IndentStatus
}

func (f *feedRecorder) IndentCreated(_ context.Context, indent *models.Indent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, indent.ID)
}

func (f *feedRecorder) IndentUpdated(_ context.Context, indent *models.Indent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, indent.Status)
}

type metricsRecorder struct {
	applied  []string
	rejected []string
}

func (m *metricsRecorder) ObserveTransition(entity, from, to string) {
	m.applied = append(m.applied, entity+":"+from+"->"+to)
}

func (m *metricsRecorder) ObserveRejected(entity, from, to string) {
	m.rejected = append(m.rejected, entity+":"+from+"->"+to)
}

type memoryCache struct {
	entries     map[uuid.UUID]models.Indent
	invalidated []uuid.UUID
}

func (c *memoryCache) Get(_ context.Context, _ string, id uuid.UUID, dst any) (bool, error) {
	v, ok := c.entries[id]
	if !ok {
		return false, nil
	}
	*(dst.(*models.Indent)) = v
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, _ string, id uuid.UUID, value any) error {
	c.entries[id] = *(value.(*models.Indent))
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, _ string, id uuid.UUID) error {
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type harness struct {
	svc     Service
	conn    *gorm.DB
	feed    *feedRecorder
	metrics *metricsRecorder
	cache   *memoryCache
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	h := &harness{
		conn:    conn,
		feed:    &feedRecorder{},
		metrics: &metricsRecorder{},
		cache:   &memoryCache{entries: map[uuid.UUID]models.Indent{}},
	}
	opts.Feed = h.feed
	opts.Metrics = h.metrics
	opts.Cache = h.cache
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), emitter, opts)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) create(t *testing.T) *models.Indent {
	t.Helper()
	indent, err := h.svc.Create(context.Background(), CreateInput{
		ClientID:     uuid.New(),
		Origin:       "Pune",
		Destination:  "Chennai",
		VehicleType:  "32ft MXL",
		TripCost:     decimal.NewFromInt(10000),
		TATHours:     48,
		LoadMaterial: "Steel coils",
		LoadWeightKg: decimal.NewFromInt(18000),
		PickupAt:     fixedNow.Add(24 * time.Hour),
		ContactPhone: "+91 98765 43210",
		ActorID:      uuid.New(),
	})
	require.NoError(t, err)
	return indent
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(model).Count(&n).Error)
	return n
}

func strPtr(v string) *string { return &v }

func TestCreateWritesIndentHistoryAndEvent(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)

	require.Regexp(t, `^IND-[A-Z2-9]{6}$`, indent.ShortID)
	require.Equal(t, enums.IndentStatusOpen, indent.Status)
	require.Equal(t, "9876543210", indent.ContactPhone)

	history, err := h.svc.History(context.Background(), indent.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Indent created", history[0].Remark)
	require.Equal(t, enums.IndentStatusOpen, history[0].ToStatus)

	var events []models.OutboxEvent
	require.NoError(t, h.conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventIndentCreated, events[0].EventType)
	require.Equal(t, []uuid.UUID{indent.ID}, h.feed.created)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.svc.Create(context.Background(), CreateInput{
		ClientID:     uuid.New(),
		Origin:       "Pune",
		TripCost:     decimal.NewFromInt(-1),
		ContactPhone: "12345",
		ActorID:      uuid.New(),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	require.Contains(t, details, "destination")
	require.Contains(t, details, "trip_cost")
	require.Contains(t, details, "contact_phone")
	require.Zero(t, h.count(t, &models.Indent{}))
}

func TestTransitionSameStatusWritesNothing(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	historyBefore := h.count(t, &models.IndentStatusHistory{})
	eventsBefore := h.count(t, &models.OutboxEvent{})

	res, err := h.svc.Transition(context.Background(), TransitionInput{
		IndentID: indent.ID,
		Status:   "open",
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Nil(t, res.History)
	require.Equal(t, historyBefore, h.count(t, &models.IndentStatusHistory{}))
	require.Equal(t, eventsBefore, h.count(t, &models.OutboxEvent{}))
	require.Empty(t, h.feed.updated)
	require.Empty(t, h.metrics.applied)
}

func TestTransitionRequiresVehicleDetails(t *testing.T) {
	cases := map[string]TransitionInput{
		"missing both":   {},
		"bad vehicle":    {VehicleNumber: strPtr("MH-12"), DriverPhone: strPtr("9876543210")},
		"bad phone":      {VehicleNumber: strPtr("MH12AB1234"), DriverPhone: strPtr("98765")},
		"missing driver": {VehicleNumber: strPtr("MH12AB1234")},
	}
	for _, target := range []string{"vehicle_placed", "pending", "cancelled", "failed"} {
		for name, input := range cases {
			t.Run(target+"/"+name, func(t *testing.T) {
				h := newHarness(t, Options{})
				indent := h.create(t)
				historyBefore := h.count(t, &models.IndentStatusHistory{})

				input.IndentID = indent.ID
				input.ActorID = uuid.New()
				input.Status = target
				_, err := h.svc.Transition(context.Background(), input)
				require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

				stored, err := NewRepository(h.conn).FindByID(context.Background(), indent.ID)
				require.NoError(t, err)
				require.Equal(t, enums.IndentStatusOpen, stored.Status)
				require.Equal(t, historyBefore, h.count(t, &models.IndentStatusHistory{}))
			})
		}
	}
}

func TestTransitionStoresVehicleAndComposesRemark(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)

	res, err := h.svc.Transition(context.Background(), TransitionInput{
		IndentID:      indent.ID,
		Status:        "vehicle_placed",
		ActorID:       uuid.New(),
		VehicleNumber: strPtr("mh 12-ab 1234"),
		DriverPhone:   strPtr("09876543210"),
		Comment:       strPtr(" truck at dock "),
	})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "Status changed to vehicle_placed | Vehicle: MH12AB1234 | Driver: 9876543210 | truck at dock", res.History.Remark)

	stored, err := NewRepository(h.conn).FindByID(context.Background(), indent.ID)
	require.NoError(t, err)
	require.Equal(t, enums.IndentStatusVehiclePlaced, stored.Status)
	require.Equal(t, "MH12AB1234", *stored.VehicleNumber)
	require.Equal(t, "9876543210", *stored.DriverPhone)

	require.Equal(t, []enums.IndentStatus{enums.IndentStatusVehiclePlaced}, h.feed.updated)
	require.Equal(t, []string{"indent:open->vehicle_placed"}, h.metrics.applied)
	require.Contains(t, h.cache.invalidated, indent.ID)

	var event models.OutboxEvent
	require.NoError(t, h.conn.Where("event_type = ?", enums.EventIndentStatusChanged).First(&event).Error)
	env, err := outbox.DecodeEnvelope(event.Payload)
	require.NoError(t, err)
	require.Contains(t, string(env.Data), `"to":"vehicle_placed"`)
}

func TestTransitionFallsBackToStoredVehicle(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, TransitionInput{
		IndentID: indent.ID, Status: "vehicle_placed", ActorID: uuid.New(),
		VehicleNumber: strPtr("KA01AB1"), DriverPhone: strPtr("9123456780"),
	})
	require.NoError(t, err)

	res, err := h.svc.Transition(ctx, TransitionInput{IndentID: indent.ID, Status: "completed", ActorID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, enums.IndentStatusCompleted, res.Indent.Status)
	require.Equal(t, "Status changed to completed | Vehicle: KA01AB1 | Driver: 9123456780", res.History.Remark)
}

func TestTransitionRejectsIllegalMoveWithoutWrites(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()
	_, err := h.svc.Transition(ctx, TransitionInput{
		IndentID: indent.ID, Status: "cancelled", ActorID: uuid.New(),
		VehicleNumber: strPtr("KA01AB1"), DriverPhone: strPtr("9123456780"),
	})
	require.NoError(t, err)
	historyBefore := h.count(t, &models.IndentStatusHistory{})
	eventsBefore := h.count(t, &models.OutboxEvent{})

	_, err = h.svc.Transition(ctx, TransitionInput{IndentID: indent.ID, Status: "open", ActorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, "cancelled", details["from"])
	require.Equal(t, "open", details["to"])

	require.Equal(t, historyBefore, h.count(t, &models.IndentStatusHistory{}))
	require.Equal(t, eventsBefore, h.count(t, &models.OutboxEvent{}))
	require.Equal(t, []string{"indent:cancelled->open"}, h.metrics.rejected)
}

func TestPermissivePolicyAllowsAnyMove(t *testing.T) {
	policy := lifecycle.Permissive[enums.IndentStatus]()
	h := newHarness(t, Options{Policy: &policy})
	indent := h.create(t)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, TransitionInput{
		IndentID: indent.ID, Status: "completed", ActorID: uuid.New(),
		VehicleNumber: strPtr("KA01AB1"), DriverPhone: strPtr("9123456780"),
	})
	require.NoError(t, err)
	res, err := h.svc.Transition(ctx, TransitionInput{IndentID: indent.ID, Status: "open", ActorID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, enums.IndentStatusOpen, res.Indent.Status)
}

func TestHistoryReadsBackNewestFirst(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()

	steps := []TransitionInput{
		{Status: "confirmation"},
		{Status: "open"},
		{Status: "confirmation"},
		{Status: "assigned", VehicleNumber: strPtr("TN09BC4455"), DriverPhone: strPtr("9000000001")},
		{Status: "delivered"},
	}
	for _, step := range steps {
		step.IndentID = indent.ID
		step.ActorID = uuid.New()
		_, err := h.svc.Transition(ctx, step)
		require.NoError(t, err)
	}

	history, err := h.svc.History(ctx, indent.ID)
	require.NoError(t, err)
	require.Len(t, history, len(steps)+1)

	want := []enums.IndentStatus{
		enums.IndentStatusCompleted,
		enums.IndentStatusVehiclePlaced,
		enums.IndentStatusConfirmation,
		enums.IndentStatusOpen,
		enums.IndentStatusConfirmation,
		enums.IndentStatusOpen,
	}
	for i, entry := range history {
		require.Equal(t, want[i], entry.ToStatus, "entry %d", i)
		if i > 0 {
			require.True(t, history[i-1].ChangedAt.After(entry.ChangedAt), "changed_at must strictly decrease")
		}
	}

	current, err := NewRepository(h.conn).FindByID(ctx, indent.ID)
	require.NoError(t, err)
	require.Equal(t, current.Status, history[0].ToStatus)
}

func TestDuplicateTransitionDoesNotGrowHistory(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()
	input := TransitionInput{IndentID: indent.ID, Status: "confirmation", ActorID: uuid.New()}

	first, err := h.svc.Transition(ctx, input)
	require.NoError(t, err)
	require.True(t, first.Changed)
	afterFirst := h.count(t, &models.IndentStatusHistory{})

	second, err := h.svc.Transition(ctx, input)
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Equal(t, afterFirst, h.count(t, &models.IndentStatusHistory{}))
}

func TestTransitionErrors(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, TransitionInput{IndentID: indent.ID, Status: "teleported", ActorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Transition(ctx, TransitionInput{IndentID: uuid.New(), Status: "confirmation", ActorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Transition(ctx, TransitionInput{IndentID: indent.ID, Status: "confirmation"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateEditsFieldsAndRejectsClosedIndents(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()
	actor := uuid.New()

	cost := decimal.NewFromInt(12500)
	updated, err := h.svc.Update(ctx, indent.ID, UpdateInput{
		Destination: strPtr("Hosur"),
		TripCost:    &cost,
		ActorID:     actor,
	})
	require.NoError(t, err)
	require.Equal(t, "Hosur", updated.Destination)
	require.True(t, cost.Equal(updated.TripCost))

	_, err = h.svc.Update(ctx, indent.ID, UpdateInput{ContactPhone: strPtr("123"), ActorID: actor})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Transition(ctx, TransitionInput{
		IndentID: indent.ID, Status: "failed", ActorID: actor,
		VehicleNumber: strPtr("KA01AB1"), DriverPhone: strPtr("9123456780"),
	})
	require.NoError(t, err)
	_, err = h.svc.Update(ctx, indent.ID, UpdateInput{Origin: strPtr("Nashik"), ActorID: actor})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetReadsThroughCache(t *testing.T) {
	h := newHarness(t, Options{})
	indent := h.create(t)
	ctx := context.Background()

	got, err := h.svc.Get(ctx, indent.ID)
	require.NoError(t, err)
	require.Equal(t, indent.ShortID, got.ShortID)
	require.Contains(t, h.cache.entries, indent.ID)

	cached := h.cache.entries[indent.ID]
	cached.Origin = "from cache"
	h.cache.entries[indent.ID] = cached
	got, err = h.svc.Get(ctx, indent.ID)
	require.NoError(t, err)
	require.Equal(t, "from cache", got.Origin)

	_, err = h.svc.Get(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListBoardOnlyReturnsVisibleIndents(t *testing.T) {
	h := newHarness(t, Options{})
	open := h.create(t)
	placed := h.create(t)
	_, err := h.svc.Transition(context.Background(), TransitionInput{
		IndentID: placed.ID, Status: "vehicle_placed", ActorID: uuid.New(),
		VehicleNumber: strPtr("KA01AB1"), DriverPhone: strPtr("9123456780"),
	})
	require.NoError(t, err)

	rows, err := h.svc.ListBoard(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, open.ID, rows[0].ID)
}
