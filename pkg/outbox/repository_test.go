package outbox_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk-backend/internal/dbtest"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
)

func TestPendingByEventTypeCountsUnpublishedRows(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)

	add := func(eventType enums.OutboxEventType, attempts int, published bool) {
		event := &models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTrip,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			AttemptCount:  attempts,
		}
		if published {
			now := time.Now().UTC()
			event.PublishedAt = &now
		}
		require.NoError(t, repo.Insert(conn, event))
	}

	add(enums.EventTripStatusChanged, 0, false)
	add(enums.EventTripStatusChanged, 2, false)
	add(enums.EventTripStatusChanged, 0, true)
	add(enums.EventIndentCreated, 0, false)
	add(enums.EventTripPaymentRecorded, 5, false)

	counts, err := repo.PendingByEventType(conn, 5)
	require.NoError(t, err)
	require.Equal(t, map[enums.OutboxEventType]int64{
		enums.EventTripStatusChanged: 2,
		enums.EventIndentCreated:     1,
	}, counts)

	all, err := repo.PendingByEventType(conn, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), all[enums.EventTripPaymentRecorded])
}

func TestFetchUnpublishedSkipsParkedRows(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)

	live := &models.OutboxEvent{EventType: enums.EventTripCreated, AggregateType: enums.AggregateTrip, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	parked := &models.OutboxEvent{EventType: enums.EventTripCreated, AggregateType: enums.AggregateTrip, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(conn, live))
	require.NoError(t, repo.Insert(conn, parked))
	require.NoError(t, repo.MarkTerminalTx(conn, parked.ID, errors.New("invalid payload"), 3))

	rows, err := repo.FetchUnpublishedTx(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, live.ID, rows[0].ID)
}
