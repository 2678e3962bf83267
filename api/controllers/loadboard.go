package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/freightdesk/freightdesk-backend/api/responses"
	"github.com/freightdesk/freightdesk-backend/internal/loadboard"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

const defaultHeartbeat = 25 * time.Second

type boardSnapshotter interface {
	Snapshot() []loadboard.IndentCard
}

type boardHub interface {
	Subscribe() (*loadboard.Viewer, func())
}

// PublicLoadBoard returns the open and confirmation indents, newest first.
func PublicLoadBoard(board boardSnapshotter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if board == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "load board unavailable"))
			return
		}
		responses.WriteSuccess(w, board.Snapshot())
	}
}

// PublicLoadBoardStream is a server-sent event stream: one `snapshot` event,
// then a `change` event per board change, with comment heartbeats in between.
// A viewer that falls behind is dropped by the hub and must reconnect.
func PublicLoadBoardStream(board boardSnapshotter, hub boardHub, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if board == nil || hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "load board unavailable"))
			return
		}

		rc := http.NewResponseController(w)
		// Streams outlive the server write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		// Subscribe before snapshotting so nothing between the two is lost.
		viewer, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := writeEvent(w, rc, "snapshot", board.Snapshot()); err != nil {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case change, ok := <-viewer.C:
				if !ok {
					return
				}
				if err := writeEvent(w, rc, "change", change); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}
