package loadboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk-backend/internal/cache"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
)

const (
	minRetry = time.Second
	maxRetry = 30 * time.Second
)

type listener interface {
	Listen(ctx context.Context, channel string, handle func([]byte)) error
}

type invalidator interface {
	Invalidate(ctx context.Context, kind string, id uuid.UUID) error
}

// BoardSource lists the indents the board starts from.
type BoardSource interface {
	ListBoard(ctx context.Context) ([]models.Indent, error)
}

type changeRecorder interface {
	IncChange(op string)
}

type SubscriberParams struct {
	Listener listener
	Channel  string
	Board    *Board
	Hub      *Hub
	Source   BoardSource
	Cache    invalidator
	Metrics  changeRecorder
	Logger   *logger.Logger
}

// Subscriber keeps the board in sync with the feed channel.
type Subscriber struct {
	listener listener
	channel  string
	board    *Board
	hub      *Hub
	source   BoardSource
	cache    invalidator
	metrics  changeRecorder
	logg     *logger.Logger
}

func NewSubscriber(p SubscriberParams) (*Subscriber, error) {
	if p.Listener == nil || p.Board == nil || p.Hub == nil || p.Source == nil {
		return nil, errors.New("loadboard subscriber requires listener, board, hub and source")
	}
	if p.Channel == "" {
		return nil, errors.New("feed channel required")
	}
	return &Subscriber{
		listener: p.Listener,
		channel:  p.Channel,
		board:    p.Board,
		hub:      p.Hub,
		source:   p.Source,
		cache:    p.Cache,
		metrics:  p.Metrics,
		logg:     p.Logger,
	}, nil
}

// Seed loads the board from the database.
func (s *Subscriber) Seed(ctx context.Context) error {
	rows, err := s.source.ListBoard(ctx)
	if err != nil {
		return err
	}
	s.board.Load(rows)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "indents", s.board.Len()), "load board seeded")
	}
	return nil
}

// Run listens until ctx ends. After a dropped subscription the board is
// reseeded, since changes published in the gap were missed.
func (s *Subscriber) Run(ctx context.Context) error {
	wait := minRetry
	for {
		err := s.listener.Listen(ctx, s.channel, s.Handle)
		if ctx.Err() != nil {
			return nil
		}
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "channel", s.channel), "feed subscription dropped", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = min(wait*2, maxRetry)
		if err := s.Seed(ctx); err != nil && s.logg != nil {
			s.logg.Error(ctx, "load board reseed failed", err)
			continue
		}
		wait = minRetry
	}
}

// Handle applies one feed payload.
func (s *Subscriber) Handle(payload []byte) {
	ctx := context.Background()
	change, err := DecodeChange(payload)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed feed message")
		}
		return
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.KindIndent, change.Indent.ID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "indent_id", change.Indent.ID.String()), "indent cache invalidate failed")
		}
	}
	if s.metrics != nil {
		s.metrics.IncChange(string(change.Op))
	}
	if !s.board.Apply(change) {
		return
	}
	if change.Op != OpDelete && !change.Indent.Status.OnLoadBoard() {
		change.Op = OpDelete
	}
	s.hub.Broadcast(change)
}
