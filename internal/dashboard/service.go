// Package dashboard aggregates the admin overview figures.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
)

// Summary is the dashboard payload.
type Summary struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Timezone         string           `json:"timezone"`
	IndentsByStatus  map[string]int64 `json:"indents_by_status"`
	TripsByStatus    map[string]int64 `json:"trips_by_status"`
	IndentsToday     int64            `json:"indents_today"`
	IndentsThisWeek  int64            `json:"indents_this_week"`
	IndentsThisMonth int64            `json:"indents_this_month"`
	Payments         PaymentSummary   `json:"payments"`
}

type PaymentSummary struct {
	Count             int64            `json:"count"`
	ByStatus          map[string]int64 `json:"by_status"`
	TripCost          decimal.Decimal  `json:"trip_cost"`
	Cleared           decimal.Decimal  `json:"cleared"`
	TripCostFormatted string           `json:"trip_cost_formatted"`
	ClearedFormatted  string           `json:"cleared_formatted"`
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	repo  Repository
	loc   *time.Location
	clock func() time.Time
}

// NewService builds the dashboard. Day and week boundaries are taken in loc, weeks start on Monday.
func NewService(repo Repository, loc *time.Location, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: repo, loc: loc, clock: clock}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	current := s.clock().In(s.loc)
	cal := (&now.Config{WeekStartDay: time.Monday, TimeLocation: s.loc}).With(current)

	out := &Summary{GeneratedAt: current, Timezone: s.loc.String()}
	var err error
	if out.IndentsByStatus, err = s.counts(s.repo.IndentsByStatus(ctx)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count indents")
	}
	if out.TripsByStatus, err = s.counts(s.repo.TripsByStatus(ctx)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count trips")
	}

	windows := []struct {
		from, to time.Time
		dst      *int64
	}{
		{cal.BeginningOfDay(), cal.BeginningOfDay().AddDate(0, 0, 1), &out.IndentsToday},
		{cal.BeginningOfWeek(), cal.BeginningOfWeek().AddDate(0, 0, 7), &out.IndentsThisWeek},
		{cal.BeginningOfMonth(), cal.BeginningOfMonth().AddDate(0, 1, 0), &out.IndentsThisMonth},
	}
	for _, w := range windows {
		n, err := s.repo.IndentsCreatedBetween(ctx, w.from, w.to)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count indents created")
		}
		*w.dst = n
	}

	totals, err := s.repo.PaymentTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
	}
	byStatus, err := s.counts(s.repo.PaymentsByStatus(ctx))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count payments")
	}
	out.Payments = PaymentSummary{
		Count:             totals.Count,
		ByStatus:          byStatus,
		TripCost:          totals.TripCost.Round(2),
		Cleared:           totals.Cleared.Round(2),
		TripCostFormatted: ledger.FormatINR(totals.TripCost),
		ClearedFormatted:  ledger.FormatINR(totals.Cleared),
	}
	return out, nil
}

func (s *service) counts(rows []statusCount, err error) (map[string]int64, error) {
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
