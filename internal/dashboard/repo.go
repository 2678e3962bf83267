package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
)

type statusCount struct {
	Status string
	Total  int64
}

type paymentTotals struct {
	Count    int64
	TripCost decimal.Decimal
	Cleared  decimal.Decimal
}

// Repository runs the aggregate queries behind the dashboard.
type Repository interface {
	IndentsByStatus(ctx context.Context) ([]statusCount, error)
	TripsByStatus(ctx context.Context) ([]statusCount, error)
	PaymentsByStatus(ctx context.Context) ([]statusCount, error)
	IndentsCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	PaymentTotals(ctx context.Context) (paymentTotals, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) IndentsByStatus(ctx context.Context) ([]statusCount, error) {
	return r.countBy(ctx, &models.Indent{}, "status")
}

func (r *repository) TripsByStatus(ctx context.Context) ([]statusCount, error) {
	return r.countBy(ctx, &models.Trip{}, "status")
}

func (r *repository) PaymentsByStatus(ctx context.Context) ([]statusCount, error) {
	return r.countBy(ctx, &models.TripPayment{}, "payment_status")
}

func (r *repository) countBy(ctx context.Context, model any, column string) ([]statusCount, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(model).
		Select(column + " AS status, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) IndentsCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Indent{}).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}

func (r *repository) PaymentTotals(ctx context.Context) (paymentTotals, error) {
	var totals paymentTotals
	err := r.db.WithContext(ctx).
		Model(&models.TripPayment{}).
		Select("COUNT(*) AS count, COALESCE(SUM(trip_cost), 0) AS trip_cost, COALESCE(SUM(advance_payment + final_payment), 0) AS cleared").
		Scan(&totals).Error
	return totals, err
}
