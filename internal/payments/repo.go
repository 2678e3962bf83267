package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

var upsertColumns = []string{
	"trip_cost", "client_cost", "advance_payment", "final_payment",
	"toll_charges", "halting_charges", "traffic_fines", "handling_charges",
	"platform_fees", "platform_fines", "payment_status", "notes", "updated_at",
}

// Repository persists trip payment ledgers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, tripID uuid.UUID) (*models.TripPayment, error)
	FindForUpdate(ctx context.Context, tripID uuid.UUID) (*models.TripPayment, error)
	TripExists(ctx context.Context, tripID uuid.UUID) (bool, error)
	Upsert(ctx context.Context, payment *models.TripPayment) error
	ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TripPayment, error)
	UpdateStatus(ctx context.Context, tripID uuid.UUID, status enums.PaymentStatus) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, tripID uuid.UUID) (*models.TripPayment, error) {
	var payment models.TripPayment
	if err := r.db.WithContext(ctx).First(&payment, "trip_id = ?", tripID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindForUpdate returns nil without error when the trip has no ledger row yet.
func (r *repository) FindForUpdate(ctx context.Context, tripID uuid.UUID) (*models.TripPayment, error) {
	var payment models.TripPayment
	err := db.ForUpdate(r.db.WithContext(ctx)).First(&payment, "trip_id = ?", tripID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) TripExists(ctx context.Context, tripID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", tripID).Count(&count).Error
	return count > 0, err
}

// Upsert writes the row keyed on trip_id, replacing every money field on conflict.
func (r *repository) Upsert(ctx context.Context, payment *models.TripPayment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trip_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(payment).Error
}

// ListSyncable pages through non-disputed rows ordered by trip id.
func (r *repository) ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TripPayment, error) {
	var rows []models.TripPayment
	err := r.db.WithContext(ctx).
		Where("payment_status <> ?", enums.PaymentStatusDisputed).
		Where("trip_id > ?", after).
		Order("trip_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatus(ctx context.Context, tripID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TripPayment{}).
		Where("trip_id = ?", tripID).
		Update("payment_status", status).Error
}
