package trips

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

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

func (r *repository) Create(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Create(trip).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// FindByIndent returns the trip of an indent, or nil when it has none.
func (r *repository) FindByIndent(ctx context.Context, indentID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	err := r.db.WithContext(ctx).Where("indent_id = ?", indentID).First(&trip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// LockIndent takes the indent row lock so concurrent assignments serialize.
func (r *repository) LockIndent(ctx context.Context, indentID uuid.UUID) (*models.Indent, error) {
	var indent models.Indent
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", indentID).First(&indent).Error; err != nil {
		return nil, err
	}
	return &indent, nil
}

func (r *repository) FindIndent(ctx context.Context, indentID uuid.UUID) (*models.Indent, error) {
	var indent models.Indent
	if err := r.db.WithContext(ctx).Where("id = ?", indentID).First(&indent).Error; err != nil {
		return nil, err
	}
	return &indent, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, params listQuery) ([]models.Trip, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Trip{})
	if params.Filters.Status != nil {
		query = query.Where("status = ?", *params.Filters.Status)
	}
	if params.Filters.TruckID != nil {
		query = query.Where("truck_id = ?", *params.Filters.TruckID)
	}
	if params.Cursor != nil {
		clause, args := pagination.After(*params.Cursor)
		query = query.Where(clause, args...)
	}

	var rows []models.Trip
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(m models.Trip) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

func (r *repository) InsertHistory(ctx context.Context, entry *models.TripStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) LatestHistory(ctx context.Context, tripID uuid.UUID) (*models.TripStatusHistory, error) {
	var entry models.TripStatusHistory
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("changed_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListHistory(ctx context.Context, tripID uuid.UUID) ([]models.TripStatusHistory, error) {
	var rows []models.TripStatusHistory
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("changed_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
