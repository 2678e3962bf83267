package indents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an indents repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, indent *models.Indent) error {
	return r.db.WithContext(ctx).Create(indent).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Indent, error) {
	var indent models.Indent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&indent).Error; err != nil {
		return nil, err
	}
	return &indent, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Indent, error) {
	var indent models.Indent
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&indent).Error; err != nil {
		return nil, err
	}
	return &indent, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Indent{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, params listQuery) ([]models.Indent, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Indent{})

	f := params.Filters
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	if f.ClientID != nil {
		query = query.Where("client_id = ?", *f.ClientID)
	}
	if f.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		query = query.Where("created_at < ?", *f.CreatedTo)
	}
	if params.Cursor != nil {
		clause, args := pagination.After(*params.Cursor)
		query = query.Where(clause, args...)
	}

	var rows []models.Indent
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(m models.Indent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

func (r *repository) ListByStatuses(ctx context.Context, statuses []enums.IndentStatus) ([]models.Indent, error) {
	var rows []models.Indent
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) InsertHistory(ctx context.Context, entry *models.IndentStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// LatestHistory returns the newest audit row, or nil when the indent has none.
func (r *repository) LatestHistory(ctx context.Context, indentID uuid.UUID) (*models.IndentStatusHistory, error) {
	var entry models.IndentStatusHistory
	err := r.db.WithContext(ctx).
		Where("indent_id = ?", indentID).
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

func (r *repository) ListHistory(ctx context.Context, indentID uuid.UUID) ([]models.IndentStatusHistory, error) {
	var rows []models.IndentStatusHistory
	err := r.db.WithContext(ctx).
		Where("indent_id = ?", indentID).
		Order("changed_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
