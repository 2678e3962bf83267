package trips

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

// Repository defines persistence for trips and their status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trip *models.Trip) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	FindByIndent(ctx context.Context, indentID uuid.UUID) (*models.Trip, error)
	LockIndent(ctx context.Context, indentID uuid.UUID) (*models.Indent, error)
	FindIndent(ctx context.Context, indentID uuid.UUID) (*models.Indent, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params listQuery) ([]models.Trip, *pagination.Cursor, error)
	InsertHistory(ctx context.Context, entry *models.TripStatusHistory) error
	LatestHistory(ctx context.Context, tripID uuid.UUID) (*models.TripStatusHistory, error)
	ListHistory(ctx context.Context, tripID uuid.UUID) ([]models.TripStatusHistory, error)
}

type listQuery struct {
	Filters ListFilters
	Limit   int
	Cursor  *pagination.Cursor
}
