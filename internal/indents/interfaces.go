package indents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/enums"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

// Repository defines persistence for indents and their status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, indent *models.Indent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Indent, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Indent, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params listQuery) ([]models.Indent, *pagination.Cursor, error)
	ListByStatuses(ctx context.Context, statuses []enums.IndentStatus) ([]models.Indent, error)
	InsertHistory(ctx context.Context, entry *models.IndentStatusHistory) error
	LatestHistory(ctx context.Context, indentID uuid.UUID) (*models.IndentStatusHistory, error)
	ListHistory(ctx context.Context, indentID uuid.UUID) ([]models.IndentStatusHistory, error)
}

type listQuery struct {
	Filters ListFilters
	Limit   int
	Cursor  *pagination.Cursor
}
