package fleet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

// Repository persists the master data behind indents and trips.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOwner(ctx context.Context, owner *models.TruckOwner) error
	SaveOwner(ctx context.Context, owner *models.TruckOwner) error
	FindOwner(ctx context.Context, id uuid.UUID) (*models.TruckOwner, error)
	ListOwners(ctx context.Context, search string, limit int) ([]models.TruckOwner, error)

	CreateTruck(ctx context.Context, truck *models.Truck) error
	SaveTruck(ctx context.Context, truck *models.Truck) error
	FindTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error)
	ListTrucks(ctx context.Context, ownerID *uuid.UUID, search string, limit int) ([]models.Truck, error)

	CreateClient(ctx context.Context, client *models.Client) error
	SaveClient(ctx context.Context, client *models.Client) error
	FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindClientByUser(ctx context.Context, userID uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, search string, limit int) ([]models.Client, error)
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

func (r *repository) CreateOwner(ctx context.Context, owner *models.TruckOwner) error {
	return r.db.WithContext(ctx).Create(owner).Error
}

func (r *repository) SaveOwner(ctx context.Context, owner *models.TruckOwner) error {
	return r.db.WithContext(ctx).Save(owner).Error
}

func (r *repository) FindOwner(ctx context.Context, id uuid.UUID) (*models.TruckOwner, error) {
	var owner models.TruckOwner
	if err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *repository) ListOwners(ctx context.Context, search string, limit int) ([]models.TruckOwner, error) {
	q := r.db.WithContext(ctx).Model(&models.TruckOwner{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR phone LIKE ?", like, like)
	}
	var rows []models.TruckOwner
	err := q.Order("created_at DESC, id DESC").Limit(pagination.NormalizeLimit(limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) CreateTruck(ctx context.Context, truck *models.Truck) error {
	return r.db.WithContext(ctx).Create(truck).Error
}

func (r *repository) SaveTruck(ctx context.Context, truck *models.Truck) error {
	return r.db.WithContext(ctx).Save(truck).Error
}

func (r *repository) FindTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error) {
	var truck models.Truck
	if err := r.db.WithContext(ctx).First(&truck, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &truck, nil
}

func (r *repository) ListTrucks(ctx context.Context, ownerID *uuid.UUID, search string, limit int) ([]models.Truck, error) {
	q := r.db.WithContext(ctx).Model(&models.Truck{})
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if search != "" {
		q = q.Where("vehicle_number LIKE ?", "%"+search+"%")
	}
	var rows []models.Truck
	err := q.Order("created_at DESC, id DESC").Limit(pagination.NormalizeLimit(limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) CreateClient(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *repository) SaveClient(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *repository) FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) FindClientByUser(ctx context.Context, userID uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) ListClients(ctx context.Context, search string, limit int) ([]models.Client, error) {
	q := r.db.WithContext(ctx).Model(&models.Client{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("company_name LIKE ? OR contact_name LIKE ?", like, like)
	}
	var rows []models.Client
	err := q.Order("created_at DESC, id DESC").Limit(pagination.NormalizeLimit(limit)).Find(&rows).Error
	return rows, err
}
