package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/db/models"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
	"github.com/freightdesk/freightdesk-backend/pkg/formats"
)

// Service manages truck owners, trucks and clients.
type Service interface {
	CreateOwner(ctx context.Context, input OwnerInput) (*models.TruckOwner, error)
	UpdateOwner(ctx context.Context, id uuid.UUID, input OwnerInput) (*models.TruckOwner, error)
	GetOwner(ctx context.Context, id uuid.UUID) (*models.TruckOwner, error)
	ListOwners(ctx context.Context, search string, limit int) ([]models.TruckOwner, error)

	CreateTruck(ctx context.Context, input TruckInput) (*models.Truck, error)
	UpdateTruck(ctx context.Context, id uuid.UUID, input TruckInput) (*models.Truck, error)
	GetTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error)
	ListTrucks(ctx context.Context, ownerID *uuid.UUID, search string, limit int) ([]models.Truck, error)

	CreateClient(ctx context.Context, input ClientInput) (*models.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, input ClientInput) (*models.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	ClientForUser(ctx context.Context, userID uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, search string, limit int) ([]models.Client, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fleet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateOwner(ctx context.Context, input OwnerInput) (*models.TruckOwner, error) {
	owner := &models.TruckOwner{}
	if err := applyOwner(owner, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateOwner(ctx, owner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create truck owner")
	}
	return owner, nil
}

func (s *service) UpdateOwner(ctx context.Context, id uuid.UUID, input OwnerInput) (*models.TruckOwner, error) {
	owner, err := s.GetOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyOwner(owner, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveOwner(ctx, owner); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update truck owner")
	}
	return owner, nil
}

func (s *service) GetOwner(ctx context.Context, id uuid.UUID) (*models.TruckOwner, error) {
	owner, err := s.repo.FindOwner(ctx, id)
	if err != nil {
		return nil, lookupError(err, "truck owner")
	}
	return owner, nil
}

func (s *service) ListOwners(ctx context.Context, search string, limit int) ([]models.TruckOwner, error) {
	rows, err := s.repo.ListOwners(ctx, strings.TrimSpace(search), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list truck owners")
	}
	return rows, nil
}

func (s *service) CreateTruck(ctx context.Context, input TruckInput) (*models.Truck, error) {
	truck := &models.Truck{}
	if err := s.applyTruck(ctx, truck, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTruck(ctx, truck); err != nil {
		return nil, truckWriteError(err, "create truck")
	}
	return truck, nil
}

func (s *service) UpdateTruck(ctx context.Context, id uuid.UUID, input TruckInput) (*models.Truck, error) {
	truck, err := s.GetTruck(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTruck(ctx, truck, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveTruck(ctx, truck); err != nil {
		return nil, truckWriteError(err, "update truck")
	}
	return truck, nil
}

func (s *service) GetTruck(ctx context.Context, id uuid.UUID) (*models.Truck, error) {
	truck, err := s.repo.FindTruck(ctx, id)
	if err != nil {
		return nil, lookupError(err, "truck")
	}
	return truck, nil
}

func (s *service) ListTrucks(ctx context.Context, ownerID *uuid.UUID, search string, limit int) ([]models.Truck, error) {
	rows, err := s.repo.ListTrucks(ctx, ownerID, formats.NormalizeVehicleNumber(search), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trucks")
	}
	return rows, nil
}

func (s *service) CreateClient(ctx context.Context, input ClientInput) (*models.Client, error) {
	client := &models.Client{}
	if err := applyClient(client, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}
	return client, nil
}

func (s *service) UpdateClient(ctx context.Context, id uuid.UUID, input ClientInput) (*models.Client, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyClient(client, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveClient(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client")
	}
	return client, nil
}

func (s *service) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, err := s.repo.FindClient(ctx, id)
	if err != nil {
		return nil, lookupError(err, "client")
	}
	return client, nil
}

// ClientForUser resolves the client profile behind a client login.
func (s *service) ClientForUser(ctx context.Context, userID uuid.UUID) (*models.Client, error) {
	client, err := s.repo.FindClientByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no client profile linked to this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client profile")
	}
	return client, nil
}

func (s *service) ListClients(ctx context.Context, search string, limit int) ([]models.Client, error) {
	rows, err := s.repo.ListClients(ctx, strings.TrimSpace(search), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}
	return rows, nil
}

func applyOwner(owner *models.TruckOwner, input OwnerInput) error {
	fields := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = "required"
	}
	if !formats.Phone(input.Phone) {
		fields["phone"] = "must be a 10 digit phone number"
	}
	pan := upperOrNil(input.PAN)
	if pan != nil && !formats.PAN(*pan) {
		fields["pan"] = "invalid PAN"
	}
	ifsc := upperOrNil(input.IFSC)
	if ifsc != nil && !formats.IFSC(*ifsc) {
		fields["ifsc"] = "invalid IFSC code"
	}
	account := trimOrNil(input.BankAccount)
	if account != nil && ifsc == nil {
		fields["ifsc"] = "required with bank_account"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid truck owner").WithDetails(fields)
	}

	owner.UserID = input.UserID
	owner.Name = name
	owner.Phone = formats.NormalizePhone(input.Phone)
	owner.PAN = pan
	owner.BankAccount = account
	owner.IFSC = ifsc
	return nil
}

func (s *service) applyTruck(ctx context.Context, truck *models.Truck, input TruckInput) error {
	fields := map[string]string{}
	vehicle := formats.NormalizeVehicleNumber(input.VehicleNumber)
	if !formats.VehicleNumber(vehicle) {
		fields["vehicle_number"] = "must be a valid vehicle registration number"
	}
	if strings.TrimSpace(input.VehicleType) == "" {
		fields["vehicle_type"] = "required"
	}
	if input.CapacityTons.IsNegative() {
		fields["capacity_tons"] = "must not be negative"
	}
	if input.OwnerID == uuid.Nil {
		fields["owner_id"] = "required"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid truck").WithDetails(fields)
	}
	if _, err := s.repo.FindOwner(ctx, input.OwnerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid truck").
				WithDetails(map[string]string{"owner_id": "unknown truck owner"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load truck owner")
	}

	states := make(pq.StringArray, 0, len(input.PermitStates))
	for _, st := range input.PermitStates {
		if st = strings.ToUpper(strings.TrimSpace(st)); st != "" {
			states = append(states, st)
		}
	}
	truck.OwnerID = input.OwnerID
	truck.VehicleNumber = vehicle
	truck.VehicleType = strings.TrimSpace(input.VehicleType)
	truck.CapacityTons = input.CapacityTons
	truck.PermitStates = states
	return nil
}

func applyClient(client *models.Client, input ClientInput) error {
	fields := map[string]string{}
	company := strings.TrimSpace(input.CompanyName)
	contact := strings.TrimSpace(input.ContactName)
	if company == "" {
		fields["company_name"] = "required"
	}
	if contact == "" {
		fields["contact_name"] = "required"
	}
	if !formats.Phone(input.Phone) {
		fields["phone"] = "must be a 10 digit phone number"
	}
	gstin := upperOrNil(input.GSTIN)
	if gstin != nil && !formats.GSTIN(*gstin) {
		fields["gstin"] = "invalid GSTIN"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid client").WithDetails(fields)
	}

	client.UserID = input.UserID
	client.CompanyName = company
	client.ContactName = contact
	client.Phone = formats.NormalizePhone(input.Phone)
	client.GSTIN = gstin
	return nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func truckWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "vehicle number already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func trimOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func upperOrNil(v *string) *string {
	t := trimOrNil(v)
	if t == nil {
		return nil
	}
	u := strings.ToUpper(*t)
	return &u
}
