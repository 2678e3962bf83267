package fleet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk-backend/internal/dbtest"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
)

func newService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func strPtr(v string) *string { return &v }

func TestOwnerLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	owner, err := svc.CreateOwner(ctx, OwnerInput{
		Name:        " Ravi Transport ",
		Phone:       "+91 9876543210",
		PAN:         strPtr("abcde1234f"),
		BankAccount: strPtr("123456789012"),
		IFSC:        strPtr("hdfc0001234"),
	})
	require.NoError(t, err)
	require.Equal(t, "Ravi Transport", owner.Name)
	require.Equal(t, "9876543210", owner.Phone)
	require.Equal(t, "ABCDE1234F", *owner.PAN)
	require.Equal(t, "HDFC0001234", *owner.IFSC)

	updated, err := svc.UpdateOwner(ctx, owner.ID, OwnerInput{Name: "Ravi Roadlines", Phone: "9876543210"})
	require.NoError(t, err)
	require.Equal(t, "Ravi Roadlines", updated.Name)
	require.Nil(t, updated.PAN)

	rows, err := svc.ListOwners(ctx, "Roadlines", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = svc.GetOwner(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOwnerValidation(t *testing.T) {
	svc := newService(t)
	_, err := svc.CreateOwner(context.Background(), OwnerInput{
		Phone:       "12",
		PAN:         strPtr("bad"),
		BankAccount: strPtr("123456789"),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	require.Contains(t, details, "name")
	require.Contains(t, details, "phone")
	require.Contains(t, details, "pan")
	require.Equal(t, "required with bank_account", details["ifsc"])
}

func TestTruckRegistration(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	owner, err := svc.CreateOwner(ctx, OwnerInput{Name: "Owner", Phone: "9876543210"})
	require.NoError(t, err)

	truck, err := svc.CreateTruck(ctx, TruckInput{
		OwnerID:       owner.ID,
		VehicleNumber: "mh-12 ab 1234",
		VehicleType:   "32ft MXL",
		CapacityTons:  decimal.NewFromInt(15),
		PermitStates:  []string{"mh", " ka ", ""},
	})
	require.NoError(t, err)
	require.Equal(t, "MH12AB1234", truck.VehicleNumber)
	require.Equal(t, []string{"MH", "KA"}, []string(truck.PermitStates))

	loaded, err := svc.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"MH", "KA"}, TruckToDTO(loaded).PermitStates)

	_, err = svc.CreateTruck(ctx, TruckInput{OwnerID: owner.ID, VehicleNumber: "MH12AB1234", VehicleType: "20ft"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.CreateTruck(ctx, TruckInput{OwnerID: uuid.New(), VehicleNumber: "KA01AB1", VehicleType: "20ft"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateTruck(ctx, TruckInput{OwnerID: owner.ID, VehicleNumber: "not-a-plate", VehicleType: "20ft"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rows, err := svc.ListTrucks(ctx, &owner.ID, "mh12", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestClientProfiles(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	client, err := svc.CreateClient(ctx, ClientInput{
		UserID:      &userID,
		CompanyName: "Deccan Steels",
		ContactName: "Anita",
		Phone:       "09123456780",
		GSTIN:       strPtr("27abcde1234f1z5"),
	})
	require.NoError(t, err)
	require.Equal(t, "27ABCDE1234F1Z5", *client.GSTIN)

	found, err := svc.ClientForUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, client.ID, found.ID)

	_, err = svc.ClientForUser(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateClient(ctx, client.ID, ClientInput{CompanyName: "Deccan", ContactName: "A", Phone: "9123456780", GSTIN: strPtr("bogus")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
