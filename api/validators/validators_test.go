package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
)

type truckBody struct {
	VehicleNumber string  `json:"vehicle_number" validate:"required,vehicle_number"`
	DriverPhone   string  `json:"driver_phone" validate:"required,in_phone"`
	IFSC          *string `json:"ifsc,omitempty" validate:"omitempty,ifsc"`
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vehicle_number":"MH12AB1234","driver_phone":"9876543210","ifsc":"HDFC0001234"}`))

	var body truckBody
	require.NoError(t, DecodeJSONBody(r, &body))
	assert.Equal(t, "MH12AB1234", body.VehicleNumber)
}

func TestDecodeJSONBodyReportsCustomTags(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vehicle_number":"not-a-plate","driver_phone":"12345"}`))

	var body truckBody
	err := DecodeJSONBody(r, &body)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid vehicle number", details["vehicle_number"])
	assert.Equal(t, "must be a valid 10 digit mobile number", details["driver_phone"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vehicle_number":"MH12AB1234","driver_phone":"9876543210","extra":1}`))

	var body truckBody
	err := DecodeJSONBody(r, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVar(t *testing.T) {
	require.NoError(t, Var("driver_phone", "9876543210", "in_phone"))

	err := Var("driver_phone", "555", "in_phone")
	require.Error(t, err)
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, details, "driver_phone")
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=30", nil)
	v, err := ParseQueryInt(r, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err = ParseQueryInt(r, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	r = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParseQueryInt(r, "limit", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "nope")
	_, err = ParseUUIDParam(r, "id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2026-01-05&to=2026-01-06T10:00:00Z&bad=yesterday", nil)

	from, err := ParseQueryTime(r, "from")
	require.NoError(t, err)
	assert.Equal(t, 5, from.Day())

	to, err := ParseQueryTime(r, "to")
	require.NoError(t, err)
	assert.Equal(t, 10, to.Hour())

	missing, err := ParseQueryTime(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryTime(r, "bad")
	assert.Error(t, err)
}
