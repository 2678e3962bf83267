package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		assert.Equal(t, tt.status, meta.HTTPStatus, tt.code)
		assert.Equal(t, tt.retryable, meta.Retryable, tt.code)
		assert.Equal(t, tt.detailsOK, meta.DetailsAllowed, tt.code)
		assert.NotEmpty(t, meta.PublicMessage, tt.code)
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("db down")
	err := Wrap(CodeDependency, cause, "load indent").WithDetails(map[string]string{"id": "1"})

	require.True(t, stdErrors.Is(err, cause))
	require.Equal(t, CodeDependency, err.Code())
	require.Equal(t, "load indent", err.Message())
	require.Equal(t, map[string]string{"id": "1"}, err.Details())
	require.Contains(t, err.Error(), "db down")
}

func TestAsFindsWrappedError(t *testing.T) {
	typed := New(CodeNotFound, "indent not found")
	wrapped := fmt.Errorf("outer: %w", typed)

	require.Same(t, typed, As(wrapped))
	require.Equal(t, CodeNotFound, CodeOf(wrapped))
	require.True(t, IsCode(wrapped, CodeNotFound))
	require.False(t, IsCode(stdErrors.New("plain"), CodeNotFound))
	require.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	require.Nil(t, As(nil))
}

func TestDumpPgErrors(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "trucks_vehicle_number_key", TableName: "trucks", Message: "duplicate key"}
	d := Dump(Wrap(CodeConflict, pgxErr, "create truck"))
	require.Equal(t, CodeConflict, d.Code)
	require.Equal(t, "23505", d.PGCode)
	require.Equal(t, "trucks_vehicle_number_key", d.PGConstraint)
	require.Len(t, d.Chain, 2)

	pqErr := &pq.Error{Code: "23503", Table: "trips", Constraint: "trips_indent_id_fkey"}
	d = Dump(fmt.Errorf("insert trip: %w", pqErr))
	require.Equal(t, "23503", d.PGCode)
	require.Equal(t, "trips", d.PGTable)

	require.Equal(t, ErrorDump{}, Dump(nil))
}
