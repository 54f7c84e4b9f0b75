package errorutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCode(t *testing.T) {
	err := NewForbidden("no")
	assert.True(t, IsCode(err, "FORBIDDEN"))
	assert.False(t, IsCode(err, "NOT_FOUND"))
	assert.False(t, IsCode(errors.New("plain"), "FORBIDDEN"))
	assert.False(t, IsCode(nil, "FORBIDDEN"))
}

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewConflict("email already exists", nil)
	converted := ToDomainError(original)
	assert.Equal(t, "CONFLICT", converted.Code)
	assert.Equal(t, http.StatusConflict, converted.HTTPStatus)
	assert.Equal(t, "email already exists", converted.Message)
}

func TestToDomainErrorTranslatesPgx(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, "CONFLICT", http.StatusConflict},
		{"fk violation", &pgconn.PgError{Code: "23503"}, "CONFLICT", http.StatusConflict},
		{"unknown pg error", &pgconn.PgError{Code: "42P01"}, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"arbitrary error", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			converted := ToDomainError(tt.err)
			require.NotNil(t, converted)
			assert.Equal(t, tt.wantCode, converted.Code)
			assert.Equal(t, tt.wantStatus, converted.HTTPStatus)
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
}
