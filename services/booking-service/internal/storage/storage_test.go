package storage

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsConflict(t *testing.T) {
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_employee_no_overlap"}
	assert.True(t, IsConflict(exclusion))
	assert.True(t, IsConflict(fmt.Errorf("insert: %w", exclusion)))
	assert.False(t, IsConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsConflict(pgx.ErrNoRows))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNotFound(nil))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Equal(t, "abc", nullable("abc"))
}
