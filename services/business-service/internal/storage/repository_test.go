package storage

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderKindTable(t *testing.T) {
	providers, schedules, column, err := KindDoctor.table()
	require.NoError(t, err)
	assert.Equal(t, "doctors", providers)
	assert.Equal(t, "doctor_schedules", schedules)
	assert.Equal(t, "doctor_id", column)

	_, schedules, _, err = KindEmployee.table()
	require.NoError(t, err)
	assert.Equal(t, "employee_schedules", schedules)

	_, _, _, err = ProviderKind("nurse").table()
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", pgx.ErrNoRows)))
	assert.False(t, IsNotFound(ErrUnknownKind))
}
