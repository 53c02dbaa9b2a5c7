package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBatchMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBatchRepositoryClaimSeat(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("UPDATE batches SET current_students = current_students \\+ 1").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimSeat(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryClaimSeatFullBatch(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	// The guarded UPDATE matches no row when the batch is at capacity.
	mock.ExpectExec("UPDATE batches SET current_students = current_students \\+ 1").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimSeat(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryReleaseSeat(t *testing.T) {
	db, mock, cleanup := newBatchMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("UPDATE batches SET current_students = current_students - 1").
		WithArgs("batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReleaseSeat(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
