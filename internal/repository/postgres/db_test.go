package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventflow/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	require.NoError(t, translate(nil))
	require.ErrorIs(t, translate(&pq.Error{Code: "55P03"}), domain.ErrBusy)
	require.ErrorIs(t, translate(&pq.Error{Code: "40001"}), domain.ErrBusy)
	require.ErrorIs(t, translate(&pq.Error{Code: "40P01"}), domain.ErrBusy)
	require.ErrorIs(t, translate(context.DeadlineExceeded), domain.ErrTimeout)
	require.ErrorIs(t, translate(domain.ErrCapacityExceeded), domain.ErrCapacityExceeded)
}

func TestStore_WithinTxCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout = '2000ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE events`).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"registration_count"}).AddRow(1))
	mock.ExpectCommit()

	store := NewStore(db, 2*time.Second)
	err = store.WithinTx(context.Background(), func(tx domain.Repositories) error {
		_, err := tx.Ledger().TryReserve(context.Background(), "ev-1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	store := NewStore(db, 0)
	err = store.WithinTx(context.Background(), func(tx domain.Repositories) error {
		return domain.ErrCapacityExceeded
	})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxLockTimeoutIsBusy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("ev-1").WillReturnError(&pq.Error{Code: "55P03"})
	mock.ExpectRollback()

	store := NewStore(db, 0)
	err = store.WithinTx(context.Background(), func(tx domain.Repositories) error {
		_, err := tx.Events().GetForUpdate(context.Background(), "ev-1")
		return err
	})
	require.ErrorIs(t, err, domain.ErrBusy)
	require.True(t, domain.KindOf(err).Retryable())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxCancelledBeforeCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore(db, 0)
	err = store.WithinTx(ctx, func(tx domain.Repositories) error {
		cancel()
		return nil
	})
	require.True(t, errors.Is(err, domain.ErrTimeout))
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, 1, migrations[0].Version)
	require.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS events")
	require.Contains(t, migrations[0].SQL, "capacity = 0 OR registration_count <= capacity")
}
