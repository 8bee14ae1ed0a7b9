package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltway/voltway-api/internal/model"
)

var reservationCols = []string{
	"id", "user_id", "station_id", "vehicle_id", "reservation_date", "start_time", "end_time",
	"status", "total_cost_cents", "payment_transaction_id", "session_transaction_id",
	"energy_consumed_kwh", "notes", "created_at", "updated_at",
}

func reservationRow(id, userID uint64, status string) *sqlmock.Rows {
	now := time.Now()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(reservationCols).
		AddRow(id, userID, 5, nil, date, "10:30:00", "11:00:00", status, 1000, nil, nil, nil, nil, now, now)
}

func TestSlotTaken(t *testing.T) {
	q := regexp.QuoteMeta(`WHERE station_id = ? AND reservation_date = ? AND start_time = ? AND status <> 'CANCELLED'`)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("free", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepo(db)
		tx := beginTx(t, db, mock)
		mock.ExpectQuery(q).WithArgs(uint64(5), "2026-09-01", "10:30").WillReturnError(sql.ErrNoRows)

		taken, err := repo.SlotTakenTx(context.Background(), tx, 5, date, "10:30")
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("taken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepo(db)
		tx := beginTx(t, db, mock)
		mock.ExpectQuery(q).WithArgs(uint64(5), "2026-09-01", "10:30").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

		taken, err := repo.SlotTakenTx(context.Background(), tx, 5, date, "10:30")
		require.NoError(t, err)
		assert.True(t, taken)
	})
}

func TestCreateReservationDuplicateSlotIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	res := model.Reservation{
		UserID:          7,
		StationID:       5,
		ReservationDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "10:30",
		EndTime:         "11:00",
		Status:          model.ReservationPending,
		TotalCostCents:  1000,
	}
	err := repo.CreateTx(context.Background(), tx, &res)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationReadsRowBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)
	tx := beginTx(t, db, mock)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(8, 7, model.ReservationPending))

	res := model.Reservation{
		UserID:          7,
		StationID:       5,
		ReservationDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "10:30",
		EndTime:         "11:00",
		Status:          model.ReservationPending,
		TotalCostCents:  1000,
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, &res))
	assert.Equal(t, uint64(8), res.ID)
	// TIME columns come back with seconds; the repo trims them.
	assert.Equal(t, "10:30", res.StartTime)
	assert.Equal(t, "11:00", res.EndTime)
	assert.False(t, res.CreatedAt.IsZero())
}

func TestGetReservationOwnership(t *testing.T) {
	q := regexp.QuoteMeta(`FROM reservations WHERE id = ?`)

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepo(db)
		mock.ExpectQuery(q).WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByIDForUser(context.Background(), 99, 7)
		assert.ErrorIs(t, err, ErrReservationNotFound)
	})

	t.Run("someone else's reservation", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepo(db)
		mock.ExpectQuery(q).WithArgs(uint64(8)).
			WillReturnRows(reservationRow(8, 2, model.ReservationConfirmed))

		_, err := repo.GetByIDForUser(context.Background(), 8, 7)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepo(db)
		mock.ExpectQuery(q).WithArgs(uint64(8)).
			WillReturnRows(reservationRow(8, 7, model.ReservationConfirmed))

		res, err := repo.GetByIDForUser(context.Background(), 8, 7)
		require.NoError(t, err)
		assert.Equal(t, uint64(8), res.ID)
		assert.Equal(t, model.ReservationConfirmed, res.Status)
	})
}
