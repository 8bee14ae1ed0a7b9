package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vehicleRows(id, userID uint64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "model", "year", "plate",
		"battery_capacity_kwh", "charging_power_kw", "created_at", "updated_at"}).
		AddRow(id, userID, "Kia EV6", 2024, "EV-6-042", 77.4, 233.0, now, now)
}

func TestVehicleGetByIDForUser(t *testing.T) {
	q := regexp.QuoteMeta(`FROM vehicles WHERE id = ?`)

	t.Run("owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewVehicleRepo(db)
		mock.ExpectQuery(q).WithArgs(uint64(4)).WillReturnRows(vehicleRows(4, 7))

		v, err := repo.GetByIDForUser(context.Background(), 4, 7)
		require.NoError(t, err)
		assert.Equal(t, "Kia EV6", v.Model)
	})

	t.Run("someone else's vehicle", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewVehicleRepo(db)
		mock.ExpectQuery(q).WithArgs(uint64(4)).WillReturnRows(vehicleRows(4, 2))

		_, err := repo.GetByIDForUser(context.Background(), 4, 7)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewVehicleRepo(db)
		mock.ExpectQuery(q).WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByIDForUser(context.Background(), 99, 7)
		assert.ErrorIs(t, err, ErrVehicleNotFound)
	})
}

func TestVehicleDeleteChecksOwnership(t *testing.T) {
	ownerQ := regexp.QuoteMeta(`SELECT user_id FROM vehicles WHERE id = ?`)

	t.Run("owner deletes", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewVehicleRepo(db)
		mock.ExpectQuery(ownerQ).WithArgs(uint64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM vehicles WHERE id = ?`)).
			WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), 4, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-owner blocked", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewVehicleRepo(db)
		mock.ExpectQuery(ownerQ).WithArgs(uint64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))

		assert.ErrorIs(t, repo.Delete(context.Background(), 4, 7), ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
