package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltway/voltway-api/internal/model"
	"github.com/voltway/voltway-api/internal/repository"
)

// newTestHandler wires a ReservationHandler to a mocked database. All
// repositories share the one mock so expectations read top to bottom in
// the order the handler issues statements.
func newTestHandler(t *testing.T) (*ReservationHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewReservationHandler(
		repository.NewReservationRepo(db),
		repository.NewStationRepo(db),
		repository.NewVehicleRepo(db),
		repository.NewWalletRepo(db),
		1000, // booking fee
		nil,  // no event publisher in tests
	)
	return h, mock
}

func newJSONContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var (
	stationCols = []string{"id", "name", "address", "city", "state", "latitude", "longitude",
		"power_kw", "price_per_kwh_cents", "is_active", "created_at", "updated_at"}
	walletCols      = []string{"id", "user_id", "balance_cents", "created_at", "updated_at"}
	reservationCols = []string{"id", "user_id", "station_id", "vehicle_id", "reservation_date",
		"start_time", "end_time", "status", "total_cost_cents", "payment_transaction_id",
		"session_transaction_id", "energy_consumed_kwh", "notes", "created_at", "updated_at"}
)

func stationRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(stationCols).
		AddRow(5, "Volt Hub", "1 Main St", "Austin", "TX", 30.26, -97.74, 150.0, 85, true, now, now)
}

func walletRow(balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(walletCols).AddRow(3, 7, balance, now, now)
}

func reservationRow(status string, paymentTxnID interface{}, totalCents int64) *sqlmock.Rows {
	now := time.Now()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(reservationCols).
		AddRow(8, 7, 5, nil, date, "10:30:00", "11:00:00", status, totalCents, paymentTxnID, nil, nil, nil, now, now)
}

const createBody = `{"stationId":5,"reservationDate":"2026-09-01","startTime":"10:30","endTime":"11:00"}`

func TestCreateReservationConfirmsAndCharges(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM stations WHERE id = ?`)).
		WithArgs(uint64(5)).WillReturnRows(stationRow())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(5000))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`AND status <> 'CANCELLED'`)).
		WithArgs(uint64(5), "2026-09-01", "10:30").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationPending, nil, 1000))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_cents = balance_cents - ?`)).
		WithArgs(int64(1000), uint64(3), int64(1000)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'CONFIRMED'`)).
		WithArgs(uint64(11), uint64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPost, "/v1/reservations", createBody)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	res := data["reservation"].(map[string]interface{})
	assert.Equal(t, "CONFIRMED", res["status"])
	assert.Equal(t, float64(1000), res["totalCostCents"])
	txn := data["transaction"].(map[string]interface{})
	assert.Equal(t, float64(-1000), txn["amountCents"])
	assert.Equal(t, model.TxnReservationCharge, txn["type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationSlotConflict(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM stations WHERE id = ?`)).
		WithArgs(uint64(5)).WillReturnRows(stationRow())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(5000))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`AND status <> 'CANCELLED'`)).
		WithArgs(uint64(5), "2026-09-01", "10:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectRollback()

	c, rec := newJSONContext(t, http.MethodPost, "/v1/reservations", createBody)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationInsufficientFunds(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM stations WHERE id = ?`)).
		WithArgs(uint64(5)).WillReturnRows(stationRow())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(200))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`AND status <> 'CANCELLED'`)).
		WithArgs(uint64(5), "2026-09-01", "10:30").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationPending, nil, 1000))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_cents = balance_cents - ?`)).
		WithArgs(int64(1000), uint64(3), int64(1000)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM wallets WHERE id = ?`)).
		WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectRollback()

	c, rec := newJSONContext(t, http.MethodPost, "/v1/reservations", createBody)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "insufficient funds", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing fields", `{"stationId":5}`, "required"},
		{"bad date", `{"stationId":5,"reservationDate":"tomorrow","startTime":"10:30","endTime":"11:00"}`, "YYYY-MM-DD"},
		{"bad start time", `{"stationId":5,"reservationDate":"2026-09-01","startTime":"10h30","endTime":"11:00"}`, "HH:MM"},
		{"end before start", `{"stationId":5,"reservationDate":"2026-09-01","startTime":"11:00","endTime":"10:30"}`, "after"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock := newTestHandler(t)
			c, rec := newJSONContext(t, http.MethodPost, "/v1/reservations", tc.body)
			require.NoError(t, h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["message"], tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCancelReservationRefundsBookingFee(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationConfirmed, 11, 1000))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_cents = balance_cents + ?`)).
		WithArgs(int64(1000), uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'CANCELLED', slot_guard = NULL`)).
		WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPut, "/v1/reservations/8/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "CANCELLED", data["reservation"].(map[string]interface{})["status"])
	txn := data["transaction"].(map[string]interface{})
	assert.Equal(t, float64(1000), txn["amountCents"])
	assert.Equal(t, model.TxnRefund, txn["type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelCompletedReservationRejected(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationCompleted, 11, 2700))
	mock.ExpectRollback()

	c, rec := newJSONContext(t, http.MethodPut, "/v1/reservations/8/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRequiresConfirmed(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationPending, nil, 1000))
	mock.ExpectRollback()

	c, rec := newJSONContext(t, http.MethodPut, "/v1/reservations/8/start", "")
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Start(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartConfirmedReservation(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationConfirmed, 11, 1000))
	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'ACTIVE'`)).
		WithArgs(uint64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPut, "/v1/reservations/8/start", "")
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Start(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "ACTIVE", data["reservation"].(map[string]interface{})["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteChargesSessionCost(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(8)).WillReturnRows(reservationRow(model.ReservationActive, 11, 1000))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM stations WHERE id = ?`)).
		WithArgs(uint64(5)).WillReturnRows(stationRow())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM wallets WHERE user_id = ?`)).
		WithArgs(uint64(7)).WillReturnRows(walletRow(5000))
	// 20 kWh at 85 cents/kWh costs 1700 cents.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wallets SET balance_cents = balance_cents - ?`)).
		WithArgs(int64(1700), uint64(3), int64(1700)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnResult(sqlmock.NewResult(13, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'COMPLETED'`)).
		WithArgs(20.0, int64(1700), uint64(13), uint64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(t, http.MethodPut, "/v1/reservations/8/complete", `{"energyConsumed":20}`)
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Complete(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	res := data["reservation"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", res["status"])
	assert.Equal(t, float64(2700), res["totalCostCents"])
	assert.Equal(t, float64(20), res["energyConsumedKwh"])
	txn := data["transaction"].(map[string]interface{})
	assert.Equal(t, float64(-1700), txn["amountCents"])
	assert.Equal(t, model.TxnSessionCharge, txn["type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRejectsNonPositiveEnergy(t *testing.T) {
	h, mock := newTestHandler(t)

	c, rec := newJSONContext(t, http.MethodPut, "/v1/reservations/8/complete", `{"energyConsumed":0}`)
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Complete(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservationOfOtherUserForbidden(t *testing.T) {
	h, mock := newTestHandler(t)

	now := time.Now()
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(reservationCols).
		AddRow(8, 2, 5, nil, date, "10:30:00", "11:00:00", model.ReservationConfirmed, 1000, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(uint64(8)).WillReturnRows(rows)

	c, rec := newJSONContext(t, http.MethodGet, "/v1/reservations/8", "")
	c.SetParamNames("id")
	c.SetParamValues("8")
	require.NoError(t, h.Get(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
