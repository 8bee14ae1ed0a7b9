package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/voltway/voltway-api/internal/model"
)

// ErrReservationNotFound is returned when a reservation lookup fails.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo provides CRUD and lifecycle operations for charging
// reservations. Rows are never physically deleted: cancellation is a
// status change that also clears the slot_guard column, freeing the
// (station, date, start_time) slot for a new booking.
//
// Double-booking is prevented twice over: handlers take a locked
// SELECT on the slot before inserting, and the table carries a unique
// index on (station_id, reservation_date, start_time, slot_guard)
// where slot_guard is 1 for non-cancelled rows and NULL once
// cancelled (NULLs never collide in a MySQL unique index). A race that
// slips past the locked SELECT surfaces as a duplicate-key error which
// the repository maps to ErrConflict.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (errno 1062), the signal that a unique index rejected an insert.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

const reservationColumns = `id, user_id, station_id, vehicle_id, reservation_date, start_time, end_time, status, total_cost_cents, payment_transaction_id, session_transaction_id, energy_consumed_kwh, notes, created_at, updated_at`

// clockHHMM trims a MySQL TIME value ("10:30:00") down to the "HH:MM"
// form the API speaks.
func clockHHMM(s string) string {
    if len(s) > 5 {
        return s[:5]
    }
    return s
}

func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
    var res model.Reservation
    var vehicleID, paymentID, sessionID sql.NullInt64
    var energy sql.NullFloat64
    var notes sql.NullString
    var start, end string
    err := row.Scan(&res.ID, &res.UserID, &res.StationID, &vehicleID,
        &res.ReservationDate, &start, &end, &res.Status, &res.TotalCostCents,
        &paymentID, &sessionID, &energy, &notes, &res.CreatedAt, &res.UpdatedAt)
    if err != nil {
        return nil, err
    }
    res.StartTime = clockHHMM(start)
    res.EndTime = clockHHMM(end)
    if vehicleID.Valid {
        v := uint64(vehicleID.Int64)
        res.VehicleID = &v
    }
    if paymentID.Valid {
        v := uint64(paymentID.Int64)
        res.PaymentTransactionID = &v
    }
    if sessionID.Valid {
        v := uint64(sessionID.Int64)
        res.SessionTransactionID = &v
    }
    if energy.Valid {
        e := energy.Float64
        res.EnergyConsumedKwh = &e
    }
    if notes.Valid {
        res.Notes = notes.String
    }
    return &res, nil
}

// SlotTakenTx reports whether a non-cancelled reservation already holds
// the exact (station, date, start time) slot. The row is locked with
// FOR UPDATE so a concurrent create inside another transaction blocks
// until this one commits or rolls back. Only identical start times
// collide; overlapping-but-different ranges are allowed on purpose
// because slots are fixed-size.
func (r *ReservationRepo) SlotTakenTx(ctx context.Context, tx *sql.Tx, stationID uint64, date time.Time, startTime string) (bool, error) {
    const q = `SELECT id FROM reservations
               WHERE station_id = ? AND reservation_date = ? AND start_time = ? AND status <> 'CANCELLED'
               LIMIT 1 FOR UPDATE`
    var id uint64
    err := tx.QueryRowContext(ctx, q, stationID, date.Format("2006-01-02"), startTime).Scan(&id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return false, nil
        }
        return false, err
    }
    return true, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction, populating the generated ID and row timestamps. The
// slot_guard column is set to 1 so the unique slot index applies. A
// duplicate-key rejection is returned as ErrConflict.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const qInsert = `INSERT INTO reservations (user_id, station_id, vehicle_id, reservation_date, start_time, end_time, status, total_cost_cents, notes, slot_guard)
                     VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
    var vehicleID interface{}
    if res.VehicleID != nil {
        vehicleID = *res.VehicleID
    }
    result, err := tx.ExecContext(ctx, qInsert, res.UserID, res.StationID, vehicleID,
        res.ReservationDate.Format("2006-01-02"), res.StartTime, res.EndTime,
        res.Status, res.TotalCostCents, res.Notes)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Read the row back so timestamps reflect DB defaults.
    const qSelect = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    got, err := scanReservation(tx.QueryRowContext(ctx, qSelect, res.ID))
    if err != nil {
        return err
    }
    *res = *got
    return nil
}

// GetByIDForUser returns a reservation and enforces ownership. It
// returns ErrReservationNotFound when no row exists and ErrForbidden
// when the reservation belongs to a different user, so handlers can
// answer 404 and 403 distinctly.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    if res.UserID != userID {
        return nil, ErrForbidden
    }
    return res, nil
}

// GetForUpdateTx is GetByIDForUser inside a transaction with the row
// locked FOR UPDATE, serializing concurrent lifecycle transitions on
// the same reservation.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
    res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, err
    }
    if res.UserID != userID {
        return nil, ErrForbidden
    }
    return res, nil
}

// ConfirmTx marks a reservation CONFIRMED and links the booking-fee
// ledger entry, within the given transaction.
func (r *ReservationRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id, paymentTxnID uint64) error {
    const q = `UPDATE reservations SET status = 'CONFIRMED', payment_transaction_id = ? WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, paymentTxnID, id)
    return err
}

// CancelTx marks a reservation CANCELLED and clears slot_guard so the
// slot becomes bookable again, within the given transaction.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    const q = `UPDATE reservations SET status = 'CANCELLED', slot_guard = NULL WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, id)
    return err
}

// StartTx marks a reservation ACTIVE within the given transaction. The
// caller has already validated the current state under lock.
func (r *ReservationRepo) StartTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    const q = `UPDATE reservations SET status = 'ACTIVE' WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, id)
    return err
}

// CompleteTx marks a reservation COMPLETED, records the energy
// delivered, adds the session cost to the running total and links the
// session ledger entry (nil when the session cost nothing), within the
// given transaction.
func (r *ReservationRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, energyKwh float64, costCents int64, sessionTxnID *uint64) error {
    const q = `UPDATE reservations SET status = 'COMPLETED', energy_consumed_kwh = ?, total_cost_cents = total_cost_cents + ?, session_transaction_id = ? WHERE id = ?`
    var txnID interface{}
    if sessionTxnID != nil {
        txnID = *sessionTxnID
    }
    _, err := tx.ExecContext(ctx, q, energyKwh, costCents, txnID, id)
    return err
}

// ListByUser returns the user's reservations, newest first, optionally
// filtered by status, with limit/offset pagination.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, status string, limit, offset int) ([]model.Reservation, error) {
    if limit <= 0 || limit > 100 {
        limit = 50
    }
    if offset < 0 {
        offset = 0
    }
    query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ?`
    args := []interface{}{userID}
    if status != "" {
        query += ` AND status = ?`
        args = append(args, status)
    }
    query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
    args = append(args, limit, offset)
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
