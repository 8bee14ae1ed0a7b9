package model

import (
    "math"
    "time"
)

// Reservation status values. A reservation moves PENDING -> CONFIRMED ->
// ACTIVE -> COMPLETED, or is cancelled from PENDING/CONFIRMED.
// COMPLETED and CANCELLED are terminal.
const (
    ReservationPending   = "PENDING"
    ReservationConfirmed = "CONFIRMED"
    ReservationActive    = "ACTIVE"
    ReservationCompleted = "COMPLETED"
    ReservationCancelled = "CANCELLED"
)

// DefaultPricePerKwhCents is charged per kWh when a station has not
// published pricing. It is a fallback value, not a real tariff.
const DefaultPricePerKwhCents = 100

// Reservation records a user's booking of a charging station for a time
// window on a given date. It tracks the lifecycle status, the money
// charged so far and the ledger entries that charged it.
//
// Fields:
//  ID                   – primary key identifier.
//  UserID               – user who made the reservation.
//  StationID            – station being reserved.
//  VehicleID            – optional vehicle the user plans to charge.
//  ReservationDate      – calendar date of the slot (UTC).
//  StartTime, EndTime   – slot boundaries as "HH:MM" strings.
//  Status               – one of the Reservation* constants.
//  TotalCostCents       – booking fee plus, after completion, the
//                         session energy cost.
//  PaymentTransactionID – ledger entry for the booking fee; set once the
//                         reservation reaches CONFIRMED.
//  SessionTransactionID – ledger entry for the energy cost; set on
//                         completion when the cost was non-zero.
//  EnergyConsumedKwh    – energy delivered, recorded on completion.
//  Notes                – free-form text from the user.
//  CreatedAt, UpdatedAt – row timestamps.
type Reservation struct {
    ID                   uint64    // reservations.id
    UserID               uint64    // reservations.user_id
    StationID            uint64    // reservations.station_id
    VehicleID            *uint64   // reservations.vehicle_id (nullable)
    ReservationDate      time.Time // reservations.reservation_date (DATE)
    StartTime            string    // reservations.start_time ("HH:MM")
    EndTime              string    // reservations.end_time ("HH:MM")
    Status               string    // reservations.status
    TotalCostCents       int64     // reservations.total_cost_cents
    PaymentTransactionID *uint64   // reservations.payment_transaction_id (nullable)
    SessionTransactionID *uint64   // reservations.session_transaction_id (nullable)
    EnergyConsumedKwh    *float64  // reservations.energy_consumed_kwh (nullable)
    Notes                string    // reservations.notes
    CreatedAt            time.Time // reservations.created_at
    UpdatedAt            time.Time // reservations.updated_at
}

// CanCancel reports whether the reservation may transition to CANCELLED.
// Only PENDING and CONFIRMED reservations can be cancelled; completed or
// already-cancelled ones cannot.
func (r *Reservation) CanCancel() bool {
    return r.Status == ReservationPending || r.Status == ReservationConfirmed
}

// CanStart reports whether charging may begin. Only CONFIRMED
// reservations can start.
func (r *Reservation) CanStart() bool {
    return r.Status == ReservationConfirmed
}

// CanComplete reports whether the charging session may be completed.
// Only ACTIVE reservations can complete.
func (r *Reservation) CanComplete() bool {
    return r.Status == ReservationActive
}

// SessionCostCents computes the cost of a charging session in cents.
// When the station has no published price (priceCents <= 0) the
// DefaultPricePerKwhCents fallback applies. The result is rounded to
// the nearest cent.
func SessionCostCents(energyKwh float64, priceCents int64) int64 {
    if priceCents <= 0 {
        priceCents = DefaultPricePerKwhCents
    }
    return int64(math.Round(energyKwh * float64(priceCents)))
}
