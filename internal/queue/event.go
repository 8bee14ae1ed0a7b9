// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for the events this service publishes.
const (
    ReservationConfirmedQueue = "reservation.confirmed"
    SessionCompletedQueue     = "session.completed"
)

// ReservationConfirmedEvent is published when a reservation is
// successfully created and paid. It carries enough information for
// downstream consumers to log, notify, or feed analytics without
// querying the primary database.
type ReservationConfirmedEvent struct {
    ReservationID   uint64 `json:"reservation_id"`
    UserID          uint64 `json:"user_id"`
    StationID       uint64 `json:"station_id"`
    StationName     string `json:"station_name"`
    ReservationDate string `json:"reservation_date"`
    StartTime       string `json:"start_time"`
    EndTime         string `json:"end_time"`
    FeeCents        int64  `json:"fee_cents"`
    ConfirmedAt     string `json:"confirmed_at"`
}

// SessionCompletedEvent is published when a charging session finishes
// and the energy cost has been settled against the wallet.
type SessionCompletedEvent struct {
    ReservationID uint64  `json:"reservation_id"`
    UserID        uint64  `json:"user_id"`
    StationID     uint64  `json:"station_id"`
    StationName   string  `json:"station_name"`
    EnergyKwh     float64 `json:"energy_kwh"`
    CostCents     int64   `json:"cost_cents"`
    CompletedAt   string  `json:"completed_at"`
}
