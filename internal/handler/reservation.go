package handler

import (
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/voltway/voltway-api/internal/model"
    "github.com/voltway/voltway-api/internal/queue"
    "github.com/voltway/voltway-api/internal/repository"
    queue_publisher "github.com/voltway/voltway-api/internal/service"
)

// ReservationHandler orchestrates the reservation lifecycle across the
// station directory, the vehicle registry and the wallet ledger. Every
// transition that moves money runs inside a single sql.Tx: the
// reservation row is locked FOR UPDATE, the wallet change is a
// conditional UPDATE and the ledger insert shares the transaction, so
// either everything commits or nothing does. Events is optional; a nil
// publisher skips event publishing.
type ReservationHandler struct {
    Reservations *repository.ReservationRepo
    Stations     *repository.StationRepo
    Vehicles     *repository.VehicleRepo
    Wallets      *repository.WalletRepo
    FeeCents     int64
    Events       *queue_publisher.Publisher
}

// NewReservationHandler constructs a ReservationHandler. All
// repositories must be non-nil; events may be nil.
func NewReservationHandler(reservations *repository.ReservationRepo, stations *repository.StationRepo, vehicles *repository.VehicleRepo, wallets *repository.WalletRepo, feeCents int64, events *queue_publisher.Publisher) *ReservationHandler {
    if reservations == nil || stations == nil || vehicles == nil || wallets == nil {
        panic("nil repository passed to NewReservationHandler")
    }
    return &ReservationHandler{
        Reservations: reservations,
        Stations:     stations,
        Vehicles:     vehicles,
        Wallets:      wallets,
        FeeCents:     feeCents,
        Events:       events,
    }
}

// ----- DTOs -----

type reservationResp struct {
    ID                   uint64   `json:"id"`
    UserID               uint64   `json:"userId"`
    StationID            uint64   `json:"stationId"`
    VehicleID            *uint64  `json:"vehicleId,omitempty"`
    ReservationDate      string   `json:"reservationDate"`
    StartTime            string   `json:"startTime"`
    EndTime              string   `json:"endTime"`
    Status               string   `json:"status"`
    TotalCostCents       int64    `json:"totalCostCents"`
    PaymentTransactionID *uint64  `json:"paymentTransactionId,omitempty"`
    SessionTransactionID *uint64  `json:"sessionTransactionId,omitempty"`
    EnergyConsumedKwh    *float64 `json:"energyConsumedKwh,omitempty"`
    Notes                string   `json:"notes,omitempty"`
    CreatedAt            string   `json:"createdAt"`
    UpdatedAt            string   `json:"updatedAt"`
}

func toReservationResp(r *model.Reservation) reservationResp {
    return reservationResp{
        ID:                   r.ID,
        UserID:               r.UserID,
        StationID:            r.StationID,
        VehicleID:            r.VehicleID,
        ReservationDate:      r.ReservationDate.Format("2006-01-02"),
        StartTime:            r.StartTime,
        EndTime:              r.EndTime,
        Status:               r.Status,
        TotalCostCents:       r.TotalCostCents,
        PaymentTransactionID: r.PaymentTransactionID,
        SessionTransactionID: r.SessionTransactionID,
        EnergyConsumedKwh:    r.EnergyConsumedKwh,
        Notes:                r.Notes,
        CreatedAt:            r.CreatedAt.UTC().Format(timeRFC3339),
        UpdatedAt:            r.UpdatedAt.UTC().Format(timeRFC3339),
    }
}

type createReservationReq struct {
    StationID       uint64  `json:"stationId"`
    VehicleID       *uint64 `json:"vehicleId"`
    ReservationDate string  `json:"reservationDate"`
    StartTime       string  `json:"startTime"`
    EndTime         string  `json:"endTime"`
    Notes           string  `json:"notes"`
}

// List handles GET /v1/reservations?status&limit&offset and returns the
// caller's reservations newest first.
func (h *ReservationHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    reservations, err := h.Reservations.ListByUser(c.Request().Context(), userID,
        c.QueryParam("status"), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
    if err != nil {
        return failInternal(c)
    }
    items := make([]reservationResp, 0, len(reservations))
    for i := range reservations {
        items = append(items, toReservationResp(&reservations[i]))
    }
    return respond(c, http.StatusOK, echo.Map{"reservations": items})
}

// Get handles GET /v1/reservations/:id. A nonexistent reservation is
// 404; someone else's reservation is 403.
func (h *ReservationHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    res, err := h.Reservations.GetByIDForUser(c.Request().Context(), id, userID)
    if err != nil {
        return reservationError(c, err)
    }
    return respond(c, http.StatusOK, echo.Map{"reservation": toReservationResp(res)})
}

// Create handles POST /v1/reservations. Preconditions are checked in
// order, first failure wins: the station must exist; a given vehicle
// must exist and belong to the caller (both failure modes answer 404
// so vehicle existence never leaks); the exact (station, date, start)
// slot must be free among non-cancelled reservations; and the wallet
// must cover the flat booking fee. On success the reservation is
// CONFIRMED with the fee debited and its RESERVATION_CHARGE ledger
// entry linked. A failed fee debit rolls everything back, so no
// partially-created reservation survives.
func (h *ReservationHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var body createReservationReq
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.StationID == 0 || body.ReservationDate == "" || body.StartTime == "" || body.EndTime == "" {
        return fail(c, http.StatusBadRequest, "stationId, reservationDate, startTime and endTime are required")
    }
    date, err := time.Parse("2006-01-02", body.ReservationDate)
    if err != nil {
        return fail(c, http.StatusBadRequest, "reservationDate must be YYYY-MM-DD")
    }
    start, err := time.Parse("15:04", body.StartTime)
    if err != nil {
        return fail(c, http.StatusBadRequest, "startTime must be HH:MM")
    }
    end, err := time.Parse("15:04", body.EndTime)
    if err != nil {
        return fail(c, http.StatusBadRequest, "endTime must be HH:MM")
    }
    if !end.After(start) {
        return fail(c, http.StatusBadRequest, "endTime must be after startTime")
    }

    ctx := c.Request().Context()
    station, err := h.Stations.GetByID(ctx, body.StationID)
    if err != nil {
        if errors.Is(err, repository.ErrStationNotFound) {
            return fail(c, http.StatusNotFound, "station not found")
        }
        return failInternal(c)
    }
    if body.VehicleID != nil {
        // Missing and not-owned collapse into one 404 on purpose.
        if _, err := h.Vehicles.GetByIDForUser(ctx, *body.VehicleID, userID); err != nil {
            if errors.Is(err, repository.ErrVehicleNotFound) || errors.Is(err, repository.ErrForbidden) {
                return fail(c, http.StatusNotFound, "vehicle not found")
            }
            return failInternal(c)
        }
    }
    wallet, err := h.Wallets.GetOrCreateByUserID(ctx, userID)
    if err != nil {
        return failInternal(c)
    }

    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return failInternal(c)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    taken, err := h.Reservations.SlotTakenTx(ctx, tx, station.ID, date, body.StartTime)
    if err != nil {
        return failInternal(c)
    }
    if taken {
        return fail(c, http.StatusConflict, "time slot already reserved")
    }

    res := model.Reservation{
        UserID:          userID,
        StationID:       station.ID,
        VehicleID:       body.VehicleID,
        ReservationDate: date,
        StartTime:       body.StartTime,
        EndTime:         body.EndTime,
        Status:          model.ReservationPending,
        TotalCostCents:  h.FeeCents,
        Notes:           body.Notes,
    }
    if err := h.Reservations.CreateTx(ctx, tx, &res); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return fail(c, http.StatusConflict, "time slot already reserved")
        }
        return failInternal(c)
    }

    if err := h.Wallets.DebitTx(ctx, tx, wallet.ID, h.FeeCents); err != nil {
        if errors.Is(err, repository.ErrInsufficientFunds) {
            return fail(c, http.StatusBadRequest, "insufficient funds")
        }
        return failInternal(c)
    }
    txn := model.Transaction{
        WalletID:    wallet.ID,
        AmountCents: -h.FeeCents,
        Type:        model.TxnReservationCharge,
        Status:      model.TxnCompleted,
        Description: fmt.Sprintf("Booking fee for reservation #%d at %s", res.ID, station.Name),
        ReferenceID: &res.ID,
    }
    if err := h.Wallets.InsertTransactionTx(ctx, tx, &txn); err != nil {
        return failInternal(c)
    }
    if err := h.Reservations.ConfirmTx(ctx, tx, res.ID, txn.ID); err != nil {
        return failInternal(c)
    }
    if err := tx.Commit(); err != nil {
        return failInternal(c)
    }
    committed = true
    res.Status = model.ReservationConfirmed
    res.PaymentTransactionID = &txn.ID

    if h.Events != nil {
        _ = h.Events.PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
            ReservationID:   res.ID,
            UserID:          userID,
            StationID:       station.ID,
            StationName:     station.Name,
            ReservationDate: body.ReservationDate,
            StartTime:       body.StartTime,
            EndTime:         body.EndTime,
            FeeCents:        h.FeeCents,
            ConfirmedAt:     time.Now().UTC().Format(timeRFC3339),
        })
    }

    return respond(c, http.StatusCreated, echo.Map{
        "reservation": toReservationResp(&res),
        "transaction": toTransactionResp(&txn),
    })
}

// Cancel handles PUT /v1/reservations/:id/cancel. Only PENDING and
// CONFIRMED reservations can be cancelled. When a booking fee was
// charged, the wallet is credited back and a REFUND ledger entry is
// recorded naming the original payment. Cancellation frees the slot
// but never deletes the row.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    ctx := c.Request().Context()
    wallet, err := h.Wallets.GetOrCreateByUserID(ctx, userID)
    if err != nil {
        return failInternal(c)
    }

    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return failInternal(c)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := h.Reservations.GetForUpdateTx(ctx, tx, id, userID)
    if err != nil {
        return reservationError(c, err)
    }
    if !res.CanCancel() {
        return fail(c, http.StatusBadRequest, "reservation cannot be cancelled")
    }

    var refund *model.Transaction
    if res.PaymentTransactionID != nil {
        if err := h.Wallets.CreditTx(ctx, tx, wallet.ID, res.TotalCostCents); err != nil {
            return failInternal(c)
        }
        refund = &model.Transaction{
            WalletID:    wallet.ID,
            AmountCents: res.TotalCostCents,
            Type:        model.TxnRefund,
            Status:      model.TxnCompleted,
            Description: fmt.Sprintf("Refund for reservation #%d (reverses transaction #%d)", res.ID, *res.PaymentTransactionID),
            ReferenceID: &res.ID,
        }
        if err := h.Wallets.InsertTransactionTx(ctx, tx, refund); err != nil {
            return failInternal(c)
        }
    }
    if err := h.Reservations.CancelTx(ctx, tx, res.ID); err != nil {
        return failInternal(c)
    }
    if err := tx.Commit(); err != nil {
        return failInternal(c)
    }
    committed = true
    res.Status = model.ReservationCancelled

    data := echo.Map{"reservation": toReservationResp(res)}
    if refund != nil {
        data["transaction"] = toTransactionResp(refund)
    }
    return respond(c, http.StatusOK, data)
}

// Start handles PUT /v1/reservations/:id/start. Only CONFIRMED
// reservations can start charging; no money moves here.
func (h *ReservationHandler) Start(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    ctx := c.Request().Context()
    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return failInternal(c)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := h.Reservations.GetForUpdateTx(ctx, tx, id, userID)
    if err != nil {
        return reservationError(c, err)
    }
    if !res.CanStart() {
        return fail(c, http.StatusBadRequest, "only confirmed reservations can start charging")
    }
    if err := h.Reservations.StartTx(ctx, tx, res.ID); err != nil {
        return failInternal(c)
    }
    if err := tx.Commit(); err != nil {
        return failInternal(c)
    }
    committed = true
    res.Status = model.ReservationActive
    return respond(c, http.StatusOK, echo.Map{"reservation": toReservationResp(res)})
}

// Complete handles PUT /v1/reservations/:id/complete. The body carries
// energyConsumed (kWh, > 0). The session cost is energy times the
// station's price per kWh, with a fixed fallback price when the
// station has none. A non-zero cost is debited from the wallet; when
// the wallet cannot cover it the completion is rejected and the
// reservation stays ACTIVE. A zero cost completes without touching the
// wallet.
func (h *ReservationHandler) Complete(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid reservation id")
    }
    var body struct {
        EnergyConsumed float64 `json:"energyConsumed"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.EnergyConsumed <= 0 {
        return fail(c, http.StatusBadRequest, "energyConsumed must be greater than zero")
    }

    ctx := c.Request().Context()
    tx, err := h.Reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return failInternal(c)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := h.Reservations.GetForUpdateTx(ctx, tx, id, userID)
    if err != nil {
        return reservationError(c, err)
    }
    if !res.CanComplete() {
        return fail(c, http.StatusBadRequest, "only active reservations can be completed")
    }
    station, err := h.Stations.GetByID(ctx, res.StationID)
    if err != nil {
        return failInternal(c)
    }
    cost := model.SessionCostCents(body.EnergyConsumed, station.PricePerKwhCents)

    var sessionTxn *model.Transaction
    var sessionTxnID *uint64
    if cost > 0 {
        wallet, err := h.Wallets.GetOrCreateByUserID(ctx, userID)
        if err != nil {
            return failInternal(c)
        }
        if err := h.Wallets.DebitTx(ctx, tx, wallet.ID, cost); err != nil {
            if errors.Is(err, repository.ErrInsufficientFunds) {
                return fail(c, http.StatusBadRequest, "insufficient funds")
            }
            return failInternal(c)
        }
        sessionTxn = &model.Transaction{
            WalletID:    wallet.ID,
            AmountCents: -cost,
            Type:        model.TxnSessionCharge,
            Status:      model.TxnCompleted,
            Description: fmt.Sprintf("Charging session for reservation #%d at %s (%.2f kWh)", res.ID, station.Name, body.EnergyConsumed),
            ReferenceID: &res.ID,
        }
        if err := h.Wallets.InsertTransactionTx(ctx, tx, sessionTxn); err != nil {
            return failInternal(c)
        }
        sessionTxnID = &sessionTxn.ID
    }
    if err := h.Reservations.CompleteTx(ctx, tx, res.ID, body.EnergyConsumed, cost, sessionTxnID); err != nil {
        return failInternal(c)
    }
    if err := tx.Commit(); err != nil {
        return failInternal(c)
    }
    committed = true
    res.Status = model.ReservationCompleted
    res.EnergyConsumedKwh = &body.EnergyConsumed
    res.TotalCostCents += cost
    res.SessionTransactionID = sessionTxnID

    if h.Events != nil {
        _ = h.Events.PublishSessionCompleted(ctx, queue.SessionCompletedEvent{
            ReservationID: res.ID,
            UserID:        userID,
            StationID:     station.ID,
            StationName:   station.Name,
            EnergyKwh:     body.EnergyConsumed,
            CostCents:     cost,
            CompletedAt:   time.Now().UTC().Format(timeRFC3339),
        })
    }

    data := echo.Map{"reservation": toReservationResp(res)}
    if sessionTxn != nil {
        data["transaction"] = toTransactionResp(sessionTxn)
    }
    return respond(c, http.StatusOK, data)
}

// reservationError maps repository errors for reservation endpoints:
// 404 for a missing reservation, 403 for someone else's, 500 otherwise.
func reservationError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrReservationNotFound):
        return fail(c, http.StatusNotFound, "reservation not found")
    case errors.Is(err, repository.ErrForbidden):
        return fail(c, http.StatusForbidden, "forbidden")
    default:
        return failInternal(c)
    }
}
