package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/voltway/voltway-api/internal/model"
    "github.com/voltway/voltway-api/internal/repository"
)

// VehicleHandler serves per-user vehicle CRUD. Every mutation verifies
// that the vehicle belongs to the caller; a mismatch answers 403,
// distinct from 404 for a nonexistent vehicle.
type VehicleHandler struct {
    Vehicles *repository.VehicleRepo
}

// NewVehicleHandler constructs a VehicleHandler. The repository must be
// non-nil.
func NewVehicleHandler(vehicles *repository.VehicleRepo) *VehicleHandler {
    if vehicles == nil {
        panic("nil repository passed to NewVehicleHandler")
    }
    return &VehicleHandler{Vehicles: vehicles}
}

// ----- DTOs -----

type vehicleResp struct {
    ID                 uint64  `json:"id"`
    UserID             uint64  `json:"userId"`
    Model              string  `json:"model"`
    Year               int     `json:"year"`
    Plate              string  `json:"plate"`
    BatteryCapacityKwh float64 `json:"batteryCapacityKwh"`
    ChargingPowerKW    float64 `json:"chargingPowerKw"`
    CreatedAt          string  `json:"createdAt"`
    UpdatedAt          string  `json:"updatedAt"`
}

func toVehicleResp(v *model.Vehicle) vehicleResp {
    return vehicleResp{
        ID:                 v.ID,
        UserID:             v.UserID,
        Model:              v.Model,
        Year:               v.Year,
        Plate:              v.Plate,
        BatteryCapacityKwh: v.BatteryCapacityKwh,
        ChargingPowerKW:    v.ChargingPowerKW,
        CreatedAt:          v.CreatedAt.UTC().Format(timeRFC3339),
        UpdatedAt:          v.UpdatedAt.UTC().Format(timeRFC3339),
    }
}

type vehicleReq struct {
    Model              string  `json:"model"`
    Year               int     `json:"year"`
    Plate              string  `json:"plate"`
    BatteryCapacityKwh float64 `json:"batteryCapacityKwh"`
    ChargingPowerKW    float64 `json:"chargingPowerKw"`
}

// List handles GET /v1/vehicles and returns the caller's vehicles.
func (h *VehicleHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    vehicles, err := h.Vehicles.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return failInternal(c)
    }
    items := make([]vehicleResp, 0, len(vehicles))
    for i := range vehicles {
        items = append(items, toVehicleResp(&vehicles[i]))
    }
    return respond(c, http.StatusOK, echo.Map{"vehicles": items})
}

// Get handles GET /v1/vehicles/:id. The caller must own the vehicle.
func (h *VehicleHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid vehicle id")
    }
    v, err := h.Vehicles.GetByIDForUser(c.Request().Context(), id, userID)
    if err != nil {
        return vehicleError(c, err)
    }
    return respond(c, http.StatusOK, echo.Map{"vehicle": toVehicleResp(v)})
}

// Create handles POST /v1/vehicles.
func (h *VehicleHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var body vehicleReq
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.Model == "" || body.Plate == "" {
        return fail(c, http.StatusBadRequest, "model and plate are required")
    }
    currentYear := time.Now().UTC().Year()
    if body.Year != 0 && (body.Year < 1990 || body.Year > currentYear+1) {
        return fail(c, http.StatusBadRequest, "year is out of range")
    }
    v := model.Vehicle{
        UserID:             userID,
        Model:              body.Model,
        Year:               body.Year,
        Plate:              body.Plate,
        BatteryCapacityKwh: body.BatteryCapacityKwh,
        ChargingPowerKW:    body.ChargingPowerKW,
    }
    if err := h.Vehicles.Create(c.Request().Context(), &v); err != nil {
        return failInternal(c)
    }
    return respond(c, http.StatusCreated, echo.Map{"vehicle": toVehicleResp(&v)})
}

// Update handles PUT /v1/vehicles/:id.
func (h *VehicleHandler) Update(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid vehicle id")
    }
    ctx := c.Request().Context()
    v, err := h.Vehicles.GetByIDForUser(ctx, id, userID)
    if err != nil {
        return vehicleError(c, err)
    }
    var body vehicleReq
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.Model != "" {
        v.Model = body.Model
    }
    if body.Year != 0 {
        v.Year = body.Year
    }
    if body.Plate != "" {
        v.Plate = body.Plate
    }
    if body.BatteryCapacityKwh != 0 {
        v.BatteryCapacityKwh = body.BatteryCapacityKwh
    }
    if body.ChargingPowerKW != 0 {
        v.ChargingPowerKW = body.ChargingPowerKW
    }
    if err := h.Vehicles.Update(ctx, v, userID); err != nil {
        return vehicleError(c, err)
    }
    return respond(c, http.StatusOK, echo.Map{"vehicle": toVehicleResp(v)})
}

// Delete handles DELETE /v1/vehicles/:id.
func (h *VehicleHandler) Delete(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid vehicle id")
    }
    if err := h.Vehicles.Delete(c.Request().Context(), id, userID); err != nil {
        return vehicleError(c, err)
    }
    return respond(c, http.StatusOK, nil)
}

// vehicleError maps repository errors for vehicle endpoints: 404 for a
// missing vehicle, 403 for someone else's vehicle, 500 otherwise.
func vehicleError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrVehicleNotFound):
        return fail(c, http.StatusNotFound, "vehicle not found")
    case errors.Is(err, repository.ErrForbidden):
        return fail(c, http.StatusForbidden, "forbidden")
    default:
        return failInternal(c)
    }
}
