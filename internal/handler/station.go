package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/voltway/voltway-api/internal/model"
    "github.com/voltway/voltway-api/internal/repository"
)

// StationHandler serves the charging-station directory: public
// browsing with city/radius filters, operator-only CRUD, and the
// per-user favorite toggle.
type StationHandler struct {
    Stations *repository.StationRepo
}

// NewStationHandler constructs a StationHandler. The repository must be
// non-nil.
func NewStationHandler(stations *repository.StationRepo) *StationHandler {
    if stations == nil {
        panic("nil repository passed to NewStationHandler")
    }
    return &StationHandler{Stations: stations}
}

// ----- DTOs -----

type stationResp struct {
    ID               uint64  `json:"id"`
    Name             string  `json:"name"`
    Address          string  `json:"address"`
    City             string  `json:"city"`
    State            string  `json:"state"`
    Latitude         float64 `json:"latitude"`
    Longitude        float64 `json:"longitude"`
    PowerKW          float64 `json:"powerKw"`
    PricePerKwhCents int64   `json:"pricePerKwhCents"`
    IsActive         bool    `json:"isActive"`
    CreatedAt        string  `json:"createdAt"`
    UpdatedAt        string  `json:"updatedAt"`
}

func toStationResp(s *model.Station) stationResp {
    return stationResp{
        ID:               s.ID,
        Name:             s.Name,
        Address:          s.Address,
        City:             s.City,
        State:            s.State,
        Latitude:         s.Latitude,
        Longitude:        s.Longitude,
        PowerKW:          s.PowerKW,
        PricePerKwhCents: s.PricePerKwhCents,
        IsActive:         s.IsActive,
        CreatedAt:        s.CreatedAt.UTC().Format(timeRFC3339),
        UpdatedAt:        s.UpdatedAt.UTC().Format(timeRFC3339),
    }
}

type stationReq struct {
    Name             string  `json:"name"`
    Address          string  `json:"address"`
    City             string  `json:"city"`
    State            string  `json:"state"`
    Latitude         float64 `json:"latitude"`
    Longitude        float64 `json:"longitude"`
    PowerKW          float64 `json:"powerKw"`
    PricePerKwhCents int64   `json:"pricePerKwhCents"`
    IsActive         *bool   `json:"isActive"`
}

// List handles GET /v1/stations. Optional query parameters: city, lat,
// lng, radius (km) and limit. The coordinate filter requires both lat
// and lng; a lone coordinate is rejected.
func (h *StationHandler) List(c echo.Context) error {
    f := repository.StationFilter{
        City:  c.QueryParam("city"),
        Limit: queryInt(c, "limit", 0),
    }
    latStr, lngStr := c.QueryParam("lat"), c.QueryParam("lng")
    if latStr != "" || lngStr != "" {
        lat, err1 := strconv.ParseFloat(latStr, 64)
        lng, err2 := strconv.ParseFloat(lngStr, 64)
        if err1 != nil || err2 != nil {
            return fail(c, http.StatusBadRequest, "lat and lng must both be valid coordinates")
        }
        f.Lat, f.Lng = &lat, &lng
        if r, err := strconv.ParseFloat(c.QueryParam("radius"), 64); err == nil {
            f.RadiusKM = r
        }
    }
    stations, err := h.Stations.List(c.Request().Context(), f)
    if err != nil {
        return failInternal(c)
    }
    items := make([]stationResp, 0, len(stations))
    for i := range stations {
        items = append(items, toStationResp(&stations[i]))
    }
    return respond(c, http.StatusOK, echo.Map{"stations": items})
}

// Get handles GET /v1/stations/:id.
func (h *StationHandler) Get(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid station id")
    }
    s, err := h.Stations.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrStationNotFound) {
            return fail(c, http.StatusNotFound, "station not found")
        }
        return failInternal(c)
    }
    return respond(c, http.StatusOK, echo.Map{"station": toStationResp(s)})
}

// Create handles POST /v1/stations (OPERATOR only).
func (h *StationHandler) Create(c echo.Context) error {
    var body stationReq
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.Name == "" || body.Address == "" || body.City == "" {
        return fail(c, http.StatusBadRequest, "name, address and city are required")
    }
    s := model.Station{
        Name:             body.Name,
        Address:          body.Address,
        City:             body.City,
        State:            body.State,
        Latitude:         body.Latitude,
        Longitude:        body.Longitude,
        PowerKW:          body.PowerKW,
        PricePerKwhCents: body.PricePerKwhCents,
        IsActive:         true,
    }
    if body.IsActive != nil {
        s.IsActive = *body.IsActive
    }
    if err := h.Stations.Create(c.Request().Context(), &s); err != nil {
        return failInternal(c)
    }
    return respond(c, http.StatusCreated, echo.Map{"station": toStationResp(&s)})
}

// Update handles PUT /v1/stations/:id (OPERATOR only). The station's
// identity never changes; only pricing, power, address and flags do.
func (h *StationHandler) Update(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid station id")
    }
    ctx := c.Request().Context()
    s, err := h.Stations.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrStationNotFound) {
            return fail(c, http.StatusNotFound, "station not found")
        }
        return failInternal(c)
    }
    var body stationReq
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid request body")
    }
    if body.Name != "" {
        s.Name = body.Name
    }
    if body.Address != "" {
        s.Address = body.Address
    }
    if body.City != "" {
        s.City = body.City
    }
    if body.State != "" {
        s.State = body.State
    }
    if body.Latitude != 0 {
        s.Latitude = body.Latitude
    }
    if body.Longitude != 0 {
        s.Longitude = body.Longitude
    }
    if body.PowerKW != 0 {
        s.PowerKW = body.PowerKW
    }
    if body.PricePerKwhCents != 0 {
        s.PricePerKwhCents = body.PricePerKwhCents
    }
    if body.IsActive != nil {
        s.IsActive = *body.IsActive
    }
    if err := h.Stations.Update(ctx, s); err != nil {
        if errors.Is(err, repository.ErrStationNotFound) {
            return fail(c, http.StatusNotFound, "station not found")
        }
        return failInternal(c)
    }
    return respond(c, http.StatusOK, echo.Map{"station": toStationResp(s)})
}

// Delete handles DELETE /v1/stations/:id (OPERATOR only).
func (h *StationHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid station id")
    }
    if err := h.Stations.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, repository.ErrStationNotFound) {
            return fail(c, http.StatusNotFound, "station not found")
        }
        return failInternal(c)
    }
    return respond(c, http.StatusOK, nil)
}

// ToggleFavorite handles POST /v1/stations/:id/favorite. It flips the
// caller's favorite flag for the station and reports the new state.
func (h *StationHandler) ToggleFavorite(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, err := pathID(c)
    if err != nil {
        return fail(c, http.StatusBadRequest, "invalid station id")
    }
    ctx := c.Request().Context()
    if _, err := h.Stations.GetByID(ctx, id); err != nil {
        if errors.Is(err, repository.ErrStationNotFound) {
            return fail(c, http.StatusNotFound, "station not found")
        }
        return failInternal(c)
    }
    favorited, err := h.Stations.ToggleFavorite(ctx, userID, id)
    if err != nil {
        return failInternal(c)
    }
    return respond(c, http.StatusOK, echo.Map{"stationId": id, "favorited": favorited})
}

// ListFavorites handles GET /v1/favorites and returns the caller's
// favorited stations.
func (h *StationHandler) ListFavorites(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    stations, err := h.Stations.ListFavorites(c.Request().Context(), userID)
    if err != nil {
        return failInternal(c)
    }
    items := make([]stationResp, 0, len(stations))
    for i := range stations {
        items = append(items, toStationResp(&stations[i]))
    }
    return respond(c, http.StatusOK, echo.Map{"stations": items})
}
