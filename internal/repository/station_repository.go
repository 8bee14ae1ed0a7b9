package repository // repository holds data access logic for domain entities

import (
    "context"
    "database/sql"
    "errors"
    "strconv"

    "github.com/voltway/voltway-api/internal/model"
)

// ErrStationNotFound is returned when a station lookup fails.
var ErrStationNotFound = errors.New("station not found")

// StationRepo provides CRUD operations for charging stations and the
// per-user favorite flag. Listing supports directory-style filters:
// by city and by distance from a coordinate. The distance filter uses
// the haversine great-circle formula evaluated in SQL so the database
// does the narrowing.
type StationRepo struct {
    db *sql.DB
}

// NewStationRepo returns a StationRepo bound to the given database.
func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *StationRepo) DB() *sql.DB { return r.db }

// StationFilter narrows the station listing. Zero values mean "no
// filter". When Lat and Lng are both set, RadiusKM bounds the
// great-circle distance (a non-positive radius defaults to 25 km).
// Limit caps the number of rows returned (default 100).
type StationFilter struct {
    City     string
    Lat      *float64
    Lng      *float64
    RadiusKM float64
    Limit    int
}

const stationColumns = `id, name, address, city, state, latitude, longitude, power_kw, price_per_kwh_cents, is_active, created_at, updated_at`

// scanStation scans one row into a model.Station. The row must select
// stationColumns in order.
func scanStation(row interface{ Scan(...interface{}) error }) (*model.Station, error) {
    var s model.Station
    err := row.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.State,
        &s.Latitude, &s.Longitude, &s.PowerKW, &s.PricePerKwhCents,
        &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// List returns active stations matching the filter, ordered by name.
// When a coordinate filter is present, rows outside the radius are
// excluded and results are ordered by distance instead.
func (r *StationRepo) List(ctx context.Context, f StationFilter) ([]model.Station, error) {
    query := `SELECT ` + stationColumns + ` FROM stations WHERE is_active = 1`
    args := make([]interface{}, 0, 6)
    if f.City != "" {
        query += ` AND city = ?`
        args = append(args, f.City)
    }
    order := ` ORDER BY name`
    if f.Lat != nil && f.Lng != nil {
        radius := f.RadiusKM
        if radius <= 0 {
            radius = 25
        }
        // Haversine distance in kilometres; LEAST guards ACOS against
        // floating point drift past 1.0.
        const dist = `(6371 * ACOS(LEAST(1.0,
            COS(RADIANS(?)) * COS(RADIANS(latitude)) * COS(RADIANS(longitude) - RADIANS(?))
            + SIN(RADIANS(?)) * SIN(RADIANS(latitude)))))`
        query += ` AND ` + dist + ` <= ?`
        args = append(args, *f.Lat, *f.Lng, *f.Lat, radius)
        order = ` ORDER BY ` + dist
        args = append(args, *f.Lat, *f.Lng, *f.Lat)
    }
    limit := f.Limit
    if limit <= 0 || limit > 100 {
        limit = 100
    }
    query += order + ` LIMIT ` + strconv.Itoa(limit)

    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    stations := make([]model.Station, 0)
    for rows.Next() {
        s, err := scanStation(rows)
        if err != nil {
            return nil, err
        }
        stations = append(stations, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return stations, nil
}

// GetByID retrieves a station by its ID regardless of active flag. It
// returns ErrStationNotFound when no row exists.
func (r *StationRepo) GetByID(ctx context.Context, id uint64) (*model.Station, error) {
    const q = `SELECT ` + stationColumns + ` FROM stations WHERE id = ?`
    s, err := scanStation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrStationNotFound
        }
        return nil, err
    }
    return s, nil
}

// Create inserts a new station and populates the generated ID and row
// timestamps on the provided struct.
func (r *StationRepo) Create(ctx context.Context, s *model.Station) error {
    const qInsert = `INSERT INTO stations (name, address, city, state, latitude, longitude, power_kw, price_per_kwh_cents, is_active)
                     VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, qInsert, s.Name, s.Address, s.City, s.State,
        s.Latitude, s.Longitude, s.PowerKW, s.PricePerKwhCents, s.IsActive)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    // Read the row back so created_at/updated_at reflect DB defaults.
    const qSelect = `SELECT ` + stationColumns + ` FROM stations WHERE id = ?`
    got, err := scanStation(r.db.QueryRowContext(ctx, qSelect, s.ID))
    if err != nil {
        return err
    }
    *s = *got
    return nil
}

// Update rewrites the mutable fields of a station. Identity (the ID)
// never changes. It returns ErrStationNotFound when the station does
// not exist.
func (r *StationRepo) Update(ctx context.Context, s *model.Station) error {
    const q = `UPDATE stations SET name = ?, address = ?, city = ?, state = ?, latitude = ?, longitude = ?, power_kw = ?, price_per_kwh_cents = ?, is_active = ?
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, s.Name, s.Address, s.City, s.State,
        s.Latitude, s.Longitude, s.PowerKW, s.PricePerKwhCents, s.IsActive, s.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Distinguish "no such row" from "update was a no-op".
        var exists uint64
        if err := r.db.QueryRowContext(ctx, `SELECT id FROM stations WHERE id = ?`, s.ID).Scan(&exists); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrStationNotFound
            }
            return err
        }
    }
    return nil
}

// Delete removes a station. It returns ErrStationNotFound when no row
// was deleted.
func (r *StationRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrStationNotFound
    }
    return nil
}

// ToggleFavorite flips the (user, station) favorite flag. It returns
// true when the station is favorited after the call and false when the
// existing favorite was removed. The caller must have verified that the
// station exists.
func (r *StationRepo) ToggleFavorite(ctx context.Context, userID, stationID uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM station_favorites WHERE user_id = ? AND station_id = ?`, userID, stationID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n > 0 {
        return false, nil
    }
    _, err = r.db.ExecContext(ctx,
        `INSERT INTO station_favorites (user_id, station_id) VALUES (?, ?)`, userID, stationID)
    if err != nil {
        // A concurrent toggle may have inserted first; the flag is set
        // either way.
        if isDuplicateKey(err) {
            return true, nil
        }
        return false, err
    }
    return true, nil
}

// ListFavorites returns the stations the user has favorited, newest
// favorite first.
func (r *StationRepo) ListFavorites(ctx context.Context, userID uint64) ([]model.Station, error) {
    const q = `SELECT s.id, s.name, s.address, s.city, s.state, s.latitude, s.longitude, s.power_kw, s.price_per_kwh_cents, s.is_active, s.created_at, s.updated_at
               FROM station_favorites f
               JOIN stations s ON s.id = f.station_id
               WHERE f.user_id = ?
               ORDER BY f.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    stations := make([]model.Station, 0)
    for rows.Next() {
        s, err := scanStation(rows)
        if err != nil {
            return nil, err
        }
        stations = append(stations, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return stations, nil
}
