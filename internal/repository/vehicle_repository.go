package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/voltway/voltway-api/internal/model"
)

// ErrVehicleNotFound is returned when a vehicle lookup fails.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleRepo provides CRUD operations for user vehicles. A vehicle
// belongs to exactly one user, so every mutation verifies ownership
// and returns ErrForbidden on mismatch. Read paths offer both an
// unchecked lookup and an owner-checked lookup; callers that must not
// leak existence information (the reservation flow) collapse both
// failure modes into a single not-found error.
type VehicleRepo struct {
    db *sql.DB
}

// NewVehicleRepo returns a VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

const vehicleColumns = `id, user_id, model, year, plate, battery_capacity_kwh, charging_power_kw, created_at, updated_at`

func scanVehicle(row interface{ Scan(...interface{}) error }) (*model.Vehicle, error) {
    var v model.Vehicle
    err := row.Scan(&v.ID, &v.UserID, &v.Model, &v.Year, &v.Plate,
        &v.BatteryCapacityKwh, &v.ChargingPowerKW, &v.CreatedAt, &v.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &v, nil
}

// ListByUser returns all vehicles registered by the user, newest first.
func (r *VehicleRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Vehicle, error) {
    const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE user_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    vehicles := make([]model.Vehicle, 0)
    for rows.Next() {
        v, err := scanVehicle(rows)
        if err != nil {
            return nil, err
        }
        vehicles = append(vehicles, *v)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return vehicles, nil
}

// GetByID retrieves a vehicle by ID regardless of owner. It returns
// ErrVehicleNotFound when no row exists.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (*model.Vehicle, error) {
    const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
    v, err := scanVehicle(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrVehicleNotFound
        }
        return nil, err
    }
    return v, nil
}

// GetByIDForUser retrieves a vehicle and enforces ownership. It returns
// ErrVehicleNotFound when no row exists and ErrForbidden when the
// vehicle belongs to a different user.
func (r *VehicleRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Vehicle, error) {
    v, err := r.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if v.UserID != userID {
        return nil, ErrForbidden
    }
    return v, nil
}

// Create inserts a new vehicle for its owning user and populates the
// generated ID and row timestamps.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
    const qInsert = `INSERT INTO vehicles (user_id, model, year, plate, battery_capacity_kwh, charging_power_kw)
                     VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, qInsert, v.UserID, v.Model, v.Year, v.Plate,
        v.BatteryCapacityKwh, v.ChargingPowerKW)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    v.ID = uint64(id)
    const qSelect = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
    got, err := scanVehicle(r.db.QueryRowContext(ctx, qSelect, v.ID))
    if err != nil {
        return err
    }
    *v = *got
    return nil
}

// Update rewrites the mutable fields of a vehicle after checking that
// the caller owns it. It returns ErrVehicleNotFound when the vehicle
// does not exist and ErrForbidden on an ownership mismatch.
func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle, userID uint64) error {
    if err := r.checkOwner(ctx, v.ID, userID); err != nil {
        return err
    }
    const q = `UPDATE vehicles SET model = ?, year = ?, plate = ?, battery_capacity_kwh = ?, charging_power_kw = ?
               WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, v.Model, v.Year, v.Plate,
        v.BatteryCapacityKwh, v.ChargingPowerKW, v.ID)
    return err
}

// Delete removes a vehicle after checking that the caller owns it.
func (r *VehicleRepo) Delete(ctx context.Context, id, userID uint64) error {
    if err := r.checkOwner(ctx, id, userID); err != nil {
        return err
    }
    _, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
    return err
}

// checkOwner verifies that the vehicle exists and belongs to userID.
func (r *VehicleRepo) checkOwner(ctx context.Context, id, userID uint64) error {
    var ownerID uint64
    err := r.db.QueryRowContext(ctx, `SELECT user_id FROM vehicles WHERE id = ?`, id).Scan(&ownerID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrVehicleNotFound
        }
        return err
    }
    if ownerID != userID {
        return ErrForbidden
    }
    return nil
}
