package model

import "time"

// Vehicle represents a row in the `vehicles` table. A vehicle belongs
// to exactly one user; every mutation and every reservation that names
// a vehicle must verify that the requesting user matches UserID.
//
// Fields:
//  ID                 – primary key identifier.
//  UserID             – owning user; exclusive ownership.
//  Model              – manufacturer and model name.
//  Year               – model year.
//  Plate              – license plate, unique per vehicle.
//  BatteryCapacityKwh – usable battery capacity in kWh.
//  ChargingPowerKW    – maximum AC/DC charging power in kW.
//  CreatedAt          – timestamp of creation.
//  UpdatedAt          – timestamp of last update.
type Vehicle struct {
    ID                 uint64    // vehicles.id
    UserID             uint64    // vehicles.user_id
    Model              string    // vehicles.model
    Year               int       // vehicles.year
    Plate              string    // vehicles.plate
    BatteryCapacityKwh float64   // vehicles.battery_capacity_kwh
    ChargingPowerKW    float64   // vehicles.charging_power_kw
    CreatedAt          time.Time // vehicles.created_at
    UpdatedAt          time.Time // vehicles.updated_at
}
