package model

import "time"

// Station represents a public charging station record as stored in the
// `stations` table. Each field corresponds to a column in the database.
// The json tags are omitted here because these structs are used by the
// repository layer; handlers define separate response types with the
// JSON field names expected by clients.
//
// Fields:
//  ID               – primary key identifier of the station.
//  Name             – display name shown in search results.
//  Address          – street address of the station.
//  City             – city used for directory filtering.
//  State            – two-letter state or region code.
//  Latitude         – WGS84 latitude of the charge point.
//  Longitude        – WGS84 longitude of the charge point.
//  PowerKW          – maximum delivered power in kilowatts.
//  PricePerKwhCents – energy price in cents per kWh; zero means the
//                     station has not published pricing and the session
//                     fallback price applies.
//  IsActive         – whether the station is open for reservations.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Station struct {
    ID               uint64    // stations.id
    Name             string    // stations.name
    Address          string    // stations.address
    City             string    // stations.city
    State            string    // stations.state
    Latitude         float64   // stations.latitude
    Longitude        float64   // stations.longitude
    PowerKW          float64   // stations.power_kw
    PricePerKwhCents int64     // stations.price_per_kwh_cents
    IsActive         bool      // stations.is_active
    CreatedAt        time.Time // stations.created_at
    UpdatedAt        time.Time // stations.updated_at
}

// StationFavorite models a row in the `station_favorites` join table.
// A row exists while the user has the station marked as a favorite;
// toggling off removes the row.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who favorited the station.
//  StationID – the favorited station.
//  CreatedAt – when the favorite was added.
type StationFavorite struct {
    ID        uint64    // station_favorites.id
    UserID    uint64    // station_favorites.user_id
    StationID uint64    // station_favorites.station_id
    CreatedAt time.Time // station_favorites.created_at
}
