package model

// Coordinates is a lng/lat pair as supplied by clients and the places
// directory.  Longitude comes first to match the wire order used by the
// mobile clients.
type Coordinates struct {
	Lng float64 `json:"lng"` // longitude in degrees, [-180, 180]
	Lat float64 `json:"lat"` // latitude in degrees, [-90, 90]
}

// CheckinRecord is one row of the append-only check-in ledger: device
// DeviceID declared itself at place PlaceID in group GroupCode.  The row
// also carries the device's accommodation declaration; accommodation
// fields are independent of the check-in activity fields and must never
// be cleared as a side effect of a visibility toggle.
//
// All timestamps are epoch milliseconds UTC.  Clients may supply their
// own check-in timestamp for offline replay.
//
// Fields:
//  ID                          – primary key identifier.
//  GroupCode                   – group this check-in belongs to.
//  DeviceID                    – opaque client-supplied device identifier.
//  UserName                    – display name chosen by the device.
//  PlaceID                     – place the device checked into.
//  PlaceName                   – resolved or client-supplied place name.
//  CheckedInAt                 – when the check-in happened (epoch ms).
//  CheckedOutAt                – explicit checkout time (nullable; stays
//                                null for swept/expired rows).
//  IsActive                    – true until superseded, checked out or
//                                swept.  At most one active row exists
//                                per (group, device).
//  AccommodationPlaceID        – lodging place id (nullable).
//  AccommodationName           – lodging display name (nullable).
//  AccommodationCoords         – lodging coordinates (nullable).
//  DisplayAccommodationToGroup – visibility flag; the only field read
//                                visibility decisions are based on.
type CheckinRecord struct {
	ID                          uint64       `json:"id"`                             // checkins.id
	GroupCode                   string       `json:"group_code"`                     // checkins.group_code
	DeviceID                    string       `json:"device_id"`                      // checkins.device_id
	UserName                    string       `json:"user_name"`                      // checkins.user_name
	PlaceID                     string       `json:"place_id"`                       // checkins.place_id
	PlaceName                   string       `json:"place_name"`                     // checkins.place_name
	CheckedInAt                 int64        `json:"checked_in_at"`                  // checkins.checked_in_at (epoch ms)
	CheckedOutAt                *int64       `json:"checked_out_at,omitempty"`       // checkins.checked_out_at (nullable)
	IsActive                    bool         `json:"is_active"`                      // checkins.is_active
	AccommodationPlaceID        *string      `json:"accommodation_place_id,omitempty"` // checkins.accommodation_place_id (nullable)
	AccommodationName           *string      `json:"accommodation_name,omitempty"`   // checkins.accommodation_name (nullable)
	AccommodationCoords         *Coordinates `json:"accommodation_coords,omitempty"` // checkins.accommodation_lng/lat (nullable)
	DisplayAccommodationToGroup bool         `json:"display_accommodation_to_group"` // checkins.display_accommodation_to_group
}

// CheckinStatus is the derived lifecycle state of a ledger row.  The
// underlying storage encodes it as two fields (is_active and a nullable
// checked_out_at); deriving the enum in exactly one place keeps the
// three states from drifting across call sites.
type CheckinStatus string

const (
	StatusActive     CheckinStatus = "active"      // row is the device's current check-in
	StatusCheckedOut CheckinStatus = "checked_out" // explicitly closed or superseded
	StatusExpired    CheckinStatus = "expired"     // swept after the TTL, never closed
)

// StatusOf derives the lifecycle state of a row.  A row is active while
// its flag is set; once inactive, the presence of checked_out_at
// distinguishes an explicit checkout (or supersede) from sweep expiry.
func StatusOf(r CheckinRecord) CheckinStatus {
	if r.IsActive {
		return StatusActive
	}
	if r.CheckedOutAt != nil {
		return StatusCheckedOut
	}
	return StatusExpired
}
