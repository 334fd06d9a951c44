package model

// MemberView is the derived per-device snapshot a group sees.  It is
// never stored: identity fields come from the device's most recent
// ledger row, accommodation fields from the device's most recent row
// that actually carries accommodation data.  The two rows may differ,
// which is why the lookups are kept separate in the store.
//
// Fields:
//  DeviceID                    – opaque device identifier.
//  UserName                    – display name from the latest row.
//  LastSeenAt                  – checked_in_at of the latest row (epoch ms).
//  IsCheckedIn                 – whether the device has an active row.
//  CurrentPlaceID / CurrentlyAt– place of the active row, when any.
//  Accommodation*              – lodging data from the latest row with
//                                non-null accommodation.
//  DisplayAccommodationToGroup – visibility flag from that same row.
type MemberView struct {
	DeviceID                    string       `json:"device_id"`
	UserName                    string       `json:"user_name"`
	LastSeenAt                  int64        `json:"last_seen_at"`
	IsCheckedIn                 bool         `json:"is_checked_in"`
	CurrentPlaceID              *string      `json:"current_place_id,omitempty"`
	CurrentlyAt                 *string      `json:"currently_at,omitempty"`
	AccommodationPlaceID        *string      `json:"accommodation_place_id,omitempty"`
	AccommodationName           *string      `json:"accommodation_name,omitempty"`
	AccommodationCoords         *Coordinates `json:"accommodation_coords,omitempty"`
	DisplayAccommodationToGroup bool         `json:"display_accommodation_to_group"`
}

// Redacted returns a copy of the view with accommodation fields cleared
// when the owning device has visibility turned off.  Redaction happens
// at read time only; stored accommodation data is never touched by a
// visibility toggle.
func (m MemberView) Redacted() MemberView {
	if m.DisplayAccommodationToGroup {
		return m
	}
	m.AccommodationPlaceID = nil
	m.AccommodationName = nil
	m.AccommodationCoords = nil
	return m
}
