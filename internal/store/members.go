package store

import "github.com/slopesquad/presence-api/internal/model"

// DeriveMembers builds one MemberView per device from ledger rows that
// have already been swept.  rows must be ordered newest first
// (checked_in_at descending, id descending on ties) so that the first
// row seen for a device is its latest.
//
// Two separate "latest" lookups feed each view: identity comes from the
// device's latest row, accommodation from its latest row that actually
// has accommodation data.  Those rows can differ — a device that
// checked in again without re-declaring lodging keeps the lodging from
// the earlier row.  Collapsing the two lookups into one is exactly the
// bug that made stale accommodation reappear, so they stay separate.
//
// The active row is matched independently of the latest row: a replayed
// check-in with an old client timestamp can leave the active row behind
// newer inactive ones in ledger order.
func DeriveMembers(rows []model.CheckinRecord) []model.MemberView {
	views := make([]model.MemberView, 0)
	index := make(map[string]int)
	accomSeen := make(map[string]bool)
	for _, r := range rows {
		i, ok := index[r.DeviceID]
		if !ok {
			i = len(views)
			index[r.DeviceID] = i
			views = append(views, model.MemberView{
				DeviceID:   r.DeviceID,
				UserName:   r.UserName,
				LastSeenAt: r.CheckedInAt,
			})
		}
		if r.IsActive && !views[i].IsCheckedIn {
			pid, pname := r.PlaceID, r.PlaceName
			views[i].IsCheckedIn = true
			views[i].CurrentPlaceID = &pid
			views[i].CurrentlyAt = &pname
		}
		if !accomSeen[r.DeviceID] && r.AccommodationPlaceID != nil {
			accomSeen[r.DeviceID] = true
			views[i].AccommodationPlaceID = r.AccommodationPlaceID
			views[i].AccommodationName = r.AccommodationName
			views[i].AccommodationCoords = r.AccommodationCoords
			views[i].DisplayAccommodationToGroup = r.DisplayAccommodationToGroup
		}
	}
	return views
}
