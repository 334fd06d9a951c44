package store

import (
	"testing"

	"github.com/slopesquad/presence-api/internal/model"
)

func strp(s string) *string { return &s }

func TestDeriveMembers(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := DeriveMembers(nil); len(got) != 0 {
			t.Fatalf("expected no views, got %d", len(got))
		}
	})

	t.Run("one view per device in first-seen order", func(t *testing.T) {
		out := int64(900)
		views := DeriveMembers([]model.CheckinRecord{
			{ID: 3, DeviceID: "b", UserName: "Beth", CheckedInAt: 3000, IsActive: true, PlaceID: "p3", PlaceName: "Onsen"},
			{ID: 2, DeviceID: "a", UserName: "Ada", CheckedInAt: 2000, CheckedOutAt: &out},
			{ID: 1, DeviceID: "a", UserName: "Ada", CheckedInAt: 1000, CheckedOutAt: &out},
		})
		if len(views) != 2 {
			t.Fatalf("views = %d, want 2", len(views))
		}
		if views[0].DeviceID != "b" || views[1].DeviceID != "a" {
			t.Fatalf("order wrong: %s, %s", views[0].DeviceID, views[1].DeviceID)
		}
		if views[1].LastSeenAt != 2000 {
			t.Errorf("a.last_seen_at = %d, want 2000", views[1].LastSeenAt)
		}
		if !views[0].IsCheckedIn || *views[0].CurrentlyAt != "Onsen" {
			t.Errorf("b should be checked in at Onsen: %+v", views[0])
		}
		if views[1].IsCheckedIn {
			t.Error("a should not be checked in")
		}
	})

	t.Run("accommodation taken from latest row that has it", func(t *testing.T) {
		views := DeriveMembers([]model.CheckinRecord{
			{ID: 3, DeviceID: "a", CheckedInAt: 3000, IsActive: true, PlaceID: "p3"},
			{ID: 2, DeviceID: "a", CheckedInAt: 2000, AccommodationPlaceID: strp("lodge-2"), AccommodationName: strp("Pension Schnee"), DisplayAccommodationToGroup: true},
			{ID: 1, DeviceID: "a", CheckedInAt: 1000, AccommodationPlaceID: strp("lodge-1"), AccommodationName: strp("Nozawa House"), DisplayAccommodationToGroup: true},
		})
		v := views[0]
		if v.AccommodationName == nil || *v.AccommodationName != "Pension Schnee" {
			t.Fatalf("expected Pension Schnee, got %+v", v.AccommodationName)
		}
		if v.LastSeenAt != 3000 {
			t.Errorf("last_seen_at = %d, want 3000", v.LastSeenAt)
		}
	})

	t.Run("hidden lodging keeps the latest declaration's flag", func(t *testing.T) {
		views := DeriveMembers([]model.CheckinRecord{
			{ID: 2, DeviceID: "a", CheckedInAt: 2000, IsActive: true, AccommodationPlaceID: strp("lodge-2"), AccommodationName: strp("Hidden"), DisplayAccommodationToGroup: false},
			{ID: 1, DeviceID: "a", CheckedInAt: 1000, AccommodationPlaceID: strp("lodge-1"), AccommodationName: strp("Shown"), DisplayAccommodationToGroup: true},
		})
		v := views[0]
		// The newer row wins even though its flag is off; an older
		// shared declaration must not leak through.
		if *v.AccommodationName != "Hidden" || v.DisplayAccommodationToGroup {
			t.Fatalf("older shared lodging leaked: %+v", v)
		}
	})

	t.Run("active row behind newer inactive rows", func(t *testing.T) {
		out := int64(4500)
		views := DeriveMembers([]model.CheckinRecord{
			{ID: 1, DeviceID: "a", CheckedInAt: 5000, CheckedOutAt: &out, PlaceID: "old"},
			{ID: 2, DeviceID: "a", CheckedInAt: 2000, IsActive: true, PlaceID: "replayed", PlaceName: "Replayed"},
		})
		v := views[0]
		if !v.IsCheckedIn || *v.CurrentPlaceID != "replayed" {
			t.Fatalf("active row not found: %+v", v)
		}
		if v.LastSeenAt != 5000 {
			t.Errorf("last_seen_at = %d, want 5000", v.LastSeenAt)
		}
	})
}
