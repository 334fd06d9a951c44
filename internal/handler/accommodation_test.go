package handler

import (
	"net/http"
	"testing"
)

func TestUpdateAccommodationEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)
	code := createGroup(t, e)
	doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", checkInBody("dev1", "lift-4"), nil)

	url := "/v1/groups/" + code + "/members/dev1/accommodation"

	t.Run("declare and share", func(t *testing.T) {
		var rec struct {
			AccommodationName *string `json:"accommodation_name"`
			Display           bool    `json:"display_accommodation_to_group"`
		}
		status := doJSON(t, e, http.MethodPut, url,
			map[string]any{"share": true, "accommodation_place_id": "lodge-1", "accommodation_name": "Nozawa House"}, &rec)
		if status != http.StatusOK {
			t.Fatalf("status %d", status)
		}
		if rec.AccommodationName == nil || *rec.AccommodationName != "Nozawa House" || !rec.Display {
			t.Fatalf("unexpected record: %+v", rec)
		}
	})

	t.Run("hide keeps stored fields", func(t *testing.T) {
		var rec struct {
			AccommodationName *string `json:"accommodation_name"`
			Display           bool    `json:"display_accommodation_to_group"`
		}
		doJSON(t, e, http.MethodPut, url,
			map[string]any{"share": false, "accommodation_place_id": "lodge-1", "accommodation_name": "Nozawa House"}, &rec)
		if rec.Display {
			t.Error("display flag still on")
		}
		if rec.AccommodationName == nil || *rec.AccommodationName != "Nozawa House" {
			t.Fatal("stored lodging lost on hide")
		}
	})

	t.Run("place id required", func(t *testing.T) {
		var eb errBody
		status := doJSON(t, e, http.MethodPut, url, map[string]any{"share": true}, &eb)
		if status != http.StatusBadRequest || eb.Kind != "validation_error" {
			t.Fatalf("status %d kind %q", status, eb.Kind)
		}
	})

	t.Run("device without check-ins is 404", func(t *testing.T) {
		var eb errBody
		status := doJSON(t, e, http.MethodPut, "/v1/groups/"+code+"/members/ghost/accommodation",
			map[string]any{"share": true, "accommodation_place_id": "lodge-1"}, &eb)
		if status != http.StatusNotFound || eb.Kind != "not_found" {
			t.Fatalf("status %d kind %q", status, eb.Kind)
		}
	})

	t.Run("unknown group is 404", func(t *testing.T) {
		var eb errBody
		status := doJSON(t, e, http.MethodPut, "/v1/groups/000000/members/dev1/accommodation",
			map[string]any{"share": true, "accommodation_place_id": "lodge-1"}, &eb)
		if status != http.StatusNotFound {
			t.Fatalf("status %d", status)
		}
	})
}
