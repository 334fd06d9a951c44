package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slopesquad/presence-api/internal/places"
)

func checkInBody(device, place string) map[string]any {
	return map[string]any{
		"device_id":  device,
		"user_name":  device,
		"place_id":   place,
		"place_name": "Place " + place,
	}
}

func TestCheckInEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)
	code := createGroup(t, e)

	t.Run("created with server timestamp", func(t *testing.T) {
		var rec struct {
			DeviceID    string `json:"device_id"`
			PlaceID     string `json:"place_id"`
			CheckedInAt int64  `json:"checked_in_at"`
			IsActive    bool   `json:"is_active"`
		}
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", checkInBody("dev1", "lift-4"), &rec)
		if status != http.StatusCreated {
			t.Fatalf("status %d, want 201", status)
		}
		if !rec.IsActive || rec.PlaceID != "lift-4" {
			t.Fatalf("unexpected record: %+v", rec)
		}
		if rec.CheckedInAt != testNow.UnixMilli() {
			t.Errorf("checked_in_at = %d, want server time %d", rec.CheckedInAt, testNow.UnixMilli())
		}
	})

	t.Run("missing fields are validation errors", func(t *testing.T) {
		for _, missing := range []string{"device_id", "user_name", "place_id"} {
			body := checkInBody("dev1", "lift-4")
			delete(body, missing)
			var eb errBody
			status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &eb)
			if status != http.StatusBadRequest || eb.Kind != "validation_error" {
				t.Errorf("without %s: status %d kind %q", missing, status, eb.Kind)
			}
		}
	})

	t.Run("bad coordinates rejected", func(t *testing.T) {
		body := checkInBody("dev1", "lift-4")
		body["accommodation_coords"] = map[string]float64{"lng": 181, "lat": 0}
		var eb errBody
		if status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &eb); status != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", status)
		}
	})

	t.Run("future timestamp beyond skew rejected", func(t *testing.T) {
		body := checkInBody("dev1", "lift-4")
		body["timestamp"] = testNow.Add(48 * time.Hour).UnixMilli()
		var eb errBody
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &eb)
		if status != http.StatusBadRequest || eb.Kind != "validation_error" {
			t.Fatalf("status %d kind %q", status, eb.Kind)
		}
	})

	t.Run("unknown group is 404", func(t *testing.T) {
		var eb errBody
		status := doJSON(t, e, http.MethodPost, "/v1/groups/000000/checkin", checkInBody("dev1", "lift-4"), &eb)
		if status != http.StatusNotFound || eb.Kind != "not_found" {
			t.Fatalf("status %d kind %q", status, eb.Kind)
		}
	})

	t.Run("lodging stored only when shared", func(t *testing.T) {
		body := checkInBody("dev2", "lift-4")
		body["accommodation_place_id"] = "lodge-1"
		body["accommodation_name"] = "Nozawa House"
		// display flag absent: a fresh check-in without opt-in leaves
		// the lodging columns null.
		var rec struct {
			AccommodationName *string `json:"accommodation_name"`
		}
		doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &rec)
		if rec.AccommodationName != nil {
			t.Fatalf("lodging stored without opt-in: %q", *rec.AccommodationName)
		}

		body["display_accommodation_to_group"] = true
		doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &rec)
		if rec.AccommodationName == nil || *rec.AccommodationName != "Nozawa House" {
			t.Fatalf("lodging missing after opt-in: %+v", rec.AccommodationName)
		}
	})
}

func TestCheckInPlaceLookup(t *testing.T) {
	dir := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/places/lift-4" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(places.Place{ID: "lift-4", Name: "Lift 4 Base"})
	}))
	defer dir.Close()

	e, h, _ := newTestServer(t)
	h.Places = places.New(dir.URL)
	code := createGroup(t, e)

	t.Run("empty place_name resolved from the directory", func(t *testing.T) {
		body := checkInBody("dev1", "lift-4")
		delete(body, "place_name")
		var rec struct {
			PlaceName string `json:"place_name"`
		}
		doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &rec)
		if rec.PlaceName != "Lift 4 Base" {
			t.Fatalf("place_name = %q, want directory name", rec.PlaceName)
		}
	})

	t.Run("client name preferred when supplied", func(t *testing.T) {
		var rec struct {
			PlaceName string `json:"place_name"`
		}
		doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", checkInBody("dev1", "lift-4"), &rec)
		if rec.PlaceName != "Place lift-4" {
			t.Fatalf("place_name = %q, want client value", rec.PlaceName)
		}
	})

	t.Run("directory miss degrades to client value", func(t *testing.T) {
		body := checkInBody("dev1", "unknown-place")
		delete(body, "place_name")
		var rec struct {
			PlaceName string `json:"place_name"`
		}
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", body, &rec)
		if status != http.StatusCreated {
			t.Fatalf("status %d, want 201 despite directory miss", status)
		}
		if rec.PlaceName != "" {
			t.Errorf("place_name = %q, want empty fallback", rec.PlaceName)
		}
	})
}

func TestCheckOutEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)
	code := createGroup(t, e)
	doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", checkInBody("dev1", "lift-4"), nil)

	t.Run("wrong place is 404 and leaves the row active", func(t *testing.T) {
		var eb errBody
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkout",
			map[string]any{"device_id": "dev1", "place_id": "lift-9"}, &eb)
		if status != http.StatusNotFound || eb.Kind != "not_found" {
			t.Fatalf("status %d kind %q", status, eb.Kind)
		}
	})

	t.Run("targeted checkout", func(t *testing.T) {
		var body struct {
			Mode         string `json:"mode"`
			RowsAffected int64  `json:"rows_affected"`
		}
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkout",
			map[string]any{"device_id": "dev1", "place_id": "lift-4"}, &body)
		if status != http.StatusOK {
			t.Fatalf("status %d", status)
		}
		if body.Mode != "targeted" || body.RowsAffected != 1 {
			t.Fatalf("got %+v", body)
		}
	})

	t.Run("full leave with nothing active affects zero rows", func(t *testing.T) {
		var body struct {
			Mode         string `json:"mode"`
			RowsAffected int64  `json:"rows_affected"`
		}
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkout",
			map[string]any{"device_id": "dev1"}, &body)
		if status != http.StatusOK || body.Mode != "full" || body.RowsAffected != 0 {
			t.Fatalf("status %d body %+v", status, body)
		}
	})

	t.Run("device_id required", func(t *testing.T) {
		var eb errBody
		status := doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkout", map[string]any{}, &eb)
		if status != http.StatusBadRequest || eb.Kind != "validation_error" {
			t.Fatalf("status %d kind %q", status, eb.Kind)
		}
	})
}

func TestListCheckinsEndpoint(t *testing.T) {
	e, _, _ := newTestServer(t)
	code := createGroup(t, e)

	// One row idles past the TTL, one is fresh, one is closed.
	stale := checkInBody("stale", "a")
	stale["timestamp"] = testNow.Add(-2 * time.Hour).UnixMilli()
	doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", stale, nil)
	doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", checkInBody("fresh", "b"), nil)
	doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkin", checkInBody("gone", "c"), nil)
	doJSON(t, e, http.MethodPost, "/v1/groups/"+code+"/checkout", map[string]any{"device_id": "gone"}, nil)

	type row struct {
		DeviceID string `json:"device_id"`
		Status   string `json:"status"`
		TimeAgo  string `json:"time_ago"`
	}
	var body struct {
		Checkins []row `json:"checkins"`
	}

	t.Run("history annotates status", func(t *testing.T) {
		status := doJSON(t, e, http.MethodGet, "/v1/groups/"+code+"/checkins", nil, &body)
		if status != http.StatusOK {
			t.Fatalf("status %d", status)
		}
		want := map[string]string{"stale": "expired", "fresh": "active", "gone": "checked_out"}
		for _, r := range body.Checkins {
			if want[r.DeviceID] != r.Status {
				t.Errorf("%s: status %q, want %q", r.DeviceID, r.Status, want[r.DeviceID])
			}
			if r.TimeAgo == "" {
				t.Errorf("%s: missing time_ago", r.DeviceID)
			}
		}
	})

	t.Run("active filter", func(t *testing.T) {
		status := doJSON(t, e, http.MethodGet, "/v1/groups/"+code+"/checkins?active=true", nil, &body)
		if status != http.StatusOK {
			t.Fatalf("status %d", status)
		}
		if len(body.Checkins) != 1 || body.Checkins[0].DeviceID != "fresh" {
			t.Fatalf("active rows: %+v", body.Checkins)
		}
	})

	t.Run("unknown group is 404", func(t *testing.T) {
		var eb errBody
		if status := doJSON(t, e, http.MethodGet, "/v1/groups/000000/checkins", nil, &eb); status != http.StatusNotFound {
			t.Fatalf("status %d", status)
		}
	})
}
