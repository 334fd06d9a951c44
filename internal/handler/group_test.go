package handler

import (
	"net/http"
	"testing"
)

func TestCreateAndGetGroup(t *testing.T) {
	e, _, _ := newTestServer(t)
	code := createGroup(t, e)

	t.Run("known code exists", func(t *testing.T) {
		var body struct {
			Exists bool `json:"exists"`
			Group  struct {
				Code string `json:"code"`
			} `json:"group"`
		}
		status := doJSON(t, e, http.MethodGet, "/v1/groups/"+code, nil, &body)
		if status != http.StatusOK || !body.Exists {
			t.Fatalf("status %d, exists %v", status, body.Exists)
		}
		if body.Group.Code != code {
			t.Errorf("group code %q, want %q", body.Group.Code, code)
		}
	})

	t.Run("unknown code is 200 exists=false", func(t *testing.T) {
		var body struct {
			Exists bool `json:"exists"`
		}
		status := doJSON(t, e, http.MethodGet, "/v1/groups/999999", nil, &body)
		if status != http.StatusOK {
			t.Fatalf("status %d, want 200", status)
		}
		if body.Exists {
			t.Error("unknown code reported as existing")
		}
	})
}
