// Package places is a thin client for the resort place directory, the
// one external collaborator the presence core consumes.  It resolves a
// place id to a display name and coordinates when the client did not
// supply them.  The directory being down is an expected condition:
// every lookup failure degrades to the client-supplied values, and a
// check-in is never failed because of it.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Place is the directory's view of a location.
type Place struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Client calls the places subsystem over HTTP.  A nil Client is valid
// and reports every lookup as a miss.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the directory at baseURL, or nil when
// baseURL is empty (lookups disabled).
func New(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

// GetPlace fetches a place by id.  Any transport or decode failure is
// returned as an error; callers are expected to fall back to
// client-supplied names.
func (c *Client) GetPlace(ctx context.Context, id string) (Place, error) {
	if c == nil {
		return Place{}, fmt.Errorf("places: client not configured")
	}
	u := fmt.Sprintf("%s/v1/places/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Place{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("places: lookup %s: status %d", id, resp.StatusCode)
	}
	var p Place
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Place{}, err
	}
	return p, nil
}
