package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/slopesquad/presence-api/internal/model"
	"github.com/slopesquad/presence-api/internal/store"
)

type accommodationRequest struct {
	Share                bool               `json:"share"`
	AccommodationPlaceID string             `json:"accommodation_place_id"`
	AccommodationCoords  *model.Coordinates `json:"accommodation_coords"`
	AccommodationName    string             `json:"accommodation_name"`
}

// UpdateAccommodation handles
// PUT /v1/groups/:code/members/:device_id/accommodation.
//
// The supplied lodging always overwrites the device's most recent
// ledger row; share only controls whether other members see it.
// Toggling share off and on again must therefore reveal the lodging
// that was last set, never an older one recovered from a different
// row.  A device with no check-ins at all gets an explicit 404 rather
// than a fabricated success.
func (h *GroupHandler) UpdateAccommodation(c echo.Context) error {
	code := c.Param("code")
	deviceID := c.Param("device_id")
	var body accommodationRequest
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, kindValidation, "invalid request body")
	}
	if strings.TrimSpace(body.AccommodationPlaceID) == "" {
		return errJSON(c, http.StatusBadRequest, kindValidation, "accommodation_place_id is required")
	}
	if !validCoords(body.AccommodationCoords) {
		return errJSON(c, http.StatusBadRequest, kindValidation, "malformed accommodation coordinates")
	}

	rec, err := h.Store.UpdateAccommodation(c.Request().Context(), store.UpdateAccommodationParams{
		GroupCode: code,
		DeviceID:  deviceID,
		Share:     body.Share,
		PlaceID:   body.AccommodationPlaceID,
		Name:      body.AccommodationName,
		Coords:    body.AccommodationCoords,
		Now:       h.nowMs(),
	})
	if err != nil {
		return storeErr(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
