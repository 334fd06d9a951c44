package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/slopesquad/presence-api/internal/metrics"
	"github.com/slopesquad/presence-api/internal/model"
	"github.com/slopesquad/presence-api/internal/queue"
	qp "github.com/slopesquad/presence-api/internal/service"
	"github.com/slopesquad/presence-api/internal/store"
)

type checkInRequest struct {
	DeviceID                    string             `json:"device_id"`
	UserName                    string             `json:"user_name"`
	PlaceID                     string             `json:"place_id"`
	PlaceName                   string             `json:"place_name"`
	AccommodationPlaceID        string             `json:"accommodation_place_id"`
	AccommodationCoords         *model.Coordinates `json:"accommodation_coords"`
	AccommodationName           string             `json:"accommodation_name"`
	DisplayAccommodationToGroup bool               `json:"display_accommodation_to_group"`
	Timestamp                   int64              `json:"timestamp"`
}

// CheckIn handles POST /v1/groups/:code/checkin.  The previous active
// check-in for the device (if any) is superseded atomically with the
// insert.  When the client opts into accommodation sharing here, the
// lodging fields are stored on the new row; with sharing off they stay
// null — a fresh check-in is a fresh accommodation declaration, unlike
// the dedicated accommodation endpoint which only ever flips visibility.
func (h *GroupHandler) CheckIn(c echo.Context) error {
	code := c.Param("code")
	var body checkInRequest
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, kindValidation, "invalid request body")
	}
	body.DeviceID = strings.TrimSpace(body.DeviceID)
	if body.DeviceID == "" {
		return errJSON(c, http.StatusBadRequest, kindValidation, "device_id is required")
	}
	if strings.TrimSpace(body.UserName) == "" {
		return errJSON(c, http.StatusBadRequest, kindValidation, "user_name is required")
	}
	if strings.TrimSpace(body.PlaceID) == "" {
		return errJSON(c, http.StatusBadRequest, kindValidation, "place_id is required")
	}
	if !validCoords(body.AccommodationCoords) {
		return errJSON(c, http.StatusBadRequest, kindValidation, "malformed accommodation coordinates")
	}
	ts, err := h.resolveTimestamp(body.Timestamp)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, kindValidation, err.Error())
	}

	ctx := c.Request().Context()
	placeName := body.PlaceName
	if placeName == "" {
		// Best effort: the directory being down falls back to whatever
		// the client sent.
		if p, lookupErr := h.Places.GetPlace(ctx, body.PlaceID); lookupErr == nil {
			placeName = p.Name
		}
	}

	params := store.CheckInParams{
		GroupCode:   code,
		DeviceID:    body.DeviceID,
		UserName:    body.UserName,
		PlaceID:     body.PlaceID,
		PlaceName:   placeName,
		CheckedInAt: ts,
	}
	if body.DisplayAccommodationToGroup && body.AccommodationPlaceID != "" {
		params.Accommodation = &store.AccommodationInfo{
			PlaceID: body.AccommodationPlaceID,
			Name:    body.AccommodationName,
			Coords:  body.AccommodationCoords,
		}
	}

	rec, err := h.Store.CheckIn(ctx, params)
	if err != nil {
		return storeErr(c, err)
	}
	metrics.Checkins.Inc()

	// Fire-and-forget: a broker outage never fails a check-in.
	go func() {
		_ = qp.PublishCheckinCreated(context.Background(), queue.CheckinCreatedEvent{
			EventID:     uuid.NewString(),
			GroupCode:   rec.GroupCode,
			DeviceID:    rec.DeviceID,
			UserName:    rec.UserName,
			PlaceID:     rec.PlaceID,
			PlaceName:   rec.PlaceName,
			CheckedInAt: rec.CheckedInAt,
		})
	}()

	return c.JSON(http.StatusCreated, rec)
}

type checkOutRequest struct {
	DeviceID string `json:"device_id"`
	PlaceID  string `json:"place_id"`
}

// CheckOut handles POST /v1/groups/:code/checkout.  With a place_id it
// targets the active check-in at that place; without one it is the
// leave-group path and closes every active check-in for the device.
func (h *GroupHandler) CheckOut(c echo.Context) error {
	code := c.Param("code")
	var body checkOutRequest
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, kindValidation, "invalid request body")
	}
	if strings.TrimSpace(body.DeviceID) == "" {
		return errJSON(c, http.StatusBadRequest, kindValidation, "device_id is required")
	}

	now := h.nowMs()
	n, err := h.Store.CheckOut(c.Request().Context(), store.CheckOutParams{
		GroupCode: code,
		DeviceID:  body.DeviceID,
		PlaceID:   body.PlaceID,
		Now:       now,
	})
	if err != nil {
		return storeErr(c, err)
	}

	mode := "full"
	if body.PlaceID != "" {
		mode = "targeted"
	}
	metrics.Checkouts.WithLabelValues(mode).Inc()
	if mode == "full" && n > 0 {
		go func() {
			_ = qp.PublishGroupLeft(context.Background(), queue.GroupLeftEvent{
				EventID:      uuid.NewString(),
				GroupCode:    code,
				DeviceID:     body.DeviceID,
				RowsAffected: n,
				LeftAt:       now,
			})
		}()
	}
	return c.JSON(http.StatusOK, echo.Map{"mode": mode, "rows_affected": n})
}

// annotatedCheckin is a history row plus its derived status and a
// relative time label.
type annotatedCheckin struct {
	model.CheckinRecord
	Status  model.CheckinStatus `json:"status"`
	TimeAgo string              `json:"time_ago"`
}

// ListCheckins handles GET /v1/groups/:code/checkins.  The sweeper runs
// first (inside the store read), so rows that idled past the TTL show
// up as expired rather than active.  ?active=true narrows the response
// to the currently active rows.
func (h *GroupHandler) ListCheckins(c echo.Context) error {
	code := c.Param("code")
	ctx := c.Request().Context()

	var recs []model.CheckinRecord
	var err error
	if c.QueryParam("active") == "true" {
		recs, err = h.Store.ActiveCheckins(ctx, code, h.expireBefore())
	} else {
		recs, err = h.Store.History(ctx, code, h.expireBefore(), h.windowStart())
	}
	if err != nil {
		return storeErr(c, err)
	}

	now := h.nowMs()
	out := make([]annotatedCheckin, 0, len(recs))
	for _, r := range recs {
		out = append(out, annotatedCheckin{
			CheckinRecord: r,
			Status:        model.StatusOf(r),
			TimeAgo:       timeAgo(r.CheckedInAt, now),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"checkins": out})
}
