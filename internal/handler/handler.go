// Package handler implements the HTTP surface of the presence service.
// Handlers bind requests, validate them, call the ledger store and
// translate sentinel errors into JSON responses.  Every error body
// carries a human message under "error" and a machine-readable "kind".
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/slopesquad/presence-api/internal/model"
	"github.com/slopesquad/presence-api/internal/places"
	"github.com/slopesquad/presence-api/internal/store"
)

// Error kinds surfaced to clients.
const (
	kindNotFound      = "not_found"
	kindValidation    = "validation_error"
	kindCodeExhausted = "code_generation_exhausted"
	kindStorage       = "storage_error"
)

// GroupHandler groups the dependencies needed by all presence
// endpoints.  The store is the ledger abstraction; the places
// client may be nil, in which case place names stay client-supplied.
type GroupHandler struct {
	Store         store.Store
	Places        *places.Client
	CheckinTTL    time.Duration
	HistoryWindow time.Duration
	MaxSkew       time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewGroupHandler constructs a GroupHandler.  The store must be
// non-nil; the places client is optional.
func NewGroupHandler(st store.Store, pl *places.Client, checkinTTL, historyWindow, maxSkew time.Duration) *GroupHandler {
	if st == nil {
		panic("nil store passed to NewGroupHandler")
	}
	return &GroupHandler{
		Store:         st,
		Places:        pl,
		CheckinTTL:    checkinTTL,
		HistoryWindow: historyWindow,
		MaxSkew:       maxSkew,
		now:           time.Now,
	}
}

// nowMs returns the server's current time as epoch milliseconds.
func (h *GroupHandler) nowMs() int64 { return h.now().UnixMilli() }

// expireBefore is the sweep cutoff: active rows older than this are stale.
func (h *GroupHandler) expireBefore() int64 { return h.now().Add(-h.CheckinTTL).UnixMilli() }

// windowStart is the oldest checked_in_at the history window covers.
func (h *GroupHandler) windowStart() int64 { return h.now().Add(-h.HistoryWindow).UnixMilli() }

func errJSON(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, echo.Map{"error": msg, "kind": kind})
}

// storeErr maps ledger sentinel errors onto HTTP responses; anything
// unrecognized is a storage failure and surfaces as a 500.
func storeErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrGroupNotFound):
		return errJSON(c, http.StatusNotFound, kindNotFound, "group not found")
	case errors.Is(err, store.ErrNoCheckins):
		return errJSON(c, http.StatusNotFound, kindNotFound, "device has no check-ins in this group")
	case errors.Is(err, store.ErrNoActiveCheckin):
		return errJSON(c, http.StatusNotFound, kindNotFound, "no active check-in at that place")
	case errors.Is(err, store.ErrCodeExhausted):
		return errJSON(c, http.StatusInternalServerError, kindCodeExhausted, "could not generate a unique group code")
	default:
		c.Logger().Error(err)
		return errJSON(c, http.StatusInternalServerError, kindStorage, "database error")
	}
}

// validCoords rejects malformed lng/lat pairs.
func validCoords(co *model.Coordinates) bool {
	if co == nil {
		return true
	}
	return co.Lng >= -180 && co.Lng <= 180 && co.Lat >= -90 && co.Lat <= 90
}

// resolveTimestamp applies the client-supplied override of "now".
// Zero means "server time".  Timestamps may run arbitrarily far into
// the past (offline replay) but only maxSkew into the future.
func (h *GroupHandler) resolveTimestamp(ts int64) (int64, error) {
	if ts == 0 {
		return h.nowMs(), nil
	}
	if ts < 0 {
		return 0, fmt.Errorf("timestamp must be positive epoch milliseconds")
	}
	if ts > h.now().Add(h.MaxSkew).UnixMilli() {
		return 0, fmt.Errorf("timestamp too far in the future")
	}
	return ts, nil
}

// timeAgo renders a coarse relative label for history rows.
func timeAgo(ms, nowMs int64) string {
	d := time.Duration(nowMs-ms) * time.Millisecond
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
