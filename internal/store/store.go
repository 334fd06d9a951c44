// Package store defines the check-in ledger abstraction shared by every
// component.  The ledger table is the only shared mutable resource in
// the system, so all access goes through this single interface, which is
// passed explicitly into handlers — there are no package-level
// singletons.  This also allows swapping the MySQL backend for the
// in-memory one in tests.
package store

import (
	"context"
	"errors"

	"github.com/slopesquad/presence-api/internal/model"
)

// ErrGroupNotFound is returned when an operation references a join code
// that does not exist.  Handlers translate this into an HTTP 404.
var ErrGroupNotFound = errors.New("group not found")

// ErrNoCheckins is returned by UpdateAccommodation when the device has
// no ledger rows at all in the group.  The caller must be told
// explicitly rather than receiving a fabricated empty success.
var ErrNoCheckins = errors.New("no check-ins for device")

// ErrNoActiveCheckin is returned by a targeted checkout when the device
// has no active row at the requested place.  It is a 404 condition, not
// a hard failure.
var ErrNoActiveCheckin = errors.New("no active check-in at place")

// ErrCodeExhausted is returned when group code generation keeps
// colliding past the retry budget.
var ErrCodeExhausted = errors.New("group code generation exhausted")

// AccommodationInfo is the lodging payload attached to a check-in when
// the device opts into sharing at check-in time.
type AccommodationInfo struct {
	PlaceID string
	Name    string
	Coords  *model.Coordinates
}

// CheckInParams describes a new ledger row.  CheckedInAt is epoch ms
// and is always set by the caller (server now, or a validated
// client-supplied override for offline replay).  Accommodation is nil
// unless the check-in endpoint decided to store lodging data; the
// endpoint-level rule about when that happens lives in the handler.
type CheckInParams struct {
	GroupCode     string
	DeviceID      string
	UserName      string
	PlaceID       string
	PlaceName     string
	CheckedInAt   int64
	Accommodation *AccommodationInfo
}

// CheckOutParams describes a checkout.  An empty PlaceID selects
// full-leave mode: every active row for the device is deactivated.
// Now (epoch ms) becomes checked_out_at on the affected rows.
type CheckOutParams struct {
	GroupCode string
	DeviceID  string
	PlaceID   string
	Now       int64
}

// UpdateAccommodationParams describes an accommodation declaration for
// the device's current stay.  PlaceID/Name/Coords unconditionally
// overwrite whatever the latest row holds; Share only controls
// visibility.  Now (epoch ms) is used when deactivating stale rows.
type UpdateAccommodationParams struct {
	GroupCode string
	DeviceID  string
	Share     bool
	PlaceID   string
	Name      string
	Coords    *model.Coordinates
	Now       int64
}

// Store is the check-in ledger.  Every mutating operation is atomic:
// partial application of deactivate-then-insert would leave two active
// rows for one device, so backends wrap each operation in a single
// transaction (or an equivalent critical section).
//
// Read operations sweep first: active rows with checked_in_at older
// than expireBefore and no explicit checkout are flipped inactive
// within the same transaction as the read.  Sweeping never sets
// checked_out_at, which is what distinguishes "expired" from
// "checked_out" when status is derived.
type Store interface {
	// CreateGroup issues a fresh 6-digit join code, retrying on
	// collision up to the backend's attempt budget.  Returns
	// ErrCodeExhausted when the budget is spent.
	CreateGroup(ctx context.Context) (model.Group, error)

	// GetGroup looks a group up by code.  Returns ErrGroupNotFound.
	GetGroup(ctx context.Context, code string) (model.Group, error)

	// CheckIn deactivates any currently-active row for the device
	// (checked_out_at = CheckedInAt) and inserts a new active row, both
	// in one transaction.  Returns ErrGroupNotFound for unknown codes.
	CheckIn(ctx context.Context, p CheckInParams) (model.CheckinRecord, error)

	// CheckOut deactivates the device's active row at p.PlaceID, or all
	// of its active rows when p.PlaceID is empty (full leave).  Returns
	// the number of rows affected.  Targeted mode with zero matches
	// returns ErrNoActiveCheckin.
	CheckOut(ctx context.Context, p CheckOutParams) (int64, error)

	// UpdateAccommodation overwrites the accommodation fields of the
	// device's single most recent row (by checked_in_at, regardless of
	// is_active), sets the visibility flag, and deactivates any other
	// still-active rows for the device.  Returns ErrNoCheckins when the
	// device has no rows in the group.
	UpdateAccommodation(ctx context.Context, p UpdateAccommodationParams) (model.CheckinRecord, error)

	// Sweep flips active, never-checked-out rows older than
	// expireBefore (epoch ms) to inactive and reports how many.
	Sweep(ctx context.Context, code string, expireBefore int64) (int64, error)

	// ActiveCheckins sweeps, then returns the group's active rows.
	ActiveCheckins(ctx context.Context, code string, expireBefore int64) ([]model.CheckinRecord, error)

	// History sweeps, then returns all rows with checked_in_at >= since
	// (epoch ms), newest first.
	History(ctx context.Context, code string, expireBefore, since int64) ([]model.CheckinRecord, error)

	// Members sweeps, then derives one MemberView per device seen since
	// the window start.  Accommodation is returned as stored; read-time
	// redaction is the caller's concern.
	Members(ctx context.Context, code string, expireBefore, since int64) ([]model.MemberView, error)

	// Close releases backend resources.
	Close() error
}
