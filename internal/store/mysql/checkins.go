package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/slopesquad/presence-api/internal/metrics"
	"github.com/slopesquad/presence-api/internal/model"
	"github.com/slopesquad/presence-api/internal/store"
)

// checkinColumns is the canonical select list for ledger rows.  Every
// read in this file scans through scanCheckin, so the order here and
// the scan order must stay in sync.
const checkinColumns = `id, group_code, device_id, user_name, place_id, place_name,
	checked_in_at, checked_out_at, is_active,
	accommodation_place_id, accommodation_name, accommodation_lng, accommodation_lat,
	display_accommodation_to_group`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckin(sc rowScanner) (model.CheckinRecord, error) {
	var r model.CheckinRecord
	var checkedOut sql.NullInt64
	var accomPlace, accomName sql.NullString
	var accomLng, accomLat sql.NullFloat64
	err := sc.Scan(
		&r.ID, &r.GroupCode, &r.DeviceID, &r.UserName, &r.PlaceID, &r.PlaceName,
		&r.CheckedInAt, &checkedOut, &r.IsActive,
		&accomPlace, &accomName, &accomLng, &accomLat,
		&r.DisplayAccommodationToGroup,
	)
	if err != nil {
		return model.CheckinRecord{}, err
	}
	if checkedOut.Valid {
		v := checkedOut.Int64
		r.CheckedOutAt = &v
	}
	if accomPlace.Valid {
		v := accomPlace.String
		r.AccommodationPlaceID = &v
	}
	if accomName.Valid {
		v := accomName.String
		r.AccommodationName = &v
	}
	if accomLng.Valid && accomLat.Valid {
		r.AccommodationCoords = &model.Coordinates{Lng: accomLng.Float64, Lat: accomLat.Float64}
	}
	return r, nil
}

func getCheckinTx(ctx context.Context, tx *sql.Tx, id uint64) (model.CheckinRecord, error) {
	return scanCheckin(tx.QueryRowContext(ctx,
		`SELECT `+checkinColumns+` FROM checkins WHERE id = ?`, id))
}

// CheckIn records a new active check-in for the device.  The previous
// active row (if any) is superseded with checked_out_at set to the new
// row's timestamp, and both steps share one transaction: a failure
// after the deactivate must roll the deactivate back, and two
// concurrent check-ins for the same device must not leave two active
// rows.
func (s *Store) CheckIn(ctx context.Context, p store.CheckInParams) (model.CheckinRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CheckinRecord{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := groupExistsTx(ctx, tx, p.GroupCode); err != nil {
		return model.CheckinRecord{}, err
	}

	// Auto-supersede: at most one active row per (group, device).
	_, err = tx.ExecContext(ctx,
		`UPDATE checkins SET is_active = 0, checked_out_at = ?
		 WHERE group_code = ? AND device_id = ? AND is_active = 1`,
		p.CheckedInAt, p.GroupCode, p.DeviceID,
	)
	if err != nil {
		return model.CheckinRecord{}, err
	}

	var accomPlace, accomName any
	var accomLng, accomLat any
	display := false
	if p.Accommodation != nil {
		accomPlace = p.Accommodation.PlaceID
		accomName = p.Accommodation.Name
		if p.Accommodation.Coords != nil {
			accomLng = p.Accommodation.Coords.Lng
			accomLat = p.Accommodation.Coords.Lat
		}
		display = true
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO checkins
			(group_code, device_id, user_name, place_id, place_name, checked_in_at, is_active,
			 accommodation_place_id, accommodation_name, accommodation_lng, accommodation_lat,
			 display_accommodation_to_group)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)`,
		p.GroupCode, p.DeviceID, p.UserName, p.PlaceID, p.PlaceName, p.CheckedInAt,
		accomPlace, accomName, accomLng, accomLat, display,
	)
	if err != nil {
		return model.CheckinRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.CheckinRecord{}, err
	}
	rec, err := getCheckinTx(ctx, tx, uint64(id))
	if err != nil {
		return model.CheckinRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.CheckinRecord{}, err
	}
	committed = true
	return rec, nil
}

// CheckOut deactivates check-ins for the device.  With a place it
// targets the single active row at that place; without one it is the
// "leave group" path and closes every active row for the device.
func (s *Store) CheckOut(ctx context.Context, p store.CheckOutParams) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := groupExistsTx(ctx, tx, p.GroupCode); err != nil {
		return 0, err
	}

	q := `UPDATE checkins SET is_active = 0, checked_out_at = ?
	      WHERE group_code = ? AND device_id = ? AND is_active = 1`
	args := []any{p.Now, p.GroupCode, p.DeviceID}
	if p.PlaceID != "" {
		q += ` AND place_id = ?`
		args = append(args, p.PlaceID)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if p.PlaceID != "" && n == 0 {
		return 0, store.ErrNoActiveCheckin
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// UpdateAccommodation attaches lodging data to the device's current
// stay.  The target is the single most recent row by checked_in_at
// (id breaks ties), active or not: accommodation belongs to the stay,
// not to the currently active outing.  The accommodation fields are
// overwritten unconditionally — share=false must never null them out,
// only flip the visibility flag — and any other rows still marked
// active are closed so no second row can disagree about lodging.
//
// The SELECT locks the target row (FOR UPDATE) so two concurrent
// updates for the same device serialize instead of losing one write.
func (s *Store) UpdateAccommodation(ctx context.Context, p store.UpdateAccommodationParams) (model.CheckinRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CheckinRecord{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := groupExistsTx(ctx, tx, p.GroupCode); err != nil {
		return model.CheckinRecord{}, err
	}

	var targetID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM checkins
		 WHERE group_code = ? AND device_id = ?
		 ORDER BY checked_in_at DESC, id DESC
		 LIMIT 1 FOR UPDATE`,
		p.GroupCode, p.DeviceID,
	).Scan(&targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CheckinRecord{}, store.ErrNoCheckins
		}
		return model.CheckinRecord{}, err
	}

	var lng, lat any
	if p.Coords != nil {
		lng = p.Coords.Lng
		lat = p.Coords.Lat
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE checkins
		 SET accommodation_place_id = ?, accommodation_name = ?,
		     accommodation_lng = ?, accommodation_lat = ?,
		     display_accommodation_to_group = ?
		 WHERE id = ?`,
		p.PlaceID, p.Name, lng, lat, p.Share, targetID,
	)
	if err != nil {
		return model.CheckinRecord{}, err
	}

	// Stale-row cleanup: no other row may stay active next to the stay
	// row, or member reads could coalesce lodging from the wrong row.
	_, err = tx.ExecContext(ctx,
		`UPDATE checkins SET is_active = 0, checked_out_at = ?
		 WHERE group_code = ? AND device_id = ? AND is_active = 1 AND id <> ?`,
		p.Now, p.GroupCode, p.DeviceID, targetID,
	)
	if err != nil {
		return model.CheckinRecord{}, err
	}

	rec, err := getCheckinTx(ctx, tx, targetID)
	if err != nil {
		return model.CheckinRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.CheckinRecord{}, err
	}
	committed = true
	return rec, nil
}

// sweepTx flips stale active rows to inactive.  checked_out_at stays
// NULL: that is how an expired row reads differently from an explicit
// checkout later.
func sweepTx(ctx context.Context, tx *sql.Tx, code string, expireBefore int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE checkins SET is_active = 0
		 WHERE group_code = ? AND is_active = 1 AND checked_out_at IS NULL AND checked_in_at < ?`,
		code, expireBefore,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RowsExpired.Add(float64(n))
	}
	return n, nil
}

// Sweep runs the expiry sweeper on its own.  Reads call sweepTx
// themselves inside their transaction; this entry point exists for
// callers that want to sweep without reading.
func (s *Store) Sweep(ctx context.Context, code string, expireBefore int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	n, err := sweepTx(ctx, tx, code, expireBefore)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

func queryCheckinsTx(ctx context.Context, tx *sql.Tx, q string, args ...any) ([]model.CheckinRecord, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := make([]model.CheckinRecord, 0)
	for rows.Next() {
		r, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// readSwept begins a transaction, validates the group, sweeps, runs the
// provided query, and commits.  Sweeping inside the same transaction
// keeps the returned rows consistent with the sweep that just ran.
func (s *Store) readSwept(ctx context.Context, code string, expireBefore int64, q string, args ...any) ([]model.CheckinRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := groupExistsTx(ctx, tx, code); err != nil {
		return nil, err
	}
	if _, err := sweepTx(ctx, tx, code, expireBefore); err != nil {
		return nil, err
	}
	recs, err := queryCheckinsTx(ctx, tx, q, args...)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return recs, nil
}

// ActiveCheckins returns the group's active rows, newest first.
func (s *Store) ActiveCheckins(ctx context.Context, code string, expireBefore int64) ([]model.CheckinRecord, error) {
	return s.readSwept(ctx, code, expireBefore,
		`SELECT `+checkinColumns+` FROM checkins
		 WHERE group_code = ? AND is_active = 1
		 ORDER BY checked_in_at DESC, id DESC`,
		code,
	)
}

// History returns all rows inside the window, newest first.
func (s *Store) History(ctx context.Context, code string, expireBefore, since int64) ([]model.CheckinRecord, error) {
	return s.readSwept(ctx, code, expireBefore,
		`SELECT `+checkinColumns+` FROM checkins
		 WHERE group_code = ? AND checked_in_at >= ?
		 ORDER BY checked_in_at DESC, id DESC`,
		code, since,
	)
}

// Members derives the per-device snapshots from the window rows.  The
// derivation itself lives in store.DeriveMembers so the in-memory
// backend cannot drift from this one.
func (s *Store) Members(ctx context.Context, code string, expireBefore, since int64) ([]model.MemberView, error) {
	recs, err := s.History(ctx, code, expireBefore, since)
	if err != nil {
		return nil, err
	}
	return store.DeriveMembers(recs), nil
}
