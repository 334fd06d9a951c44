// Package memory implements the check-in ledger in process memory.  It
// mirrors the MySQL backend's semantics behind a single mutex, which is
// what tests (and local development without a database) run against.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/slopesquad/presence-api/internal/model"
	"github.com/slopesquad/presence-api/internal/store"
)

// Store holds all state behind one mutex.  Each exported operation is a
// single critical section, matching the one-transaction-per-operation
// rule of the MySQL backend.
type Store struct {
	mu           sync.Mutex
	groups       map[string]model.Group
	checkins     []model.CheckinRecord
	nextID       uint64
	codeAttempts int
}

// New returns an empty in-memory ledger with the given code collision
// retry budget.
func New(codeAttempts int) *Store {
	if codeAttempts < 1 {
		codeAttempts = 1
	}
	return &Store{
		groups:       make(map[string]model.Group),
		nextID:       1,
		codeAttempts: codeAttempts,
	}
}

// Close is a no-op for the in-memory backend.
func (s *Store) Close() error { return nil }

// CreateGroup issues a fresh 6-digit code, retrying on collision.
func (s *Store) CreateGroup(ctx context.Context) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			return model.Group{}, err
		}
		code := fmt.Sprintf("%06d", n.Int64())
		if _, taken := s.groups[code]; taken {
			continue
		}
		g := model.Group{Code: code, CreatedAt: time.Now().UTC()}
		s.groups[code] = g
		return g, nil
	}
	return model.Group{}, store.ErrCodeExhausted
}

// GetGroup looks up a group by its join code.
func (s *Store) GetGroup(ctx context.Context, code string) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[code]
	if !ok {
		return model.Group{}, store.ErrGroupNotFound
	}
	return g, nil
}

// CheckIn deactivates the device's active rows and appends a new active
// row, all under one lock hold.
func (s *Store) CheckIn(ctx context.Context, p store.CheckInParams) (model.CheckinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[p.GroupCode]; !ok {
		return model.CheckinRecord{}, store.ErrGroupNotFound
	}
	for i := range s.checkins {
		r := &s.checkins[i]
		if r.GroupCode == p.GroupCode && r.DeviceID == p.DeviceID && r.IsActive {
			out := p.CheckedInAt
			r.IsActive = false
			r.CheckedOutAt = &out
		}
	}
	rec := model.CheckinRecord{
		ID:          s.nextID,
		GroupCode:   p.GroupCode,
		DeviceID:    p.DeviceID,
		UserName:    p.UserName,
		PlaceID:     p.PlaceID,
		PlaceName:   p.PlaceName,
		CheckedInAt: p.CheckedInAt,
		IsActive:    true,
	}
	if p.Accommodation != nil {
		pid, name := p.Accommodation.PlaceID, p.Accommodation.Name
		rec.AccommodationPlaceID = &pid
		rec.AccommodationName = &name
		if p.Accommodation.Coords != nil {
			c := *p.Accommodation.Coords
			rec.AccommodationCoords = &c
		}
		rec.DisplayAccommodationToGroup = true
	}
	s.nextID++
	s.checkins = append(s.checkins, rec)
	return rec, nil
}

// CheckOut deactivates the targeted active row, or every active row for
// the device in full-leave mode.
func (s *Store) CheckOut(ctx context.Context, p store.CheckOutParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[p.GroupCode]; !ok {
		return 0, store.ErrGroupNotFound
	}
	var n int64
	for i := range s.checkins {
		r := &s.checkins[i]
		if r.GroupCode != p.GroupCode || r.DeviceID != p.DeviceID || !r.IsActive {
			continue
		}
		if p.PlaceID != "" && r.PlaceID != p.PlaceID {
			continue
		}
		out := p.Now
		r.IsActive = false
		r.CheckedOutAt = &out
		n++
	}
	if p.PlaceID != "" && n == 0 {
		return 0, store.ErrNoActiveCheckin
	}
	return n, nil
}

// UpdateAccommodation overwrites the lodging fields on the device's
// most recent row and closes any other still-active rows.
func (s *Store) UpdateAccommodation(ctx context.Context, p store.UpdateAccommodationParams) (model.CheckinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[p.GroupCode]; !ok {
		return model.CheckinRecord{}, store.ErrGroupNotFound
	}
	target := -1
	for i := range s.checkins {
		r := &s.checkins[i]
		if r.GroupCode != p.GroupCode || r.DeviceID != p.DeviceID {
			continue
		}
		if target == -1 {
			target = i
			continue
		}
		t := &s.checkins[target]
		if r.CheckedInAt > t.CheckedInAt || (r.CheckedInAt == t.CheckedInAt && r.ID > t.ID) {
			target = i
		}
	}
	if target == -1 {
		return model.CheckinRecord{}, store.ErrNoCheckins
	}
	t := &s.checkins[target]
	pid, name := p.PlaceID, p.Name
	t.AccommodationPlaceID = &pid
	t.AccommodationName = &name
	t.AccommodationCoords = nil
	if p.Coords != nil {
		c := *p.Coords
		t.AccommodationCoords = &c
	}
	t.DisplayAccommodationToGroup = p.Share
	for i := range s.checkins {
		r := &s.checkins[i]
		if i != target && r.GroupCode == p.GroupCode && r.DeviceID == p.DeviceID && r.IsActive {
			out := p.Now
			r.IsActive = false
			r.CheckedOutAt = &out
		}
	}
	return *t, nil
}

// sweepLocked flips stale active rows inactive without touching
// checked_out_at.  Callers must hold the mutex.
func (s *Store) sweepLocked(code string, expireBefore int64) int64 {
	var n int64
	for i := range s.checkins {
		r := &s.checkins[i]
		if r.GroupCode == code && r.IsActive && r.CheckedOutAt == nil && r.CheckedInAt < expireBefore {
			r.IsActive = false
			n++
		}
	}
	return n
}

// Sweep runs the expiry sweeper on its own.
func (s *Store) Sweep(ctx context.Context, code string, expireBefore int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[code]; !ok {
		return 0, store.ErrGroupNotFound
	}
	return s.sweepLocked(code, expireBefore), nil
}

// windowLocked returns copies of the group's rows with checked_in_at >=
// since, newest first with ids breaking ties.
func (s *Store) windowLocked(code string, since int64) []model.CheckinRecord {
	recs := make([]model.CheckinRecord, 0)
	for _, r := range s.checkins {
		if r.GroupCode == code && r.CheckedInAt >= since {
			recs = append(recs, r)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CheckedInAt != recs[j].CheckedInAt {
			return recs[i].CheckedInAt > recs[j].CheckedInAt
		}
		return recs[i].ID > recs[j].ID
	})
	return recs
}

// ActiveCheckins sweeps, then returns the group's active rows.
func (s *Store) ActiveCheckins(ctx context.Context, code string, expireBefore int64) ([]model.CheckinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[code]; !ok {
		return nil, store.ErrGroupNotFound
	}
	s.sweepLocked(code, expireBefore)
	all := s.windowLocked(code, 0)
	active := make([]model.CheckinRecord, 0)
	for _, r := range all {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

// History sweeps, then returns the window rows newest first.
func (s *Store) History(ctx context.Context, code string, expireBefore, since int64) ([]model.CheckinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[code]; !ok {
		return nil, store.ErrGroupNotFound
	}
	s.sweepLocked(code, expireBefore)
	return s.windowLocked(code, since), nil
}

// Members sweeps, then derives per-device snapshots via the shared
// derivation in the store package.
func (s *Store) Members(ctx context.Context, code string, expireBefore, since int64) ([]model.MemberView, error) {
	recs, err := s.History(ctx, code, expireBefore, since)
	if err != nil {
		return nil, err
	}
	return store.DeriveMembers(recs), nil
}
