// Package queue defines message payloads exchanged over the message broker.
package queue

// CheckinCreatedEvent is published whenever a device checks in.  It
// carries enough for downstream consumers (audit log, analytics) to act
// without querying the primary database.  Accommodation data is
// deliberately absent: it is visibility-gated and belongs to group
// reads only.
type CheckinCreatedEvent struct {
	EventID     string `json:"event_id"`
	GroupCode   string `json:"group_code"`
	DeviceID    string `json:"device_id"`
	UserName    string `json:"user_name"`
	PlaceID     string `json:"place_id"`
	PlaceName   string `json:"place_name"`
	CheckedInAt int64  `json:"checked_in_at"`
}

// GroupLeftEvent is published when a full-leave checkout deactivates a
// device's remaining check-ins.
type GroupLeftEvent struct {
	EventID      string `json:"event_id"`
	GroupCode    string `json:"group_code"`
	DeviceID     string `json:"device_id"`
	RowsAffected int64  `json:"rows_affected"`
	LeftAt       int64  `json:"left_at"`
}
