// pkg/core/mission.go
package core

import "time"

// MissionKind distinguishes the two mission message variants.
// The kind is never carried in the message text itself.
type MissionKind string

const (
	MissionPath   MissionKind = "path"
	MissionRegion MissionKind = "region"
)

// MissionRecord is a finalized mission handed to the transport.
type MissionRecord struct {
	ID        uint
	SessionID string
	Kind      MissionKind
	Message   string
	Points    []GeoPoint
	Geometry  string  // WKT
	LengthM   float64 // path length in meters, zero for regions
	AreaM2    float64 // region area in square meters, zero for paths
	Time      time.Time
}

// MissionItem is one row of the controller's waypoint table.
type MissionItem struct {
	Seq int     `json:"seq"` // 1-based
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Alt float64 `json:"alt"` // meters above home
}

// PositionFix is one telemetry update for a role marker.
type PositionFix struct {
	ID        uint
	SessionID string
	Role      Role
	Position  GeoPoint
	Heading   *float64 // degrees clockwise from north, nil when unknown
	Time      time.Time
}
