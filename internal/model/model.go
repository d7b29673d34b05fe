package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&StationInfo{},
	&Mission{},
	&PositionFix{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// StationInfo identifies the ground station that wrote the mission log
type StationInfo struct {
	gorm.Model
	StationName string `json:"stationName" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
}

func (*StationInfo) TableName() string {
	return "station_infos"
}

////////////////////////
// MISSION LOG
////////////////////////

// Mission is a finalized mission message handed to the vehicle controller.
// Points holds the decoded plan as a JSON array of {lat,lng}; Geometry holds
// the same plan as WKT in lng/lat order.
type Mission struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time      `json:"time" gorm:"index:idx_mission_time"`
	SessionID string         `json:"sessionId" gorm:"size:64;index:idx_mission_session_id"`
	Kind      string         `json:"kind" gorm:"size:16"` // path, region
	Message   string         `json:"message" gorm:"type:text"`
	Points    datatypes.JSON `json:"points"`
	Geometry  string         `json:"geometry" gorm:"type:text"`
	LengthM   float64        `json:"lengthM"`
	AreaM2    float64        `json:"areaM2"`
}

func (*Mission) TableName() string {
	return "missions"
}

// PositionFix is one telemetry update for a role marker
type PositionFix struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"index:idx_fix_time"`
	SessionID string    `json:"sessionId" gorm:"size:64;index:idx_fix_session_id"`
	Role      string    `json:"role" gorm:"size:16;index:idx_fix_role"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   *float64  `json:"heading"` // nil when unknown
}

func (*PositionFix) TableName() string {
	return "position_fixes"
}
