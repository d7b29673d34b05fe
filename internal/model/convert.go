package model

import (
	"encoding/json"
	"fmt"

	"github.com/groundlink/missionmap/pkg/core"
	"gorm.io/datatypes"
)

// MissionFromCore converts a core.MissionRecord to its table row.
func MissionFromCore(m core.MissionRecord) (Mission, error) {
	points, err := json.Marshal(m.Points)
	if err != nil {
		return Mission{}, fmt.Errorf("failed to marshal points: %w", err)
	}
	return Mission{
		ID:        m.ID,
		Time:      m.Time,
		SessionID: m.SessionID,
		Kind:      string(m.Kind),
		Message:   m.Message,
		Points:    datatypes.JSON(points),
		Geometry:  m.Geometry,
		LengthM:   m.LengthM,
		AreaM2:    m.AreaM2,
	}, nil
}

// MissionToCore converts a table row back to a core.MissionRecord.
func MissionToCore(m Mission) (core.MissionRecord, error) {
	var points []core.GeoPoint
	if len(m.Points) > 0 {
		if err := json.Unmarshal(m.Points, &points); err != nil {
			return core.MissionRecord{}, fmt.Errorf("failed to unmarshal points of mission %d: %w", m.ID, err)
		}
	}
	return core.MissionRecord{
		ID:        m.ID,
		SessionID: m.SessionID,
		Kind:      core.MissionKind(m.Kind),
		Message:   m.Message,
		Points:    points,
		Geometry:  m.Geometry,
		LengthM:   m.LengthM,
		AreaM2:    m.AreaM2,
		Time:      m.Time,
	}, nil
}

// PositionFixFromCore converts a core.PositionFix to its table row.
func PositionFixFromCore(f core.PositionFix) PositionFix {
	return PositionFix{
		ID:        f.ID,
		Time:      f.Time,
		SessionID: f.SessionID,
		Role:      string(f.Role),
		Lat:       f.Position.Lat,
		Lng:       f.Position.Lng,
		Heading:   f.Heading,
	}
}

// PositionFixToCore converts a table row back to a core.PositionFix.
func PositionFixToCore(f PositionFix) core.PositionFix {
	return core.PositionFix{
		ID:        f.ID,
		SessionID: f.SessionID,
		Role:      core.Role(f.Role),
		Position:  core.GeoPoint{Lat: f.Lat, Lng: f.Lng},
		Heading:   f.Heading,
		Time:      f.Time,
	}
}
