// pkg/core/geopoint.go
package core

import (
	"fmt"
	"math"
	"strconv"
)

// GeoPoint is a WGS84 latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the point lies inside the valid coordinate range.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", p.Lat)
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", p.Lng)
	}
	return nil
}

// String renders the point as "lat,lng" using the shortest decimal form
// that round-trips through strconv.ParseFloat.
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Role identifies one of the singleton markers on the map.
type Role string

const (
	RoleVehicle          Role = "vehicle"
	RoleTarget           Role = "target"
	RoleKamikaze         Role = "kamikaze"
	RoleHome             Role = "home"
	RoleOperatorPosition Role = "operator"
)

// Roles lists every role in display order.
var Roles = []Role{RoleVehicle, RoleTarget, RoleKamikaze, RoleHome, RoleOperatorPosition}

// ParseRole maps a role name to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	// the old station called the primary vehicle "uav"
	if s == "uav" {
		return RoleVehicle, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Mode selects where map clicks are routed. Modes are mutually exclusive.
type Mode string

const (
	ModeFree     Mode = "free"
	ModeWaypoint Mode = "waypoint"
	ModeRegion   Mode = "region"
)

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFree, ModeWaypoint, ModeRegion:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}
